// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package i18n holds the lock screen strings for English and Spanish.
package i18n

import (
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeyTitle            = "lock.title"
	KeyPrompt           = "lock.prompt"
	KeyLockedOut        = "lock.locked_out"
	KeyLockedOutDetail  = "lock.locked_out_detail"
	KeyWrongPIN         = "lock.wrong_pin"
	KeyVerifierError    = "lock.verifier_error"
	KeyPINLength        = "lock.pin_length"
	KeySecurityTip      = "lock.security_tip"
	KeyForgotPIN        = "lock.forgot_pin"
	KeyRecovery         = "lock.recovery"
	KeyUnlock           = "lock.unlock"
	KeyBiometric        = "lock.biometric"
	KeyBiometricPending = "lock.biometric_pending"
	KeyBiometricFailed  = "lock.biometric_failed"
	KeyLockExpired      = "lock.expired"
	KeyHomeTitle        = "home.title"
	KeyHomeBody         = "home.body"
	KeyHelpDelete       = "help.delete"
	KeyHelpCancel       = "help.cancel"
	KeyHelpLock         = "help.lock"
	KeyHelpQuit         = "help.quit"
)

var (
	English = language.English
	Spanish = language.Spanish

	// Default is the fallback language.
	Default = Spanish

	supported = []language.Tag{Spanish, English}
	matcher   = language.NewMatcher(supported)
)

type entry struct {
	key string
	msg catalog.Message
}

func str(s string) catalog.Message { return catalog.String(s) }

var messages = map[language.Tag][]entry{
	English: {
		{KeyTitle, str("DalePay is locked")},
		{KeyPrompt, str("Enter your PIN to continue")},
		{KeyLockedOut, str("Too many attempts. Wait %ds")},
		{KeyLockedOutDetail, str("For your security, DalePay is temporarily locked after several failed attempts.")},
		{KeyWrongPIN, plural.Selectf(1, "%d",
			"=1", "Wrong PIN. %d attempt left",
			"other", "Wrong PIN. %d attempts left",
		)},
		{KeyVerifierError, str("Could not check your PIN. Try again.")},
		{KeyPINLength, str("Your PIN has %d digits")},
		{KeySecurityTip, str("**Security tip**\n\nYour money is protected. If you don't remember your PIN, you can reset it from settings once you sign in with your email and password.")},
		{KeyForgotPIN, str("Forgot your PIN?")},
		{KeyRecovery, str("Sign in with your email and password, then reset your PIN from settings.")},
		{KeyUnlock, str("Unlock")},
		{KeyBiometric, str("Use fingerprint")},
		{KeyBiometricPending, str("Waiting for the authenticator...")},
		{KeyBiometricFailed, str("Fingerprint not recognized. Use your PIN.")},
		{KeyLockExpired, str("You can try again.")},
		{KeyHomeTitle, str("Welcome back")},
		{KeyHomeBody, str("Your wallet is unlocked.")},
		{KeyHelpDelete, str("delete")},
		{KeyHelpCancel, str("cancel")},
		{KeyHelpLock, str("lock")},
		{KeyHelpQuit, str("quit")},
	},
	Spanish: {
		{KeyTitle, str("DalePay está bloqueado")},
		{KeyPrompt, str("Ingresa tu PIN para continuar")},
		{KeyLockedOut, str("Demasiados intentos. Espera %ds")},
		{KeyLockedOutDetail, str("Por seguridad, DalePay está temporalmente bloqueado debido a múltiples intentos fallidos.")},
		{KeyWrongPIN, plural.Selectf(1, "%d",
			"=1", "PIN incorrecto. %d intento restante",
			"other", "PIN incorrecto. %d intentos restantes",
		)},
		{KeyVerifierError, str("No pudimos verificar tu PIN. Intenta de nuevo.")},
		{KeyPINLength, str("Tu PIN tiene %d dígitos")},
		{KeySecurityTip, str("**Tip de seguridad**\n\nTu dinero está protegido. Si no recuerdas tu PIN, puedes restablecerlo desde la configuración una vez que ingreses con tu email y contraseña.")},
		{KeyForgotPIN, str("¿Olvidaste tu PIN?")},
		{KeyRecovery, str("Ingresa con tu email y contraseña y restablece tu PIN desde la configuración.")},
		{KeyUnlock, str("Desbloquear")},
		{KeyBiometric, str("Usar huella dactilar")},
		{KeyBiometricPending, str("Esperando al autenticador...")},
		{KeyBiometricFailed, str("Huella no reconocida. Usa tu PIN.")},
		{KeyLockExpired, str("Ya puedes intentar de nuevo.")},
		{KeyHomeTitle, str("Bienvenido de nuevo")},
		{KeyHomeBody, str("Tu billetera está desbloqueada.")},
		{KeyHelpDelete, str("borrar")},
		{KeyHelpCancel, str("cancelar")},
		{KeyHelpLock, str("bloquear")},
		{KeyHelpQuit, str("salir")},
	},
}

var builtCatalog = mustBuild()

func mustBuild() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(Default))
	for tag, entries := range messages {
		for _, e := range entries {
			if err := b.Set(tag, e.key, e.msg); err != nil {
				panic("i18n: " + err.Error())
			}
		}
	}
	return b
}

// Parse resolves a language name ("es", "en-US", "spanish") to a
// supported tag, falling back to Default.
func Parse(name string) language.Tag {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return Default
	case "english":
		return English
	case "spanish", "español", "espanol":
		return Spanish
	}
	tag, err := language.Parse(name)
	if err != nil {
		return Default
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return Default
	}
	return supported[index]
}

// Translator formats messages in one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Translator for the named language.
func New(name string) *Translator {
	tag := Parse(name)
	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builtCatalog)),
	}
}

// Tag returns the resolved language.
func (t *Translator) Tag() language.Tag { return t.tag }

// T formats the message for key.
func (t *Translator) T(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

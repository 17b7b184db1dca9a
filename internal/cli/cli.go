// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for applock.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdPrompt
	CmdSetPIN
	CmdStatus
	CmdTouch
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Language   string
	Theme      string
	LogLevel   string

	// Raw args (remaining after the command)
	Raw []string
}

const usageText = `applock - DalePay application lock gate

Keeps the wallet behind a PIN (or platform fingerprint) once the app has
been idle for longer than the freshness window.

Usage:
  applock                    Start the lock screen (default)
  applock prompt             Line-mode lock prompt
  applock set-pin            Set or replace the unlock PIN
  applock status             Show last activity and lock policy
  applock touch              Record activity now
  applock version            Show version information

Flags:
`

var commands = map[string]Command{
	"tui":     CmdTUI,
	"prompt":  CmdPrompt,
	"set-pin": CmdSetPIN,
	"setpin":  CmdSetPIN,
	"status":  CmdStatus,
	"s":       CmdStatus,
	"touch":   CmdTouch,
	"version": CmdVersion,
	"help":    CmdHelp,
}

func newFlagSet(args *Args, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("applock", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVarP(&args.ConfigPath, "config", "c", "", "config file (default: ~/.dalepay/config.toml)")
	fs.StringVar(&args.Language, "lang", "", "interface language: es, en")
	fs.StringVar(&args.Theme, "theme", "", "color theme: auto, dark, light, plain")
	fs.StringVar(&args.LogLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	fs.BoolP("help", "h", false, "show help")
	fs.BoolP("version", "v", false, "show version")
	return fs
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args, error) {
	var args Args
	fs := newFlagSet(&args, io.Discard)
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return CmdHelp, args, nil
		}
		return CmdHelp, args, err
	}
	if help, _ := fs.GetBool("help"); help {
		return CmdHelp, args, nil
	}
	if version, _ := fs.GetBool("version"); version {
		return CmdVersion, args, nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return CmdTUI, args, nil
	}
	cmd, ok := commands[strings.ToLower(rest[0])]
	if !ok {
		return CmdHelp, args, fmt.Errorf("unknown command %q", rest[0])
	}
	args.Raw = rest[1:]
	return cmd, args, nil
}

// Parse parses os.Args. Parse errors print usage and exit with status 2.
func Parse() (Command, Args) {
	cmd, args, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		PrintUsage(os.Stderr)
		os.Exit(2)
	}
	return cmd, args
}

// PrintUsage writes the usage text and flag defaults to w.
func PrintUsage(w io.Writer) {
	var args Args
	fmt.Fprint(w, usageText)
	fmt.Fprint(w, newFlagSet(&args, w).FlagUsages())
}

// HandleVersion prints build information.
func HandleVersion(w io.Writer) {
	fmt.Fprintf(w, "applock %s\n", Version)
	fmt.Fprintf(w, "  commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

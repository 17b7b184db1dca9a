// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds the crash-safe file writes behind the config file,
// the JSON activity store and the passkey credential file.
package util

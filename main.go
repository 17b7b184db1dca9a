// applock - DalePay application lock gate for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dalepay/applock/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = cli.HandleTUI(args)
	case cli.CmdPrompt:
		err = cli.HandlePrompt(args)
	case cli.CmdSetPIN:
		err = cli.HandleSetPIN(args, os.Stdin, os.Stdout)
	case cli.CmdStatus:
		err = cli.HandleStatus(args, os.Stdout)
	case cli.CmdTouch:
		err = cli.HandleTouch(args, os.Stdout)
	case cli.CmdVersion:
		cli.HandleVersion(os.Stdout)
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrAborted) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// SPDX-License-Identifier: AGPL-3.0-or-later

/*
SAM - Spec-driven Agent Management for AI-assisted software development.
It parses technical specifications into task registries, detects conflicts
between parallel tasks, generates test scaffolding, and records local
observability data for agent workflow runs.

This program is free software licensed under the terms of the GNU AGPL v3
or later.

See https://www.gnu.org/licenses/ for license details.
*/

package main

import (
	"fmt"
	"os"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/commands"
	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(clierr.ExitCodeOf(err))
	}
}

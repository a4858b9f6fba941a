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

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the sam root command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("SAM_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "sam",
		Short:         "SAM - spec-driven task management for AI-assisted development",
		Long:          "SAM parses technical specs into task registries, validates task graphs,\ngenerates test scaffolding, and tracks workflow state per feature.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of sam",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sam version %s\n", version)
		},
	})

	cmd.AddCommand(newSpecsCmd())
	cmd.AddCommand(newTasksCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newCICmd())
	cmd.AddCommand(newRollbackCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newObserveCmd())
	cmd.AddCommand(newVerifyCmd())

	return cmd
}

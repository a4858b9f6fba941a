// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/statusreport"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the workflow stage of every feature",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("status")
			if err != nil {
				return err
			}
			err = func() error {
				report, err := statusreport.Collect(s.ProjectDir)
				if err != nil {
					return clierr.Wrap(1, "collecting status", err)
				}
				if asJSON {
					data, err := json.MarshalIndent(report, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), report.RenderMarkdown())
				return nil
			}()
			s.Close("status", err)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/ci"
)

func newCICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ci",
		Short: "Detect CI environments and record run results",
	}
	cmd.AddCommand(newCIDetectCmd())
	cmd.AddCommand(newCICheckpointCmd())
	return cmd
}

func newCIDetectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Identify the CI system from environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("ci detect")
			if err != nil {
				return err
			}
			err = func() error {
				env := ci.Detect(nil)
				if asJSON {
					data, err := json.MarshalIndent(env, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), ci.RenderReport(env))
				return nil
			}()
			s.Close("ci detect", err)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newCICheckpointCmd() *cobra.Command {
	var featureID, status string
	var coverage float64

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Record a CI run result in the feature registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "passing" && status != "failing" {
				return clierr.Newf(2, "invalid status %q, want passing or failing", status)
			}

			s, err := newSession("ci checkpoint")
			if err != nil {
				return err
			}
			err = func() error {
				env := ci.Detect(nil)
				result := ci.RunResult{Status: status, Coverage: -1}
				if cmd.Flags().Changed("coverage") {
					result.Coverage = coverage
				}

				if err := ci.RecordRun(s.FeatureDir(featureID), env, result); err != nil {
					return clierr.Wrap(1, "recording CI run", err)
				}

				s.Logger.WithFeature(featureID).Info("ci run recorded",
					"environment", env.Name, "status", status, "coverage", result.Coverage)
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s run on %s\n", status, env.Name)
				return nil
			}()
			s.Close("ci checkpoint", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().StringVar(&status, "status", "", "run status (passing or failing)")
	cmd.Flags().Float64Var(&coverage, "coverage", 0, "coverage percent from the run")
	_ = cmd.MarkFlagRequired("feature")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

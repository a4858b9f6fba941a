// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/checks"
)

func newVerifyCmd() *cobra.Command {
	var featureID string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run verification checks against a feature",
	}
	cmd.PersistentFlags().StringVar(&featureID, "feature", "", "feature ID")
	_ = cmd.MarkPersistentFlagRequired("feature")

	cmd.AddCommand(newVerifyAllCmd(&featureID))
	cmd.AddCommand(newVerifyResumeCmd(&featureID))
	cmd.AddCommand(newVerifyListCmd(&featureID))
	cmd.AddCommand(newVerifyResetCmd(&featureID))
	return cmd
}

func verifyRunner(s *session, featureID string, cmd *cobra.Command) (*checks.Runner, *checks.StateStore) {
	featureDir := s.FeatureDir(featureID)
	store := checks.NewStateStore(filepath.Join(featureDir, "run"))
	deps := &checks.Deps{
		ProjectDir: s.ProjectDir,
		FeatureDir: featureDir,
		FeatureID:  featureID,
	}
	return checks.NewRunner(checks.All(), store, deps, cmd.OutOrStdout()), store
}

func newVerifyAllCmd(featureID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run every check",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("verify all")
			if err != nil {
				return err
			}
			err = func() error {
				runner, _ := verifyRunner(s, *featureID, cmd)
				if err := runner.RunAll(cmd.Context()); err != nil {
					return clierr.Wrap(3, "verification", err)
				}
				return nil
			}()
			s.Close("verify all", err)
			return err
		},
	}
}

func newVerifyResumeCmd(featureID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Re-run only the checks that failed last time",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("verify resume")
			if err != nil {
				return err
			}
			err = func() error {
				runner, _ := verifyRunner(s, *featureID, cmd)
				if err := runner.Resume(cmd.Context()); err != nil {
					return clierr.Wrap(3, "verification", err)
				}
				return nil
			}()
			s.Close("verify resume", err)
			return err
		},
	}
}

func newVerifyListCmd(featureID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list [check-id...]",
		Short: "Run the named checks, or list available checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("verify list")
			if err != nil {
				return err
			}
			err = func() error {
				if len(args) == 0 {
					for _, c := range checks.All() {
						fmt.Fprintln(cmd.OutOrStdout(), c.ID())
					}
					return nil
				}
				runner, _ := verifyRunner(s, *featureID, cmd)
				if err := runner.RunList(cmd.Context(), args); err != nil {
					return clierr.Wrap(3, "verification", err)
				}
				return nil
			}()
			s.Close("verify list", err)
			return err
		},
	}
}

func newVerifyResetCmd(featureID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear saved check state",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("verify reset")
			if err != nil {
				return err
			}
			err = func() error {
				_, store := verifyRunner(s, *featureID, cmd)
				if err := store.Reset(); err != nil {
					return clierr.Wrap(1, "resetting check state", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Check state cleared.")
				return nil
			}()
			s.Close("verify reset", err)
			return err
		},
	}
}

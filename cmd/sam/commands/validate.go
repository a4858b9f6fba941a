// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/conflict"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/gate"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/taskgraph"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Detect conflicts, cycles, and validate phase gates",
	}
	cmd.AddCommand(newValidateConflictsCmd())
	cmd.AddCommand(newValidateCyclesCmd())
	cmd.AddCommand(newValidateGateCmd())
	return cmd
}

func newValidateConflictsCmd() *cobra.Command {
	var featureID string
	var watch, markdown bool

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Scan parallel tasks for resource and logic conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("validate conflicts")
			if err != nil {
				return err
			}
			err = func() error {
				ctx := cmd.Context()
				featureDir := s.FeatureDir(featureID)

				if watch {
					w := conflict.NewWatcher(featureDir, s.ProjectDir, s.Logger.Slog())
					w.OnReport = func(report *conflict.Report) {
						fmt.Fprintf(cmd.OutOrStdout(), "[%s] %d conflict(s), blocking: %v\n",
							report.Timestamp, report.Summary.Total, report.HasBlocking())
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes. Ctrl-C to stop.")
					go s.FlushLoop(ctx)
					return w.Watch(ctx)
				}

				span := s.Tracer.StartSpan("conflict scan", "", map[string]string{"feature": featureID})
				detector, err := conflict.NewDetector(ctx, featureDir, s.ProjectDir)
				if err != nil {
					span.End(err)
					return clierr.Wrap(1, "initializing detector", err)
				}
				report, err := detector.Run(ctx)
				span.End(err)
				if err != nil {
					return clierr.Wrap(1, "running conflict scan", err)
				}

				path, err := detector.WriteJSON(report)
				if err != nil {
					return clierr.Wrap(1, "writing conflict report", err)
				}
				s.Metrics.Set("conflicts_total", float64(report.Summary.Total),
					map[string]string{"feature": featureID})

				out := cmd.OutOrStdout()
				if markdown {
					fmt.Fprint(out, report.RenderMarkdown())
				} else {
					fmt.Fprintf(out, "Found %d conflict(s): %d critical, %d major, %d minor\n",
						report.Summary.Total, report.Summary.Critical,
						report.Summary.Major, report.Summary.Minor)
					fmt.Fprintf(out, "Report written to %s\n", path)
				}
				if report.HasBlocking() {
					return clierr.New(3, "critical conflicts block parallel execution")
				}
				return nil
			}()
			s.Close("validate conflicts", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().BoolVar(&watch, "watch", false, "rescan on file changes")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the markdown report")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

func newValidateCyclesCmd() *cobra.Command {
	var featureID string
	var mermaid bool

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Detect dependency cycles in the task graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("validate cycles")
			if err != nil {
				return err
			}
			err = func() error {
				reg, err := registry.NewStore(s.FeatureDir(featureID)).Load()
				if err != nil {
					return clierr.Wrap(1, "loading registry", err)
				}
				graph := taskgraph.New(reg)
				cycles := graph.DetectCycles()

				out := cmd.OutOrStdout()
				if mermaid {
					fmt.Fprintln(out, graph.MermaidFull(len(cycles) > 0))
				}
				if len(cycles) == 0 {
					fmt.Fprintln(out, "No dependency cycles found.")
					return nil
				}
				for _, cycle := range cycles {
					fmt.Fprintf(out, "Cycle: %s\n", strings.Join(cycle, " -> "))
					for _, suggestion := range taskgraph.SuggestCycleResolution(cycle) {
						fmt.Fprintf(out, "  - %s\n", suggestion)
					}
				}
				return clierr.Newf(3, "%d dependency cycle(s) found", len(cycles))
			}()
			s.Close("validate cycles", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().BoolVar(&mermaid, "mermaid", false, "print a mermaid graph")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

func newValidateGateCmd() *cobra.Command {
	var featureID, phaseID, fromPhase, toPhase string

	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Validate a phase's quality gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			if phaseID == "" && (fromPhase == "" || toPhase == "") {
				return clierr.New(2, "either --phase or both --from and --to are required")
			}

			s, err := newSession("validate gate")
			if err != nil {
				return err
			}
			err = func() error {
				validator, err := gate.NewValidator(s.FeatureDir(featureID))
				if err != nil {
					return clierr.Wrap(1, "loading registry", err)
				}

				if phaseID == "" {
					ok, reason := validator.CanTransition(fromPhase, toPhase)
					if !ok {
						return clierr.Newf(3, "transition %s -> %s blocked: %s", fromPhase, toPhase, reason)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Transition %s -> %s allowed\n", fromPhase, toPhase)
					return nil
				}

				result, err := validator.Validate(phaseID)
				if err != nil {
					return clierr.Wrap(1, "validating gate", err)
				}

				s.Logger.WithFeature(featureID).Info("gate validated",
					"phase", phaseID, "passed", result.Passed)
				fmt.Fprint(cmd.OutOrStdout(), gate.RenderReport(phaseID, result))
				if !result.Passed {
					return clierr.Newf(3, "phase %s gate failed", phaseID)
				}
				return nil
			}()
			s.Close("validate gate", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().StringVar(&phaseID, "phase", "", "phase ID to validate")
	cmd.Flags().StringVar(&fromPhase, "from", "", "check a phase transition: source phase")
	cmd.Flags().StringVar(&toPhase, "to", "", "check a phase transition: target phase")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/classify"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/scenario"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/specparse"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/taskgraph"
)

func newSpecsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specs",
		Short: "Parse and analyze feature specifications",
	}
	cmd.AddCommand(newSpecsParseCmd())
	cmd.AddCommand(newSpecsScenariosCmd())
	cmd.AddCommand(newSpecsClassifyCmd())
	cmd.AddCommand(newSpecsImpactCmd())
	return cmd
}

func newSpecsParseCmd() *cobra.Command {
	var featureID, featureName string

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse TECHNICAL_SPEC.md into a TASKS.json registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("specs parse")
			if err != nil {
				return err
			}
			err = func() error {
				featureDir := s.FeatureDir(featureID)
				specFile := filepath.Join(featureDir, specparse.SpecFileName)

				span := s.Tracer.StartSpan("parse spec", "", map[string]string{"feature": featureID})
				parser := specparse.NewParser(specFile, featureID, featureName)
				reg, err := parser.Parse()
				span.End(err)
				if err != nil {
					return clierr.Wrap(1, "parsing spec", err)
				}

				store := registry.NewStore(featureDir)
				if err := store.Save(reg); err != nil {
					return clierr.Wrap(1, "saving registry", err)
				}

				total, completed := reg.TaskCounts()
				s.Logger.WithFeature(featureID).Info("registry created",
					"tasks", total, "completed", completed, "phases", len(reg.Phases))
				s.Metrics.Set("tasks_total", float64(total), map[string]string{"feature": featureID})

				fmt.Fprintf(cmd.OutOrStdout(), "Parsed %d tasks across %d phases into %s\n",
					total, len(reg.Phases), store.Path())
				return nil
			}()
			s.Close("specs parse", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID, e.g. 001")
	cmd.Flags().StringVar(&featureName, "name", "", "feature name override")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

func newSpecsScenariosCmd() *cobra.Command {
	var featureID string

	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Extract scenarios from EXECUTABLE_SPEC.yaml into SCENARIOS.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("specs scenarios")
			if err != nil {
				return err
			}
			err = func() error {
				featureDir := s.FeatureDir(featureID)
				spec, err := scenario.Load(filepath.Join(featureDir, "EXECUTABLE_SPEC.yaml"))
				if err != nil {
					return clierr.Wrap(1, "loading executable spec", err)
				}

				extract := scenario.ExtractAll(spec)
				path, err := scenario.WriteExtract(featureDir, extract)
				if err != nil {
					return clierr.Wrap(1, "writing scenario extract", err)
				}

				s.Logger.WithFeature(featureID).Info("scenarios extracted",
					"scenarios", extract.Counts.Scenarios,
					"contract_tests", extract.Counts.ContractTests)

				fmt.Fprintf(cmd.OutOrStdout(),
					"Extracted %d scenarios, %d contract tests, %d state machines, %d decision tables into %s\n",
					extract.Counts.Scenarios, extract.Counts.ContractTests,
					extract.Counts.StateMachines, extract.Counts.DecisionTables, path)
				return nil
			}()
			s.Close("specs scenarios", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

func newSpecsClassifyCmd() *cobra.Command {
	var featureID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Infer the project type from its files and manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("specs classify")
			if err != nil {
				return err
			}
			err = func() error {
				result := classify.Classify(s.ProjectDir)

				if featureID != "" {
					store := registry.NewStore(s.FeatureDir(featureID))
					if store.Exists() {
						reg, err := store.Load()
						if err != nil {
							return clierr.Wrap(1, "loading registry", err)
						}
						reg.Metadata.ProjectType = result.ProjectType
						if err := store.Save(reg); err != nil {
							return clierr.Wrap(1, "saving registry", err)
						}
					}
				}

				if asJSON {
					data, err := json.MarshalIndent(result, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Project type: %s\n", result.ProjectType)
				for _, e := range result.Evidence {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", e)
				}
				return nil
			}()
			s.Close("specs classify", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "also record the result in this feature's registry")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newSpecsImpactCmd() *cobra.Command {
	var featureID, taskID, storyID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "impact",
		Short: "Analyze which tasks a change to a task or story affects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (taskID == "") == (storyID == "") {
				return clierr.New(2, "exactly one of --task or --story is required")
			}

			s, err := newSession("specs impact")
			if err != nil {
				return err
			}
			err = func() error {
				reg, err := registry.NewStore(s.FeatureDir(featureID)).Load()
				if err != nil {
					return clierr.Wrap(1, "loading registry", err)
				}
				graph := taskgraph.New(reg)

				var report *taskgraph.ImpactReport
				if taskID != "" {
					report, err = graph.AnalyzeTaskImpact(featureID, taskID)
					if err != nil {
						return clierr.Wrap(1, "analyzing impact", err)
					}
				} else {
					report = graph.AnalyzeStoryImpact(featureID, storyID)
				}

				if asJSON {
					data, err := json.MarshalIndent(report, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return nil
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Impact of %s %s (risk: %s)\n", report.TargetType, report.Target, report.RiskLevel)
				fmt.Fprintf(out, "  Direct: %d task(s), transitive: %d task(s)\n",
					len(report.DirectImpact), len(report.TransitiveImpact))
				for _, rec := range report.Recommendations {
					fmt.Fprintf(out, "  - %s\n", rec)
				}
				return nil
			}()
			s.Close("specs impact", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().StringVar(&taskID, "task", "", "task ID to analyze")
	cmd.Flags().StringVar(&storyID, "story", "", "story ID to analyze")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/gherkin"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/scenario"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/testgen"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate test scaffolding from scenarios and stories",
	}
	cmd.AddCommand(newGenerateTestsCmd())
	cmd.AddCommand(newGenerateE2ECmd())
	cmd.AddCommand(newGenerateGherkinCmd())
	return cmd
}

func loadScenarios(featureDir string) (*scenario.Spec, error) {
	spec, err := scenario.Load(filepath.Join(featureDir, "EXECUTABLE_SPEC.yaml"))
	if err != nil {
		return nil, clierr.Wrap(1, "loading executable spec", err)
	}
	return spec, nil
}

// warnUnresolved reports {{VAR}} placeholders left in generated files so a
// thin CONTEXT.yaml is visible before the scaffolding is filled in.
func warnUnresolved(cmd *cobra.Command, ctx *testgen.TemplateContext, files []testgen.GeneratedFile) {
	for _, f := range files {
		if missing := ctx.Unresolved(f.Content); len(missing) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s has unresolved placeholders: %s\n",
				f.Path, strings.Join(missing, ", "))
		}
	}
}

func newGenerateTestsCmd() *cobra.Command {
	var featureID, framework, outputDir, contextFile string

	cmd := &cobra.Command{
		Use:   "tests",
		Short: "Generate unit test scaffolding (jest, pytest, cucumber)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("generate tests")
			if err != nil {
				return err
			}
			err = func() error {
				featureDir := s.FeatureDir(featureID)
				spec, err := loadScenarios(featureDir)
				if err != nil {
					return err
				}

				if contextFile == "" {
					contextFile = filepath.Join(featureDir, "CONTEXT.yaml")
				}
				ctx, err := testgen.LoadContext(contextFile)
				if err != nil {
					return clierr.Wrap(1, "loading template context", err)
				}
				gen, err := testgen.NewGenerator(framework, outputDir, ctx)
				if err != nil {
					return clierr.Wrap(2, "configuring generator", err)
				}

				files := gen.Generate(spec.Scenarios)
				warnUnresolved(cmd, ctx, files)
				written, err := testgen.WriteAll(files)
				if err != nil {
					return clierr.Wrap(1, "writing test files", err)
				}

				s.Logger.WithFeature(featureID).Info("tests generated",
					"framework", framework, "files", len(written))
				s.Metrics.Inc("tests_generated", float64(len(written)),
					map[string]string{"framework": framework})

				for _, path := range written {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			}()
			s.Close("generate tests", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().StringVar(&framework, "framework", testgen.FrameworkJest, "test framework (jest, pytest, cucumber)")
	cmd.Flags().StringVar(&outputDir, "output", "tests", "output directory")
	cmd.Flags().StringVar(&contextFile, "context", "", "template context YAML file (defaults to the feature's CONTEXT.yaml)")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

func newGenerateE2ECmd() *cobra.Command {
	var featureID, framework, outputDir, baseURL, contextFile string

	cmd := &cobra.Command{
		Use:   "e2e",
		Short: "Generate end-to-end test scaffolding (playwright, cypress)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("generate e2e")
			if err != nil {
				return err
			}
			err = func() error {
				featureDir := s.FeatureDir(featureID)
				spec, err := loadScenarios(featureDir)
				if err != nil {
					return err
				}

				if contextFile == "" {
					contextFile = filepath.Join(featureDir, "CONTEXT.yaml")
				}
				ctx, err := testgen.LoadContext(contextFile)
				if err != nil {
					return clierr.Wrap(1, "loading template context", err)
				}
				gen, err := testgen.NewE2EGenerator(framework, outputDir, baseURL, ctx)
				if err != nil {
					return clierr.Wrap(2, "configuring generator", err)
				}

				files := gen.Generate(spec.Scenarios, spec.ContractTests)
				warnUnresolved(cmd, ctx, files)
				written, err := testgen.WriteAll(files)
				if err != nil {
					return clierr.Wrap(1, "writing test files", err)
				}

				s.Logger.WithFeature(featureID).Info("e2e tests generated",
					"framework", framework, "files", len(written))
				for _, path := range written {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			}()
			s.Close("generate e2e", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().StringVar(&framework, "framework", testgen.FrameworkPlaywright, "e2e framework (playwright, cypress)")
	cmd.Flags().StringVar(&outputDir, "output", "e2e", "output directory")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "application base URL")
	cmd.Flags().StringVar(&contextFile, "context", "", "template context YAML file (defaults to the feature's CONTEXT.yaml)")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

func newGenerateGherkinCmd() *cobra.Command {
	var storiesDir, outputDir string

	cmd := &cobra.Command{
		Use:   "gherkin",
		Short: "Generate .feature files and step definitions from user stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("generate gherkin")
			if err != nil {
				return err
			}
			err = func() error {
				written, err := gherkin.GenerateFeatures(storiesDir, outputDir)
				if err != nil {
					return clierr.Wrap(1, "generating features", err)
				}
				s.Logger.Info("gherkin generated", "stories_dir", storiesDir, "files", len(written))
				for _, path := range written {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			}()
			s.Close("generate gherkin", err)
			return err
		},
	}

	cmd.Flags().StringVar(&storiesDir, "stories", "", "directory of user story markdown files")
	cmd.Flags().StringVar(&outputDir, "output", "features", "output directory")
	_ = cmd.MarkFlagRequired("stories")
	return cmd
}

// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Read and update the task registry",
	}
	cmd.AddCommand(newTasksReadCmd())
	cmd.AddCommand(newTasksUpdateCmd())
	cmd.AddCommand(newTasksCheckpointCmd())
	cmd.AddCommand(newTasksResumeCmd())
	return cmd
}

func newTasksReadCmd() *cobra.Command {
	var featureID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Show registry progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("tasks read")
			if err != nil {
				return err
			}
			err = func() error {
				reg, err := registry.NewStore(s.FeatureDir(featureID)).Load()
				if err != nil {
					return clierr.Wrap(1, "loading registry", err)
				}
				progress := reg.Progress()

				if asJSON {
					data, err := json.MarshalIndent(progress, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return nil
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Feature %s (%s)\n", reg.Metadata.FeatureID, progress.ProjectType)
				fmt.Fprintf(out, "  Phase:    %s\n", progress.CurrentPhase)
				fmt.Fprintf(out, "  Tasks:    %d/%d complete (%.1f%%)\n",
					progress.CompletedTasks, progress.TotalTasks, progress.CoveragePercent)
				if progress.LastCompletedTask != "" {
					fmt.Fprintf(out, "  Last:     %s\n", progress.LastCompletedTask)
				}
				fmt.Fprintf(out, "  Parallel: up to %d subagents\n", registry.ParallelLimit())
				return nil
			}()
			s.Close("tasks read", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

func newTasksUpdateCmd() *cobra.Command {
	var featureID, taskID, status string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Set a task's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !registry.ValidStatus(status) {
				return clierr.Newf(2, "invalid status %q", status)
			}

			s, err := newSession("tasks update")
			if err != nil {
				return err
			}
			err = func() error {
				store := registry.NewStore(s.FeatureDir(featureID))
				reg, err := store.Load()
				if err != nil {
					return clierr.Wrap(1, "loading registry", err)
				}
				if !reg.UpdateTaskStatus(taskID, status) {
					return clierr.Newf(1, "task %s not found", taskID)
				}
				if status == registry.StatusCompleted {
					reg.UpdateCheckpoint(registry.CheckpointUpdate{LastCompletedTask: &taskID})
				}
				if err := store.Save(reg); err != nil {
					return clierr.Wrap(1, "saving registry", err)
				}

				s.Logger.WithFeature(featureID).WithTask(taskID).Info("task updated", "status", status)
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s -> %s\n", taskID, status)
				return nil
			}()
			s.Close("tasks update", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().StringVar(&taskID, "task", "", "task ID")
	cmd.Flags().StringVar(&status, "status", "", "new status (pending or completed)")
	_ = cmd.MarkFlagRequired("feature")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newTasksCheckpointCmd() *cobra.Command {
	var featureID, lastTask string
	var iteration int

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Record checkpoint state for a feature",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("tasks checkpoint")
			if err != nil {
				return err
			}
			err = func() error {
				store := registry.NewStore(s.FeatureDir(featureID))
				reg, err := store.Load()
				if err != nil {
					return clierr.Wrap(1, "loading registry", err)
				}

				var update registry.CheckpointUpdate
				if lastTask != "" {
					if reg.FindTask(lastTask) == nil {
						return clierr.Newf(1, "task %s not found", lastTask)
					}
					update.LastCompletedTask = &lastTask
				}
				if cmd.Flags().Changed("iteration") {
					update.IterationCount = &iteration
				}
				reg.UpdateCheckpoint(update)

				if err := store.Save(reg); err != nil {
					return clierr.Wrap(1, "saving registry", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint recorded for feature %s\n", featureID)
				return nil
			}()
			s.Close("tasks checkpoint", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	cmd.Flags().StringVar(&lastTask, "last-task", "", "last completed task ID")
	cmd.Flags().IntVar(&iteration, "iteration", 0, "iteration count")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

func newTasksResumeCmd() *cobra.Command {
	var featureID string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Show where to pick up work in the current phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("tasks resume")
			if err != nil {
				return err
			}
			err = func() error {
				reg, err := registry.NewStore(s.FeatureDir(featureID)).Load()
				if err != nil {
					return clierr.Wrap(1, "loading registry", err)
				}

				out := cmd.OutOrStdout()
				phase := reg.CurrentPhase()
				if phase == nil {
					fmt.Fprintln(out, "All phases complete.")
					return nil
				}

				pending := reg.PendingTasks(phase.PhaseID)
				fmt.Fprintf(out, "Phase %s: %s\n", phase.PhaseID, phase.PhaseName)
				if last := reg.Checkpoint.LastCompletedTask; last != nil {
					fmt.Fprintf(out, "  Last completed: %s\n", *last)
				}
				if len(pending) == 0 {
					fmt.Fprintln(out, "  No pending tasks in this phase.")
					return nil
				}
				limit := registry.ParallelLimit()
				if limit > len(pending) {
					limit = len(pending)
				}
				fmt.Fprintf(out, "  Next up (max %d in parallel):\n", limit)
				for _, t := range pending[:limit] {
					fmt.Fprintf(out, "    %s  %s\n", t.TaskID, t.Title)
				}
				return nil
			}()
			s.Close("tasks resume", err)
			return err
		},
	}

	cmd.Flags().StringVar(&featureID, "feature", "", "feature ID")
	_ = cmd.MarkFlagRequired("feature")
	return cmd
}

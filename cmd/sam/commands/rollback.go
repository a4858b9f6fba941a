// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/rollback"
)

func newRollbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Create and restore task checkpoints",
	}
	cmd.AddCommand(newRollbackCreateCmd())
	cmd.AddCommand(newRollbackRestoreCmd())
	cmd.AddCommand(newRollbackListCmd())
	return cmd
}

func newRollbackCreateCmd() *cobra.Command {
	var description, taskID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the current commit as a rollback point",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("rollback create")
			if err != nil {
				return err
			}
			err = func() error {
				mgr := rollback.NewManager(s.ProjectDir)
				cp, err := mgr.Create(cmd.Context(), description, taskID)
				if err != nil {
					return clierr.Wrap(1, "creating checkpoint", err)
				}
				s.Logger.WithTask(taskID).Info("checkpoint created",
					"checkpoint", cp.ID, "commit", cp.Commit)
				fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint %s at %.8s\n", cp.ID, cp.Commit)
				return nil
			}()
			s.Close("rollback create", err)
			return err
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "what this checkpoint captures")
	cmd.Flags().StringVar(&taskID, "task", "", "task ID the checkpoint belongs to")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newRollbackRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Hard-reset the working tree to a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("rollback restore")
			if err != nil {
				return err
			}
			err = func() error {
				mgr := rollback.NewManager(s.ProjectDir)
				cp, err := mgr.Rollback(cmd.Context(), args[0])
				if err != nil {
					return clierr.Wrap(1, "rolling back", err)
				}
				s.Logger.Info("rolled back", "checkpoint", cp.ID, "commit", cp.Commit)
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back to %s (%.8s)\n", cp.ID, cp.Commit)
				return nil
			}()
			s.Close("rollback restore", err)
			return err
		},
	}
	return cmd
}

func newRollbackListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("rollback list")
			if err != nil {
				return err
			}
			err = func() error {
				checkpoints, err := rollback.NewManager(s.ProjectDir).List()
				if err != nil {
					return clierr.Wrap(1, "listing checkpoints", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), rollback.RenderList(checkpoints))
				return nil
			}()
			s.Close("rollback list", err)
			return err
		},
	}
	return cmd
}

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"taskloop-sync/internal/service"

	"github.com/spf13/cobra"
)

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage your tasks in a room",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <uuid> <text>",
			Short: "Add a task",
			Args:  cobra.MinimumNArgs(2),
			RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, args[0], func(s *service.SessionSync) error {
					t, err := s.AddTask(cmd.Context(), strings.Join(args[1:], " "))
					if err != nil {
						return err
					}
					return renderTask(cmd.OutOrStdout(), "Added", t)
				})
			}),
		},
		&cobra.Command{
			Use:   "toggle <uuid> <task-id>",
			Short: "Mark a task done or not done",
			Args:  cobra.ExactArgs(2),
			RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
				id, err := parseTaskID(args[1])
				if err != nil {
					return err
				}
				return a.withSession(cmd, args[0], func(s *service.SessionSync) error {
					t, err := s.ToggleTask(cmd.Context(), id)
					if err != nil {
						return err
					}
					return renderTask(cmd.OutOrStdout(), "Updated", t)
				})
			}),
		},
		&cobra.Command{
			Use:   "edit <uuid> <task-id> <text>",
			Short: "Change the text of a task",
			Args:  cobra.MinimumNArgs(3),
			RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
				id, err := parseTaskID(args[1])
				if err != nil {
					return err
				}
				return a.withSession(cmd, args[0], func(s *service.SessionSync) error {
					t, err := s.EditTask(cmd.Context(), id, strings.Join(args[2:], " "))
					if err != nil {
						return err
					}
					return renderTask(cmd.OutOrStdout(), "Updated", t)
				})
			}),
		},
		&cobra.Command{
			Use:   "delete <uuid> <task-id>",
			Short: "Delete a task",
			Args:  cobra.ExactArgs(2),
			RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
				id, err := parseTaskID(args[1])
				if err != nil {
					return err
				}
				return a.withSession(cmd, args[0], func(s *service.SessionSync) error {
					if err := s.DeleteTask(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
					return nil
				})
			}),
		},
	)
	return cmd
}

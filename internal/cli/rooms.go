package cli

import (
	"fmt"
	"strings"

	"taskloop-sync/internal/service"

	"github.com/spf13/cobra"
)

func newRoomsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rooms",
		Aliases: []string{"ls"},
		Short:   "List your study rooms",
		Args:    cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			rooms, err := a.rooms.List(cmd.Context())
			if err != nil {
				return loginError(err)
			}
			return renderRooms(cmd.OutOrStdout(), rooms)
		}),
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a study room",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			ref, err := a.rooms.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return loginError(err)
			}
			out := cmd.OutOrStdout()
			if wait {
				if _, err := a.rooms.WaitUntilReadable(cmd.Context(), ref.UUID); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "Created %s (%s)\n", ref.Name, ref.UUID)
			fmt.Fprintf(out, "Share: %s\n", a.rooms.ShareLink(ref.UUID))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the new room can be opened")
	return cmd
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <uuid> <name>",
		Short: "Rename a room you created",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, args[0], func(s *service.SessionSync) error {
				room, err := s.RenameRoom(cmd.Context(), strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed room to %s\n", room.Name)
				return nil
			})
		}),
	}
}

func newLeaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leave <uuid>",
		Short: "Leave a study room",
		Args:  cobra.ExactArgs(1),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, args[0], func(s *service.SessionSync) error {
				if err := s.LeaveSession(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Left the study room. You can rejoin with its link.")
				return nil
			})
		}),
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Delete a room you created",
		Args:  cobra.ExactArgs(1),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, args[0], func(s *service.SessionSync) error {
				if err := s.DeleteSession(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Study room deleted.")
				return nil
			})
		}),
	}
}

func newShareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "share <uuid>",
		Short: "Print the invitation links of a room",
		Args:  cobra.ExactArgs(1),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			if err := service.ValidateRoomUUID(args[0]); err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Link\t%s\n", a.rooms.ShareLink(args[0]))
			fmt.Fprintf(tw, "WhatsApp\t%s\n", a.rooms.WhatsAppLink(args[0]))
			return tw.Flush()
		}),
	}
}

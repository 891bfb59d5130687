package cli

import (
	"fmt"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/service"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		orderFlag string
		once      bool
	)
	cmd := &cobra.Command{
		Use:   "watch <uuid>",
		Short: "Show a room board and keep it up to date",
		Args:  cobra.ExactArgs(1),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			order, err := domain.ParseTaskOrder(orderFlag)
			if err != nil {
				return err
			}
			nav := newNavigator(a.stores.Device)
			s, err := a.openSession(cmd.Context(), args[0], nav)
			if err != nil {
				return err
			}
			defer s.Close()
			return watch(cmd, s, nav, order, once)
		}),
	}
	cmd.Flags().StringVar(&orderFlag, "order", string(domain.OrderNewest), "Task order: newest or oldest")
	cmd.Flags().BoolVar(&once, "once", false, "Print the board once and exit")
	return cmd
}

// watch prints the board, then reprints it on every change until the
// command is interrupted or the API asks for a login.
func watch(cmd *cobra.Command, s *service.SessionSync, nav *cliNavigator, order domain.TaskOrder, once bool) error {
	out := cmd.OutOrStdout()
	show := func() error {
		st := s.Snapshot()
		if st.Error != "" {
			fmt.Fprintf(out, "! %s\n", st.Error)
		}
		return renderBoard(out, st.Board(order))
	}
	if err := show(); err != nil || once {
		return err
	}

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-nav.login:
			return errLoginRequired
		case <-s.Done():
			return nil
		case <-s.Changes():
			fmt.Fprintln(out)
			if err := show(); err != nil {
				return err
			}
		}
	}
}

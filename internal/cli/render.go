package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"taskloop-sync/internal/domain"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderRooms(w io.Writer, rooms []domain.Room) error {
	if len(rooms) == 0 {
		_, err := fmt.Fprintln(w, "No study rooms yet. Create one with `taskloop create <name>`.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tUUID\tCREATOR\tPARTICIPANTS\tCREATED")
	for _, r := range rooms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.Name, r.UUID, r.CreatorUsername, r.ParticipantCount(), r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func renderUser(w io.Writer, u *domain.User) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID\t%d\n", u.ID)
	fmt.Fprintf(tw, "Username\t%s\n", u.Username)
	if u.Email != "" {
		fmt.Fprintf(tw, "Email\t%s\n", u.Email)
	}
	return tw.Flush()
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// renderBoard prints the rankings followed by one block per column.
func renderBoard(w io.Writer, b domain.Board) error {
	fmt.Fprintf(w, "%s (%s)\n\n", b.RoomName, b.RoomUUID)

	tw := newTable(w)
	fmt.Fprintln(tw, "#\tPARTICIPANT\tDONE\tPROGRESS")
	for _, p := range b.Rankings {
		fmt.Fprintf(tw, "%d\t%s\t%d/%d\t%.0f%%\n",
			p.Position, p.Username, p.CompletedTasks, p.TotalTasks, p.CompletionPercentage)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, c := range b.Columns {
		fmt.Fprintf(w, "\n%s\n", c.Label)
		if len(c.Tasks) == 0 {
			fmt.Fprintln(w, "  no tasks")
			continue
		}
		tw := newTable(w)
		for _, t := range c.Tasks {
			fmt.Fprintf(tw, "  %s\t%d\t%s\n", checkbox(t.IsDone), t.ID, t.Text)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func renderTask(w io.Writer, verb string, t *domain.Task) error {
	_, err := fmt.Fprintf(w, "%s task %d: %s %s\n", verb, t.ID, checkbox(t.IsDone), t.Text)
	return err
}

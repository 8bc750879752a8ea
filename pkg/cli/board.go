package cli

import (
	"fmt"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/board"
	"github.com/spf13/cobra"
)

func (a *app) boardCmd() *cobra.Command {
	var f filterFlags
	var overdue bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the board, one section per column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			now := time.Now()
			if overdue {
				for _, t := range board.NewService(a.tasks, a.users, a.log).Overdue(now) {
					fmt.Fprintf(out(cmd), "#%d %s (due %s, %s)\n", t.ID, t.Title, t.DueDate, a.assigneeLabel(t))
				}
				return nil
			}
			filter, err := f.filter(a)
			if err != nil {
				return err
			}
			return board.Render(out(cmd), board.Columns(a.tasks.List(), filter), a.userName, now)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only list overdue tasks")
	return cmd
}

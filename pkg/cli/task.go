package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/board"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/store"
	"github.com/spf13/cobra"
)

// none clears an optional field in edit.
const none = "none"

func (a *app) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, inspect and change tasks",
	}
	cmd.AddCommand(
		a.taskAddCmd(),
		a.taskListCmd(),
		a.taskShowCmd(),
		a.taskEditCmd(),
		a.taskMoveCmd(),
		a.taskRmCmd(),
	)
	return cmd
}

func (a *app) taskAddCmd() *cobra.Command {
	var (
		desc, status, priority, assignee, due string
		attach                                []string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			d := store.TaskDraft{Title: strings.Join(args, " "), Description: desc}
			var err error
			if status != "" {
				if d.Status, err = model.ParseStatus(status); err != nil {
					return err
				}
			}
			if priority != "" {
				if d.Priority, err = model.ParsePriority(priority); err != nil {
					return err
				}
			}
			if assignee != "" {
				u, err := a.resolveUser(assignee)
				if err != nil {
					return err
				}
				d.Assignee = model.IntPtr(u.ID)
			}
			if due != "" {
				date, err := model.ParseDate(due)
				if err != nil {
					return err
				}
				d.DueDate = &date
			}
			for _, url := range attach {
				d.Attachments = append(d.Attachments, model.NewAttachment(url, "", ""))
			}

			t, err := a.tasks.Create(d)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Created task #%d %q\n", t.ID, t.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "backlog, todo, in-progress or done (default backlog)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high (default medium)")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "user id, name or email")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "attachment URL (repeatable)")
	return cmd
}

func (a *app) taskListCmd() *cobra.Command {
	var status string
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			filter, err := f.filter(a)
			if err != nil {
				return err
			}
			var only model.Status
			if status != "" {
				if only, err = model.ParseStatus(status); err != nil {
					return err
				}
			}

			now := time.Now()
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tASSIGNEE\tDUE")
			for _, col := range board.Columns(a.tasks.List(), filter) {
				if only != "" && col.Status != only {
					continue
				}
				for _, t := range col.Tasks {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
						t.ID, board.Title(t, now), t.Status, t.Priority, a.assigneeLabel(t), dateLabel(t.DueDate))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only this status")
	f.register(cmd)
	return cmd
}

func (a *app) taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its comments and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			t, err := a.tasks.Get(id)
			if err != nil {
				return err
			}
			w := out(cmd)
			fmt.Fprintf(w, "#%d %s\n", t.ID, board.Title(t, time.Now()))
			fmt.Fprintf(w, "Status:   %s\n", t.Status.Title())
			fmt.Fprintf(w, "Priority: %s\n", t.Priority)
			fmt.Fprintf(w, "Assignee: %s\n", a.assigneeLabel(t))
			if t.DueDate != nil {
				fmt.Fprintf(w, "Due:      %s\n", t.DueDate)
			}
			if t.ExternalRef != nil {
				fmt.Fprintf(w, "Issue:    #%d %s\n", t.ExternalRef.IssueNumber, t.ExternalRef.URL)
			}
			fmt.Fprintf(w, "Created:  %s\n", t.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "Updated:  %s\n", t.UpdatedAt.Format(time.RFC3339))
			if t.Description != "" {
				fmt.Fprintf(w, "\n%s\n", t.Description)
			}
			if len(t.Attachments) > 0 {
				fmt.Fprintln(w, "\nAttachments:")
				for i, at := range t.Attachments {
					fmt.Fprintf(w, "  %d. [%s] %s <%s>\n", i+1, at.Type, at.Name, at.URL)
				}
			}
			if len(t.Comments) > 0 {
				fmt.Fprintln(w, "\nComments:")
				for _, c := range t.Comments {
					author := a.userName(c.AuthorRef)
					if author == "" {
						author = fmt.Sprintf("user %d", c.AuthorRef)
					}
					fmt.Fprintf(w, "  [%d] %s, %s: %s\n", c.ID, author, c.CreatedAt.Format("2006-01-02 15:04"), c.Text)
				}
			}
			return nil
		},
	}
}

func (a *app) taskEditCmd() *cobra.Command {
	var title, desc, status, priority, assignee, due string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change task fields; pass \"none\" to clear assignee or due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			var assigneeID *int
			if flags.Changed("assignee") && assignee != none {
				u, err := a.resolveUser(assignee)
				if err != nil {
					return err
				}
				assigneeID = model.IntPtr(u.ID)
			}

			t, err := a.tasks.Update(id, func(t *model.Task) error {
				if flags.Changed("title") {
					t.Title = strings.TrimSpace(title)
				}
				if flags.Changed("desc") {
					t.Description = desc
				}
				if flags.Changed("status") {
					s, err := model.ParseStatus(status)
					if err != nil {
						return err
					}
					t.Status = s
				}
				if flags.Changed("priority") {
					p, err := model.ParsePriority(priority)
					if err != nil {
						return err
					}
					t.Priority = p
				}
				if flags.Changed("assignee") {
					t.Assignee = assigneeID
				}
				if flags.Changed("due") {
					if due == none {
						t.DueDate = nil
					} else {
						d, err := model.ParseDate(due)
						if err != nil {
							return err
						}
						t.DueDate = &d
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Updated task #%d\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "title")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "status")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "user id, name or email")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	return cmd
}

func (a *app) taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			status, err := model.ParseStatus(args[1])
			if err != nil {
				return err
			}
			if _, err := a.tasks.Move(id, status); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Moved task #%d to %s\n", id, status.Title())
			return nil
		},
	}
}

func (a *app) taskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			if err := a.tasks.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted task #%d\n", id)
			return nil
		},
	}
}

// filterFlags are shared by `task list` and `board`.
type filterFlags struct {
	assignee, priority, query string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.assignee, "assignee", "a", "", "only tasks assigned to this user")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "only this priority")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "text in title or description")
}

func (f *filterFlags) filter(a *app) (board.Filter, error) {
	bf := board.Filter{Query: f.query}
	if f.assignee != "" {
		u, err := a.resolveUser(f.assignee)
		if err != nil {
			return bf, err
		}
		bf.Assignee = model.IntPtr(u.ID)
	}
	if f.priority != "" {
		p, err := model.ParsePriority(f.priority)
		if err != nil {
			return bf, err
		}
		bf.Priority = p
	}
	return bf, nil
}

func (a *app) assigneeLabel(t model.Task) string {
	if t.Assignee == nil {
		return "-"
	}
	if n := a.userName(*t.Assignee); n != "" {
		return n
	}
	return fmt.Sprintf("user %d", *t.Assignee)
}

func dateLabel(d *model.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

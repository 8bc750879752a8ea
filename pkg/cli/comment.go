package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/spf13/cobra"
)

var errNoAuthor = errors.New("no author: pass --author or set one with `taskboard user current <id>`")

func (a *app) commentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Comment on tasks",
	}

	var author, assignee string
	add := &cobra.Command{
		Use:   "add <task-id> <text>",
		Short: "Add a comment, written by the current user unless --author is given",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			var by model.User
			if author != "" {
				if by, err = a.resolveUser(author); err != nil {
					return err
				}
			} else {
				var ok bool
				if by, ok = a.users.Current(); !ok {
					return errNoAuthor
				}
			}
			var assigneeID *int
			if assignee != "" {
				u, err := a.resolveUser(assignee)
				if err != nil {
					return err
				}
				assigneeID = model.IntPtr(u.ID)
			}
			c, err := a.tasks.AddComment(taskID, by.ID, strings.Join(args[1:], " "), assigneeID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Added comment %d to task #%d\n", c.ID, taskID)
			return nil
		},
	}
	add.Flags().StringVar(&author, "author", "", "user id, name or email")
	add.Flags().StringVarP(&assignee, "assignee", "a", "", "assignee to record (default the task's)")

	rm := &cobra.Command{
		Use:   "rm <task-id> <comment-id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			commentID, err := parseID(args[1], "comment")
			if err != nil {
				return err
			}
			if err := a.tasks.DeleteComment(taskID, commentID); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted comment %d from task #%d\n", commentID, taskID)
			return nil
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}

func (a *app) attachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Manage task attachments",
	}

	var name, typ string
	add := &cobra.Command{
		Use:   "add <task-id> <url>",
		Short: "Attach a URL; the type is guessed from the extension unless --type is given",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			var at model.AttachmentType
			if typ != "" {
				if at, err = model.ParseAttachmentType(typ); err != nil {
					return err
				}
			}
			attachment := model.NewAttachment(args[1], name, at)
			if err := attachment.Validate(); err != nil {
				return err
			}
			t, err := a.tasks.AddAttachment(taskID, attachment)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Attached %s (%s) to task #%d as %d\n", attachment.Name, attachment.Type, t.ID, len(t.Attachments))
			return nil
		},
	}
	add.Flags().StringVarP(&name, "name", "n", "", "display name (default the file name)")
	add.Flags().StringVar(&typ, "type", "", "image, video, audio, document or link")

	rm := &cobra.Command{
		Use:   "rm <task-id> <n>",
		Short: "Remove the nth attachment, as numbered by `task show`",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid attachment number %q", args[1])
			}
			if err := a.tasks.RemoveAttachment(taskID, n-1); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Removed attachment %d from task #%d\n", n, taskID)
			return nil
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}

package board

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

// overdueMark prefixes the title of a task that is past its due date.
const overdueMark = "! "

// NameFunc resolves a user id to a display name.
type NameFunc func(id int) string

// Render writes the columns as text, one section per column.
func Render(w io.Writer, cols []Column, name NameFunc, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range cols {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s (%d)\n", strings.ToUpper(c.Title), len(c.Tasks))
		for _, t := range c.Tasks {
			fmt.Fprintf(tw, "  #%d\t%s\t%s\t%s\t%s\n", t.ID, Title(t, now), t.Priority, assigneeName(t, name), dueOf(t))
		}
	}
	return tw.Flush()
}

// Title returns the task title, marked when the task is overdue.
func Title(t model.Task, now time.Time) string {
	if t.IsOverdue(now) {
		return overdueMark + t.Title
	}
	return t.Title
}

func assigneeName(t model.Task, name NameFunc) string {
	if t.Assignee == nil {
		return "-"
	}
	if name != nil {
		if n := name(*t.Assignee); n != "" {
			return n
		}
	}
	return fmt.Sprintf("user %d", *t.Assignee)
}

func dueOf(t model.Task) string {
	if t.DueDate == nil {
		return ""
	}
	return "due " + t.DueDate.String()
}

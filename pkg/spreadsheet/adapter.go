// Package spreadsheet mirrors the task list into a sheet range, one row per task.
package spreadsheet

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/model"
	"go.uber.org/zap"
)

// Header is the first row of every exported sheet.
var Header = []string{"ID", "Title", "Description", "Status", "Priority", "Assignee", "Due Date", "Created", "Updated"}

const (
	colID = iota
	colTitle
	colDescription
	colStatus
	colPriority
	colAssignee
	colDueDate
	colCreated
	colUpdated
)

// Values is the cell API of one spreadsheet.
type Values interface {
	Get(ctx context.Context, rng string) ([][]string, error)
	Update(ctx context.Context, rng string, rows [][]string) error
	Clear(ctx context.Context, rng string) error
}

type TaskStore interface {
	Replace(tasks []model.Task, nextID int) error
}

type UserStore interface {
	Get(id int) (model.User, bool)
	FindByName(name string) (model.User, bool)
}

type Adapter struct {
	values Values
	tasks  TaskStore
	users  UserStore
	rng    string
	log    *zap.Logger
	now    func() time.Time
}

func New(values Values, tasks TaskStore, users UserStore, rng string, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{values: values, tasks: tasks, users: users, rng: rng, log: log, now: time.Now}
}

// Export overwrites the range with a header row and one row per task.
func (a *Adapter) Export(ctx context.Context, tasks []model.Task) error {
	rows := make([][]string, 0, len(tasks)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, t := range tasks {
		rows = append(rows, a.row(t))
	}
	if err := a.values.Clear(ctx, a.rng); err != nil {
		return err
	}
	if err := a.values.Update(ctx, a.rng, rows); err != nil {
		return err
	}
	a.log.Info("exported tasks to sheet", zap.String("range", a.rng), zap.Int("tasks", len(tasks)))
	return nil
}

func (a *Adapter) row(t model.Task) []string {
	assignee := ""
	if t.Assignee != nil {
		if u, ok := a.users.Get(*t.Assignee); ok {
			assignee = u.Name
		}
	}
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.String()
	}
	return []string{
		strconv.Itoa(t.ID),
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		assignee,
		due,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	}
}

// Import reads the range back and replaces the task list with it. Ids are
// reassigned 1..n in row order. Attachments, comments and issue links are
// not part of the sheet and do not survive an import.
func (a *Adapter) Import(ctx context.Context) ([]model.Task, error) {
	rows, err := a.values.Get(ctx, a.rng)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(rows))
	for i, r := range rows {
		if i == 0 {
			continue
		}
		t, ok := a.parseRow(r, i+1)
		if !ok {
			continue
		}
		t.ID = len(tasks) + 1
		tasks = append(tasks, t)
	}
	if err := a.tasks.Replace(tasks, len(tasks)+1); err != nil {
		return nil, fmt.Errorf("replacing tasks from sheet: %w", err)
	}
	a.log.Info("imported tasks from sheet", zap.String("range", a.rng), zap.Int("tasks", len(tasks)))
	return tasks, nil
}

func (a *Adapter) parseRow(r []string, line int) (model.Task, bool) {
	cell := func(i int) string {
		if i < len(r) {
			return strings.TrimSpace(r[i])
		}
		return ""
	}
	log := a.log.With(zap.Int("row", line))

	title := cell(colTitle)
	if title == "" {
		return model.Task{}, false
	}
	now := a.now()
	t := model.Task{
		Title:       title,
		Description: cell(colDescription),
		Status:      parseStatus(cell(colStatus)),
		Priority:    model.PriorityMedium,
		DueDate:     model.DatePtr(cell(colDueDate)),
		Attachments: []model.Attachment{},
		Comments:    []model.Comment{},
		CreatedAt:   parseTime(cell(colCreated), now),
		UpdatedAt:   parseTime(cell(colUpdated), now),
	}
	if p, err := model.ParsePriority(cell(colPriority)); err == nil {
		t.Priority = p
	}
	if name := cell(colAssignee); name != "" {
		if u, ok := a.users.FindByName(name); ok {
			t.Assignee = model.IntPtr(u.ID)
		} else {
			log.Warn("unknown assignee in sheet; leaving task unassigned", zap.String("assignee", name))
		}
	}
	return t, true
}

// parseStatus accepts the stored value or the column heading, e.g. "in-progress"
// or "In Progress". Anything else lands in the backlog.
func parseStatus(s string) model.Status {
	if st, err := model.ParseStatus(s); err == nil {
		return st
	}
	for _, st := range model.Statuses {
		if strings.EqualFold(st.Title(), s) {
			return st
		}
	}
	return model.StatusBacklog
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return fallback
}

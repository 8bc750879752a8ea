// Package board projects the task list into status columns and runs the
// operations that span both stores.
package board

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/store"
	"go.uber.org/zap"
)

// Column is one status lane of the board.
type Column struct {
	Status model.Status `json:"status"`
	Title  string       `json:"title"`
	Tasks  []model.Task `json:"tasks"`
}

// Filter narrows the tasks shown on the board. Zero values match everything.
type Filter struct {
	Assignee *int
	Priority model.Priority
	// Query matches title or description, ignoring case.
	Query string
}

func (f Filter) match(t model.Task) bool {
	if f.Assignee != nil && !t.IsAssignedTo(*f.Assignee) {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// Columns groups tasks into the four status columns, always in board order.
// Tasks keep their relative order within a column.
func Columns(tasks []model.Task, f Filter) []Column {
	cols := make([]Column, len(model.Statuses))
	idx := make(map[model.Status]int, len(model.Statuses))
	for i, s := range model.Statuses {
		cols[i] = Column{Status: s, Title: s.Title(), Tasks: []model.Task{}}
		idx[s] = i
	}
	for _, t := range tasks {
		i, ok := idx[t.Status]
		if !ok || !f.match(t) {
			continue
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	return cols
}

// Stats counts tasks per status.
func Stats(tasks []model.Task) map[model.Status]int {
	counts := make(map[model.Status]int, len(model.Statuses))
	for _, s := range model.Statuses {
		counts[s] = 0
	}
	for _, t := range tasks {
		if _, ok := counts[t.Status]; ok {
			counts[t.Status]++
		}
	}
	return counts
}

// Overdue returns the unfinished tasks due before the day of now, earliest first.
func Overdue(tasks []model.Task, now time.Time) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.IsOverdue(now) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out
}

type TaskStore interface {
	List() []model.Task
	UnassignUser(userID int) ([]int, error)
}

type UserStore interface {
	Get(id int) (model.User, bool)
	Delete(id int) error
}

// Service runs operations that touch both stores.
type Service struct {
	tasks TaskStore
	users UserStore
	log   *zap.Logger
}

func NewService(tasks TaskStore, users UserStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{tasks: tasks, users: users, log: log}
}

// DeleteUser removes a user and clears the assignee of exactly the tasks that
// referenced it. It returns the ids of those tasks. Comments keep their
// author references.
func (s *Service) DeleteUser(id int) ([]int, error) {
	u, ok := s.users.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", store.ErrUserNotFound, id)
	}
	ids, err := s.tasks.UnassignUser(id)
	if err != nil {
		return nil, fmt.Errorf("unassigning tasks of user %d: %w", id, err)
	}
	if err := s.users.Delete(id); err != nil {
		return ids, err
	}
	s.log.Info("user deleted", zap.Int("user", id), zap.String("name", u.Name), zap.Ints("unassigned", ids))
	return ids, nil
}

// Overdue lists the overdue tasks currently in the store.
func (s *Service) Overdue(now time.Time) []model.Task {
	return Overdue(s.tasks.List(), now)
}

package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/model"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// TaskDraft holds the caller-settable fields of a new task. Empty status and
// priority default to backlog and medium.
type TaskDraft struct {
	Title       string
	Description string
	Status      model.Status
	Priority    model.Priority
	Assignee    *int
	DueDate     *model.Date
	Attachments []model.Attachment
}

// TaskStore exclusively owns tasks and their comments.
type TaskStore struct {
	db  *DB
	log *zap.Logger
	now func() time.Time

	mu       sync.RWMutex
	tasks    []model.Task
	nextID   int
	lastSync time.Time
}

// NewTaskStore loads the persisted task list.
func NewTaskStore(db *DB, log *zap.Logger) (*TaskStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &TaskStore{db: db, log: log, now: time.Now, nextID: 1}
	err := db.view(func(tx *bolt.Tx) error {
		tasks, err := readBucket[model.Task](tx, bucketTasks)
		if err != nil {
			return err
		}
		s.tasks = tasks
		if err := getMeta(tx, keyNextTaskID, &s.nextID); err != nil {
			return err
		}
		return getMeta(tx, keyLastSync, &s.lastSync)
	})
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	for _, t := range s.tasks {
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}
	return s, nil
}

// persist writes tasks and nextID in one transaction and only then swaps
// them in, so a failed write leaves the store as it was. Caller holds mu.
func (s *TaskStore) persist(tasks []model.Task, nextID int) error {
	err := s.db.update(func(tx *bolt.Tx) error {
		if err := rewriteBucket(tx, bucketTasks, tasks, func(t model.Task) int { return t.ID }); err != nil {
			return err
		}
		return putMeta(tx, keyNextTaskID, nextID)
	})
	if err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	s.tasks = tasks
	s.nextID = nextID
	return nil
}

func (s *TaskStore) copyTasks() []model.Task {
	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (s *TaskStore) indexOf(id int) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) Create(d TaskDraft) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.Status == "" {
		d.Status = model.StatusBacklog
	}
	if d.Priority == "" {
		d.Priority = model.PriorityMedium
	}
	now := s.now()
	task := model.Task{
		ID:          s.nextID,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Status:      d.Status,
		Priority:    d.Priority,
		Assignee:    d.Assignee,
		DueDate:     d.DueDate,
		Attachments: append([]model.Attachment{}, d.Attachments...),
		Comments:    []model.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}

	tasks := append(s.copyTasks(), task)
	if err := s.persist(tasks, s.nextID+1); err != nil {
		return model.Task{}, err
	}
	s.log.Debug("task created", zap.Int("id", task.ID), zap.String("title", task.Title))
	return task.Clone(), nil
}

func (s *TaskStore) Get(id int) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	return s.tasks[i].Clone(), nil
}

// List returns a deep copy of every task in store order.
func (s *TaskStore) List() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyTasks()
}

func (s *TaskStore) NextID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// Update applies fn to a copy of the task, validates the result and persists it.
// ID, CreatedAt and Comments ownership stay with the store.
func (s *TaskStore) Update(id int, fn func(*model.Task) error) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, fn)
}

func (s *TaskStore) updateLocked(id int, fn func(*model.Task) error) (model.Task, error) {
	i := s.indexOf(id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	tasks := s.copyTasks()
	t := &tasks[i]
	if err := fn(t); err != nil {
		return model.Task{}, err
	}
	t.ID = s.tasks[i].ID
	t.CreatedAt = s.tasks[i].CreatedAt
	t.UpdatedAt = s.now()
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}
	if err := s.persist(tasks, s.nextID); err != nil {
		return model.Task{}, err
	}
	return t.Clone(), nil
}

// Move puts a task in another column.
func (s *TaskStore) Move(id int, status model.Status) (model.Task, error) {
	return s.Update(id, func(t *model.Task) error {
		t.Status = status
		return nil
	})
}

func (s *TaskStore) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	tasks := s.copyTasks()
	tasks = append(tasks[:i], tasks[i+1:]...)
	return s.persist(tasks, s.nextID)
}

// AddComment appends a comment; a nil assignee defaults to the task's
// current assignee.
func (s *TaskStore) AddComment(taskID, authorID int, text string, assignee *int) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added model.Comment
	_, err := s.updateLocked(taskID, func(t *model.Task) error {
		if strings.TrimSpace(text) == "" {
			return model.ErrEmptyComment
		}
		nextID := 1
		for _, c := range t.Comments {
			if c.ID >= nextID {
				nextID = c.ID + 1
			}
		}
		if assignee == nil && t.Assignee != nil {
			assignee = model.IntPtr(*t.Assignee)
		}
		added = model.Comment{
			ID:          nextID,
			AuthorRef:   authorID,
			AssigneeRef: assignee,
			Text:        text,
			CreatedAt:   s.now(),
		}
		t.Comments = append(t.Comments, added)
		return nil
	})
	return added, err
}

func (s *TaskStore) DeleteComment(taskID, commentID int) error {
	_, err := s.Update(taskID, func(t *model.Task) error {
		for i, c := range t.Comments {
			if c.ID == commentID {
				t.Comments = append(t.Comments[:i], t.Comments[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %d", ErrCommentNotFound, commentID)
	})
	return err
}

func (s *TaskStore) AddAttachment(taskID int, a model.Attachment) (model.Task, error) {
	return s.Update(taskID, func(t *model.Task) error {
		t.Attachments = append(t.Attachments, a)
		return nil
	})
}

// RemoveAttachment removes the attachment at the given zero-based position.
func (s *TaskStore) RemoveAttachment(taskID, index int) error {
	_, err := s.Update(taskID, func(t *model.Task) error {
		if index < 0 || index >= len(t.Attachments) {
			return fmt.Errorf("attachment index %d out of range", index)
		}
		t.Attachments = append(t.Attachments[:index], t.Attachments[index+1:]...)
		return nil
	})
	return err
}

// UnassignUser clears the assignee of every task assigned to userID and
// returns the affected task ids. Other tasks are left untouched.
func (s *TaskStore) UnassignUser(userID int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.copyTasks()
	var ids []int
	now := s.now()
	for i := range tasks {
		if tasks[i].IsAssignedTo(userID) {
			tasks[i].Assignee = nil
			tasks[i].UpdatedAt = now
			ids = append(ids, tasks[i].ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.persist(tasks, s.nextID); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetExternalRefs records the issue each task was pushed to. Unknown ids are skipped.
func (s *TaskStore) SetExternalRefs(refs map[int]model.ExternalRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.copyTasks()
	for i := range tasks {
		if ref, ok := refs[tasks[i].ID]; ok {
			r := ref
			tasks[i].ExternalRef = &r
		}
	}
	return s.persist(tasks, s.nextID)
}

// Replace swaps in a whole new task list atomically. It backs pull and
// spreadsheet import, which replace rather than merge.
func (s *TaskStore) Replace(tasks []model.Task, nextID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]bool, len(tasks))
	next := make([]model.Task, len(tasks))
	for i, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %d: %w", t.ID, err)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: task %d", ErrDuplicateID, t.ID)
		}
		seen[t.ID] = true
		if t.ID >= nextID {
			nextID = t.ID + 1
		}
		next[i] = t.Clone()
	}
	if nextID < 1 {
		nextID = 1
	}
	if err := s.persist(next, nextID); err != nil {
		return err
	}
	s.log.Info("task list replaced", zap.Int("tasks", len(next)), zap.Int("next_id", nextID))
	return nil
}

func (s *TaskStore) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

func (s *TaskStore) SetLastSync(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.update(func(tx *bolt.Tx) error {
		return putMeta(tx, keyLastSync, t)
	}); err != nil {
		return fmt.Errorf("saving last sync time: %w", err)
	}
	s.lastSync = t
	return nil
}

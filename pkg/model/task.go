package model

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// Status is the board column a task lives in.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists every column in board order.
var Statuses = []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusDone}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentVideo    AttachmentType = "video"
	AttachmentAudio    AttachmentType = "audio"
	AttachmentDocument AttachmentType = "document"
	AttachmentLink     AttachmentType = "link"
)

var AttachmentTypes = []AttachmentType{AttachmentImage, AttachmentVideo, AttachmentAudio, AttachmentDocument, AttachmentLink}

var (
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidPriority       = errors.New("invalid priority")
	ErrInvalidAttachmentType = errors.New("invalid attachment type")
	ErrEmptyTitle            = errors.New("title must not be empty")
	ErrEmptyAttachmentURL    = errors.New("attachment url must not be empty")
	ErrEmptyComment          = errors.New("comment text must not be empty")
)

// ParseStatus accepts the canonical status names only.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Title is the column heading shown on the board.
func (s Status) Title() string {
	switch s {
	case StatusBacklog:
		return "Backlog"
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

func ParseAttachmentType(s string) (AttachmentType, error) {
	t := AttachmentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAttachmentType, s)
	}
	return t, nil
}

func (t AttachmentType) Valid() bool {
	for _, v := range AttachmentTypes {
		if t == v {
			return true
		}
	}
	return false
}

var extensionTypes = map[string]AttachmentType{
	".png": AttachmentImage, ".jpg": AttachmentImage, ".jpeg": AttachmentImage,
	".gif": AttachmentImage, ".webp": AttachmentImage, ".svg": AttachmentImage,
	".mp4": AttachmentVideo, ".webm": AttachmentVideo, ".mov": AttachmentVideo,
	".mp3": AttachmentAudio, ".wav": AttachmentAudio, ".ogg": AttachmentAudio,
	".pdf": AttachmentDocument, ".doc": AttachmentDocument, ".docx": AttachmentDocument,
	".xls": AttachmentDocument, ".xlsx": AttachmentDocument, ".ppt": AttachmentDocument,
	".pptx": AttachmentDocument, ".txt": AttachmentDocument, ".md": AttachmentDocument,
}

// DetectAttachmentType guesses the attachment type from the URL's file extension.
// Anything unrecognised is a plain link.
func DetectAttachmentType(url string) AttachmentType {
	p := url
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if t, ok := extensionTypes[strings.ToLower(path.Ext(p))]; ok {
		return t
	}
	return AttachmentLink
}

// Attachment is a file or link hanging off a task.
type Attachment struct {
	Type AttachmentType `json:"type"`
	URL  string         `json:"url"`
	Name string         `json:"name"`
}

// NewAttachment fills in the type and name when they are not given.
func NewAttachment(url, name string, typ AttachmentType) Attachment {
	if typ == "" {
		typ = DetectAttachmentType(url)
	}
	if name == "" {
		trimmed := url
		if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
			trimmed = trimmed[:i]
		}
		name = path.Base(strings.TrimRight(trimmed, "/"))
	}
	return Attachment{Type: typ, URL: url, Name: name}
}

func (a Attachment) Validate() error {
	if !a.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAttachmentType, a.Type)
	}
	if strings.TrimSpace(a.URL) == "" {
		return ErrEmptyAttachmentURL
	}
	return nil
}

// Comment is a note left on a task. AssigneeRef records who the task was
// assigned to when the comment was written.
type Comment struct {
	ID          int       `json:"id"`
	AuthorRef   int       `json:"authorRef"`
	AssigneeRef *int      `json:"assigneeRef,omitempty"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ExternalRef links a task to the issue it was pushed to or pulled from.
type ExternalRef struct {
	IssueNumber int    `json:"issueNumber"`
	URL         string `json:"url"`
}

// Task is a card on the board.
type Task struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      Status       `json:"status"`
	Priority    Priority     `json:"priority"`
	Assignee    *int         `json:"assignee,omitempty"`
	DueDate     *Date        `json:"dueDate,omitempty"`
	Attachments []Attachment `json:"attachments"`
	Comments    []Comment    `json:"comments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	ExternalRef *ExternalRef `json:"externalRef,omitempty"`
}

// Validate checks the closed enumerations and required fields.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	for i, a := range t.Attachments {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
	}
	for _, c := range t.Comments {
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("comment %d: %w", c.ID, ErrEmptyComment)
		}
	}
	return nil
}

func (t *Task) IsAssignedTo(userID int) bool {
	return t != nil && t.Assignee != nil && *t.Assignee == userID
}

// IsOverdue reports whether an unfinished task's due date is before the day of now.
func (t *Task) IsOverdue(now time.Time) bool {
	if t == nil || t.DueDate == nil || t.Status == StatusDone {
		return false
	}
	return t.DueDate.Before(DateOf(now))
}

// Clone returns a deep copy so callers can't mutate store-owned slices.
func (t Task) Clone() Task {
	c := t
	if t.Assignee != nil {
		c.Assignee = IntPtr(*t.Assignee)
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.ExternalRef != nil {
		r := *t.ExternalRef
		c.ExternalRef = &r
	}
	c.Attachments = make([]Attachment, len(t.Attachments))
	copy(c.Attachments, t.Attachments)
	c.Comments = make([]Comment, len(t.Comments))
	for i, cm := range t.Comments {
		if cm.AssigneeRef != nil {
			cm.AssigneeRef = IntPtr(*cm.AssigneeRef)
		}
		c.Comments[i] = cm
	}
	return c
}

func IntPtr(v int) *int { return &v }

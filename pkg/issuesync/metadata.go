package issuesync

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/harrisonrobin/taskboard/pkg/model"
	"go.uber.org/zap"
)

// The metadata block lives inside an HTML comment so the tracker doesn't render it.
const (
	metadataStart = "<!-- KANBAN_METADATA_START"
	metadataEnd   = "KANBAN_METADATA_END -->"
)

var errMalformedMetadata = errors.New("malformed metadata block")

var (
	priorityPattern = regexp.MustCompile(`\*\*Priority:\*\*\s*(\w+)`)
	dueDatePattern  = regexp.MustCompile(`\*\*Due Date:\*\*\s*(\d{4}-\d{2}-\d{2})`)
	fieldLine       = regexp.MustCompile(`(?m)^[ \t]*\*\*(?:Priority|Due Date):\*\*.*(?:\r?\n)?`)
	commentMarkup   = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// Metadata carries the task fields an issue has no native place for.
type Metadata struct {
	Priority    model.Priority     `json:"priority"`
	DueDate     string             `json:"dueDate"`
	Description string             `json:"description"`
	Comments    []model.Comment    `json:"comments"`
	Attachments []model.Attachment `json:"attachments"`
}

func metadataOf(t model.Task) Metadata {
	m := Metadata{
		Priority:    t.Priority,
		Description: t.Description,
		Comments:    t.Comments,
		Attachments: t.Attachments,
	}
	if t.DueDate != nil {
		m.DueDate = t.DueDate.String()
	}
	if m.Comments == nil {
		m.Comments = []model.Comment{}
	}
	if m.Attachments == nil {
		m.Attachments = []model.Attachment{}
	}
	return m
}

// EncodeBody renders the issue body for a task: the description, a readable
// priority/due-date summary, and the hidden metadata block.
func EncodeBody(t model.Task) (string, error) {
	// json.Marshal escapes '<' and '>', so the payload can never close the comment.
	payload, err := json.Marshal(metadataOf(t))
	if err != nil {
		return "", fmt.Errorf("encoding metadata for task %d: %w", t.ID, err)
	}

	var b strings.Builder
	if desc := strings.TrimSpace(t.Description); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}
	b.WriteString(fmt.Sprintf("**Priority:** %s\n", t.Priority))
	if t.DueDate != nil {
		b.WriteString(fmt.Sprintf("**Due Date:** %s\n", t.DueDate))
	}
	b.WriteString("\n")
	b.WriteString(metadataStart)
	b.WriteString("\n")
	b.Write(payload)
	b.WriteString("\n")
	b.WriteString(metadataEnd)
	return b.String(), nil
}

// DecodeBody recovers task metadata from an issue body. It never fails: a
// body without a block goes through the text patterns, a broken block
// degrades to a plain description.
func DecodeBody(body string, log *zap.Logger) Metadata {
	if log == nil {
		log = zap.NewNop()
	}
	m, err := decodeBlock(body)
	switch {
	case err == nil:
		return m
	case errors.Is(err, errMalformedMetadata):
		log.Warn("ignoring malformed metadata block in issue body", zap.Error(err))
		return Metadata{
			Priority:    model.PriorityMedium,
			Description: stripMarkup(body),
			Comments:    []model.Comment{},
			Attachments: []model.Attachment{},
		}
	default:
		return decodeText(body)
	}
}

var errNoBlock = errors.New("no metadata block")

func decodeBlock(body string) (Metadata, error) {
	// The description sits above the block and may quote the marker.
	start := strings.LastIndex(body, metadataStart)
	if start < 0 {
		return Metadata{}, errNoBlock
	}
	rest := body[start+len(metadataStart):]
	end := strings.Index(rest, metadataEnd)
	if end < 0 {
		return Metadata{}, fmt.Errorf("%w: missing end marker", errMalformedMetadata)
	}

	var m Metadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &m); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", errMalformedMetadata, err)
	}
	if p, err := model.ParsePriority(string(m.Priority)); err == nil {
		m.Priority = p
	} else {
		m.Priority = model.PriorityMedium
	}
	if model.DatePtr(m.DueDate) == nil {
		m.DueDate = ""
	}
	comments := make([]model.Comment, 0, len(m.Comments))
	for _, c := range m.Comments {
		if strings.TrimSpace(c.Text) != "" {
			comments = append(comments, c)
		}
	}
	m.Comments = comments
	if m.Attachments == nil {
		m.Attachments = []model.Attachment{}
	}
	valid := m.Attachments[:0]
	for _, a := range m.Attachments {
		if a.Validate() == nil {
			valid = append(valid, a)
		}
	}
	m.Attachments = valid
	return m, nil
}

// decodeText is the fallback for bodies written by hand.
func decodeText(body string) Metadata {
	m := Metadata{
		Priority:    model.PriorityMedium,
		Comments:    []model.Comment{},
		Attachments: []model.Attachment{},
	}
	if match := priorityPattern.FindStringSubmatch(body); len(match) > 1 {
		if p, err := model.ParsePriority(match[1]); err == nil {
			m.Priority = p
		}
	}
	if match := dueDatePattern.FindStringSubmatch(body); len(match) > 1 {
		if model.DatePtr(match[1]) != nil {
			m.DueDate = match[1]
		}
	}
	m.Description = stripMarkup(fieldLine.ReplaceAllString(body, ""))
	if m.Description != strings.TrimSpace(body) {
		return m
	}
	// Nothing to strip: keep the body byte for byte.
	m.Description = body
	return m
}

// stripMarkup removes HTML comments, including an unterminated metadata block.
func stripMarkup(body string) string {
	out := commentMarkup.ReplaceAllString(body, "")
	if i := strings.Index(out, metadataStart); i >= 0 {
		out = out[:i]
	}
	return strings.TrimSpace(out)
}

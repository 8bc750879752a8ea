package issuesync

import (
	"context"
	"fmt"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/tracker"
)

// fakeTracker is an in-memory repository.
type fakeTracker struct {
	issues        []tracker.Issue
	labels        []tracker.Label
	collaborators []string

	createdIssues int
	createdLabels int
	updatedIssues int

	// failCreateAfter makes the nth CreateIssue call (1-based) fail.
	failCreateAfter int
	listErr         error
}

func (f *fakeTracker) ListIssues(ctx context.Context) ([]tracker.Issue, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]tracker.Issue, len(f.issues))
	copy(out, f.issues)
	return out, nil
}

func (f *fakeTracker) ListLabels(ctx context.Context) ([]tracker.Label, error) {
	return append([]tracker.Label(nil), f.labels...), nil
}

func (f *fakeTracker) CreateLabel(ctx context.Context, l tracker.Label) (tracker.Label, error) {
	f.labels = append(f.labels, l)
	f.createdLabels++
	return l, nil
}

func (f *fakeTracker) CreateIssue(ctx context.Context, req tracker.IssueRequest) (tracker.Issue, error) {
	if f.failCreateAfter > 0 && f.createdIssues+1 >= f.failCreateAfter {
		return tracker.Issue{}, &tracker.RequestError{Status: 422, Message: "Validation Failed"}
	}
	n := len(f.issues) + 1
	now := time.Date(2024, 1, 1, 0, 0, n, 0, time.UTC)
	is := tracker.Issue{
		Number:    n,
		Title:     req.Title,
		Body:      req.Body,
		URL:       fmt.Sprintf("https://github.com/acme/board/issues/%d", n),
		Labels:    append([]string(nil), req.Labels...),
		Assignees: append([]string(nil), req.Assignees...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.issues = append(f.issues, is)
	f.createdIssues++
	return is, nil
}

func (f *fakeTracker) UpdateIssue(ctx context.Context, number int, req tracker.IssueRequest) (tracker.Issue, error) {
	for i := range f.issues {
		if f.issues[i].Number == number {
			f.issues[i].Body = req.Body
			f.issues[i].Labels = append([]string(nil), req.Labels...)
			f.issues[i].Assignees = append([]string(nil), req.Assignees...)
			f.updatedIssues++
			return f.issues[i], nil
		}
	}
	return tracker.Issue{}, &tracker.RequestError{Status: 404, Message: "Not Found"}
}

func (f *fakeTracker) ListCollaborators(ctx context.Context) ([]string, error) {
	return append([]string(nil), f.collaborators...), nil
}

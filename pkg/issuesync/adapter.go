// Package issuesync reconciles the local task list with a repository's issues.
//
// Issues are matched to tasks by exact title. Status travels as one of four
// labels; priority, due date, attachments and comments travel in a hidden
// metadata block inside the issue body. Pull replaces the local list, it does
// not merge.
package issuesync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/taskboard/pkg/logger"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/store"
	"github.com/harrisonrobin/taskboard/pkg/tracker"
	"go.uber.org/zap"
)

// Tracker is the remote issue API for one repository.
type Tracker interface {
	ListIssues(ctx context.Context) ([]tracker.Issue, error)
	ListLabels(ctx context.Context) ([]tracker.Label, error)
	CreateLabel(ctx context.Context, l tracker.Label) (tracker.Label, error)
	CreateIssue(ctx context.Context, req tracker.IssueRequest) (tracker.Issue, error)
	UpdateIssue(ctx context.Context, number int, req tracker.IssueRequest) (tracker.Issue, error)
	ListCollaborators(ctx context.Context) ([]string, error)
}

// TaskStore is the part of the task store the adapter writes through.
type TaskStore interface {
	Replace(tasks []model.Task, nextID int) error
	SetExternalRefs(refs map[int]model.ExternalRef) error
	SetLastSync(t time.Time) error
}

// UserStore is the part of the user store the adapter reads and writes.
type UserStore interface {
	Get(id int) (model.User, bool)
	FindByExternalIdentity(login string) (model.User, bool)
	Add(d store.UserDraft) (model.User, error)
}

// PushResult counts what a push wrote to the tracker.
type PushResult struct {
	Pushed        int
	Created       int
	Updated       int
	LabelsCreated int
}

// PullResult is the task list a pull stored, numbered from 1.
type PullResult struct {
	Tasks  []model.Task
	NextID int
}

// Config tunes an Adapter.
type Config struct {
	// LabelColors maps each status to the hex color used when its label has
	// to be created. Missing entries fall back to gray.
	LabelColors map[model.Status]string
	Logger      *zap.Logger
}

// Adapter pushes and pulls tasks. It holds no board state of its own.
type Adapter struct {
	tracker Tracker
	tasks   TaskStore
	users   UserStore
	colors  map[model.Status]string
	log     *zap.Logger
	now     func() time.Time
}

// New builds an Adapter over a tracker and the local stores.
func New(tr Tracker, tasks TaskStore, users UserStore, cfg Config) *Adapter {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	colors := make(map[model.Status]string, len(model.Statuses))
	for _, s := range model.Statuses {
		colors[s] = "ededed"
		if c := strings.TrimPrefix(cfg.LabelColors[s], "#"); c != "" {
			colors[s] = c
		}
	}
	return &Adapter{tracker: tr, tasks: tasks, users: users, colors: colors, log: log, now: time.Now}
}

func (a *Adapter) begin(ctx context.Context, op string) (context.Context, *zap.Logger) {
	if logger.RunID(ctx) == "" {
		ctx = logger.ContextWithRunID(ctx, uuid.NewString())
	}
	return ctx, logger.WithRunID(ctx, a.log).With(zap.String("op", op))
}

// Push writes every task to the tracker, creating issues for unknown titles
// and updating matched ones. The first failure aborts the push; issues
// already written stay written and the local store is not touched.
func (a *Adapter) Push(ctx context.Context, tasks []model.Task) (PushResult, error) {
	ctx, log := a.begin(ctx, "push")
	res, refs, err := a.push(ctx, log, tasks)
	if err != nil {
		log.Error("push aborted", zap.Int("pushed", res.Pushed), zap.Error(err))
		return res, err
	}
	if err := a.tasks.SetExternalRefs(refs); err != nil {
		return res, err
	}
	if err := a.tasks.SetLastSync(a.now()); err != nil {
		return res, err
	}
	log.Info("push complete",
		zap.Int("pushed", res.Pushed),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("labels_created", res.LabelsCreated))
	return res, nil
}

func (a *Adapter) push(ctx context.Context, log *zap.Logger, tasks []model.Task) (PushResult, map[int]model.ExternalRef, error) {
	var res PushResult

	created, err := a.ensureLabels(ctx, log)
	res.LabelsCreated = created
	if err != nil {
		return res, nil, err
	}

	issues, err := a.tracker.ListIssues(ctx)
	if err != nil {
		return res, nil, err
	}
	byTitle := make(map[string]tracker.Issue, len(issues))
	for _, is := range issues {
		// first match wins; duplicates are left alone
		if _, dup := byTitle[is.Title]; !dup {
			byTitle[is.Title] = is
		}
	}

	logins, err := a.tracker.ListCollaborators(ctx)
	if err != nil {
		return res, nil, err
	}
	collaborators := make(map[string]bool, len(logins))
	for _, l := range logins {
		collaborators[strings.ToLower(l)] = true
	}

	refs := make(map[int]model.ExternalRef, len(tasks))
	for _, t := range tasks {
		body, err := EncodeBody(t)
		if err != nil {
			return res, nil, err
		}
		assignees := a.assigneesFor(t, collaborators, log)

		var written tracker.Issue
		if existing, ok := byTitle[t.Title]; ok {
			written, err = a.tracker.UpdateIssue(ctx, existing.Number, tracker.IssueRequest{
				Body:      body,
				Labels:    replaceStatusLabel(existing.Labels, t.Status),
				Assignees: assignees,
			})
			if err != nil {
				return res, nil, err
			}
			if written.Number == 0 {
				written.Number = existing.Number
			}
			if written.URL == "" {
				written.URL = existing.URL
			}
			res.Updated++
			log.Debug("updated issue", zap.Int("task", t.ID), zap.Int("issue", written.Number))
		} else {
			written, err = a.tracker.CreateIssue(ctx, tracker.IssueRequest{
				Title:     t.Title,
				Body:      body,
				Labels:    []string{LabelForStatus(t.Status)},
				Assignees: assignees,
			})
			if err != nil {
				return res, nil, err
			}
			res.Created++
			log.Debug("created issue", zap.Int("task", t.ID), zap.Int("issue", written.Number))
		}
		refs[t.ID] = model.ExternalRef{IssueNumber: written.Number, URL: written.URL}
		res.Pushed++
	}
	return res, refs, nil
}

// ensureLabels creates whichever status labels are missing. Safe to call on
// every push.
func (a *Adapter) ensureLabels(ctx context.Context, log *zap.Logger) (int, error) {
	labels, err := a.tracker.ListLabels(ctx)
	if err != nil {
		return 0, err
	}
	existing := make(map[string]bool, len(labels))
	for _, l := range labels {
		existing[strings.ToLower(l.Name)] = true
	}

	created := 0
	for _, s := range model.Statuses {
		name := LabelForStatus(s)
		if existing[name] {
			continue
		}
		if _, err := a.tracker.CreateLabel(ctx, tracker.Label{Name: name, Color: a.colors[s]}); err != nil {
			return created, err
		}
		log.Info("created status label", zap.String("label", name))
		created++
	}
	return created, nil
}

// assigneesFor maps the task's assignee to a tracker login. Users without an
// external identity, or whose login can't be assigned, are left off.
func (a *Adapter) assigneesFor(t model.Task, collaborators map[string]bool, log *zap.Logger) []string {
	if t.Assignee == nil {
		return []string{}
	}
	u, ok := a.users.Get(*t.Assignee)
	if !ok || u.ExternalIdentity == "" {
		return []string{}
	}
	if !collaborators[strings.ToLower(u.ExternalIdentity)] {
		log.Warn("assignee is not a repository collaborator; leaving issue unassigned",
			zap.Int("task", t.ID), zap.String("login", u.ExternalIdentity))
		return []string{}
	}
	return []string{u.ExternalIdentity}
}

// Pull rebuilds the task list from the tracker and replaces the local list
// with it. The new list is fully built before the store is touched.
func (a *Adapter) Pull(ctx context.Context) (PullResult, error) {
	ctx, log := a.begin(ctx, "pull")
	res, err := a.pull(ctx, log)
	if err != nil {
		log.Error("pull failed", zap.Error(err))
		return PullResult{}, err
	}
	log.Info("pull complete", zap.Int("tasks", len(res.Tasks)))
	return res, nil
}

func (a *Adapter) pull(ctx context.Context, log *zap.Logger) (PullResult, error) {
	issues, err := a.tracker.ListIssues(ctx)
	if err != nil {
		return PullResult{}, err
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Number < issues[j].Number })

	tasks := make([]model.Task, 0, len(issues))
	for i, is := range issues {
		tasks = append(tasks, a.taskFromIssue(i+1, is, log))
	}
	res := PullResult{Tasks: tasks, NextID: len(tasks) + 1}

	if err := a.tasks.Replace(tasks, res.NextID); err != nil {
		return PullResult{}, err
	}
	if err := a.tasks.SetLastSync(a.now()); err != nil {
		return PullResult{}, err
	}
	return res, nil
}

func (a *Adapter) taskFromIssue(id int, is tracker.Issue, log *zap.Logger) model.Task {
	meta := DecodeBody(is.Body, log.With(zap.Int("issue", is.Number)))

	title := is.Title
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Issue #%d", is.Number)
	}
	t := model.Task{
		ID:          id,
		Title:       title,
		Description: meta.Description,
		Status:      StatusFromLabels(is.Labels),
		Priority:    meta.Priority,
		DueDate:     model.DatePtr(meta.DueDate),
		Attachments: meta.Attachments,
		Comments:    meta.Comments,
		CreatedAt:   is.CreatedAt,
		UpdatedAt:   is.UpdatedAt,
		ExternalRef: &model.ExternalRef{IssueNumber: is.Number, URL: is.URL},
	}
	if len(is.Assignees) > 0 {
		if u, ok := a.users.FindByExternalIdentity(is.Assignees[0]); ok {
			t.Assignee = model.IntPtr(u.ID)
		} else {
			log.Debug("no local user for issue assignee; leaving task unassigned",
				zap.Int("issue", is.Number), zap.String("login", is.Assignees[0]))
		}
	}
	return t
}

// Sync pushes then pulls. Edits made locally while the push is in flight are
// overwritten by the pull.
func (a *Adapter) Sync(ctx context.Context, tasks []model.Task) (PullResult, error) {
	ctx, log := a.begin(ctx, "sync")
	if _, err := a.Push(ctx, tasks); err != nil {
		return PullResult{}, err
	}
	res, err := a.Pull(ctx)
	if err != nil {
		return PullResult{}, err
	}
	log.Info("sync complete", zap.Int("tasks", len(res.Tasks)))
	return res, nil
}

// ImportCollaborators adds a local user for every collaborator login that
// isn't mapped yet.
func (a *Adapter) ImportCollaborators(ctx context.Context) ([]model.User, error) {
	_, log := a.begin(ctx, "import-collaborators")
	logins, err := a.tracker.ListCollaborators(ctx)
	if err != nil {
		return nil, err
	}
	var added []model.User
	for _, login := range logins {
		if _, ok := a.users.FindByExternalIdentity(login); ok {
			continue
		}
		u, err := a.users.Add(store.UserDraft{
			Name:             login,
			Email:            login + "@users.noreply.github.com",
			Role:             "developer",
			ExternalIdentity: login,
		})
		if err != nil {
			return added, fmt.Errorf("adding collaborator %s: %w", login, err)
		}
		log.Info("imported collaborator", zap.String("login", login), zap.Int("user", u.ID))
		added = append(added, u)
	}
	return added, nil
}

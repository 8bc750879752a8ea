// Package tracker talks to the GitHub issues REST API for one repository.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const perPage = 100

// Issue is the subset of a remote issue the board cares about.
type Issue struct {
	Number    int
	Title     string
	Body      string
	URL       string
	Labels    []string
	Assignees []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IssueRequest is the payload for creating or updating an issue. Title is
// ignored on update.
type IssueRequest struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

type Label struct {
	Name  string
	Color string
}

type Options struct {
	Token string
	Owner string
	Repo  string
	// BaseURL points at a GitHub Enterprise API root or a test server.
	BaseURL string
	Logger  *zap.Logger
}

// Client is a GitHub issues client bound to one repository.
type Client struct {
	gh    *github.Client
	token string
	owner string
	repo  string
	log   *zap.Logger
}

// NewClient never fails on a missing token or repository; those are reported
// by each call so the caller can prompt and retry.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var httpClient *http.Client
	if opts.Token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	}
	gh := github.NewClient(httpClient)

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid tracker base url %q: %w", opts.BaseURL, err)
		}
		gh.BaseURL = u
	}

	return &Client{gh: gh, token: opts.Token, owner: opts.Owner, repo: opts.Repo, log: log}, nil
}

func (c *Client) ready() error {
	if c.token == "" {
		return ErrUnauthenticated
	}
	if c.owner == "" || c.repo == "" {
		return ErrRepositoryNotSelected
	}
	return nil
}

// Repository returns "owner/repo".
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// ListIssues returns every issue in any state, pull requests excluded.
func (c *Client) ListIssues(ctx context.Context) ([]Issue, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var out []Issue
	for {
		page, resp, err := c.gh.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, mapError("listing issues", err)
		}
		for _, is := range page {
			if is.IsPullRequest() {
				continue
			}
			out = append(out, convertIssue(is))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	c.log.Debug("listed issues", zap.String("repo", c.Repository()), zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) ListLabels(ctx context.Context) ([]Label, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	opts := &github.ListOptions{PerPage: perPage}
	var out []Label
	for {
		page, resp, err := c.gh.Issues.ListLabels(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, mapError("listing labels", err)
		}
		for _, l := range page {
			out = append(out, Label{Name: l.GetName(), Color: l.GetColor()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) CreateLabel(ctx context.Context, l Label) (Label, error) {
	if err := c.ready(); err != nil {
		return Label{}, err
	}
	created, _, err := c.gh.Issues.CreateLabel(ctx, c.owner, c.repo, &github.Label{
		Name:  github.String(l.Name),
		Color: github.String(strings.TrimPrefix(l.Color, "#")),
	})
	if err != nil {
		return Label{}, mapError(fmt.Sprintf("creating label %q", l.Name), err)
	}
	return Label{Name: created.GetName(), Color: created.GetColor()}, nil
}

func (c *Client) CreateIssue(ctx context.Context, req IssueRequest) (Issue, error) {
	if err := c.ready(); err != nil {
		return Issue{}, err
	}
	created, _, err := c.gh.Issues.Create(ctx, c.owner, c.repo, &github.IssueRequest{
		Title:     github.String(req.Title),
		Body:      github.String(req.Body),
		Labels:    nonNil(req.Labels),
		Assignees: nonNil(req.Assignees),
	})
	if err != nil {
		return Issue{}, mapError(fmt.Sprintf("creating issue %q", req.Title), err)
	}
	return convertIssue(created), nil
}

// UpdateIssue replaces body, labels and assignees of an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, number int, req IssueRequest) (Issue, error) {
	if err := c.ready(); err != nil {
		return Issue{}, err
	}
	updated, _, err := c.gh.Issues.Edit(ctx, c.owner, c.repo, number, &github.IssueRequest{
		Body:      github.String(req.Body),
		Labels:    nonNil(req.Labels),
		Assignees: nonNil(req.Assignees),
	})
	if err != nil {
		return Issue{}, mapError(fmt.Sprintf("updating issue #%d", number), err)
	}
	return convertIssue(updated), nil
}

// ListCollaborators returns the logins that can be assigned issues.
func (c *Client) ListCollaborators(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	opts := &github.ListCollaboratorsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	var out []string
	for {
		page, resp, err := c.gh.Repositories.ListCollaborators(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, mapError("listing collaborators", err)
		}
		for _, u := range page {
			out = append(out, u.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	sort.Strings(out)
	return out, nil
}

// nonNil makes an empty list serialize as [] so the API clears the field.
func nonNil(s []string) *[]string {
	if s == nil {
		s = []string{}
	}
	return &s
}

func convertIssue(is *github.Issue) Issue {
	out := Issue{
		Number:    is.GetNumber(),
		Title:     is.GetTitle(),
		Body:      is.GetBody(),
		URL:       is.GetHTMLURL(),
		CreatedAt: is.GetCreatedAt().Time,
		UpdatedAt: is.GetUpdatedAt().Time,
	}
	for _, l := range is.Labels {
		out.Labels = append(out.Labels, l.GetName())
	}
	for _, a := range is.Assignees {
		out.Assignees = append(out.Assignees, a.GetLogin())
	}
	return out
}

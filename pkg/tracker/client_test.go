package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := NewClient(context.Background(), Options{Token: "tok", Owner: "acme", Repo: "board", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestListIssuesSkipsPullRequestsAndPaginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/board/issues", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "all", r.URL.Query().Get("state"))
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"number": 3, "title": "Third", "labels": [{"name": "done"}]}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
		fmt.Fprint(w, `[
			{"number": 1, "title": "First", "body": "b", "html_url": "https://github.com/acme/board/issues/1",
			 "labels": [{"name": "to do"}], "assignees": [{"login": "ada"}],
			 "created_at": "2024-01-02T03:04:05Z", "updated_at": "2024-01-03T03:04:05Z"},
			{"number": 2, "title": "A PR", "pull_request": {"url": "https://api.github.com/repos/acme/board/pulls/2"}}
		]`)
	})
	c := newTestClient(t, mux)

	issues, err := c.ListIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Equal(t, 1, issues[0].Number)
	require.Equal(t, []string{"to do"}, issues[0].Labels)
	require.Equal(t, []string{"ada"}, issues[0].Assignees)
	require.Equal(t, "https://github.com/acme/board/issues/1", issues[0].URL)
	require.Equal(t, 2024, issues[0].CreatedAt.Year())
	require.Equal(t, 3, issues[1].Number)
}

func TestCreateAndUpdateIssue(t *testing.T) {
	mux := http.NewServeMux()
	var created, edited map[string]any
	mux.HandleFunc("/repos/acme/board/issues", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &created))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number": 5, "title": "New", "html_url": "https://github.com/acme/board/issues/5"}`)
	})
	mux.HandleFunc("/repos/acme/board/issues/5", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &edited))
		fmt.Fprint(w, `{"number": 5, "title": "New"}`)
	})
	c := newTestClient(t, mux)

	is, err := c.CreateIssue(context.Background(), IssueRequest{Title: "New", Body: "body", Labels: []string{"to do"}})
	require.NoError(t, err)
	require.Equal(t, 5, is.Number)
	require.Equal(t, "New", created["title"])
	require.Equal(t, []any{"to do"}, created["labels"])
	require.Equal(t, []any{}, created["assignees"])

	_, err = c.UpdateIssue(context.Background(), 5, IssueRequest{Title: "ignored", Body: "new body", Labels: []string{"done"}, Assignees: []string{"ada"}})
	require.NoError(t, err)
	require.NotContains(t, edited, "title")
	require.Equal(t, "new body", edited["body"])
	require.Equal(t, []any{"ada"}, edited["assignees"])
}

func TestLabelsAndCollaborators(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/board/labels", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var l map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&l))
			require.Equal(t, "ffc107", l["color"])
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"name": %q, "color": %q}`, l["name"], l["color"])
			return
		}
		fmt.Fprint(w, `[{"name": "bug", "color": "d73a4a"}]`)
	})
	mux.HandleFunc("/repos/acme/board/collaborators", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"login": "zed"}, {"login": "ada"}]`)
	})
	c := newTestClient(t, mux)

	labels, err := c.ListLabels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Label{{Name: "bug", Color: "d73a4a"}}, labels)

	l, err := c.CreateLabel(context.Background(), Label{Name: "in progress", Color: "#ffc107"})
	require.NoError(t, err)
	require.Equal(t, "in progress", l.Name)

	logins, err := c.ListCollaborators(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"ada", "zed"}, logins)
}

func TestErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/board/issues", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	})
	mux.HandleFunc("/repos/acme/board/labels", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	c := newTestClient(t, mux)

	_, err := c.ListIssues(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = c.ListLabels(context.Background())
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, http.StatusNotFound, reqErr.Status)
	require.Equal(t, "Not Found", reqErr.Message)
}

func TestNotReady(t *testing.T) {
	c, err := NewClient(context.Background(), Options{Owner: "acme", Repo: "board"})
	require.NoError(t, err)
	_, err = c.ListIssues(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)

	c, err = NewClient(context.Background(), Options{Token: "tok"})
	require.NoError(t, err)
	_, err = c.ListLabels(context.Background())
	require.ErrorIs(t, err, ErrRepositoryNotSelected)
}

package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/store"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	tasks, err := store.NewTaskStore(db, nil)
	require.NoError(t, err)
	users, err := store.NewUserStore(db, nil)
	require.NoError(t, err)

	_, err = users.Add(store.UserDraft{Name: "Ada", Email: "ada@example.com", Role: "developer"})
	require.NoError(t, err)
	due := model.DateOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	_, err = tasks.Create(store.TaskDraft{Title: "Late", Status: model.StatusTodo, DueDate: &due, Assignee: model.IntPtr(1)})
	require.NoError(t, err)
	_, err = tasks.Create(store.TaskDraft{Title: "Done", Status: model.StatusDone, Priority: model.PriorityHigh})
	require.NoError(t, err)

	s := NewServer(tasks, users, nil)
	s.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestBoardEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var got struct {
		Columns []struct {
			Status string       `json:"status"`
			Title  string       `json:"title"`
			Tasks  []model.Task `json:"tasks"`
		} `json:"columns"`
		Stats   map[string]int `json:"stats"`
		Overdue []int          `json:"overdue"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/board", &got))
	require.Len(t, got.Columns, 4)
	require.Equal(t, "To Do", got.Columns[1].Title)
	require.Len(t, got.Columns[1].Tasks, 1)
	require.Equal(t, 1, got.Stats["done"])
	require.Equal(t, []int{1}, got.Overdue)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/board?priority=high", &got))
	require.Empty(t, got.Columns[1].Tasks)
	require.Len(t, got.Columns[3].Tasks, 1)

	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/board?priority=urgent", nil))
	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/board?assignee=ada", nil))
}

func TestTaskEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var tasks []model.Task
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/tasks", &tasks))
	require.Len(t, tasks, 2)

	var task model.Task
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/tasks/2", &task))
	require.Equal(t, "Done", task.Title)

	require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/tasks/99", nil))
	require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/tasks/abc", nil))
}

func TestUsersAndHealth(t *testing.T) {
	srv := newTestServer(t)

	var users []model.User
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/users", &users))
	require.Len(t, users, 1)
	require.Equal(t, "Ada", users[0].Name)

	var health map[string]string
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &health))
	require.Equal(t, "ok", health["status"])

	resp, err := http.Post(srv.URL+"/api/tasks", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWrongMethodIsNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/board", "/api/tasks/1", "/api/users"} {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
	}

	resp, err := http.Get(srv.URL + "/api/nope")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

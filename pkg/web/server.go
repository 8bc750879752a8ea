// Package web serves a read-only JSON view of the board.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/harrisonrobin/taskboard/pkg/board"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/store"
	"go.uber.org/zap"
)

type TaskStore interface {
	List() []model.Task
	Get(id int) (model.Task, error)
}

type UserStore interface {
	List() []model.User
}

type Server struct {
	tasks TaskStore
	users UserStore
	log   *zap.Logger
	now   func() time.Time
}

func NewServer(tasks TaskStore, users UserStore, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{tasks: tasks, users: users, log: log, now: time.Now}
}

// Router wires the GET endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	// Routes stay on the root router so a method mismatch answers 405.
	r.HandleFunc("/api/board", s.getBoard).Methods("GET")
	r.HandleFunc("/api/tasks", s.listTasks).Methods("GET")
	r.HandleFunc("/api/tasks/{id:[0-9]+}", s.getTask).Methods("GET")
	r.HandleFunc("/api/users", s.listUsers).Methods("GET")
	r.Use(s.logRequests)
	return r
}

// ListenAndServe runs until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving board", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type boardResponse struct {
	Columns []board.Column       `json:"columns"`
	Stats   map[model.Status]int `json:"stats"`
	Overdue []int                `json:"overdue"`
}

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := board.Filter{Query: q.Get("q")}
	if v := q.Get("assignee"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid assignee", http.StatusBadRequest)
			return
		}
		f.Assignee = &id
	}
	if v := q.Get("priority"); v != "" {
		p, err := model.ParsePriority(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Priority = p
	}

	tasks := s.tasks.List()
	resp := boardResponse{
		Columns: board.Columns(tasks, f),
		Stats:   board.Stats(tasks),
		Overdue: []int{},
	}
	for _, t := range board.Overdue(tasks, s.now()) {
		resp.Overdue = append(resp.Overdue, t.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tasks.List())
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	t, err := s.tasks.Get(id)
	if errors.Is(err, store.ErrTaskNotFound) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users := s.users.List()
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Duration("took", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

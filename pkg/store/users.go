package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/harrisonrobin/taskboard/pkg/model"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

type UserDraft struct {
	Name             string
	Email            string
	Role             string
	ExternalIdentity string
}

// UserStore exclusively owns users, the role registry and the current user.
type UserStore struct {
	db  *DB
	log *zap.Logger

	mu      sync.RWMutex
	users   []model.User
	nextID  int
	roles   []string
	current int // 0 = none
}

func NewUserStore(db *DB, log *zap.Logger) (*UserStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &UserStore{db: db, log: log, nextID: 1}
	err := db.view(func(tx *bolt.Tx) error {
		users, err := readBucket[model.User](tx, bucketUsers)
		if err != nil {
			return err
		}
		s.users = users
		if err := getMeta(tx, keyNextUserID, &s.nextID); err != nil {
			return err
		}
		if err := getMeta(tx, keyRoles, &s.roles); err != nil {
			return err
		}
		return getMeta(tx, keyCurrentUser, &s.current)
	})
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	if s.roles == nil {
		s.roles = append([]string(nil), model.DefaultRoles...)
	}
	for _, u := range s.users {
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return s, nil
}

type userState struct {
	users   []model.User
	nextID  int
	roles   []string
	current int
}

func (s *UserStore) snapshot() userState {
	return userState{
		users:   append([]model.User(nil), s.users...),
		nextID:  s.nextID,
		roles:   append([]string(nil), s.roles...),
		current: s.current,
	}
}

// persist writes st in one transaction, then swaps it in. Caller holds mu.
func (s *UserStore) persist(st userState) error {
	err := s.db.update(func(tx *bolt.Tx) error {
		if err := rewriteBucket(tx, bucketUsers, st.users, func(u model.User) int { return u.ID }); err != nil {
			return err
		}
		if err := putMeta(tx, keyNextUserID, st.nextID); err != nil {
			return err
		}
		if err := putMeta(tx, keyRoles, st.roles); err != nil {
			return err
		}
		return putMeta(tx, keyCurrentUser, st.current)
	})
	if err != nil {
		return fmt.Errorf("saving users: %w", err)
	}
	s.users, s.nextID, s.roles, s.current = st.users, st.nextID, st.roles, st.current
	return nil
}

func (s *UserStore) indexOf(id int) int {
	for i, u := range s.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (s *UserStore) Add(d UserDraft) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := model.User{
		ID:               s.nextID,
		Name:             strings.TrimSpace(d.Name),
		Email:            strings.TrimSpace(d.Email),
		Role:             strings.ToLower(strings.TrimSpace(d.Role)),
		ExternalIdentity: strings.TrimSpace(d.ExternalIdentity),
	}
	if err := u.Validate(s.roles); err != nil {
		return model.User{}, err
	}
	st := s.snapshot()
	st.users = append(st.users, u)
	st.nextID++
	if err := s.persist(st); err != nil {
		return model.User{}, err
	}
	s.log.Debug("user added", zap.Int("id", u.ID), zap.String("name", u.Name))
	return u, nil
}

func (s *UserStore) Get(id int) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.users[i], true
	}
	return model.User{}, false
}

func (s *UserStore) List() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.User(nil), s.users...)
}

func (s *UserStore) Update(id int, fn func(*model.User) error) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.User{}, fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	st := s.snapshot()
	u := &st.users[i]
	if err := fn(u); err != nil {
		return model.User{}, err
	}
	u.ID = id
	if err := u.Validate(s.roles); err != nil {
		return model.User{}, err
	}
	if err := s.persist(st); err != nil {
		return model.User{}, err
	}
	return *u, nil
}

// Delete removes the user. Unassigning their tasks is the board's job.
func (s *UserStore) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	st := s.snapshot()
	st.users = append(st.users[:i], st.users[i+1:]...)
	if st.current == id {
		st.current = 0
	}
	return s.persist(st)
}

// FindByExternalIdentity maps a tracker login to a local user, ignoring case.
func (s *UserStore) FindByExternalIdentity(login string) (model.User, bool) {
	login = strings.TrimSpace(login)
	if login == "" {
		return model.User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.ExternalIdentity, login) {
			return u, true
		}
	}
	return model.User{}, false
}

// FindByName matches a user by name or email, ignoring case.
func (s *UserStore) FindByName(name string) (model.User, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Name, name) || strings.EqualFold(u.Email, name) {
			return u, true
		}
	}
	return model.User{}, false
}

func (s *UserStore) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.roles...)
}

func (s *UserStore) AddRole(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("role name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r == name {
			return fmt.Errorf("%w: %q", ErrRoleExists, name)
		}
	}
	st := s.snapshot()
	st.roles = append(st.roles, name)
	return s.persist(st)
}

// RemoveRole refuses to drop a role that any user still holds.
func (s *UserStore) RemoveRole(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Role, name) {
			return fmt.Errorf("%w: %q held by %s", ErrRoleInUse, name, u.Name)
		}
	}
	st := s.snapshot()
	for i, r := range st.roles {
		if r == name {
			st.roles = append(st.roles[:i], st.roles[i+1:]...)
			return s.persist(st)
		}
	}
	return fmt.Errorf("%w: %q", model.ErrUnknownRole, name)
}

func (s *UserStore) SetCurrent(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	st := s.snapshot()
	st.current = id
	return s.persist(st)
}

func (s *UserStore) Current() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(s.current); i >= 0 {
		return s.users[i], true
	}
	return model.User{}, false
}

package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"
)

// memoryStore mirrors the semantics postgresStorage gets from the
// database: unique emails, owner-scoped task lookups, optimistic
// version checks and cascading user deletion.
type memoryStore struct {
	mu         sync.Mutex
	nextUserID int
	nextTaskID int
	users      map[int]user
	avatars    map[int][]byte
	tokens     map[int][]string
	tasks      map[int]task
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:   make(map[int]user),
		avatars: make(map[int][]byte),
		tokens:  make(map[int][]string),
		tasks:   make(map[int]task),
	}
}

func (s *memoryStore) insertUser(u *user) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Email == u.Email {
			return errDuplicateEmail
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	u.CreatedAt = time.Now()
	u.Version = 1
	s.users[u.ID] = *u
	return nil
}

func (s *memoryStore) getUserByEmail(email string) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) getUserByID(id int) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *memoryStore) updateUser(u *user) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[u.ID]
	if !ok || stored.Version != u.Version {
		return sql.ErrNoRows
	}
	for id, other := range s.users {
		if id != u.ID && other.Email == u.Email {
			return errDuplicateEmail
		}
	}
	u.Version++
	s.users[u.ID] = *u
	return nil
}

func (s *memoryStore) deleteUser(u *user) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, u.ID)
	delete(s.avatars, u.ID)
	delete(s.tokens, u.ID)
	for id, t := range s.tasks {
		if t.UserID == u.ID {
			delete(s.tasks, id)
		}
	}
	return nil
}

func (s *memoryStore) insertToken(userID int, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = append(s.tokens[userID], token)
	return nil
}

func (s *memoryStore) tokenExists(userID int, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.tokens[userID], token), nil
}

func (s *memoryStore) deleteToken(userID int, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = slices.DeleteFunc(s.tokens[userID], func(t string) bool {
		return t == token
	})
	return nil
}

func (s *memoryStore) deleteAllTokens(userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, userID)
	return nil
}

func (s *memoryStore) setAvatar(userID int, avatar []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avatars[userID] = avatar
	return nil
}

func (s *memoryStore) clearAvatar(userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.avatars, userID)
	return nil
}

func (s *memoryStore) getAvatar(userID int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avatars[userID], nil
}

func (s *memoryStore) insertTask(t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTaskID++
	t.ID = s.nextTaskID
	t.CreatedAt = time.Now()
	t.Version = 1
	s.tasks[t.ID] = *t
	return nil
}

func (s *memoryStore) getTask(id, userID int) (*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	return &t, nil
}

func (s *memoryStore) getTasks(userID int, f taskFilters) ([]task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := []task{}
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		if f.completed != nil && t.IsCompleted != *f.completed {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	if f.sortColumn != "" {
		sort.SliceStable(tasks, func(i, j int) bool {
			a, b := tasks[i], tasks[j]
			if f.sortDesc {
				a, b = b, a
			}
			switch f.sortColumn {
			case "created_at":
				return a.CreatedAt.Before(b.CreatedAt)
			case "description":
				return a.Description < b.Description
			case "is_completed":
				return !a.IsCompleted && b.IsCompleted
			default:
				return false
			}
		})
	}
	if f.skip > 0 {
		if f.skip >= len(tasks) {
			return []task{}, nil
		}
		tasks = tasks[f.skip:]
	}
	if f.limit > 0 && f.limit < len(tasks) {
		tasks = tasks[:f.limit]
	}
	return tasks, nil
}

func (s *memoryStore) updateTask(t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tasks[t.ID]
	if !ok || stored.UserID != t.UserID || stored.Version != t.Version {
		return sql.ErrNoRows
	}
	t.Version++
	s.tasks[t.ID] = *t
	return nil
}

func (s *memoryStore) deleteTask(id, userID int) (*task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	delete(s.tasks, id)
	return &t, nil
}

func newTestApplication(t *testing.T) *application {
	t.Helper()
	app := &application{
		store:  newMemoryStore(),
		mailer: newMailer("", "Task Manager", "noreply@example.com"),
	}
	app.config.env = "test"
	app.config.jwtSecret = "test-secret"
	return app
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	err := json.Unmarshal(w.Body.Bytes(), &v)
	if err != nil {
		t.Fatalf("decode response body %q: %v", w.Body.String(), err)
	}
	return v
}

// signupUser registers a user through the real handler stack and
// returns the created user and its first token.
func signupUser(t *testing.T, handler http.Handler, name, email, password string) (user, string) {
	t.Helper()
	w := doRequest(t, handler, http.MethodPost, "/users", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup returned status %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[struct {
		User  user   `json:"user"`
		Token string `json:"token"`
	}](t, w)
	if resp.Token == "" {
		t.Fatal("signup returned an empty token")
	}
	return resp.User, resp.Token
}

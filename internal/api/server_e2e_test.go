package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/config"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/store"

	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{
		App: config.AppConfig{APIPrefix: "/api"},
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			DSN:    fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name),
		},
		Security: config.SecurityConfig{
			JWTSecret:  "e2e-secret",
			TokenTTL:   time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := store.Open(cfg.Database, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s, err := NewServer(cfg, logger, db)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	return w
}

func (c *client) registerAndLogin(email string) uint {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/auth/register", map[string]string{"email": email, "password": "pw123"})
	if w.Code != http.StatusCreated {
		c.t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}
	w = c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "pw123"})
	if w.Code != http.StatusOK {
		c.t.Fatalf("login %s: %d %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		Token string         `json:"token"`
		User  model.UserView `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		c.t.Fatalf("decode login: %v", err)
	}
	c.token = resp.Token
	return resp.User.ID
}

func decodeTask(t *testing.T, w *httptest.ResponseRecorder) model.TaskView {
	t.Helper()
	var v model.TaskView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode task: %v (%s)", err, w.Body.String())
	}
	return v
}

func TestServer_TaskLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := &client{t: t, h: s.Router()}
	aliceID := alice.registerAndLogin("alice@example.com")
	if aliceID != 1 {
		t.Fatalf("expected first user id 1, got %d", aliceID)
	}

	w := alice.do(http.MethodPost, "/api/1/tasks", map[string]string{"title": "buy milk"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decodeTask(t, w)
	if created.Completed || created.UserID != aliceID || created.Title != "buy milk" {
		t.Fatalf("unexpected created task %+v", created)
	}
	taskPath := fmt.Sprintf("/api/1/tasks/%d", created.ID)

	if w := alice.do(http.MethodGet, taskPath, nil); w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}

	toggled := decodeTask(t, alice.do(http.MethodPatch, taskPath+"/toggle", nil))
	if !toggled.Completed || !toggled.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("unexpected toggle result %+v", toggled)
	}

	w = alice.do(http.MethodPut, taskPath, map[string]string{"description": "2 litres"})
	updated := decodeTask(t, w)
	if w.Code != http.StatusOK || updated.Title != "buy milk" || updated.Description == nil || *updated.Description != "2 litres" || !updated.Completed {
		t.Fatalf("unexpected update result %d %+v", w.Code, updated)
	}

	w = alice.do(http.MethodPut, taskPath, map[string]any{"description": nil})
	cleared := decodeTask(t, w)
	if w.Code != http.StatusOK || cleared.Description != nil || cleared.Title != "buy milk" || !cleared.UpdatedAt.After(updated.UpdatedAt) {
		t.Fatalf("expected null description to clear, got %d %+v", w.Code, cleared)
	}

	w = alice.do(http.MethodGet, "/api/1/tasks?status=completed", nil)
	var list []model.TaskView
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("list completed: %v %s", err, w.Body.String())
	}
	w = alice.do(http.MethodGet, "/api/1/tasks?status=pending", nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected no pending tasks, got %s", w.Body.String())
	}

	// 其他用户的令牌访问 alice 的路径
	bob := &client{t: t, h: s.Router()}
	bobID := bob.registerAndLogin("bob@example.com")
	if w := bob.do(http.MethodGet, taskPath, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for bob on alice's path, got %d", w.Code)
	}
	// 用自己的路径访问 alice 的任务 ID
	if w := bob.do(http.MethodGet, fmt.Sprintf("/api/%d/tasks/%d", bobID, created.ID), nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for bob on own path, got %d", w.Code)
	}

	if w := alice.do(http.MethodDelete, taskPath, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := alice.do(http.MethodGet, taskPath, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
	if w := alice.do(http.MethodDelete, taskPath, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestServer_AuthFlow(t *testing.T) {
	s := newTestServer(t)
	c := &client{t: t, h: s.Router()}
	id := c.registerAndLogin("alice@example.com")

	w := c.do(http.MethodGet, "/api/auth/me", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "alice@example.com") {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}

	anon := &client{t: t, h: s.Router()}
	if w := anon.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "alice@example.com", "password": "x"}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate register, got %d", w.Code)
	}
	if w := anon.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "bad"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", w.Code)
	}
	if w := anon.do(http.MethodGet, fmt.Sprintf("/api/%d/tasks", id), nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	anon.token = c.token + "x"
	if w := anon.do(http.MethodGet, fmt.Sprintf("/api/%d/tasks", id), nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with tampered token, got %d", w.Code)
	}
	if w := c.do(http.MethodPost, "/api/auth/logout", nil); w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
}

func TestServer_HealthMetricsAndNoRoute(t *testing.T) {
	s := newTestServer(t)
	c := &client{t: t, h: s.Router()}

	if w := c.do(http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
	if w := c.do(http.MethodGet, "/nope", nil); w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "error") {
		t.Fatalf("expected JSON 404, got %d %s", w.Code, w.Body.String())
	}
	w := c.do(http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "todo_http_requests_total") {
		t.Fatalf("metrics: %d", w.Code)
	}

	_ = s.Close()
	if w := c.do(http.MethodGet, "/healthz", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after close, got %d", w.Code)
	}
}

func TestServer_SeedDemoData(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if err := s.SeedDemoData(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// 再次执行不应重复创建
	if err := s.SeedDemoData(ctx); err != nil {
		t.Fatalf("seed again: %v", err)
	}

	c := &client{t: t, h: s.Router()}
	w := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": DemoEmail, "password": DemoPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("demo login: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string         `json:"token"`
		User  model.UserView `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	c.token = resp.Token

	w = c.do(http.MethodGet, fmt.Sprintf("/api/%d/tasks", resp.User.ID), nil)
	var list []model.TaskView
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != len(demoTasks) {
		t.Fatalf("expected %d demo tasks, got %d", len(demoTasks), len(list))
	}
}

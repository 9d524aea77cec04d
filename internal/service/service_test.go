package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/config"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/password"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/token"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// fixture 基于内存 SQLite 组装真实的存储与服务。
type fixture struct {
	users  *store.UserStore
	tasks  *store.TaskStore
	auth   *AuthService
	task   *TaskService
	tokens *token.Service
}

func newFixture(t *testing.T, clock Clock) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name),
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := token.NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	users := store.NewUserStore(db)
	tasks := store.NewTaskStore(db)
	return &fixture{
		users:  users,
		tasks:  tasks,
		tokens: tokens,
		auth:   NewAuthService(users, password.NewHasher(bcrypt.MinCost), tokens, logger).WithClock(clock),
		task:   NewTaskService(tasks, logger).WithClock(clock),
	}
}

func (f *fixture) register(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{Email: email, Password: "pw123"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

// fixedClock 始终返回同一时刻，用于验证 updated_at 的严格递增。
func fixedClock(ts time.Time) Clock {
	return func() time.Time { return ts }
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestClock_AfterIsStrictlyLater(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := fixedClock(base)

	if got := c.now(); !got.Equal(base) {
		t.Fatalf("expected %v, got %v", base, got)
	}
	if got := c.after(base); !got.Equal(base.Add(time.Millisecond)) {
		t.Fatalf("expected bump by 1ms, got %v", got)
	}
	if got := c.after(base.Add(-time.Second)); !got.Equal(base) {
		t.Fatalf("expected clock time when already later, got %v", got)
	}

	sub := fixedClock(base.Add(123456 * time.Nanosecond))
	if got := sub.now(); got.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("expected millisecond precision, got %v", got)
	}

	var zero Clock
	if got := zero.now(); got.IsZero() || got.Location() != time.UTC {
		t.Fatalf("expected nil clock to use wall time in UTC, got %v", got)
	}
}

package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/apperr"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/service"
)

// 演示账号，仅在 app.seed_demo 开启时创建。
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "demo-password"
)

var demoTasks = []service.CreateTaskInput{
	{Title: "Try the task list", Description: strPtr("Create, edit, toggle and delete tasks")},
	{Title: "Filter by status"},
	{Title: "Sort by title or date"},
}

// SeedDemoData 初始化演示账号及示例任务。账号已存在时不做任何修改。
func (s *Server) SeedDemoData(ctx context.Context) error {
	if s.registrar == nil {
		return fmt.Errorf("seed demo data: auth service not configured")
	}
	user, err := s.registrar.Register(ctx, service.RegisterInput{
		Email:    DemoEmail,
		Name:     strPtr("Demo"),
		Password: DemoPassword,
	})
	if apperr.Is(err, apperr.KindConflict) {
		if s.logger != nil {
			s.logger.Info("demo account already present", slog.String("email", DemoEmail))
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}

	for _, in := range demoTasks {
		if _, err := s.taskService.CreateTask(ctx, user.ID, in); err != nil {
			return fmt.Errorf("seed demo task %q: %w", in.Title, err)
		}
	}
	if s.logger != nil {
		s.logger.Info("demo data seeded", slog.Uint64("user_id", uint64(user.ID)), slog.Int("tasks", len(demoTasks)))
	}
	return nil
}

func strPtr(s string) *string { return &s }

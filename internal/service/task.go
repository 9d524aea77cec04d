package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/apperr"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/metrics"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/store"
)

// 列表分页限制。
const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// StatusFilter 列表状态过滤。
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

// SortKey 列表排序字段。
type SortKey string

const (
	SortDefault SortKey = ""
	SortDate    SortKey = "date"
	SortTitle   SortKey = "title"
)

// SortOrder 排序方向。
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseStatusFilter 解析状态过滤；未知值视为 all，不报错。
func ParseStatusFilter(s string) StatusFilter {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending
	case StatusCompleted:
		return StatusCompleted
	default:
		return StatusAll
	}
}

// ParseSortKey 解析排序字段；未知值表示不排序（按插入顺序）。
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortDate:
		return SortDate
	case SortTitle:
		return SortTitle
	default:
		return SortDefault
	}
}

// ParseSortOrder 解析排序方向；只有 desc 为降序，其余一律升序。
func ParseSortOrder(s string) SortOrder {
	if SortOrder(strings.ToLower(strings.TrimSpace(s))) == OrderDesc {
		return OrderDesc
	}
	return OrderAsc
}

// ListOptions 任务列表参数。
type ListOptions struct {
	Status StatusFilter
	Sort   SortKey
	Order  SortOrder
	Skip   int
	Limit  int // 0 表示默认值
}

// CreateTaskInput 创建任务参数。completed 不可由客户端指定。
type CreateTaskInput struct {
	Title       string
	Description *string
}

// UpdateTaskInput 部分更新参数，nil 字段保持不变。
type UpdateTaskInput struct {
	Title       *string
	Description *string
	// ClearDescription 请求中显式传入 null 时清空描述，优先于 Description。
	ClearDescription bool
	Completed        *bool
}

// TaskService 任务业务逻辑，所有操作都限定在调用方自己的任务上。
type TaskService struct {
	tasks  TaskStore
	logger *slog.Logger
	clock  Clock
}

// NewTaskService 创建 TaskService。
func NewTaskService(tasks TaskStore, logger *slog.Logger) *TaskService {
	return &TaskService{tasks: tasks, logger: logger}
}

// WithClock 替换时间源（测试用）。
func (s *TaskService) WithClock(c Clock) *TaskService {
	s.clock = c
	return s
}

// ListTasks 返回用户的任务列表。
func (s *TaskService) ListTasks(ctx context.Context, userID uint, opts ListOptions) ([]model.Task, error) {
	const op = "TaskService.ListTasks"
	if opts.Skip < 0 {
		return nil, s.reject(op, apperr.Validation(op, "skip must be >= 0"))
	}
	if opts.Limit < 0 || opts.Limit > MaxListLimit {
		return nil, s.reject(op, apperr.Validation(op, "limit must be between 0 and 100"))
	}

	q := store.TaskQuery{Offset: opts.Skip, Limit: opts.Limit}
	if q.Limit == 0 {
		q.Limit = DefaultListLimit
	}
	switch opts.Status {
	case StatusPending:
		v := false
		q.Completed = &v
	case StatusCompleted:
		v := true
		q.Completed = &v
	}
	switch opts.Sort {
	case SortDate:
		q.Sort = store.SortCreatedAt
	case SortTitle:
		q.Sort = store.SortTitle
	}
	q.Desc = opts.Order == OrderDesc

	tasks, err := s.tasks.ListTasks(ctx, userID, q)
	if err != nil {
		return nil, s.fail(op, userID, err)
	}
	metrics.TaskOp("list", "ok")
	return tasks, nil
}

// GetTask 返回单个任务；属于其他用户的任务与不存在的任务无法区分。
func (s *TaskService) GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	const op = "TaskService.GetTask"
	task, err := s.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, s.fail(op, userID, err)
	}
	metrics.TaskOp("get", "ok")
	return task, nil
}

// CreateTask 创建任务，completed 固定为 false，user_id 来自认证身份。
func (s *TaskService) CreateTask(ctx context.Context, userID uint, in CreateTaskInput) (*model.Task, error) {
	const op = "TaskService.CreateTask"
	if err := validateTitle(op, in.Title); err != nil {
		return nil, s.reject(op, err)
	}
	if err := validateDescription(op, in.Description); err != nil {
		return nil, s.reject(op, err)
	}

	now := s.clock.now()
	task := &model.Task{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, s.fail(op, userID, err)
	}
	metrics.TaskOp("create", "ok")
	return task, nil
}

// UpdateTask 只修改传入的字段，并刷新 updated_at。
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID uint, in UpdateTaskInput) (*model.Task, error) {
	const op = "TaskService.UpdateTask"
	if in.Title != nil {
		if err := validateTitle(op, *in.Title); err != nil {
			return nil, s.reject(op, err)
		}
	}
	if err := validateDescription(op, in.Description); err != nil {
		return nil, s.reject(op, err)
	}

	task, err := s.tasks.UpdateTask(ctx, userID, taskID, func(t *model.Task) error {
		if in.Title != nil {
			t.Title = *in.Title
		}
		switch {
		case in.ClearDescription:
			t.Description = nil
		case in.Description != nil:
			t.Description = in.Description
		}
		if in.Completed != nil {
			t.Completed = *in.Completed
		}
		t.UpdatedAt = s.clock.after(t.UpdatedAt)
		return nil
	})
	if err != nil {
		return nil, s.fail(op, userID, err)
	}
	metrics.TaskOp("update", "ok")
	return task, nil
}

// DeleteTask 删除任务。重复删除返回 NotFound。
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID uint) error {
	const op = "TaskService.DeleteTask"
	if err := s.tasks.DeleteTask(ctx, userID, taskID); err != nil {
		return s.fail(op, userID, err)
	}
	metrics.TaskOp("delete", "ok")
	return nil
}

// ToggleTask 翻转完成状态并刷新 updated_at；连续两次即恢复原状态。
func (s *TaskService) ToggleTask(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	const op = "TaskService.ToggleTask"
	task, err := s.tasks.UpdateTask(ctx, userID, taskID, func(t *model.Task) error {
		t.Completed = !t.Completed
		t.UpdatedAt = s.clock.after(t.UpdatedAt)
		return nil
	})
	if err != nil {
		return nil, s.fail(op, userID, err)
	}
	metrics.TaskOp("toggle", "ok")
	return task, nil
}

// reject 记录校验失败并原样返回。
func (s *TaskService) reject(op string, err error) error {
	metrics.TaskOp(opLabel(op), apperr.KindOf(err).String())
	return err
}

// fail 将存储错误归类：ErrNotFound → NotFound，其余记录日志后返回 Internal。
func (s *TaskService) fail(op string, userID uint, err error) error {
	var appErr *apperr.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		err = apperr.NotFound(op, "task not found")
	case errors.As(err, &appErr):
	default:
		s.log().Error("task operation failed",
			slog.String("op", op),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		err = apperr.Internal(op, err)
	}
	metrics.TaskOp(opLabel(op), apperr.KindOf(err).String())
	return err
}

func (s *TaskService) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

func opLabel(op string) string {
	switch op {
	case "TaskService.ListTasks":
		return "list"
	case "TaskService.GetTask":
		return "get"
	case "TaskService.CreateTask":
		return "create"
	case "TaskService.UpdateTask":
		return "update"
	case "TaskService.DeleteTask":
		return "delete"
	case "TaskService.ToggleTask":
		return "toggle"
	default:
		return op
	}
}

func validateTitle(op, title string) error {
	n := utf8.RuneCountInString(title)
	if n < 1 || n > model.TitleMaxLen {
		return apperr.Validation(op, "title must be 1-200 characters")
	}
	return nil
}

func validateDescription(op string, desc *string) error {
	if desc != nil && utf8.RuneCountInString(*desc) > model.DescriptionMaxLen {
		return apperr.Validation(op, "description must be at most 1000 characters")
	}
	return nil
}

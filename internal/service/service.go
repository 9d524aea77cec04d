// Package service 实现认证与任务的业务逻辑。
//
// HTTP 层只负责参数绑定与状态码映射，所有权校验与错误分类都在这里完成。
package service

import (
	"context"
	"time"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/store"
)

// UserStore 用户存储接口。
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// TaskStore 任务存储接口，每个方法都按所有者过滤。
type TaskStore interface {
	ListTasks(ctx context.Context, userID uint, q store.TaskQuery) ([]model.Task, error)
	GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error)
	CreateTask(ctx context.Context, task *model.Task) error
	UpdateTask(ctx context.Context, userID, taskID uint, mutate func(task *model.Task) error) (*model.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uint) error
}

var (
	_ UserStore = (*store.UserStore)(nil)
	_ TaskStore = (*store.TaskStore)(nil)
)

// Clock 返回当前时间，测试中可替换。
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(time.Millisecond)
	}
	return c().UTC().Truncate(time.Millisecond)
}

// after 返回严格晚于 prev 的时间戳。
//
// 时间精度截断到毫秒，兼容只保存毫秒的数据库列。
func (c Clock) after(prev time.Time) time.Time {
	ts := c.now()
	if !ts.After(prev) {
		ts = prev.Add(time.Millisecond)
	}
	return ts
}

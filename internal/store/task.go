package store

import (
	"context"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SortColumn 列表排序字段，只允许白名单中的列。
type SortColumn string

const (
	SortNone      SortColumn = ""
	SortCreatedAt SortColumn = "created_at"
	SortTitle     SortColumn = "title"
)

// TaskQuery 任务列表查询条件。
type TaskQuery struct {
	Completed *bool      // nil 表示不过滤
	Sort      SortColumn // 为空时按插入顺序
	Desc      bool
	Offset    int
	Limit     int // 0 表示不限制
}

// TaskStore 基于 GORM 的任务存储。所有查询都附带 user_id 条件。
type TaskStore struct {
	db *gorm.DB
}

func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) ListTasks(ctx context.Context, userID uint, q TaskQuery) ([]model.Task, error) {
	tasks := []model.Task{}
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if q.Completed != nil {
		query = query.Where("completed = ?", *q.Completed)
	}
	switch q.Sort {
	case SortCreatedAt, SortTitle:
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: string(q.Sort)}, Desc: q.Desc})
	}
	// 相同排序值按插入顺序，保证结果稳定
	query = query.Order("id ASC")
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskStore) GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (s *TaskStore) CreateTask(ctx context.Context, task *model.Task) error {
	return translate(s.db.WithContext(ctx).Create(task).Error)
}

// UpdateTask 在同一事务内读取、修改并写回任务；mutate 返回错误时回滚。
//
// user_id 不在可写字段中，任务归属创建后不可变。
func (s *TaskStore) UpdateTask(ctx context.Context, userID, taskID uint, mutate func(task *model.Task) error) (*model.Task, error) {
	var task model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error; err != nil {
			return translate(err)
		}
		if err := mutate(&task); err != nil {
			return err
		}
		return tx.Model(&model.Task{}).
			Where("id = ? AND user_id = ?", taskID, userID).
			Updates(map[string]interface{}{
				"title":       task.Title,
				"description": task.Description,
				"completed":   task.Completed,
				"updated_at":  task.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask 删除任务；不存在或不属于该用户时返回 ErrNotFound。
func (s *TaskStore) DeleteTask(ctx context.Context, userID, taskID uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", taskID, userID).Delete(&model.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

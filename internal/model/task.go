package model

import (
	"time"
)

// 字段长度限制（按字符计）。
const (
	TitleMaxLen       = 200
	DescriptionMaxLen = 1000
)

// Task 表示用户的一条待办任务。
//
// 每个任务只属于一个用户，UserID 创建后不可修改；所有查询都必须带上 user_id 条件。
type Task struct {
	ID        uint      `gorm:"primaryKey"` // 任务唯一标识
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间（每次修改都会刷新）

	UserID      uint    `gorm:"not null;index"`             // 所属用户 ID
	Title       string  `gorm:"type:varchar(200);not null"` // 标题（1-200 字符）
	Description *string `gorm:"type:varchar(1000)"`         // 描述（可选，≤1000 字符）
	Completed   bool    `gorm:"not null;default:false"`     // 是否已完成
}

// TaskView 是返回给客户端的任务结构。
type TaskView struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	UserID      uint      `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// View 转换为对外结构。
func (t *Task) View() TaskView {
	return TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TaskViews 批量转换，保证空列表序列化为 [] 而不是 null。
func TaskViews(tasks []Task) []TaskView {
	out := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		out = append(out, tasks[i].View())
	}
	return out
}

package model

import "time"

// User 表示系统用户。
//
// Email 按原样存储（不做大小写归一化），唯一性由存储层的唯一索引保证。
type User struct {
	ID        uint      `gorm:"primaryKey"`                               // 用户 ID
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null"`   // 邮箱（唯一）
	Name      *string   `gorm:"type:varchar(255)"`                        // 昵称（可选）
	Password  string    `gorm:"column:hashed_password;not null" json:"-"` // bcrypt 哈希，永不序列化
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	Tasks []Task `gorm:"foreignKey:UserID"`
}

// UserView 是返回给客户端的用户信息（不含密码）。
type UserView struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View 转换为对外结构。
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

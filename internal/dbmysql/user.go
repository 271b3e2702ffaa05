package dbmysql

import (
	"time"

	"freelancehub/internal/common"

	"gorm.io/gorm"
)

type User struct {
	ID        string         `gorm:"primaryKey;column:id;size:24" json:"id"`
	Username  string         `gorm:"column:username;uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"column:email;size:255" json:"email"`
	Role      string         `gorm:"column:role;type:enum('user','agent','admin','service');default:'user';index" json:"role"`
	IsBlocked bool           `gorm:"column:is_blocked;default:false;index" json:"is_blocked"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) toDomain() *common.User {
	return &common.User{
		ID:        u.ID,
		Username:  u.Username,
		Role:      common.Role(u.Role),
		IsBlocked: u.IsBlocked,
	}
}

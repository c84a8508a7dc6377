package models

import "time"

const (
	RoleStudent  = "student"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

type User struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string     `gorm:"uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	Firstname string     `gorm:"not null" json:"firstname"`
	Lastname  string     `gorm:"not null" json:"lastname"`
	Role      string     `gorm:"type:varchar(16);not null;default:'student'" json:"role"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

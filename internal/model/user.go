package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// User is a player account. Login and profile management live outside this service;
// here the row only carries the balances the battle engine reads and grants.
// swagger:model User
type User struct {
	BaseModel
	Name     string    `gorm:"size:100;not null" json:"name"`
	Email    string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role     UserRole  `gorm:"size:20;default:'student'" json:"role"`
	XP       int       `gorm:"default:0" json:"xp"`
	Points   int       `gorm:"default:0" json:"points"`
	Coins    int       `gorm:"default:0" json:"coins"`
	LastSeen time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser          UserRole = "USER"
	RoleAgent         UserRole = "AGENT"
	RoleDealInitiator UserRole = "DEAL_INITIATOR"
	RoleAdmin         UserRole = "ADMIN"
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	FirstName    string         `gorm:"type:varchar(100)" json:"firstName"`
	LastName     string         `gorm:"type:varchar(100)" json:"lastName"`
	Phone        string         `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Role         UserRole       `gorm:"type:varchar(20);default:'USER'" json:"role"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// FullName is what the payment gateway receives as the customer name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

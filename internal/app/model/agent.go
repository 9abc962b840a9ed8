package model

import (
	"time"

	"gorm.io/gorm"
)

type ProfileStatus string

const (
	ProfileStatusPendingVerification ProfileStatus = "PENDING_VERIFICATION"
	ProfileStatusApproved            ProfileStatus = "APPROVED"
	ProfileStatusRejected            ProfileStatus = "REJECTED"
	ProfileStatusSuspended           ProfileStatus = "SUSPENDED"
)

// Agent is the listing agent profile of a user with the AGENT role.
type Agent struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	UserID     uint           `gorm:"uniqueIndex;not null" json:"userId"`                            // owning user
	AgencyName string         `gorm:"type:varchar(200)" json:"agencyName,omitempty"`                 // trading name
	Status     ProfileStatus  `gorm:"type:varchar(30);default:'PENDING_VERIFICATION'" json:"status"` // onboarding state
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Agent) TableName() string {
	return "agents"
}

// DealInitiator is the profile of a user who brings buyers and can claim verifications.
type DealInitiator struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	UserID          uint           `gorm:"uniqueIndex;not null" json:"userId"`                            // owning user
	ClaimLimit      int            `gorm:"default:5" json:"claimLimit"`                                   // concurrent claims allowed
	CompletedClaims int            `gorm:"default:0" json:"completedClaims"`                              // verifications driven to completion
	Rating          float64        `gorm:"default:0" json:"rating"`                                       // average rating
	IsTopG          bool           `gorm:"default:false" json:"isTopG"`                                   // featured initiator
	Status          ProfileStatus  `gorm:"type:varchar(30);default:'PENDING_VERIFICATION'" json:"status"` // onboarding state
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (DealInitiator) TableName() string {
	return "deal_initiators"
}

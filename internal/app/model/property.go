package model

import (
	"time"

	"gorm.io/gorm"
)

type PropertyStatus string

const (
	PropertyStatusAvailable         PropertyStatus = "available"
	PropertyStatusReserved          PropertyStatus = "reserved"
	PropertyStatusUnderVerification PropertyStatus = "under_verification"
	PropertyStatusSold              PropertyStatus = "sold"
)

type LandUseType string

const (
	LandUseResidential LandUseType = "residential"
	LandUseCommercial  LandUseType = "commercial"
	LandUseAgriculture LandUseType = "agricultural"
	LandUseMixed       LandUseType = "mixed"
)

// Location is embedded with a location_ prefix. The address is only disclosed
// once a verification is paid, claimed and approved.
type Location struct {
	State   string `gorm:"type:varchar(100)" json:"state"`
	City    string `gorm:"type:varchar(100)" json:"city"`
	Address string `gorm:"type:text" json:"address,omitempty"`
}

type LandProperty struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	AgentID       uint           `gorm:"not null;index" json:"agentId"`
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description,omitempty"`
	LandSize      float64        `json:"landSize"`
	Location      Location       `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Price         Amount         `gorm:"not null" json:"price"`
	LandUseType   LandUseType    `gorm:"type:varchar(30)" json:"landUseType"`
	Status        PropertyStatus `gorm:"type:varchar(30);default:'available';index" json:"status"`
	ReservedUntil *time.Time     `json:"reservedUntil,omitempty"`
	VisibleOnMap  bool           `gorm:"default:true" json:"visibleOnMap"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (LandProperty) TableName() string {
	return "land_properties"
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent records every provider event id seen so redeliveries are
// acknowledged without being processed twice.
type WebhookEvent struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Provider  string         `gorm:"type:varchar(40);not null;uniqueIndex:idx_webhook_provider_event" json:"provider"`
	EventID   string         `gorm:"type:varchar(150);not null;uniqueIndex:idx_webhook_provider_event" json:"eventId"`
	EventType string         `gorm:"type:varchar(80)" json:"eventType"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

package repository

import (
	"context"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	// Record inserts the event and reports false when (provider, eventId)
	// was already stored. Concurrent deliveries race on the unique index.
	Record(ctx context.Context, event *model.WebhookEvent) (bool, error)
	Exists(ctx context.Context, provider, eventID string) (bool, error)
	// Forget removes a recorded event so a redelivery is processed again.
	Forget(ctx context.Context, provider, eventID string) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Record(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		logger.Error("Failed to record webhook event", res.Error, map[string]interface{}{
			"provider": event.Provider,
			"event_id": event.EventID,
		})
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *webhookEventRepository) Exists(ctx context.Context, provider, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Count(&count).Error
	return count > 0, err
}

func (r *webhookEventRepository) Forget(ctx context.Context, provider, eventID string) error {
	return r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Delete(&model.WebhookEvent{}).Error
}

func (r *webhookEventRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.WebhookEvent{})
	return res.RowsAffected, res.Error
}

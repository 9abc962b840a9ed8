package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/garka/garka-backend/pkg/logger"
	"github.com/garka/garka-backend/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const defaultWebhookRetention = 7 * 24 * time.Hour

// WebhookPurger deletes stored webhook events recorded before cutoff.
type WebhookPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// WebhookRetentionJob trims the webhook replay log once a day.
type WebhookRetentionJob struct {
	cron      *cron.Cron
	purger    WebhookPurger
	retention time.Duration
	now       func() time.Time
}

func NewWebhookRetentionJob(purger WebhookPurger, retention time.Duration) *WebhookRetentionJob {
	if retention <= 0 {
		retention = defaultWebhookRetention
	}
	return &WebhookRetentionJob{
		cron:      cron.New(),
		purger:    purger,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (j *WebhookRetentionJob) Start() error {
	// 03:00 server time
	if _, err := j.cron.AddFunc("0 3 * * *", func() { _, _ = j.Purge() }); err != nil {
		logger.Error("Failed to add cron job for webhook retention", err)
		return err
	}
	j.cron.Start()
	logger.Info("Webhook retention job started", map[string]interface{}{
		"retention": j.retention.String(),
	})
	return nil
}

func (j *WebhookRetentionJob) Stop() {
	<-j.cron.Stop().Done()
	logger.Info("Webhook retention job stopped")
}

// Purge deletes events older than the retention window and returns the count.
func (j *WebhookRetentionJob) Purge() (n int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webhook purge panicked: %v", r)
			logger.Error("Webhook purge panicked", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	n, err = j.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error("Failed to purge webhook events", err, map[string]interface{}{
			"cutoff": cutoff,
		})
		return 0, err
	}

	metrics.Get().WebhooksPurged(n)
	logger.Info("Purged webhook events", map[string]interface{}{
		"deleted": n,
		"cutoff":  cutoff,
	})
	return n, nil
}

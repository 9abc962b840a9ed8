package service

import (
	"context"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/pkg/logger"
	"github.com/garka/garka-backend/pkg/metrics"
)

const expireBatchSize = 200

type ReservationService interface {
	ExpireReservations(ctx context.Context) (int, error)
}

type reservationService struct {
	verificationRepo repository.VerificationRepository
	propertyRepo     repository.PropertyRepository
	notifier         NotificationService
	batchSize        int
	now              func() time.Time
}

func NewReservationService(
	verificationRepo repository.VerificationRepository,
	propertyRepo repository.PropertyRepository,
	notifier NotificationService,
) ReservationService {
	return &reservationService{
		verificationRepo: verificationRepo,
		propertyRepo:     propertyRepo,
		notifier:         notifier,
		batchSize:        expireBatchSize,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// ExpireReservations returns paid but unapproved requests whose reservation
// lapsed to submitted. The backlog is drained in batches within one run.
// Each request is updated on its own; one failure does not stop the sweep.
// Only the first scan can fail the call.
func (s *reservationService) ExpireReservations(ctx context.Context) (int, error) {
	now := s.now()
	candidates, expired := 0, 0

	for batch := 0; ; batch++ {
		due, err := s.verificationRepo.FindExpiredReservations(ctx, now, s.batchSize)
		if err != nil {
			if batch == 0 {
				logger.Error("Failed to scan expired reservations", err)
				return 0, err
			}
			logger.Warn("Stopped reservation sweep after scan failure", map[string]interface{}{
				"batch": batch,
				"error": err.Error(),
			})
			break
		}
		candidates += len(due)

		n := 0
		for i := range due {
			if ctx.Err() != nil {
				break
			}
			if s.expireOne(ctx, &due[i], now) {
				n++
			}
		}
		expired += n

		// a short batch is the last one; a batch where nothing could be
		// expired would come back unchanged
		if len(due) < s.batchSize || n == 0 || ctx.Err() != nil {
			break
		}
	}

	if candidates == 0 {
		return 0, nil
	}

	metrics.Get().ReservationsExpired(expired)
	logger.Info("Expired verification reservations", map[string]interface{}{
		"candidates": candidates,
		"expired":    expired,
	})
	return expired, nil
}

func (s *reservationService) expireOne(ctx context.Context, v *model.VerificationRequest, now time.Time) bool {
	n, err := s.verificationRepo.ExpireReservation(ctx, v.ID, now)
	if err != nil {
		logger.Error("Failed to expire reservation", err, map[string]interface{}{
			"verification_id": v.ID,
		})
		return false
	}
	if n == 0 {
		// approved or re-paid since the scan
		return false
	}

	if released, err := s.propertyRepo.ReleaseReservation(ctx, v.PropertyID, now); err != nil {
		logger.Warn("Failed to release property reservation", map[string]interface{}{
			"verification_id": v.ID,
			"property_id":     v.PropertyID,
			"error":           err.Error(),
		})
	} else if released == 0 {
		logger.Debug("Property reservation held by a later payment", map[string]interface{}{
			"verification_id": v.ID,
			"property_id":     v.PropertyID,
		})
	}

	logger.Info("Verification reservation expired", map[string]interface{}{
		"verification_id": v.ID,
		"property_id":     v.PropertyID,
	})
	s.notifier.ReservationExpired(ctx, v)
	return true
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/garka/garka-backend/internal/app/service"
	"github.com/garka/garka-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const defaultSweepInterval = time.Minute

// ReservationSweeper periodically returns lapsed verification reservations.
type ReservationSweeper struct {
	cron               *cron.Cron
	reservationService service.ReservationService
	interval           time.Duration
	timeout            time.Duration
}

func NewReservationSweeper(reservationService service.ReservationService, interval time.Duration) *ReservationSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ReservationSweeper{
		cron:               cron.New(),
		reservationService: reservationService,
		interval:           interval,
		timeout:            interval,
	}
}

// Start schedules the sweep and runs it once immediately.
func (s *ReservationSweeper) Start() error {
	schedule := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		logger.Error("Failed to add cron job for reservation sweep", err, map[string]interface{}{
			"schedule": schedule,
		})
		return err
	}

	s.Sweep()
	s.cron.Start()
	logger.Info("Reservation sweeper started", map[string]interface{}{
		"interval": s.interval.String(),
	})
	return nil
}

// Stop waits for a running sweep to finish.
func (s *ReservationSweeper) Stop() {
	logger.Info("Stopping reservation sweeper...")
	<-s.cron.Stop().Done()
	logger.Info("Reservation sweeper stopped")
}

// Sweep runs a single pass. Errors and panics are logged, never propagated.
func (s *ReservationSweeper) Sweep() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Reservation sweep panicked", fmt.Errorf("%v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	expired, err := s.reservationService.ExpireReservations(ctx)
	if err != nil {
		logger.Error("Reservation sweep failed", err)
		return
	}
	if expired > 0 {
		logger.Info("Reservation sweep finished", map[string]interface{}{
			"expired": expired,
		})
	}
}

package service

import (
	"context"
	"time"

	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/pkg/metrics"
)

const (
	defaultPendingPayoutThreshold = 5
	defaultHeldThreshold          = 10
)

// Exit codes reported by the ops check.
const (
	OpsExitOK           = 0
	OpsExitError        = 1
	OpsExitPayoutBreach = 2
	OpsExitHeldBreach   = 3
)

type OpsCounts struct {
	StuckPayouts           int64 `json:"stuckPayouts"`
	StuckHeldVerifications int64 `json:"stuckHeldVerifications"`
	PendingDistributions   int64 `json:"pendingDistributions"`
}

type OpsStatus struct {
	Counts      OpsCounts `json:"counts"`
	Hours       int       `json:"hours"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type OpsThresholds struct {
	PendingPayouts    int64 `json:"pendingPayouts"`
	HeldVerifications int64 `json:"heldVerifications"`
	Hours             int   `json:"hours"`
}

// OpsReport is what the ops check prints and archives.
type OpsReport struct {
	Status     *OpsStatus    `json:"status,omitempty"`
	Thresholds OpsThresholds `json:"thresholds"`
	Breaches   []string      `json:"breaches"`
	ExitCode   int           `json:"exitCode"`
	Error      string        `json:"error,omitempty"`
}

type OpsService interface {
	Status(ctx context.Context, hours int) (*OpsStatus, error)
	Check(ctx context.Context, thresholds OpsThresholds) (*OpsReport, int)
}

type opsService struct {
	verificationRepo repository.VerificationRepository
	transactionRepo  repository.TransactionRepository
	now              func() time.Time
}

func NewOpsService(verificationRepo repository.VerificationRepository, transactionRepo repository.TransactionRepository) OpsService {
	return &opsService{
		verificationRepo: verificationRepo,
		transactionRepo:  transactionRepo,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Status counts payouts and escrow holds older than hours.
func (s *opsService) Status(ctx context.Context, hours int) (*OpsStatus, error) {
	if hours <= 0 {
		hours = 24
	}
	now := s.now()
	cutoff := now.Add(-time.Duration(hours) * time.Hour)

	stuckPayouts, err := s.transactionRepo.CountStuckPayouts(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	stuckHeld, err := s.verificationRepo.CountHeldSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	pending, err := s.verificationRepo.CountPendingDistribution(ctx)
	if err != nil {
		return nil, err
	}

	metrics.Get().OpsCounts(stuckPayouts, stuckHeld)
	return &OpsStatus{
		Counts: OpsCounts{
			StuckPayouts:           stuckPayouts,
			StuckHeldVerifications: stuckHeld,
			PendingDistributions:   pending,
		},
		Hours:       hours,
		GeneratedAt: now,
	}, nil
}

// Check compares the status against thresholds; reaching a threshold is a
// breach. A held-escrow breach wins over a payout breach when both trip.
func (s *opsService) Check(ctx context.Context, thresholds OpsThresholds) (*OpsReport, int) {
	if thresholds.PendingPayouts <= 0 {
		thresholds.PendingPayouts = defaultPendingPayoutThreshold
	}
	if thresholds.HeldVerifications <= 0 {
		thresholds.HeldVerifications = defaultHeldThreshold
	}
	report := &OpsReport{Thresholds: thresholds, Breaches: []string{}}

	status, err := s.Status(ctx, thresholds.Hours)
	if err != nil {
		report.Error = err.Error()
		report.ExitCode = OpsExitError
		return report, OpsExitError
	}
	report.Status = status
	report.Thresholds.Hours = status.Hours

	code := OpsExitOK
	if status.Counts.StuckPayouts >= thresholds.PendingPayouts {
		report.Breaches = append(report.Breaches, "stuckPayouts")
		code = OpsExitPayoutBreach
	}
	if status.Counts.StuckHeldVerifications >= thresholds.HeldVerifications {
		report.Breaches = append(report.Breaches, "stuckHeldVerifications")
		code = OpsExitHeldBreach
	}

	report.ExitCode = code
	return report, code
}

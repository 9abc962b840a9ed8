package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/pkg/logger"
	"github.com/garka/garka-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CalculateCommissions splits total with cfg. A nil config means no
// commission configuration is active.
func CalculateCommissions(total model.Amount, cfg *model.CommissionConfig) (*model.CommissionBreakdown, error) {
	if cfg == nil {
		return nil, ErrConfigNotFound
	}
	b := cfg.Calculate(total)
	return &b, nil
}

// CommissionQuote is a breakdown plus the config and percentages it came from.
type CommissionQuote struct {
	ConfigID    uint                       `json:"configId"`
	Commission  *model.CommissionBreakdown `json:"commission"`
	Percentages map[string]decimal.Decimal `json:"percentages"`
}

// DistributionResult describes the ledger lines written for one verification.
type DistributionResult struct {
	VerificationID     uint                       `json:"verificationId"`
	ConfigID           uint                       `json:"configId,omitempty"`
	Commission         *model.CommissionBreakdown `json:"commission"`
	TransactionIDs     []uint                     `json:"transactionIds"`
	PayoutIDs          []uint                     `json:"payoutIds"`
	AlreadyDistributed bool                       `json:"alreadyDistributed"`
	EscrowReleased     bool                       `json:"escrowReleased"`
}

type PublishConfigInput struct {
	PlatformCommissionPercent  decimal.Decimal `json:"platformCommissionPercent"`
	AdminCommissionPercent     decimal.Decimal `json:"adminCommissionPercent"`
	AgentPayoutPercent         decimal.Decimal `json:"agentPayoutPercent"`
	DealInitiatorPayoutPercent decimal.Decimal `json:"dealInitiatorPayoutPercent"`
	MinimumVerificationFee     model.Amount    `json:"minimumVerificationFee"`
	EffectiveFrom              *time.Time      `json:"effectiveFrom"`
}

type CommissionService interface {
	ActiveConfig(ctx context.Context) (*model.CommissionConfig, error)
	Calculate(ctx context.Context, amount model.Amount) (*CommissionQuote, error)
	Distribute(ctx context.Context, verificationID uint) (*DistributionResult, error)
	ListConfigs(ctx context.Context) ([]model.CommissionConfig, error)
	PublishConfig(ctx context.Context, adminID uint, input PublishConfigInput) (*model.CommissionConfig, error)
}

// AutoPayoutSettings enables settling payouts right after distribution.
type AutoPayoutSettings struct {
	Enabled  bool
	Provider string
}

type commissionService struct {
	db               *gorm.DB
	configRepo       repository.CommissionConfigRepository
	verificationRepo repository.VerificationRepository
	transactionRepo  repository.TransactionRepository
	payoutService    PayoutService
	autoPayout       AutoPayoutSettings
}

func NewCommissionService(
	db *gorm.DB,
	configRepo repository.CommissionConfigRepository,
	verificationRepo repository.VerificationRepository,
	transactionRepo repository.TransactionRepository,
	payoutService PayoutService,
	autoPayout AutoPayoutSettings,
) CommissionService {
	return &commissionService{
		db:               db,
		configRepo:       configRepo,
		verificationRepo: verificationRepo,
		transactionRepo:  transactionRepo,
		payoutService:    payoutService,
		autoPayout:       autoPayout,
	}
}

func (s *commissionService) ActiveConfig(ctx context.Context) (*model.CommissionConfig, error) {
	cfg, err := s.configRepo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		logger.Error("Failed to load active commission config", err)
		return nil, err
	}
	return cfg, nil
}

func (s *commissionService) Calculate(ctx context.Context, amount model.Amount) (*CommissionQuote, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}

	cfg, err := s.ActiveConfig(ctx)
	if err != nil {
		return nil, err
	}

	breakdown, err := CalculateCommissions(amount, cfg)
	if err != nil {
		return nil, err
	}

	return &CommissionQuote{
		ConfigID:   cfg.ID,
		Commission: breakdown,
		Percentages: map[string]decimal.Decimal{
			"platform":      cfg.PlatformCommissionPercent,
			"admin":         cfg.AdminCommissionPercent,
			"agent":         cfg.AgentPayoutPercent,
			"dealInitiator": cfg.DealInitiatorPayoutPercent,
		},
	}, nil
}

var errAlreadyDistributed = errors.New("already distributed")

// Distribute writes the four commission lines for a completed verification.
// The PENDING to DISTRIBUTED flip and the inserts share one database
// transaction, so a retry after any failure starts from a clean state.
func (s *commissionService) Distribute(ctx context.Context, verificationID uint) (*DistributionResult, error) {
	logger.Info("Distributing commissions", map[string]interface{}{
		"verification_id": verificationID,
	})

	var result *DistributionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		verificationRepo := s.verificationRepo.WithTx(tx)
		transactionRepo := s.transactionRepo.WithTx(tx)

		v, err := verificationRepo.FindByID(ctx, verificationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVerificationNotFound
			}
			return err
		}

		switch v.DistributionStatus {
		case model.DistributionStatusDistributed:
			return errAlreadyDistributed
		case model.DistributionStatusPending:
		default:
			return fmt.Errorf("%w: verification %d is not awaiting distribution", ErrValidation, v.ID)
		}

		cfg, err := s.configRepo.WithTx(tx).FindActive(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConfigNotFound
			}
			return err
		}
		breakdown := cfg.Calculate(v.VerificationFee)

		n, err := verificationRepo.MarkDistributed(ctx, v.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return errAlreadyDistributed
		}

		lines := commissionLines(v, cfg, breakdown)
		if err := transactionRepo.CreateBatch(ctx, lines); err != nil {
			return err
		}

		result = &DistributionResult{
			VerificationID: v.ID,
			ConfigID:       cfg.ID,
			Commission:     &breakdown,
		}
		for _, line := range lines {
			result.TransactionIDs = append(result.TransactionIDs, line.ID)
			if line.Type.IsPayout() {
				result.PayoutIDs = append(result.PayoutIDs, line.ID)
			}
		}
		return nil
	})

	switch {
	case errors.Is(err, errAlreadyDistributed):
		metrics.Get().Distribution("duplicate")
		result, err = s.existingDistribution(ctx, verificationID)
		if err != nil {
			return nil, err
		}
	case err != nil:
		metrics.Get().Distribution("error")
		if !errors.Is(err, ErrValidation) && !errors.Is(err, ErrNotFound) {
			logger.Error("Commission distribution failed", err, map[string]interface{}{
				"verification_id": verificationID,
			})
		}
		return nil, err
	default:
		metrics.Get().Distribution("distributed")
		logger.Info("Commissions distributed", map[string]interface{}{
			"verification_id": verificationID,
			"config_id":       result.ConfigID,
			"transaction_ids": result.TransactionIDs,
			"total_fees":      result.Commission.TotalFees,
			"net_amount":      result.Commission.NetAmount,
		})
	}

	if s.autoPayout.Enabled {
		released, err := s.settlePayouts(ctx, verificationID, result.PayoutIDs)
		if err != nil {
			return result, err
		}
		result.EscrowReleased = released
	}

	return result, nil
}

func commissionLines(v *model.VerificationRequest, cfg *model.CommissionConfig, b model.CommissionBreakdown) []*model.Transaction {
	verificationID := v.ID
	configID := cfg.ID
	agentID := v.AgentID

	line := func(t model.TransactionType, amount model.Amount, recipient *uint) *model.Transaction {
		return &model.Transaction{
			Type:           t,
			Amount:         amount,
			Status:         model.TransactionStatusPending,
			RecipientID:    recipient,
			VerificationID: &verificationID,
			ConfigID:       &configID,
			Metadata: datatypes.JSONMap{
				"verificationId": verificationID,
				"configId":       configID,
			},
		}
	}

	var agentRecipient *uint
	if agentID != 0 {
		agentRecipient = &agentID
	}

	return []*model.Transaction{
		line(model.TransactionTypeCommissionPlatform, b.PlatformCommission, nil),
		line(model.TransactionTypeCommissionAdmin, b.AdminCommission, nil),
		line(model.TransactionTypePayoutAgent, b.AgentPayout, agentRecipient),
		line(model.TransactionTypePayoutDealInitiator, b.DealInitiatorPayout, v.DealInitiatorID),
	}
}

// existingDistribution rebuilds the result from the ledger lines already written.
func (s *commissionService) existingDistribution(ctx context.Context, verificationID uint) (*DistributionResult, error) {
	v, err := s.verificationRepo.FindByID(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactionRepo.FindByVerificationID(ctx, verificationID)
	if err != nil {
		return nil, err
	}

	result := &DistributionResult{
		VerificationID:     verificationID,
		AlreadyDistributed: true,
		EscrowReleased:     v.EscrowStatus == model.EscrowStatusReleased,
	}
	b := model.CommissionBreakdown{TotalAmount: v.VerificationFee}
	for _, tx := range txs {
		switch tx.Type {
		case model.TransactionTypeCommissionPlatform:
			b.PlatformCommission = tx.Amount
		case model.TransactionTypeCommissionAdmin:
			b.AdminCommission = tx.Amount
		case model.TransactionTypePayoutAgent:
			b.AgentPayout = tx.Amount
		case model.TransactionTypePayoutDealInitiator:
			b.DealInitiatorPayout = tx.Amount
		default:
			continue
		}
		if tx.ConfigID != nil {
			result.ConfigID = *tx.ConfigID
		}
		result.TransactionIDs = append(result.TransactionIDs, tx.ID)
		if tx.Type.IsPayout() {
			result.PayoutIDs = append(result.PayoutIDs, tx.ID)
		}
	}
	b.TotalFees = b.PlatformCommission + b.AdminCommission + b.AgentPayout + b.DealInitiatorPayout
	b.NetAmount = b.TotalAmount - b.TotalFees
	result.Commission = &b
	return result, nil
}

// settlePayouts completes every payout line and then releases escrow. Escrow
// stays HELD when any payout fails so the next retry picks it up.
func (s *commissionService) settlePayouts(ctx context.Context, verificationID uint, payoutIDs []uint) (bool, error) {
	for _, id := range payoutIDs {
		if _, err := s.payoutService.ProcessPayout(ctx, id, s.autoPayout.Provider); err != nil {
			logger.Error("Auto payout failed", err, map[string]interface{}{
				"verification_id": verificationID,
				"transaction_id":  id,
			})
			return false, err
		}
	}

	n, err := s.verificationRepo.ReleaseEscrow(ctx, verificationID)
	if err != nil {
		logger.Error("Failed to release escrow", err, map[string]interface{}{
			"verification_id": verificationID,
		})
		return false, err
	}
	if n > 0 {
		logger.Info("Escrow released", map[string]interface{}{
			"verification_id": verificationID,
		})
	}
	return true, nil
}

func (s *commissionService) ListConfigs(ctx context.Context) ([]model.CommissionConfig, error) {
	return s.configRepo.List(ctx)
}

// PublishConfig activates a new split and deactivates the previous ones.
func (s *commissionService) PublishConfig(ctx context.Context, adminID uint, input PublishConfigInput) (*model.CommissionConfig, error) {
	percents := []decimal.Decimal{
		input.PlatformCommissionPercent,
		input.AdminCommissionPercent,
		input.AgentPayoutPercent,
		input.DealInitiatorPayoutPercent,
	}
	for _, p := range percents {
		if p.IsNegative() || p.GreaterThan(hundredPercent) {
			return nil, fmt.Errorf("%w: percentages must be between 0 and 100", ErrValidation)
		}
	}
	if input.MinimumVerificationFee < 0 {
		return nil, fmt.Errorf("%w: minimum verification fee must not be negative", ErrValidation)
	}

	cfg := &model.CommissionConfig{
		PlatformCommissionPercent:  input.PlatformCommissionPercent,
		AdminCommissionPercent:     input.AdminCommissionPercent,
		AgentPayoutPercent:         input.AgentPayoutPercent,
		DealInitiatorPayoutPercent: input.DealInitiatorPayoutPercent,
		MinimumVerificationFee:     input.MinimumVerificationFee,
		IsActive:                   true,
		EffectiveFrom:              time.Now().UTC(),
		CreatedBy:                  &adminID,
	}
	if input.EffectiveFrom != nil {
		cfg.EffectiveFrom = input.EffectiveFrom.UTC()
	}
	if cfg.TotalPercent().GreaterThan(hundredPercent) {
		logger.Warn("Commission config allocates more than the fee", map[string]interface{}{
			"total_percent": cfg.TotalPercent().String(),
		})
	}

	if err := s.configRepo.Publish(ctx, cfg); err != nil {
		logger.Error("Failed to publish commission config", err)
		return nil, err
	}

	logger.Info("Commission config published", map[string]interface{}{
		"config_id":     cfg.ID,
		"admin_id":      adminID,
		"total_percent": cfg.TotalPercent().String(),
	})
	return cfg, nil
}

var hundredPercent = decimal.NewFromInt(100)

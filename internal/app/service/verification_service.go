package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/pkg/logger"
	"gorm.io/gorm"
)

type RequestVerificationInput struct {
	PropertyID      uint         `json:"propertyId"`
	BuyerID         uint         `json:"-"`
	AgentID         uint         `json:"agentId"`
	DealInitiatorID *uint        `json:"dealInitiatorId"`
	VerificationFee model.Amount `json:"verificationFee"`
	TermsAccepted   *bool        `json:"termsAccepted"`
}

// PaymentConfirmation is what the gateway reports for a successful payment.
type PaymentConfirmation struct {
	PaymentReference  string
	ProviderReference string
	AmountPaid        model.Amount
}

// Viewer is the authenticated caller reading a verification.
type Viewer struct {
	UserID uint
	Role   model.UserRole
}

// ApprovalResult reports what an approval did. Completed is false when the
// request was approved but could not complete yet; Reason says why.
type ApprovalResult struct {
	Verification *model.VerificationRequest `json:"verification"`
	Completed    bool                       `json:"completed"`
	Reason       string                     `json:"reason,omitempty"`
	Commission   *DistributionResult        `json:"commission,omitempty"`
}

type VerificationService interface {
	RequestVerification(ctx context.Context, input RequestVerificationInput) (*model.VerificationRequest, error)
	GetVerification(ctx context.Context, id uint, viewer Viewer) (*model.VerificationRequest, error)
	ListClaimable(ctx context.Context, limit int) ([]model.VerificationRequest, error)

	MarkPaid(ctx context.Context, payment PaymentConfirmation) (*model.VerificationRequest, error)
	MarkFailed(ctx context.Context, paymentReference string) (*model.VerificationRequest, error)

	ResolveClaimant(ctx context.Context, userID uint, role model.UserRole) (model.Claimant, error)
	Claim(ctx context.Context, verificationID uint, claimant model.Claimant) (*model.VerificationRequest, error)
	Approve(ctx context.Context, verificationID uint, adminNote string) (*ApprovalResult, error)
	RetryDistribution(ctx context.Context, verificationID uint) (*DistributionResult, error)
}

// VerificationSettings carries the configured fee floor and reservation TTL.
type VerificationSettings struct {
	MinimumFee     model.Amount
	ReservationTTL time.Duration
}

type verificationService struct {
	verificationRepo  repository.VerificationRepository
	propertyRepo      repository.PropertyRepository
	profileRepo       repository.ProfileRepository
	commissionService CommissionService
	notifier          NotificationService
	settings          VerificationSettings
	now               func() time.Time
}

func NewVerificationService(
	verificationRepo repository.VerificationRepository,
	propertyRepo repository.PropertyRepository,
	profileRepo repository.ProfileRepository,
	commissionService CommissionService,
	notifier NotificationService,
	settings VerificationSettings,
) VerificationService {
	if settings.ReservationTTL <= 0 {
		settings.ReservationTTL = 72 * time.Hour
	}
	return &verificationService{
		verificationRepo:  verificationRepo,
		propertyRepo:      propertyRepo,
		profileRepo:       profileRepo,
		commissionService: commissionService,
		notifier:          notifier,
		settings:          settings,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

func (s *verificationService) RequestVerification(ctx context.Context, input RequestVerificationInput) (*model.VerificationRequest, error) {
	logger.Info("Creating verification request", map[string]interface{}{
		"property_id": input.PropertyID,
		"buyer_id":    input.BuyerID,
	})

	if input.PropertyID == 0 {
		return nil, fmt.Errorf("%w: propertyId is required", ErrValidation)
	}
	if input.BuyerID == 0 {
		return nil, fmt.Errorf("%w: buyerId is required", ErrValidation)
	}
	if input.VerificationFee < 0 {
		return nil, fmt.Errorf("%w: verificationFee must not be negative", ErrValidation)
	}

	property, err := s.propertyRepo.FindByID(ctx, input.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}

	minimum := s.minimumFee(ctx)
	fee := input.VerificationFee
	if fee == 0 {
		fee = minimum
	}
	if fee < minimum {
		return nil, fmt.Errorf("%w: verificationFee must be at least %d", ErrValidation, minimum)
	}

	agentID := input.AgentID
	if agentID == 0 {
		agentID = property.AgentID
	}
	terms := true
	if input.TermsAccepted != nil {
		terms = *input.TermsAccepted
	}

	v := &model.VerificationRequest{
		PropertyID:         property.ID,
		BuyerID:            input.BuyerID,
		AgentID:            agentID,
		DealInitiatorID:    input.DealInitiatorID,
		VerificationFee:    fee,
		TermsAccepted:      terms,
		PaymentStatus:      model.PaymentStatusPending,
		EscrowStatus:       model.EscrowStatusNone,
		RequestStatus:      model.RequestStatusSubmitted,
		DistributionStatus: model.DistributionStatusNone,
	}
	if err := s.verificationRepo.Create(ctx, v); err != nil {
		return nil, err
	}

	logger.Info("Verification request created", map[string]interface{}{
		"verification_id":  v.ID,
		"verification_fee": v.VerificationFee,
	})
	return v, nil
}

// minimumFee prefers the active config and falls back to the configured floor.
func (s *verificationService) minimumFee(ctx context.Context) model.Amount {
	if s.commissionService != nil {
		if cfg, err := s.commissionService.ActiveConfig(ctx); err == nil && cfg.MinimumVerificationFee > 0 {
			return cfg.MinimumVerificationFee
		}
	}
	return s.settings.MinimumFee
}

func (s *verificationService) GetVerification(ctx context.Context, id uint, viewer Viewer) (*model.VerificationRequest, error) {
	v, err := s.verificationRepo.FindByIDWithProperty(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}

	if viewer.Role != model.RoleAdmin && v.Property != nil && !v.LocationRevealed() {
		v.Property.Location.Address = ""
	}
	return v, nil
}

func (s *verificationService) ListClaimable(ctx context.Context, limit int) ([]model.VerificationRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.verificationRepo.ListClaimable(ctx, limit)
}

// MarkPaid moves a pending or failed request to paid, holds the fee in escrow
// and starts the reservation clock. Repeated confirmations are no-ops.
func (s *verificationService) MarkPaid(ctx context.Context, payment PaymentConfirmation) (*model.VerificationRequest, error) {
	if payment.PaymentReference == "" {
		return nil, fmt.Errorf("%w: paymentReference is required", ErrMissingField)
	}

	v, err := s.verificationRepo.FindByPaymentReference(ctx, payment.PaymentReference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}

	if v.PaymentStatus == model.PaymentStatusPaid {
		logger.Debug("Verification already paid", map[string]interface{}{
			"verification_id":   v.ID,
			"payment_reference": payment.PaymentReference,
		})
		return v, nil
	}

	if payment.AmountPaid > 0 && payment.AmountPaid != v.VerificationFee {
		logger.Warn("Paid amount differs from verification fee", map[string]interface{}{
			"verification_id":  v.ID,
			"amount_paid":      payment.AmountPaid,
			"verification_fee": v.VerificationFee,
		})
	}

	providerRef := payment.ProviderReference
	if providerRef == "" {
		providerRef = payment.PaymentReference
	}
	now := s.now()
	reservedUntil := now.Add(s.settings.ReservationTTL)

	n, err := s.verificationRepo.MarkPaid(ctx, payment.PaymentReference, providerRef, now, reservedUntil)
	if err != nil {
		return nil, err
	}

	v, err = s.verificationRepo.FindByID(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if v.PaymentStatus == model.PaymentStatusPaid {
			return v, nil
		}
		return nil, fmt.Errorf("%w: verification %d cannot accept payment in status %s", ErrValidation, v.ID, v.PaymentStatus)
	}

	if reserved, err := s.propertyRepo.Reserve(ctx, v.PropertyID, reservedUntil); err != nil {
		logger.Error("Failed to reserve property", err, map[string]interface{}{
			"verification_id": v.ID,
			"property_id":     v.PropertyID,
		})
	} else if reserved == 0 {
		logger.Warn("Property not available for reservation", map[string]interface{}{
			"verification_id": v.ID,
			"property_id":     v.PropertyID,
		})
	}

	logger.Info("Verification marked paid", map[string]interface{}{
		"verification_id":   v.ID,
		"payment_reference": payment.PaymentReference,
		"reserved_until":    reservedUntil,
	})
	s.notifier.VerificationPaid(ctx, v)
	return v, nil
}

// MarkFailed records a failed payment unless the request is already paid.
func (s *verificationService) MarkFailed(ctx context.Context, paymentReference string) (*model.VerificationRequest, error) {
	v, err := s.verificationRepo.FindByPaymentReference(ctx, paymentReference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}

	n, err := s.verificationRepo.MarkFailed(ctx, paymentReference)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		logger.Warn("Ignored payment failure for paid verification", map[string]interface{}{
			"verification_id":   v.ID,
			"payment_reference": paymentReference,
		})
		return v, nil
	}

	logger.Info("Verification payment failed", map[string]interface{}{
		"verification_id":   v.ID,
		"payment_reference": paymentReference,
	})
	return s.verificationRepo.FindByID(ctx, v.ID)
}

// ResolveClaimant maps an authenticated user to the profile that claims on
// their behalf.
func (s *verificationService) ResolveClaimant(ctx context.Context, userID uint, role model.UserRole) (model.Claimant, error) {
	switch role {
	case model.RoleAgent:
		agent, err := s.profileRepo.FindAgentByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.Claimant{}, fmt.Errorf("%w: agent profile required", ErrForbidden)
			}
			return model.Claimant{}, err
		}
		return model.AgentClaimant(agent.ID), nil
	case model.RoleDealInitiator:
		di, err := s.profileRepo.FindDealInitiatorByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.Claimant{}, fmt.Errorf("%w: deal initiator profile required", ErrForbidden)
			}
			return model.Claimant{}, err
		}
		return model.DealInitiatorClaimant(di.ID), nil
	}
	return model.Claimant{}, fmt.Errorf("%w: only agents and deal initiators can claim", ErrForbidden)
}

// Claim assigns the request to claimant. The repository update only matches
// unclaimed rows, so of two concurrent claims exactly one wins.
func (s *verificationService) Claim(ctx context.Context, verificationID uint, claimant model.Claimant) (*model.VerificationRequest, error) {
	if !claimant.Valid() {
		return nil, fmt.Errorf("%w: invalid claimant", ErrValidation)
	}

	n, err := s.verificationRepo.Claim(ctx, verificationID, claimant, s.now())
	if err != nil {
		return nil, err
	}

	v, findErr := s.verificationRepo.FindByID(ctx, verificationID)
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, findErr
	}
	if n == 0 {
		logger.Warn("Claim rejected, verification already claimed", map[string]interface{}{
			"verification_id": verificationID,
			"claimant_kind":   claimant.Kind,
			"claimant_id":     claimant.ID,
		})
		return nil, ErrAlreadyClaimed
	}

	logger.Info("Verification claimed", map[string]interface{}{
		"verification_id": verificationID,
		"claimant_kind":   claimant.Kind,
		"claimant_id":     claimant.ID,
	})
	s.notifier.VerificationClaimed(ctx, v)
	return v, nil
}

// Approve records the admin decision and, when the request is paid, claimed
// and in escrow, completes it and distributes commissions. A distribution
// failure leaves the request completed with distribution PENDING; the result
// is returned together with the error.
func (s *verificationService) Approve(ctx context.Context, verificationID uint, adminNote string) (*ApprovalResult, error) {
	v, err := s.verificationRepo.FindByID(ctx, verificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}

	now := s.now()
	if err := s.verificationRepo.RecordApproval(ctx, v.ID, adminNote, now); err != nil {
		logger.Error("Failed to record approval", err, map[string]interface{}{
			"verification_id": v.ID,
		})
		return nil, err
	}

	result := &ApprovalResult{}
	alreadyCompleted := v.RequestStatus == model.RequestStatusCompleted

	if !alreadyCompleted {
		if reason := incompleteReason(v); reason != "" {
			logger.Warn("Verification approved without completion", map[string]interface{}{
				"verification_id": v.ID,
				"reason":          reason,
			})
			result.Reason = reason
			return s.finishApproval(ctx, result, v.ID)
		}

		n, err := s.verificationRepo.Complete(ctx, v.ID, now)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			current, err := s.verificationRepo.FindByID(ctx, v.ID)
			if err != nil {
				return nil, err
			}
			if current.RequestStatus != model.RequestStatusCompleted {
				result.Reason = "verification changed state during approval"
				return s.finishApproval(ctx, result, v.ID)
			}
		} else {
			logger.Info("Verification completed", map[string]interface{}{
				"verification_id": v.ID,
			})
			if claimant := v.Claimant(); claimant != nil && claimant.Kind == model.ClaimantDealInitiator {
				if err := s.profileRepo.IncrementCompletedClaims(ctx, claimant.ID); err != nil {
					logger.Warn("Failed to increment completed claims", map[string]interface{}{
						"deal_initiator_id": claimant.ID,
						"error":             err.Error(),
					})
				}
			}
		}
	}

	result.Completed = true
	dist, distErr := s.commissionService.Distribute(ctx, v.ID)
	result.Commission = dist

	if _, err := s.finishApproval(ctx, result, v.ID); err != nil {
		return nil, err
	}
	if distErr != nil {
		return result, fmt.Errorf("%w: %w", ErrDistributionPending, distErr)
	}
	return result, nil
}

func (s *verificationService) finishApproval(ctx context.Context, result *ApprovalResult, id uint) (*ApprovalResult, error) {
	v, err := s.verificationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Verification = v
	s.notifier.VerificationApproved(ctx, v, result.Completed)
	return result, nil
}

func incompleteReason(v *model.VerificationRequest) string {
	switch {
	case v.PaymentStatus != model.PaymentStatusPaid:
		return fmt.Sprintf("payment status is %s", v.PaymentStatus)
	case !v.IsClaimed():
		return "verification has not been claimed"
	case v.EscrowStatus != model.EscrowStatusHeld:
		return fmt.Sprintf("escrow status is %s", v.EscrowStatus)
	}
	return ""
}

// RetryDistribution re-runs distribution for a completed request whose
// commission lines were never written.
func (s *verificationService) RetryDistribution(ctx context.Context, verificationID uint) (*DistributionResult, error) {
	v, err := s.verificationRepo.FindByID(ctx, verificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}
	if v.RequestStatus != model.RequestStatusCompleted {
		return nil, fmt.Errorf("%w: verification %d is not completed", ErrValidation, v.ID)
	}

	logger.Info("Retrying commission distribution", map[string]interface{}{
		"verification_id":     v.ID,
		"distribution_status": v.DistributionStatus,
	})
	return s.commissionService.Distribute(ctx, v.ID)
}

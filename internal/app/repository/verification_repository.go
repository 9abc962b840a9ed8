package repository

import (
	"context"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/pkg/logger"
	"gorm.io/gorm"
)

// VerificationRepository persists verification requests. Every state change is
// a conditional UPDATE and returns the affected row count so callers can tell
// a lost race from success.
type VerificationRepository interface {
	WithTx(tx *gorm.DB) VerificationRepository

	Create(ctx context.Context, v *model.VerificationRequest) error
	FindByID(ctx context.Context, id uint) (*model.VerificationRequest, error)
	FindByIDWithProperty(ctx context.Context, id uint) (*model.VerificationRequest, error)
	FindByPaymentReference(ctx context.Context, reference string) (*model.VerificationRequest, error)
	ListClaimable(ctx context.Context, limit int) ([]model.VerificationRequest, error)

	SetPaymentReference(ctx context.Context, id uint, reference string) (int64, error)
	MarkPaid(ctx context.Context, reference, providerReference string, paidAt, reservedUntil time.Time) (int64, error)
	MarkFailed(ctx context.Context, reference string) (int64, error)
	Claim(ctx context.Context, id uint, claimant model.Claimant, claimedAt time.Time) (int64, error)
	RecordApproval(ctx context.Context, id uint, note string, approvedAt time.Time) error
	Complete(ctx context.Context, id uint, completedAt time.Time) (int64, error)
	MarkDistributed(ctx context.Context, id uint) (int64, error)
	ReleaseEscrow(ctx context.Context, id uint) (int64, error)

	FindExpiredReservations(ctx context.Context, now time.Time, limit int) ([]model.VerificationRequest, error)
	ExpireReservation(ctx context.Context, id uint, now time.Time) (int64, error)

	CountHeldSince(ctx context.Context, cutoff time.Time) (int64, error)
	CountPendingDistribution(ctx context.Context) (int64, error)
}

type verificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) WithTx(tx *gorm.DB) VerificationRepository {
	return &verificationRepository{db: tx}
}

func (r *verificationRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.VerificationRequest{})
}

func (r *verificationRepository) Create(ctx context.Context, v *model.VerificationRequest) error {
	logger.Debug("Creating verification request in database", map[string]interface{}{
		"property_id": v.PropertyID,
		"buyer_id":    v.BuyerID,
	})

	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		logger.Error("Failed to create verification request in database", err, map[string]interface{}{
			"property_id": v.PropertyID,
			"buyer_id":    v.BuyerID,
		})
		return err
	}

	logger.Debug("Verification request created in database", map[string]interface{}{
		"verification_id": v.ID,
	})
	return nil
}

func (r *verificationRepository) FindByID(ctx context.Context, id uint) (*model.VerificationRequest, error) {
	var v model.VerificationRequest
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find verification request by ID", err, map[string]interface{}{
				"verification_id": id,
			})
		}
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepository) FindByIDWithProperty(ctx context.Context, id uint) (*model.VerificationRequest, error) {
	var v model.VerificationRequest
	if err := r.db.WithContext(ctx).Preload("Property").First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepository) FindByPaymentReference(ctx context.Context, reference string) (*model.VerificationRequest, error) {
	logger.Debug("Finding verification request by payment reference", map[string]interface{}{
		"payment_reference": reference,
	})

	var v model.VerificationRequest
	if err := r.db.WithContext(ctx).Where("payment_reference = ?", reference).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepository) ListClaimable(ctx context.Context, limit int) ([]model.VerificationRequest, error) {
	var list []model.VerificationRequest
	err := r.db.WithContext(ctx).
		Where("payment_status = ? AND claimed_by_id IS NULL AND request_status = ?",
			model.PaymentStatusPaid, model.RequestStatusSubmitted).
		Order("paid_at ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		logger.Error("Failed to list claimable verification requests", err)
		return nil, err
	}
	return list, nil
}

// SetPaymentReference attaches a new checkout to an unpaid request and puts it
// back to pending, which also lets expired requests be paid again.
func (r *verificationRepository) SetPaymentReference(ctx context.Context, id uint, reference string) (int64, error) {
	res := r.table(ctx).
		Where("id = ? AND payment_status <> ?", id, model.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"payment_reference": reference,
			"payment_status":    model.PaymentStatusPending,
		})
	return res.RowsAffected, res.Error
}

func (r *verificationRepository) MarkPaid(ctx context.Context, reference, providerReference string, paidAt, reservedUntil time.Time) (int64, error) {
	res := r.table(ctx).
		Where("payment_reference = ? AND payment_status IN ?", reference,
			[]model.PaymentStatus{model.PaymentStatusPending, model.PaymentStatusFailed}).
		Updates(map[string]interface{}{
			"payment_status":             model.PaymentStatusPaid,
			"payment_provider_reference": providerReference,
			"paid_at":                    paidAt,
			"escrow_status":              model.EscrowStatusHeld,
			"reserved_until":             reservedUntil,
		})
	if res.Error != nil {
		logger.Error("Failed to mark verification request paid", res.Error, map[string]interface{}{
			"payment_reference": reference,
		})
	}
	return res.RowsAffected, res.Error
}

func (r *verificationRepository) MarkFailed(ctx context.Context, reference string) (int64, error) {
	res := r.table(ctx).
		Where("payment_reference = ? AND payment_status <> ?", reference, model.PaymentStatusPaid).
		Update("payment_status", model.PaymentStatusFailed)
	return res.RowsAffected, res.Error
}

// Claim sets the claimant only while nobody holds the request. The WHERE
// guard makes concurrent claims resolve to a single winner.
func (r *verificationRepository) Claim(ctx context.Context, id uint, claimant model.Claimant, claimedAt time.Time) (int64, error) {
	updates := map[string]interface{}{
		"claimed_by_id":    claimant.ID,
		"claimed_by_model": claimant.Kind,
		"claimed_at":       claimedAt,
		"request_status":   model.RequestStatusClaimed,
	}
	if claimant.Kind == model.ClaimantDealInitiator {
		updates["deal_initiator_id"] = gorm.Expr("COALESCE(deal_initiator_id, ?)", claimant.ID)
	}

	res := r.table(ctx).
		Where("id = ? AND claimed_by_id IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		logger.Error("Failed to claim verification request", res.Error, map[string]interface{}{
			"verification_id": id,
		})
	}
	return res.RowsAffected, res.Error
}

func (r *verificationRepository) RecordApproval(ctx context.Context, id uint, note string, approvedAt time.Time) error {
	return r.table(ctx).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"admin_approved": true,
			"approved_at":    approvedAt,
			"admin_note":     note,
		}).Error
}

func (r *verificationRepository) Complete(ctx context.Context, id uint, completedAt time.Time) (int64, error) {
	res := r.table(ctx).
		Where("id = ? AND payment_status = ? AND escrow_status = ? AND claimed_by_id IS NOT NULL AND request_status IN ?",
			id, model.PaymentStatusPaid, model.EscrowStatusHeld,
			[]model.RequestStatus{model.RequestStatusClaimed, model.RequestStatusInProgress}).
		Updates(map[string]interface{}{
			"request_status":      model.RequestStatusCompleted,
			"completed_at":        completedAt,
			"distribution_status": model.DistributionStatusPending,
			"reserved_until":      nil,
		})
	return res.RowsAffected, res.Error
}

func (r *verificationRepository) MarkDistributed(ctx context.Context, id uint) (int64, error) {
	res := r.table(ctx).
		Where("id = ? AND distribution_status = ?", id, model.DistributionStatusPending).
		Update("distribution_status", model.DistributionStatusDistributed)
	return res.RowsAffected, res.Error
}

func (r *verificationRepository) ReleaseEscrow(ctx context.Context, id uint) (int64, error) {
	res := r.table(ctx).
		Where("id = ? AND escrow_status = ?", id, model.EscrowStatusHeld).
		Update("escrow_status", model.EscrowStatusReleased)
	return res.RowsAffected, res.Error
}

func (r *verificationRepository) FindExpiredReservations(ctx context.Context, now time.Time, limit int) ([]model.VerificationRequest, error) {
	var list []model.VerificationRequest
	err := r.db.WithContext(ctx).
		Where("reserved_until IS NOT NULL AND reserved_until <= ? AND payment_status = ? AND admin_approved = ?",
			now, model.PaymentStatusPaid, false).
		Order("reserved_until ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// ExpireReservation re-checks the expiry predicate so a request approved
// between the scan and this update is left alone.
func (r *verificationRepository) ExpireReservation(ctx context.Context, id uint, now time.Time) (int64, error) {
	res := r.table(ctx).
		Where("id = ? AND reserved_until IS NOT NULL AND reserved_until <= ? AND payment_status = ? AND admin_approved = ?",
			id, now, model.PaymentStatusPaid, false).
		Updates(map[string]interface{}{
			"payment_status":   model.PaymentStatusExpired,
			"escrow_status":    model.EscrowStatusNone,
			"reserved_until":   nil,
			"request_status":   model.RequestStatusSubmitted,
			"claimed_by_id":    nil,
			"claimed_by_model": nil,
			"claimed_at":       nil,
		})
	return res.RowsAffected, res.Error
}

func (r *verificationRepository) CountHeldSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.table(ctx).
		Where("escrow_status = ? AND paid_at < ?", model.EscrowStatusHeld, cutoff).
		Count(&count).Error
	return count, err
}

func (r *verificationRepository) CountPendingDistribution(ctx context.Context) (int64, error) {
	var count int64
	err := r.table(ctx).
		Where("request_status = ? AND distribution_status = ?", model.RequestStatusCompleted, model.DistributionStatusPending).
		Count(&count).Error
	return count, err
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/pkg/logger"
	"github.com/garka/garka-backend/pkg/payment/monnify"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentGateway starts hosted checkouts and looks them up afterwards.
// *monnify.Client implements it.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req monnify.InitRequest) (*monnify.InitResponse, error)
	VerifyTransaction(ctx context.Context, paymentReference string) (*monnify.TransactionStatus, error)
}

// PaymentConfirmer applies a confirmed collection to its verification
// request. VerificationService implements it.
type PaymentConfirmer interface {
	MarkPaid(ctx context.Context, payment PaymentConfirmation) (*model.VerificationRequest, error)
}

type InitiatePaymentInput struct {
	VerificationID uint         `json:"verificationId"`
	Amount         model.Amount `json:"amount"`
	RedirectURL    string       `json:"redirectUrl"`
}

type InitiatePaymentResult struct {
	CheckoutURL      string       `json:"checkoutUrl"`
	PaymentReference string       `json:"paymentReference"`
	TransactionID    uint         `json:"transactionId"`
	Amount           model.Amount `json:"amount"`
	Mock             bool         `json:"mock,omitempty"`
}

type PaymentStatusResult struct {
	VerificationID   uint                `json:"verificationId"`
	PaymentStatus    model.PaymentStatus `json:"paymentStatus"`
	EscrowStatus     model.EscrowStatus  `json:"escrowStatus"`
	PaymentReference string              `json:"paymentReference,omitempty"`
	PaidAt           *time.Time          `json:"paidAt,omitempty"`
	ReservedUntil    *time.Time          `json:"reservedUntil,omitempty"`
	Transaction      *model.Transaction  `json:"transaction,omitempty"`
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, userID uint, input InitiatePaymentInput) (*InitiatePaymentResult, error)
	GetPaymentStatus(ctx context.Context, viewer Viewer, verificationID uint) (*PaymentStatusResult, error)
}

type paymentService struct {
	gateway          PaymentGateway
	confirmer        PaymentConfirmer
	verificationRepo repository.VerificationRepository
	transactionRepo  repository.TransactionRepository
	userRepo         repository.UserRepository
	now              func() time.Time
}

func NewPaymentService(
	gateway PaymentGateway,
	confirmer PaymentConfirmer,
	verificationRepo repository.VerificationRepository,
	transactionRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
) PaymentService {
	return &paymentService{
		gateway:          gateway,
		confirmer:        confirmer,
		verificationRepo: verificationRepo,
		transactionRepo:  transactionRepo,
		userRepo:         userRepo,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// InitiatePayment opens a checkout for the buyer's own verification request.
// Every attempt gets a fresh reference and its own PAYMENT_IN line. The
// checkout is always for the fee fixed at request time; a caller-supplied
// amount must match it.
func (s *paymentService) InitiatePayment(ctx context.Context, userID uint, input InitiatePaymentInput) (*InitiatePaymentResult, error) {
	if input.VerificationID == 0 {
		return nil, fmt.Errorf("%w: verificationId is required", ErrValidation)
	}
	if input.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}

	v, err := s.verificationRepo.FindByID(ctx, input.VerificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}
	if v.BuyerID != userID {
		logger.Warn("Payment initiation by non-buyer rejected", map[string]interface{}{
			"verification_id": v.ID,
			"user_id":         userID,
		})
		return nil, fmt.Errorf("%w: only the buyer can pay for this verification", ErrForbidden)
	}
	if v.PaymentStatus == model.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: verification is already paid", ErrValidation)
	}

	amount := v.VerificationFee
	if input.Amount != 0 && input.Amount != amount {
		logger.Warn("Payment amount differs from verification fee", map[string]interface{}{
			"verification_id":  v.ID,
			"amount":           input.Amount,
			"verification_fee": amount,
		})
		return nil, fmt.Errorf("%w: amount must match the verification fee", ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: verification has no fee", ErrValidation)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	reference := monnify.NewPaymentReference()
	verificationID := v.ID
	tx := &model.Transaction{
		Type:              model.TransactionTypePaymentIn,
		Amount:            amount,
		Status:            model.TransactionStatusPending,
		Provider:          model.ProviderMonnify,
		ProviderReference: reference,
		UserID:            &userID,
		VerificationID:    &verificationID,
		Metadata:          datatypes.JSONMap{"verificationId": verificationID},
	}
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	customerName := user.FullName()
	if customerName == "" {
		customerName = user.Email
	}

	resp, err := s.gateway.InitializeTransaction(ctx, monnify.InitRequest{
		Amount:             json.Number(amount.Naira().StringFixed(2)),
		CustomerName:       customerName,
		CustomerEmail:      user.Email,
		PaymentReference:   reference,
		PaymentDescription: fmt.Sprintf("Land verification #%d", v.ID),
		RedirectURL:        input.RedirectURL,
	})
	if err != nil {
		logger.Error("Monnify checkout initialization failed", err, map[string]interface{}{
			"verification_id":   v.ID,
			"payment_reference": reference,
		})
		if settleErr := s.transactionRepo.SettlePayment(ctx, tx.ID, model.TransactionStatusFailed, nil); settleErr != nil {
			logger.Error("Failed to mark payment transaction failed", settleErr, map[string]interface{}{
				"transaction_id": tx.ID,
			})
		}
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	n, err := s.verificationRepo.SetPaymentReference(ctx, v.ID, reference)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: verification was paid while the checkout was created", ErrValidation)
	}

	logger.Info("Payment initiated", map[string]interface{}{
		"verification_id":   v.ID,
		"payment_reference": reference,
		"transaction_id":    tx.ID,
		"amount":            amount,
		"mock":              resp.Mock,
	})

	return &InitiatePaymentResult{
		CheckoutURL:      resp.CheckoutURL,
		PaymentReference: reference,
		TransactionID:    tx.ID,
		Amount:           amount,
		Mock:             resp.Mock,
	}, nil
}

// GetPaymentStatus reports the local payment state. A pending checkout is
// first checked against Monnify so a lost webhook does not leave it pending;
// a provider outage falls back to the local state.
func (s *paymentService) GetPaymentStatus(ctx context.Context, viewer Viewer, verificationID uint) (*PaymentStatusResult, error) {
	v, err := s.verificationRepo.FindByID(ctx, verificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}
	if viewer.Role != model.RoleAdmin && v.BuyerID != viewer.UserID {
		return nil, fmt.Errorf("%w: not your verification", ErrForbidden)
	}

	if v.PaymentStatus == model.PaymentStatusPending && v.PaymentReference != "" {
		reconciled, err := s.reconcile(ctx, v)
		if err != nil {
			return nil, err
		}
		if reconciled != nil {
			v = reconciled
		}
	}

	result := &PaymentStatusResult{
		VerificationID:   v.ID,
		PaymentStatus:    v.PaymentStatus,
		EscrowStatus:     v.EscrowStatus,
		PaymentReference: v.PaymentReference,
		PaidAt:           v.PaidAt,
		ReservedUntil:    v.ReservedUntil,
	}

	if v.PaymentReference != "" {
		tx, err := s.transactionRepo.FindByProviderReference(ctx, model.ProviderMonnify, v.PaymentReference)
		switch {
		case err == nil:
			result.Transaction = tx
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	return result, nil
}

// reconcile asks Monnify about the pending checkout and applies a settled
// collection the same way a success webhook would. It returns nil when there
// is nothing to apply.
func (s *paymentService) reconcile(ctx context.Context, v *model.VerificationRequest) (*model.VerificationRequest, error) {
	status, err := s.gateway.VerifyTransaction(ctx, v.PaymentReference)
	if err != nil {
		logger.Warn("Monnify status lookup failed; using local payment state", map[string]interface{}{
			"verification_id":   v.ID,
			"payment_reference": v.PaymentReference,
			"error":             err.Error(),
		})
		return nil, nil
	}
	if !status.Paid() {
		return nil, nil
	}

	now := s.now()
	tx, err := s.transactionRepo.FindByProviderReference(ctx, model.ProviderMonnify, v.PaymentReference)
	switch {
	case err == nil:
		if tx.Status != model.TransactionStatusSuccess {
			if err := s.transactionRepo.SettlePayment(ctx, tx.ID, model.TransactionStatusSuccess, &now); err != nil {
				return nil, err
			}
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	providerRef := status.TransactionReference
	if providerRef == "" {
		providerRef = v.PaymentReference
	}
	paid, err := s.confirmer.MarkPaid(ctx, PaymentConfirmation{
		PaymentReference:  v.PaymentReference,
		ProviderReference: providerRef,
		AmountPaid:        model.AmountFromNaira(status.AmountPaid),
	})
	if err != nil {
		if domainErr(err) {
			logger.Warn("Reconciled payment not applied", map[string]interface{}{
				"verification_id":   v.ID,
				"payment_reference": v.PaymentReference,
				"reason":            err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	logger.Info("Payment reconciled from Monnify status", map[string]interface{}{
		"verification_id":   v.ID,
		"payment_reference": v.PaymentReference,
	})
	return paid, nil
}

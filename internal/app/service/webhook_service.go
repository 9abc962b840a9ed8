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
	"github.com/garka/garka-backend/pkg/payment/monnify"
	"gorm.io/gorm"
)

type WebhookOutcome string

const (
	WebhookProcessedPaid   WebhookOutcome = "processed_paid"
	WebhookProcessedFailed WebhookOutcome = "processed_failed"
	WebhookDuplicate       WebhookOutcome = "duplicate"
	WebhookStale           WebhookOutcome = "stale"
	WebhookIgnored         WebhookOutcome = "ignored"
)

// WebhookRequest is the raw delivery as received over HTTP.
type WebhookRequest struct {
	Body          []byte
	Signature     string
	EventIDHeader string
}

// WebhookResult is always acknowledged with 200; Message is echoed to Monnify.
type WebhookResult struct {
	Outcome        WebhookOutcome `json:"outcome"`
	Message        string         `json:"message"`
	VerificationID uint           `json:"verificationId,omitempty"`
}

type WebhookSettings struct {
	Secret    string
	Algorithm string
	MaxAge    time.Duration
}

type WebhookService interface {
	HandleMonnifyWebhook(ctx context.Context, req WebhookRequest) (*WebhookResult, error)
}

type webhookService struct {
	webhookRepo         repository.WebhookEventRepository
	transactionRepo     repository.TransactionRepository
	verificationService VerificationService
	settings            WebhookSettings
	now                 func() time.Time
}

func NewWebhookService(
	webhookRepo repository.WebhookEventRepository,
	transactionRepo repository.TransactionRepository,
	verificationService VerificationService,
	settings WebhookSettings,
) WebhookService {
	return &webhookService{
		webhookRepo:         webhookRepo,
		transactionRepo:     transactionRepo,
		verificationService: verificationService,
		settings:            settings,
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

// HandleMonnifyWebhook authenticates, deduplicates and applies one event.
// Order matters: signature, extraction, replay check, freshness, dispatch.
func (s *webhookService) HandleMonnifyWebhook(ctx context.Context, req WebhookRequest) (*WebhookResult, error) {
	if err := monnify.VerifySignature(s.settings.Secret, s.settings.Algorithm, req.Signature, req.Body); err != nil {
		if !errors.Is(err, monnify.ErrNoSecret) {
			metrics.Get().WebhookEvent(model.ProviderMonnify, "invalid_signature")
			logger.Warn("Rejected Monnify webhook with bad signature", map[string]interface{}{
				"error": err.Error(),
			})
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		logger.Warn("Monnify webhook secret not configured, skipping signature check", nil)
	}

	payload, err := monnify.ParseWebhook(req.Body, req.EventIDHeader)
	if err != nil {
		metrics.Get().WebhookEvent(model.ProviderMonnify, "malformed")
		if errors.Is(err, monnify.ErrMalformedPayload) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingField, err)
	}

	log := logger.WithContext(map[string]interface{}{
		"event_id":          payload.EventID,
		"event_type":        payload.EventType,
		"payment_reference": payload.PaymentReference,
	})

	if payload.EventID != "" {
		inserted, err := s.webhookRepo.Record(ctx, &model.WebhookEvent{
			Provider:  model.ProviderMonnify,
			EventID:   payload.EventID,
			EventType: payload.EventType,
			Payload:   req.Body,
		})
		if err != nil {
			return nil, err
		}
		if !inserted {
			log.Info("Duplicate Monnify webhook ignored")
			return s.finish(payload, &WebhookResult{Outcome: WebhookDuplicate, Message: "Duplicate event ignored"}), nil
		}
	} else {
		log.Warn("Monnify webhook has no event id, replay protection skipped")
	}

	if age, ok := payload.Age(s.now()); ok {
		if s.settings.MaxAge > 0 && age > s.settings.MaxAge {
			log.Warn("Stale Monnify webhook ignored", map[string]interface{}{
				"age_seconds": int64(age.Seconds()),
			})
			return s.finish(payload, &WebhookResult{Outcome: WebhookStale, Message: "Event too old"}), nil
		}
	} else if payload.RawTimestamp != "" {
		log.Warn("Unparseable Monnify webhook timestamp", map[string]interface{}{
			"timestamp": payload.RawTimestamp,
		})
	}

	result, err := s.dispatch(ctx, payload)
	if err != nil {
		log.Error("Failed to apply Monnify webhook", err)
		if payload.EventID != "" {
			// let the provider's redelivery run the event again
			if forgetErr := s.webhookRepo.Forget(ctx, model.ProviderMonnify, payload.EventID); forgetErr != nil {
				log.Error("Failed to forget webhook event", forgetErr)
			}
		}
		metrics.Get().WebhookEvent(model.ProviderMonnify, "error")
		return nil, err
	}
	return s.finish(payload, result), nil
}

func (s *webhookService) finish(payload *monnify.WebhookPayload, result *WebhookResult) *WebhookResult {
	metrics.Get().WebhookEvent(model.ProviderMonnify, string(result.Outcome))
	logger.Info("Monnify webhook handled", map[string]interface{}{
		"event_id":          payload.EventID,
		"payment_reference": payload.PaymentReference,
		"outcome":           result.Outcome,
	})
	return result
}

func (s *webhookService) dispatch(ctx context.Context, payload *monnify.WebhookPayload) (*WebhookResult, error) {
	switch payload.Outcome() {
	case monnify.OutcomeSuccess:
		now := s.now()
		if err := s.settleTransaction(ctx, payload.PaymentReference, model.TransactionStatusSuccess, &now); err != nil {
			return nil, err
		}

		v, err := s.verificationService.MarkPaid(ctx, PaymentConfirmation{
			PaymentReference:  payload.PaymentReference,
			ProviderReference: transactionReference(payload),
			AmountPaid:        model.AmountFromNaira(payload.AmountPaid),
		})
		if err != nil {
			if domainErr(err) {
				logger.Warn("Payment confirmation not applied", map[string]interface{}{
					"payment_reference": payload.PaymentReference,
					"reason":            err.Error(),
				})
				return &WebhookResult{Outcome: WebhookProcessedPaid, Message: "Webhook processed"}, nil
			}
			return nil, err
		}
		return &WebhookResult{Outcome: WebhookProcessedPaid, Message: "Webhook processed", VerificationID: v.ID}, nil

	case monnify.OutcomeFailure:
		if err := s.settleTransaction(ctx, payload.PaymentReference, model.TransactionStatusFailed, nil); err != nil {
			return nil, err
		}

		v, err := s.verificationService.MarkFailed(ctx, payload.PaymentReference)
		if err != nil {
			if domainErr(err) {
				logger.Warn("Payment failure not applied", map[string]interface{}{
					"payment_reference": payload.PaymentReference,
					"reason":            err.Error(),
				})
				return &WebhookResult{Outcome: WebhookProcessedFailed, Message: "Webhook processed"}, nil
			}
			return nil, err
		}
		return &WebhookResult{Outcome: WebhookProcessedFailed, Message: "Webhook processed", VerificationID: v.ID}, nil
	}

	return &WebhookResult{Outcome: WebhookIgnored, Message: "Webhook received"}, nil
}

// settleTransaction updates the PAYMENT_IN line for reference when one exists.
func (s *webhookService) settleTransaction(ctx context.Context, reference string, status model.TransactionStatus, processedAt *time.Time) error {
	tx, err := s.transactionRepo.FindByProviderReference(ctx, model.ProviderMonnify, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("No payment transaction for webhook reference", map[string]interface{}{
				"payment_reference": reference,
			})
			return nil
		}
		return err
	}
	if tx.Status == model.TransactionStatusSuccess {
		return nil
	}
	return s.transactionRepo.SettlePayment(ctx, tx.ID, status, processedAt)
}

func transactionReference(payload *monnify.WebhookPayload) string {
	data, ok := payload.Raw["eventData"].(map[string]interface{})
	if !ok {
		data, _ = payload.Raw["data"].(map[string]interface{})
	}
	if ref, ok := data["transactionReference"].(string); ok && ref != "" {
		return ref
	}
	return payload.PaymentReference
}

// domainErr reports errors that describe the event rather than a fault; the
// delivery is acknowledged and not retried.
func domainErr(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation)
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/pkg/logger"
	"github.com/garka/garka-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type PayoutService interface {
	ProcessPayout(ctx context.Context, transactionID uint, provider string) (*model.Transaction, error)
	ExportPayouts(ctx context.Context, filter repository.PayoutFilter) (*bytes.Buffer, error)
}

type payoutService struct {
	transactionRepo repository.TransactionRepository
	defaultProvider string
}

func NewPayoutService(transactionRepo repository.TransactionRepository, defaultProvider string) PayoutService {
	return &payoutService{
		transactionRepo: transactionRepo,
		defaultProvider: defaultProvider,
	}
}

// ProcessPayout settles a pending payout line. Settlement is simulated: the
// line is marked COMPLETED with a generated provider reference. Completed
// payouts are returned as they are.
func (s *payoutService) ProcessPayout(ctx context.Context, transactionID uint, provider string) (*model.Transaction, error) {
	if provider == "" {
		provider = s.defaultProvider
	}

	tx, err := s.transactionRepo.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if !tx.Type.IsPayout() {
		logger.Warn("Rejected payout for non-payout transaction", map[string]interface{}{
			"transaction_id": transactionID,
			"type":           tx.Type,
		})
		return nil, ErrNotPayout
	}

	if tx.Status == model.TransactionStatusCompleted {
		return tx, nil
	}

	reference := "payout_" + uuid.NewString()
	n, err := s.transactionRepo.CompletePayout(ctx, tx.ID, provider, reference, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// settled concurrently, or no longer pending
		return s.transactionRepo.FindByID(ctx, tx.ID)
	}

	metrics.Get().PayoutProcessed(provider)
	logger.Info("Payout processed", map[string]interface{}{
		"transaction_id":     tx.ID,
		"type":               tx.Type,
		"amount":             tx.Amount,
		"provider":           provider,
		"provider_reference": reference,
	})

	return s.transactionRepo.FindByID(ctx, tx.ID)
}

var payoutSheetHeader = []interface{}{
	"Transaction ID", "Type", "Amount (NGN)", "Status", "Recipient ID",
	"Verification ID", "Provider", "Provider Reference", "Created At", "Processed At",
}

// ExportPayouts renders matching payout lines into an xlsx workbook.
func (s *payoutService) ExportPayouts(ctx context.Context, filter repository.PayoutFilter) (*bytes.Buffer, error) {
	txs, err := s.transactionRepo.ListPayouts(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Payouts"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A1", &payoutSheetHeader); err != nil {
		return nil, err
	}

	for i, tx := range txs {
		row := []interface{}{
			tx.ID, string(tx.Type), tx.Amount.Naira().InexactFloat64(), string(tx.Status), optionalID(tx.RecipientID),
			optionalID(tx.VerificationID), tx.Provider, tx.ProviderReference,
			tx.CreatedAt.UTC().Format(time.RFC3339), optionalTime(tx.ProcessedAt),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write payout row %d: %w", tx.ID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	logger.Info("Payout export generated", map[string]interface{}{
		"rows": len(txs),
	})
	return buf, nil
}

func optionalID(id *uint) interface{} {
	if id == nil {
		return ""
	}
	return *id
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

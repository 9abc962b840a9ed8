package service

import (
	"context"
	"testing"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupPayoutServiceTest(t *testing.T) (PayoutService, repository.TransactionRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	txRepo := repository.NewTransactionRepository(testDB)
	return NewPayoutService(txRepo, "STRIPE"), txRepo
}

func TestPayoutService_ProcessPayout(t *testing.T) {
	svc, txRepo := setupPayoutServiceTest(t)
	ctx := context.Background()

	payout := &model.Transaction{Type: model.TransactionTypePayoutAgent, Amount: 4000, Status: model.TransactionStatusPending}
	require.NoError(t, txRepo.Create(ctx, payout))

	got, err := svc.ProcessPayout(ctx, payout.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusCompleted, got.Status)
	assert.Equal(t, "STRIPE", got.Provider)
	assert.Regexp(t, `^payout_[0-9a-f-]{36}$`, got.ProviderReference)
	require.NotNil(t, got.ProcessedAt)

	again, err := svc.ProcessPayout(ctx, payout.ID, "PAYSTACK")
	require.NoError(t, err)
	assert.Equal(t, got.ProviderReference, again.ProviderReference, "completed payouts are not settled twice")
	assert.Equal(t, "STRIPE", again.Provider)
}

func TestPayoutService_ProcessPayoutErrors(t *testing.T) {
	svc, txRepo := setupPayoutServiceTest(t)
	ctx := context.Background()

	_, err := svc.ProcessPayout(ctx, 999, "")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	commission := &model.Transaction{Type: model.TransactionTypeCommissionPlatform, Amount: 1000, Status: model.TransactionStatusPending}
	require.NoError(t, txRepo.Create(ctx, commission))

	_, err = svc.ProcessPayout(ctx, commission.ID, "")
	assert.ErrorIs(t, err, ErrNotPayout)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPayoutService_ExportPayouts(t *testing.T) {
	svc, txRepo := setupPayoutServiceTest(t)
	ctx := context.Background()

	recipient := uint(4)
	require.NoError(t, txRepo.CreateBatch(ctx, []*model.Transaction{
		{Type: model.TransactionTypePayoutAgent, Amount: 400050, Status: model.TransactionStatusPending, RecipientID: &recipient},
		{Type: model.TransactionTypePayoutDealInitiator, Amount: 4500, Status: model.TransactionStatusPending},
		{Type: model.TransactionTypeCommissionAdmin, Amount: 500, Status: model.TransactionStatusPending},
	}))

	buf, err := svc.ExportPayouts(ctx, repository.PayoutFilter{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Payouts")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Transaction ID", rows[0][0])
	assert.Equal(t, "PAYOUT_AGENT", rows[1][1])
	assert.Equal(t, "Amount (NGN)", rows[0][2])
	assert.Equal(t, "4000.5", rows[1][2])
	assert.Equal(t, "4", rows[1][4])
	assert.Equal(t, "PAYOUT_DEAL_INITIATOR", rows[2][1])
}

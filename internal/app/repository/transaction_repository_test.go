package repository

import (
	"context"
	"testing"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRepository_CountStuckPayouts(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewTransactionRepository(testDB)
	ctx := context.Background()

	txs := []*model.Transaction{
		{Type: model.TransactionTypePayoutAgent, Amount: 4000, Status: model.TransactionStatusPending},
		{Type: model.TransactionTypePayoutDealInitiator, Amount: 4500, Status: model.TransactionStatusPending},
		{Type: model.TransactionTypeCommissionPlatform, Amount: 1000, Status: model.TransactionStatusPending},
		{Type: model.TransactionTypePayoutAgent, Amount: 4000, Status: model.TransactionStatusCompleted},
	}
	require.NoError(t, repo.CreateBatch(ctx, txs))

	// age everything except the second payout
	for _, tx := range []*model.Transaction{txs[0], txs[2], txs[3]} {
		require.NoError(t, testDB.Model(&model.Transaction{}).
			Where("id = ?", tx.ID).
			UpdateColumn("created_at", time.Now().UTC().Add(-30*time.Hour)).Error)
	}

	count, err := repo.CountStuckPayouts(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTransactionRepository_CompletePayoutOnlyOnce(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewTransactionRepository(testDB)
	ctx := context.Background()

	tx := &model.Transaction{Type: model.TransactionTypePayoutAgent, Amount: 4000, Status: model.TransactionStatusPending}
	require.NoError(t, repo.Create(ctx, tx))

	n, err := repo.CompletePayout(ctx, tx.ID, "STRIPE", "payout_1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CompletePayout(ctx, tx.ID, "STRIPE", "payout_2", time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := repo.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusCompleted, got.Status)
	assert.Equal(t, "payout_1", got.ProviderReference)
	assert.NotNil(t, got.ProcessedAt)
}

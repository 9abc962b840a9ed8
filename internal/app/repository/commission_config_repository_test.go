package repository

import (
	"context"
	"testing"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCommissionConfigRepository_PublishReplacesActive(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewCommissionConfigRepository(testDB)
	ctx := context.Background()

	_, err = repo.FindActive(ctx)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	first := db.DefaultCommissionConfig(5000)
	first.EffectiveFrom = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Publish(ctx, &first))

	second := model.CommissionConfig{
		PlatformCommissionPercent:  decimal.RequireFromString("12.5"),
		AdminCommissionPercent:     decimal.NewFromInt(5),
		AgentPayoutPercent:         decimal.RequireFromString("37.5"),
		DealInitiatorPayoutPercent: decimal.NewFromInt(45),
		IsActive:                   true,
		EffectiveFrom:              time.Now().UTC(),
	}
	require.NoError(t, repo.Publish(ctx, &second))

	active, err := repo.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.True(t, active.PlatformCommissionPercent.Equal(decimal.RequireFromString("12.5")))

	old, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
}

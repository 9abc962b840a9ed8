package db

import (
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Agent{},
		&model.DealInitiator{},
		&model.LandProperty{},
		&model.VerificationRequest{},
		&model.Transaction{},
		&model.CommissionConfig{},
		&model.WebhookEvent{},
	}
}

// Migrate runs database migrations
func Migrate(minimumFee model.Amount) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedDefaultCommissionConfig(DB, minimumFee); err != nil {
		logger.Error("Failed to seed default commission config", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// DefaultCommissionConfig is the 10/5/40/45 split used until an admin publishes another.
func DefaultCommissionConfig(minimumFee model.Amount) model.CommissionConfig {
	return model.CommissionConfig{
		PlatformCommissionPercent:  decimal.NewFromInt(10),
		AdminCommissionPercent:     decimal.NewFromInt(5),
		AgentPayoutPercent:         decimal.NewFromInt(40),
		DealInitiatorPayoutPercent: decimal.NewFromInt(45),
		MinimumVerificationFee:     minimumFee,
		IsActive:                   true,
		EffectiveFrom:              time.Now().UTC(),
	}
}

// SeedDefaultCommissionConfig inserts the default split when no config exists.
func SeedDefaultCommissionConfig(db *gorm.DB, minimumFee model.Amount) error {
	var count int64
	if err := db.Model(&model.CommissionConfig{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Commission config already present, skipping seed", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	cfg := DefaultCommissionConfig(minimumFee)
	if err := db.Create(&cfg).Error; err != nil {
		return err
	}

	logger.Info("Default commission config seeded", map[string]interface{}{
		"config_id": cfg.ID,
	})
	return nil
}

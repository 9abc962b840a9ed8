package repository

import (
	"context"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/pkg/logger"
	"gorm.io/gorm"
)

type CommissionConfigRepository interface {
	WithTx(tx *gorm.DB) CommissionConfigRepository
	FindActive(ctx context.Context) (*model.CommissionConfig, error)
	FindByID(ctx context.Context, id uint) (*model.CommissionConfig, error)
	List(ctx context.Context) ([]model.CommissionConfig, error)
	Publish(ctx context.Context, cfg *model.CommissionConfig) error
}

type commissionConfigRepository struct {
	db *gorm.DB
}

func NewCommissionConfigRepository(db *gorm.DB) CommissionConfigRepository {
	return &commissionConfigRepository{db: db}
}

func (r *commissionConfigRepository) WithTx(tx *gorm.DB) CommissionConfigRepository {
	return &commissionConfigRepository{db: tx}
}

// FindActive returns the most recently effective active config.
func (r *commissionConfigRepository) FindActive(ctx context.Context) (*model.CommissionConfig, error) {
	var cfg model.CommissionConfig
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("effective_from DESC").
		Order("id DESC").
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *commissionConfigRepository) FindByID(ctx context.Context, id uint) (*model.CommissionConfig, error) {
	var cfg model.CommissionConfig
	if err := r.db.WithContext(ctx).First(&cfg, id).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *commissionConfigRepository) List(ctx context.Context) ([]model.CommissionConfig, error) {
	var list []model.CommissionConfig
	err := r.db.WithContext(ctx).Order("effective_from DESC").Find(&list).Error
	return list, err
}

// Publish stores cfg. An active config deactivates every other one in the
// same database transaction.
func (r *commissionConfigRepository) Publish(ctx context.Context, cfg *model.CommissionConfig) error {
	logger.Debug("Publishing commission config", map[string]interface{}{
		"is_active": cfg.IsActive,
	})

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cfg.IsActive {
			if err := tx.Model(&model.CommissionConfig{}).
				Where("is_active = ?", true).
				Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(cfg).Error
	})
}

package repository

import (
	"context"

	"github.com/garka/garka-backend/internal/app/model"
	"gorm.io/gorm"
)

// ProfileRepository resolves agent and deal-initiator profiles.
type ProfileRepository interface {
	WithTx(tx *gorm.DB) ProfileRepository
	CreateAgent(ctx context.Context, agent *model.Agent) error
	CreateDealInitiator(ctx context.Context, di *model.DealInitiator) error
	FindAgentByID(ctx context.Context, id uint) (*model.Agent, error)
	FindAgentByUserID(ctx context.Context, userID uint) (*model.Agent, error)
	FindDealInitiatorByID(ctx context.Context, id uint) (*model.DealInitiator, error)
	FindDealInitiatorByUserID(ctx context.Context, userID uint) (*model.DealInitiator, error)
	IncrementCompletedClaims(ctx context.Context, dealInitiatorID uint) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) WithTx(tx *gorm.DB) ProfileRepository {
	return &profileRepository{db: tx}
}

func (r *profileRepository) CreateAgent(ctx context.Context, agent *model.Agent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

func (r *profileRepository) CreateDealInitiator(ctx context.Context, di *model.DealInitiator) error {
	return r.db.WithContext(ctx).Create(di).Error
}

func (r *profileRepository) FindAgentByID(ctx context.Context, id uint) (*model.Agent, error) {
	var agent model.Agent
	if err := r.db.WithContext(ctx).First(&agent, id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *profileRepository) FindAgentByUserID(ctx context.Context, userID uint) (*model.Agent, error) {
	var agent model.Agent
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *profileRepository) FindDealInitiatorByID(ctx context.Context, id uint) (*model.DealInitiator, error) {
	var di model.DealInitiator
	if err := r.db.WithContext(ctx).First(&di, id).Error; err != nil {
		return nil, err
	}
	return &di, nil
}

func (r *profileRepository) FindDealInitiatorByUserID(ctx context.Context, userID uint) (*model.DealInitiator, error) {
	var di model.DealInitiator
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&di).Error; err != nil {
		return nil, err
	}
	return &di, nil
}

func (r *profileRepository) IncrementCompletedClaims(ctx context.Context, dealInitiatorID uint) error {
	return r.db.WithContext(ctx).Model(&model.DealInitiator{}).
		Where("id = ?", dealInitiatorID).
		UpdateColumn("completed_claims", gorm.Expr("completed_claims + 1")).Error
}

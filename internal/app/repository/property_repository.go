package repository

import (
	"context"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"gorm.io/gorm"
)

type PropertyRepository interface {
	WithTx(tx *gorm.DB) PropertyRepository
	Create(ctx context.Context, p *model.LandProperty) error
	FindByID(ctx context.Context, id uint) (*model.LandProperty, error)
	Reserve(ctx context.Context, id uint, until time.Time) (int64, error)
	ReleaseReservation(ctx context.Context, id uint, now time.Time) (int64, error)
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) WithTx(tx *gorm.DB) PropertyRepository {
	return &propertyRepository{db: tx}
}

func (r *propertyRepository) Create(ctx context.Context, p *model.LandProperty) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *propertyRepository) FindByID(ctx context.Context, id uint) (*model.LandProperty, error) {
	var p model.LandProperty
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Reserve holds an available (or already reserved) property until the given time.
func (r *propertyRepository) Reserve(ctx context.Context, id uint, until time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.LandProperty{}).
		Where("id = ? AND status IN ?", id,
			[]model.PropertyStatus{model.PropertyStatusAvailable, model.PropertyStatusReserved}).
		Updates(map[string]interface{}{
			"status":         model.PropertyStatusReserved,
			"reserved_until": until,
		})
	return res.RowsAffected, res.Error
}

// ReleaseReservation makes a reserved property available again once its
// reservation has lapsed at now. A reservation extended by a later payment
// is kept, and sold properties are never touched.
func (r *propertyRepository) ReleaseReservation(ctx context.Context, id uint, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.LandProperty{}).
		Where("id = ? AND status IN ?", id,
			[]model.PropertyStatus{model.PropertyStatusReserved, model.PropertyStatusUnderVerification}).
		Where("reserved_until IS NULL OR reserved_until <= ?", now).
		Updates(map[string]interface{}{
			"status":         model.PropertyStatusAvailable,
			"reserved_until": nil,
		})
	return res.RowsAffected, res.Error
}

package repository

import (
	"context"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/pkg/logger"
	"gorm.io/gorm"
)

// PayoutFilter narrows payout listings for export.
type PayoutFilter struct {
	Status model.TransactionStatus
	From   *time.Time
	To     *time.Time
	Limit  int
}

type TransactionRepository interface {
	WithTx(tx *gorm.DB) TransactionRepository

	Create(ctx context.Context, tx *model.Transaction) error
	CreateBatch(ctx context.Context, txs []*model.Transaction) error
	FindByID(ctx context.Context, id uint) (*model.Transaction, error)
	FindByProviderReference(ctx context.Context, provider, reference string) (*model.Transaction, error)
	FindByVerificationID(ctx context.Context, verificationID uint) ([]model.Transaction, error)
	ListPayouts(ctx context.Context, filter PayoutFilter) ([]model.Transaction, error)

	SettlePayment(ctx context.Context, id uint, status model.TransactionStatus, processedAt *time.Time) error
	CompletePayout(ctx context.Context, id uint, provider, reference string, processedAt time.Time) (int64, error)

	CountStuckPayouts(ctx context.Context, cutoff time.Time) (int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) WithTx(tx *gorm.DB) TransactionRepository {
	return &transactionRepository{db: tx}
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	logger.Debug("Creating transaction in database", map[string]interface{}{
		"type":   tx.Type,
		"amount": tx.Amount,
	})

	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		logger.Error("Failed to create transaction in database", err, map[string]interface{}{
			"type": tx.Type,
		})
		return err
	}
	return nil
}

func (r *transactionRepository) CreateBatch(ctx context.Context, txs []*model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&txs).Error; err != nil {
		logger.Error("Failed to create transaction batch", err, map[string]interface{}{
			"count": len(txs),
		})
		return err
	}
	return nil
}

func (r *transactionRepository) FindByID(ctx context.Context, id uint) (*model.Transaction, error) {
	var tx model.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) FindByProviderReference(ctx context.Context, provider, reference string) (*model.Transaction, error) {
	var tx model.Transaction
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_reference = ?", provider, reference).
		Order("id DESC").
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) FindByVerificationID(ctx context.Context, verificationID uint) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := r.db.WithContext(ctx).
		Where("verification_id = ?", verificationID).
		Order("id ASC").
		Find(&txs).Error
	return txs, err
}

func (r *transactionRepository) ListPayouts(ctx context.Context, filter PayoutFilter) ([]model.Transaction, error) {
	q := r.db.WithContext(ctx).Where("type LIKE ?", model.PayoutTypePattern)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var txs []model.Transaction
	if err := q.Order("created_at ASC").Find(&txs).Error; err != nil {
		logger.Error("Failed to list payout transactions", err)
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepository) SettlePayment(ctx context.Context, id uint, status model.TransactionStatus, processedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if processedAt != nil {
		updates["processed_at"] = *processedAt
	}
	return r.db.WithContext(ctx).Model(&model.Transaction{}).Where("id = ?", id).Updates(updates).Error
}

// CompletePayout settles a payout that is still pending.
func (r *transactionRepository) CompletePayout(ctx context.Context, id uint, provider, reference string, processedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":             model.TransactionStatusCompleted,
			"provider":           provider,
			"provider_reference": reference,
			"processed_at":       processedAt,
		})
	if res.Error != nil {
		logger.Error("Failed to complete payout", res.Error, map[string]interface{}{
			"transaction_id": id,
		})
	}
	return res.RowsAffected, res.Error
}

func (r *transactionRepository) CountStuckPayouts(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("type LIKE ? AND status = ? AND created_at < ?",
			model.PayoutTypePattern, model.TransactionStatusPending, cutoff).
		Count(&count).Error
	return count, err
}

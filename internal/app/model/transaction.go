package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type TransactionType string
type TransactionStatus string

const (
	TransactionTypePaymentIn           TransactionType = "PAYMENT_IN"
	TransactionTypeCommissionPlatform  TransactionType = "COMMISSION_PLATFORM"
	TransactionTypeCommissionAdmin     TransactionType = "COMMISSION_ADMIN"
	TransactionTypePayoutAgent         TransactionType = "PAYOUT_AGENT"
	TransactionTypePayoutDealInitiator TransactionType = "PAYOUT_DEAL_INITIATOR"

	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusSuccess   TransactionStatus = "SUCCESS"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
)

// PayoutTypePattern matches every payout transaction type in SQL LIKE filters.
const PayoutTypePattern = "PAYOUT%"

const ProviderMonnify = "MONNIFY"

// IsPayout reports whether money of this type leaves the platform to a recipient.
func (t TransactionType) IsPayout() bool {
	return strings.HasPrefix(string(t), "PAYOUT")
}

// Transaction is one ledger line: an inbound payment, a commission, or a payout.
type Transaction struct {
	ID                uint              `gorm:"primarykey" json:"id"`                                   // transaction ID
	Type              TransactionType   `gorm:"type:varchar(40);not null;index" json:"type"`            // ledger line kind
	Amount            Amount            `gorm:"not null" json:"amount"`                                 // kobo
	Status            TransactionStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"` // lifecycle state
	Provider          string            `gorm:"type:varchar(40);index:idx_tx_provider_ref" json:"provider,omitempty"`
	ProviderReference string            `gorm:"type:varchar(100);index:idx_tx_provider_ref" json:"providerReference,omitempty"`
	RecipientID       *uint             `gorm:"index" json:"recipientId,omitempty"`      // agent or deal initiator profile
	UserID            *uint             `gorm:"index" json:"userId,omitempty"`           // paying user for PAYMENT_IN
	VerificationID    *uint             `gorm:"index" json:"verificationId,omitempty"`   // owning verification
	ConfigID          *uint             `json:"configId,omitempty"`                      // commission config used
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`                      // free-form audit data
	ProcessedAt       *time.Time        `json:"processedAt,omitempty"`                   // settlement time
	CreatedAt         time.Time         `gorm:"index" json:"createdAt"`                  // created
	UpdatedAt         time.Time         `json:"updatedAt"`                               // updated
}

func (Transaction) TableName() string {
	return "transactions"
}

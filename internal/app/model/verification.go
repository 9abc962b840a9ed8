package model

import (
	"time"

	"gorm.io/gorm"
)

type PaymentStatus string
type EscrowStatus string
type RequestStatus string
type DistributionStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"

	EscrowStatusNone     EscrowStatus = "NONE"
	EscrowStatusHeld     EscrowStatus = "HELD"
	EscrowStatusReleased EscrowStatus = "RELEASED"

	RequestStatusSubmitted  RequestStatus = "submitted"
	RequestStatusClaimed    RequestStatus = "claimed"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusRejected   RequestStatus = "rejected"

	// DistributionStatusPending marks a completed verification whose commission
	// transactions have not been written yet. It is retried until DISTRIBUTED.
	DistributionStatusNone        DistributionStatus = "NONE"
	DistributionStatusPending     DistributionStatus = "PENDING"
	DistributionStatusDistributed DistributionStatus = "DISTRIBUTED"
)

type ClaimantKind string

const (
	ClaimantAgent         ClaimantKind = "Agent"
	ClaimantDealInitiator ClaimantKind = "DealInitiator"
)

// Claimant identifies who took ownership of a verification. Kind decides which
// profile table ID points into.
type Claimant struct {
	Kind ClaimantKind `json:"kind"`
	ID   uint         `json:"id"`
}

func AgentClaimant(agentID uint) Claimant {
	return Claimant{Kind: ClaimantAgent, ID: agentID}
}

func DealInitiatorClaimant(dealInitiatorID uint) Claimant {
	return Claimant{Kind: ClaimantDealInitiator, ID: dealInitiatorID}
}

func (c Claimant) Valid() bool {
	return c.ID != 0 && (c.Kind == ClaimantAgent || c.Kind == ClaimantDealInitiator)
}

// VerificationRequest is a buyer's paid request to verify a land property.
type VerificationRequest struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	PropertyID      uint   `gorm:"not null;index" json:"propertyId"`
	BuyerID         uint   `gorm:"not null;index" json:"buyerId"`
	AgentID         uint   `gorm:"index" json:"agentId"`
	DealInitiatorID *uint  `gorm:"index" json:"dealInitiatorId,omitempty"`
	VerificationFee Amount `gorm:"not null;default:0" json:"verificationFee"`
	TermsAccepted   bool   `json:"termsAccepted"`

	PaymentStatus            PaymentStatus `gorm:"type:varchar(20);default:'pending';index" json:"paymentStatus"`
	PaymentReference         string        `gorm:"type:varchar(100);index" json:"paymentReference,omitempty"`
	PaymentProviderReference string        `gorm:"type:varchar(100)" json:"paymentProviderReference,omitempty"`
	PaidAt                   *time.Time    `gorm:"index" json:"paidAt,omitempty"`
	EscrowStatus             EscrowStatus  `gorm:"type:varchar(20);default:'NONE';index" json:"escrowStatus"`

	RequestStatus  RequestStatus `gorm:"type:varchar(20);default:'submitted';index" json:"requestStatus"`
	ClaimedByID    *uint         `gorm:"index" json:"-"`
	ClaimedByModel *ClaimantKind `gorm:"type:varchar(20)" json:"-"`
	ClaimedAt      *time.Time    `json:"claimedAt,omitempty"`
	ClaimedBy      *Claimant     `gorm:"-" json:"claimedBy,omitempty"`

	AdminApproved      bool               `gorm:"default:false" json:"adminApproved"`
	ApprovedAt         *time.Time         `json:"approvedAt,omitempty"`
	AdminNote          string             `gorm:"type:text" json:"adminNote,omitempty"`
	CompletedAt        *time.Time         `json:"completedAt,omitempty"`
	DistributionStatus DistributionStatus `gorm:"type:varchar(20);default:'NONE';index" json:"distributionStatus"`

	ReservedUntil *time.Time `gorm:"index" json:"reservedUntil,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Property *LandProperty `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}

func (VerificationRequest) TableName() string {
	return "verification_requests"
}

// Claimant returns the claimant, or nil while the request is unclaimed.
func (v *VerificationRequest) Claimant() *Claimant {
	if v.ClaimedByID == nil || v.ClaimedByModel == nil {
		return nil
	}
	return &Claimant{Kind: *v.ClaimedByModel, ID: *v.ClaimedByID}
}

func (v *VerificationRequest) IsClaimed() bool {
	return v.ClaimedByID != nil
}

// ReadyForCompletion reports whether approval can complete the request.
func (v *VerificationRequest) ReadyForCompletion() bool {
	return v.PaymentStatus == PaymentStatusPaid && v.IsClaimed() && v.EscrowStatus == EscrowStatusHeld
}

// LocationRevealed reports whether the buyer may see the property address.
func (v *VerificationRequest) LocationRevealed() bool {
	return v.PaymentStatus == PaymentStatusPaid && v.IsClaimed() && v.AdminApproved
}

func (v *VerificationRequest) AfterFind(tx *gorm.DB) error {
	v.ClaimedBy = v.Claimant()
	return nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionConfig holds the percentage split applied to verification fees.
// The newest active config by EffectiveFrom is the one in force.
type CommissionConfig struct {
	ID                         uint            `gorm:"primarykey" json:"id"`
	PlatformCommissionPercent  decimal.Decimal `gorm:"type:numeric(6,3);not null" json:"platformCommissionPercent"`
	AdminCommissionPercent     decimal.Decimal `gorm:"type:numeric(6,3);not null" json:"adminCommissionPercent"`
	AgentPayoutPercent         decimal.Decimal `gorm:"type:numeric(6,3);not null" json:"agentPayoutPercent"`
	DealInitiatorPayoutPercent decimal.Decimal `gorm:"type:numeric(6,3);not null" json:"dealInitiatorPayoutPercent"`
	MinimumVerificationFee     Amount          `gorm:"not null;default:0" json:"minimumVerificationFee"`
	IsActive                   bool            `gorm:"default:true;index" json:"isActive"`
	EffectiveFrom              time.Time       `gorm:"index" json:"effectiveFrom"`
	CreatedBy                  *uint           `json:"createdBy,omitempty"`
	CreatedAt                  time.Time       `json:"createdAt"`
	UpdatedAt                  time.Time       `json:"updatedAt"`
}

func (CommissionConfig) TableName() string {
	return "commission_configs"
}

// TotalPercent is the sum of all four shares.
func (c CommissionConfig) TotalPercent() decimal.Decimal {
	return c.PlatformCommissionPercent.
		Add(c.AdminCommissionPercent).
		Add(c.AgentPayoutPercent).
		Add(c.DealInitiatorPayoutPercent)
}

// CommissionBreakdown splits one verification fee across the four parties.
type CommissionBreakdown struct {
	TotalAmount         Amount `json:"totalAmount"`
	PlatformCommission  Amount `json:"platformCommission"`
	AdminCommission     Amount `json:"adminCommission"`
	AgentPayout         Amount `json:"agentPayout"`
	DealInitiatorPayout Amount `json:"dealInitiatorPayout"`
	TotalFees           Amount `json:"totalFees"`
	NetAmount           Amount `json:"netAmount"`
}

// Calculate rounds every share half away from zero to whole kobo. NetAmount
// absorbs the rounding so TotalFees + NetAmount == total always holds.
func (c CommissionConfig) Calculate(total Amount) CommissionBreakdown {
	share := func(percent decimal.Decimal) Amount {
		return Amount(percent.Div(hundred).Mul(decimal.NewFromInt(int64(total))).Round(0).IntPart())
	}

	b := CommissionBreakdown{
		TotalAmount:         total,
		PlatformCommission:  share(c.PlatformCommissionPercent),
		AdminCommission:     share(c.AdminCommissionPercent),
		AgentPayout:         share(c.AgentPayoutPercent),
		DealInitiatorPayout: share(c.DealInitiatorPayoutPercent),
	}
	b.TotalFees = b.PlatformCommission + b.AdminCommission + b.AgentPayout + b.DealInitiatorPayout
	b.NetAmount = total - b.TotalFees
	return b
}

var hundred = decimal.NewFromInt(100)

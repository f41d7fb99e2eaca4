package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/snapspend/backend/pkg/types"
)

// SubscriptionPayment is one expected billing event for a subscription,
// optionally evidenced by a linked receipt. Rows cascade on subscription
// deletion; a receipt deletion only clears the link.
type SubscriptionPayment struct {
	ID             string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string `gorm:"column:subscription_id;type:uuid;not null;index:idx_payment_subscription_id" json:"subscription_id"`

	ExpectedDate   time.Time       `gorm:"column:expected_date;not null" json:"expected_date"`
	ExpectedAmount decimal.Decimal `gorm:"column:expected_amount;type:numeric(14,2);not null" json:"expected_amount"`

	Status types.PaymentStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'" json:"status"`

	// ReceiptID links the evidencing receipt. The unique index enforces
	// at most one payment per receipt.
	ReceiptID    *string          `gorm:"column:receipt_id;type:uuid;default:null;uniqueIndex:unique_payment_receipt_id" json:"receipt_id,omitempty"`
	ActualDate   *time.Time       `gorm:"column:actual_date;default:null" json:"actual_date,omitempty"`
	ActualAmount *decimal.Decimal `gorm:"column:actual_amount;type:numeric(14,2);default:null" json:"actual_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SubscriptionPayment) TableName() string {
	return "subscription_payment"
}

// Elapsed reports whether the expected date has passed without evidence
// at the given instant.
func (p *SubscriptionPayment) Elapsed(now time.Time) bool {
	return p != nil && p.ExpectedDate.Before(now)
}

// Missing reports whether this payment counts toward the subscription's
// missing-payment total at the given instant.
func (p *SubscriptionPayment) Missing(now time.Time) bool {
	if p == nil || !p.Elapsed(now) {
		return false
	}
	return p.Status == types.PaymentStatusPending || p.Status == types.PaymentStatusMissed
}

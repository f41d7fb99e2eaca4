package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/snapspend/backend/pkg/types"
)

// Subscription is a user-declared recurring expense. Its expected
// billing events are materialized as SubscriptionPayment rows.
type Subscription struct {
	ID          string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID      string  `gorm:"column:user_id;type:varchar(64);not null;index:idx_subscription_user_id" json:"user_id"`
	HouseholdID *string `gorm:"column:household_id;type:varchar(64);default:null" json:"household_id,omitempty"`
	Name        string  `gorm:"column:name;type:varchar(255);not null" json:"name"`

	Amount   decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Currency string          `gorm:"column:currency;type:varchar(8);not null" json:"currency"`

	BillingFrequency types.BillingFrequency `gorm:"column:billing_frequency;type:varchar(16);not null" json:"billing_frequency"`
	// BillingDay is the anchor day-of-month (1-31), clamped to the last
	// valid day of short months when materializing dates.
	BillingDay int `gorm:"column:billing_day;not null;default:1" json:"billing_day"`
	// CustomFrequencyDays is required iff BillingFrequency is custom.
	CustomFrequencyDays *int `gorm:"column:custom_frequency_days;default:null" json:"custom_frequency_days,omitempty"`

	Status    types.SubscriptionStatus `gorm:"column:status;type:varchar(16);not null;default:'active'" json:"status"`
	StartDate time.Time                `gorm:"column:start_date;not null" json:"start_date"`
	EndDate   *time.Time               `gorm:"column:end_date;default:null" json:"end_date,omitempty"`

	// NextBillingDate is the next unconsumed expected date within
	// [StartDate, EndDate]; recomputed on paid payments and schedule
	// parameter changes.
	NextBillingDate *time.Time `gorm:"column:next_billing_date;default:null" json:"next_billing_date,omitempty"`
	LastPaymentDate *time.Time `gorm:"column:last_payment_date;default:null" json:"last_payment_date,omitempty"`

	Payments []SubscriptionPayment `gorm:"foreignKey:SubscriptionID;references:ID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// Custom reports whether the schedule advances by calendar days.
func (s *Subscription) Custom() bool {
	return s != nil && s.BillingFrequency == types.BillingFrequencyCustom
}

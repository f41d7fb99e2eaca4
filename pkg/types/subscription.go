package types

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type BillingFrequency string

const (
	BillingFrequencyMonthly   BillingFrequency = "monthly"
	BillingFrequencyQuarterly BillingFrequency = "quarterly"
	BillingFrequencyYearly    BillingFrequency = "yearly"
	BillingFrequencyCustom    BillingFrequency = "custom"
)

// PeriodMonths returns the billing period length in months, or 0 for
// custom frequencies which advance by calendar days instead.
func (f BillingFrequency) PeriodMonths() int {
	switch f {
	case BillingFrequencyMonthly:
		return 1
	case BillingFrequencyQuarterly:
		return 3
	case BillingFrequencyYearly:
		return 12
	default:
		return 0
	}
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusMissed    PaymentStatus = "missed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snapspend/backend/internal/models"
	"github.com/snapspend/backend/pkg/config"
	"github.com/snapspend/backend/pkg/logctx"
	"github.com/snapspend/backend/pkg/tool"
	"github.com/snapspend/backend/pkg/types"
)

var (
	// ErrSubscriptionNotFound means the referenced subscription does
	// not exist or was deleted.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Service owns user-declared recurring expenses and materializes their
// expected payment schedule.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

type CreateSubscriptionRequest struct {
	UserID              string                 `json:"user_id"`
	HouseholdID         *string                `json:"household_id,omitempty"`
	Name                string                 `json:"name"`
	Amount              decimal.Decimal        `json:"amount"`
	Currency            string                 `json:"currency"`
	BillingFrequency    types.BillingFrequency `json:"billing_frequency"`
	BillingDay          int                    `json:"billing_day"`
	CustomFrequencyDays *int                   `json:"custom_frequency_days,omitempty"`
	StartDate           time.Time              `json:"start_date"`
	EndDate             *time.Time             `json:"end_date,omitempty"`
}

func (r *CreateSubscriptionRequest) validate() error {
	if r.UserID == "" || r.Name == "" {
		return fmt.Errorf("user_id and name are required")
	}
	if r.BillingDay < 1 || r.BillingDay > 31 {
		return fmt.Errorf("billing_day must be between 1 and 31")
	}
	switch r.BillingFrequency {
	case types.BillingFrequencyMonthly, types.BillingFrequencyQuarterly, types.BillingFrequencyYearly:
	case types.BillingFrequencyCustom:
		if r.CustomFrequencyDays == nil || *r.CustomFrequencyDays <= 0 {
			return fmt.Errorf("custom_frequency_days is required for custom frequency")
		}
	default:
		return fmt.Errorf("unsupported billing frequency: %s", r.BillingFrequency)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("start_date is required")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("end_date must not precede start_date")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req CreateSubscriptionRequest) (*models.Subscription, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	currency := req.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	sub := &models.Subscription{
		ID:                  tool.GenerateUUIDV7(),
		UserID:              req.UserID,
		HouseholdID:         req.HouseholdID,
		Name:                req.Name,
		Amount:              req.Amount,
		Currency:            currency,
		BillingFrequency:    req.BillingFrequency,
		BillingDay:          req.BillingDay,
		CustomFrequencyDays: req.CustomFrequencyDays,
		Status:              types.SubscriptionStatusActive,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
	}
	if next, ok := NextBillingDate(sub, sub.StartDate); ok {
		sub.NextBillingDate = &next
	}

	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return sub, nil
}

func (s *Service) Get(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).First(&sub, "id = ?", subscriptionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

type UpdateScheduleRequest struct {
	Amount              *decimal.Decimal        `json:"amount,omitempty"`
	BillingFrequency    *types.BillingFrequency `json:"billing_frequency,omitempty"`
	BillingDay          *int                    `json:"billing_day,omitempty"`
	CustomFrequencyDays *int                    `json:"custom_frequency_days,omitempty"`
	Status              *types.SubscriptionStatus `json:"status,omitempty"`
	StartDate           *time.Time              `json:"start_date,omitempty"`
	EndDate             *time.Time              `json:"end_date,omitempty"`
}

// UpdateSchedule applies schedule-parameter changes. Paid and historical
// payments stay untouched; only future unpaid rows are regenerated.
func (s *Service) UpdateSchedule(ctx context.Context, subscriptionID string, req UpdateScheduleRequest) (*models.Subscription, error) {
	sub, err := s.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	frequency := sub.BillingFrequency
	if req.BillingFrequency != nil {
		frequency = *req.BillingFrequency
	}
	billingDay := sub.BillingDay
	if req.BillingDay != nil {
		billingDay = *req.BillingDay
	}
	customDays := sub.CustomFrequencyDays
	if req.CustomFrequencyDays != nil {
		customDays = req.CustomFrequencyDays
	}
	startDate := sub.StartDate
	if req.StartDate != nil {
		startDate = *req.StartDate
	}
	endDate := sub.EndDate
	if req.EndDate != nil {
		endDate = req.EndDate
	}
	if billingDay < 1 || billingDay > 31 {
		return nil, fmt.Errorf("billing_day must be between 1 and 31")
	}
	if frequency == types.BillingFrequencyCustom && (customDays == nil || *customDays <= 0) {
		return nil, fmt.Errorf("custom_frequency_days is required for custom frequency")
	}

	rebuild := scheduleParamsChanged(sub, frequency, billingDay, customDays, startDate, endDate)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub.BillingFrequency = frequency
		sub.BillingDay = billingDay
		sub.CustomFrequencyDays = customDays
		sub.StartDate = startDate
		sub.EndDate = endDate
		if req.Amount != nil {
			sub.Amount = *req.Amount
		}
		if req.Status != nil {
			sub.Status = *req.Status
		}

		if rebuild {
			if err := s.regenerateFuturePayments(ctx, tx, sub); err != nil {
				return err
			}
		}
		if err := s.recomputeNextBillingDate(ctx, tx, sub); err != nil {
			return err
		}
		if err := tx.Save(sub).Error; err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription schedule updated",
		"subscription_id", sub.ID, "rebuilt_future_payments", rebuild)
	return sub, nil
}

// Delete removes the subscription; payments cascade with it.
func (s *Service) Delete(ctx context.Context, subscriptionID string) error {
	sub, err := s.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subscription_id = ?", sub.ID).Delete(&models.SubscriptionPayment{}).Error; err != nil {
			return fmt.Errorf("failed to delete payments: %w", err)
		}
		if err := tx.Delete(sub).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}

// dayKey collapses a timestamp to its calendar day in UTC. Rows read
// back from postgres can carry a different zone than freshly generated
// dates; keying both sides in UTC keeps the dedupe exact.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// GeneratePayments materializes expected payments through the given
// date. Append-only: dates that already have a row are left alone.
func (s *Service) GeneratePayments(ctx context.Context, subscriptionID string, through time.Time) ([]*models.SubscriptionPayment, error) {
	sub, err := s.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	var created []*models.SubscriptionPayment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []*models.SubscriptionPayment
		if err := tx.Where("subscription_id = ?", sub.ID).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load existing payments: %w", err)
		}
		seen := lo.SliceToMap(existing, func(p *models.SubscriptionPayment) (string, struct{}) {
			return dayKey(p.ExpectedDate), struct{}{}
		})

		for _, date := range ExpectedDates(sub, through) {
			if _, ok := seen[dayKey(date)]; ok {
				continue
			}
			payment := &models.SubscriptionPayment{
				ID:             tool.GenerateUUIDV7(),
				SubscriptionID: sub.ID,
				ExpectedDate:   date,
				ExpectedAmount: sub.Amount,
				Status:         types.PaymentStatusPending,
			}
			if err := tx.Create(payment).Error; err != nil {
				return fmt.Errorf("failed to create payment: %w", err)
			}
			created = append(created, payment)
		}

		return s.recomputeNextBillingDate(ctx, tx, sub)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListPayments returns the materialized schedule, oldest first.
func (s *Service) ListPayments(ctx context.Context, subscriptionID string) ([]*models.SubscriptionPayment, error) {
	if _, err := s.Get(ctx, subscriptionID); err != nil {
		return nil, err
	}
	var payments []*models.SubscriptionPayment
	if err := s.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("expected_date asc").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// regenerateFuturePayments drops future unpaid rows and re-materializes
// them against the updated schedule, preserving the previous horizon.
func (s *Service) regenerateFuturePayments(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	now := time.Now()

	var horizon time.Time
	row := tx.WithContext(ctx).Model(&models.SubscriptionPayment{}).
		Where("subscription_id = ?", sub.ID).
		Select("max(expected_date)").Row()
	_ = row.Scan(&horizon)

	if err := tx.WithContext(ctx).
		Where("subscription_id = ? AND expected_date > ? AND status = ? AND receipt_id IS NULL",
			sub.ID, now, types.PaymentStatusPending).
		Delete(&models.SubscriptionPayment{}).Error; err != nil {
		return fmt.Errorf("failed to delete future unpaid payments: %w", err)
	}

	if horizon.IsZero() || !horizon.After(now) {
		return nil
	}

	var existing []*models.SubscriptionPayment
	if err := tx.WithContext(ctx).Where("subscription_id = ?", sub.ID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load remaining payments: %w", err)
	}
	seen := lo.SliceToMap(existing, func(p *models.SubscriptionPayment) (string, struct{}) {
		return dayKey(p.ExpectedDate), struct{}{}
	})

	for _, date := range ExpectedDates(sub, horizon) {
		if !date.After(now) {
			continue
		}
		if _, ok := seen[dayKey(date)]; ok {
			continue
		}
		payment := &models.SubscriptionPayment{
			ID:             tool.GenerateUUIDV7(),
			SubscriptionID: sub.ID,
			ExpectedDate:   date,
			ExpectedAmount: sub.Amount,
			Status:         types.PaymentStatusPending,
		}
		if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
			return fmt.Errorf("failed to recreate payment: %w", err)
		}
	}
	return nil
}

// recomputeNextBillingDate advances past the latest paid payment and
// stores the next unconsumed expected date, nil once past EndDate.
func (s *Service) recomputeNextBillingDate(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	var lastPaid models.SubscriptionPayment
	err := tx.WithContext(ctx).
		Where("subscription_id = ? AND status = ?", sub.ID, types.PaymentStatusPaid).
		Order("expected_date desc").
		First(&lastPaid).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load last paid payment: %w", err)
	}

	from := sub.StartDate
	if err == nil {
		from = lastPaid.ExpectedDate.AddDate(0, 0, 1)
		sub.LastPaymentDate = lastPaid.ActualDate
	} else {
		sub.LastPaymentDate = nil
	}

	if next, ok := NextBillingDate(sub, from); ok {
		sub.NextBillingDate = &next
	} else {
		sub.NextBillingDate = nil
	}

	return tx.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"next_billing_date": sub.NextBillingDate,
			"last_payment_date": sub.LastPaymentDate,
		}).Error
}

// RecomputeAfterPaymentChange is invoked by the payment matcher once a
// link/unlink settled, inside the same transaction.
func (s *Service) RecomputeAfterPaymentChange(ctx context.Context, tx *gorm.DB, subscriptionID string) error {
	var sub models.Subscription
	if err := tx.WithContext(ctx).First(&sub, "id = ?", subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		return fmt.Errorf("failed to load subscription: %w", err)
	}
	return s.recomputeNextBillingDate(ctx, tx, &sub)
}

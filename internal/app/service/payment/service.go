package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	subsvc "github.com/snapspend/backend/internal/app/service/subscription"
	"github.com/snapspend/backend/internal/models"
	"github.com/snapspend/backend/pkg/logctx"
	"github.com/snapspend/backend/pkg/types"
)

var (
	// ErrPaymentNotFound means the referenced expected payment does
	// not exist.
	ErrPaymentNotFound = errors.New("subscription payment not found")
	// ErrPaymentAlreadyLinked rejects linking a second receipt to a
	// payment that already carries evidence.
	ErrPaymentAlreadyLinked = errors.New("payment already linked to a receipt")
	// ErrReceiptNotLinkable rejects linking a receipt that is missing,
	// deleted or not yet completed.
	ErrReceiptNotLinkable = errors.New("receipt cannot be linked")
	// ErrReceiptAlreadyLinked rejects a receipt that already evidences
	// another payment.
	ErrReceiptAlreadyLinked = errors.New("receipt already linked to another payment")
)

// Service links receipts to expected subscription payments and derives
// missing-payment counts. Matching is always explicit: a human picks
// the payment and the receipt.
type Service struct {
	db   *gorm.DB
	log  *zap.SugaredLogger
	subs *subsvc.Service
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, subs *subsvc.Service) *Service {
	return &Service{db: db, log: log, subs: subs}
}

// Link attaches a receipt as evidence for an expected payment, marking
// it paid and copying the receipt's transaction date and total.
func (s *Service) Link(ctx context.Context, paymentID, receiptID string) (*models.SubscriptionPayment, error) {
	var payment *models.SubscriptionPayment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.loadPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment.ReceiptID != nil && *payment.ReceiptID != receiptID {
			return ErrPaymentAlreadyLinked
		}

		var rec models.Receipt
		if err := tx.WithContext(ctx).First(&rec, "id = ?", receiptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReceiptNotLinkable
			}
			return fmt.Errorf("failed to load receipt: %w", err)
		}
		if rec.ProcessingStatus != types.ProcessingStatusCompleted {
			return ErrReceiptNotLinkable
		}

		// The unique index on receipt_id backstops this, but the check
		// here turns the violation into a client error.
		var other models.SubscriptionPayment
		err = tx.WithContext(ctx).
			Where("receipt_id = ? AND id <> ?", receiptID, payment.ID).
			First(&other).Error
		if err == nil {
			return ErrReceiptAlreadyLinked
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing link: %w", err)
		}

		actualDate := rec.TransactionDate
		if actualDate == nil {
			created := rec.CreatedAt
			actualDate = &created
		}
		total := rec.TotalAmount

		payment.ReceiptID = &rec.ID
		payment.Status = types.PaymentStatusPaid
		payment.ActualDate = actualDate
		payment.ActualAmount = &total
		if err := tx.WithContext(ctx).Save(payment).Error; err != nil {
			return fmt.Errorf("failed to save payment link: %w", err)
		}

		return s.subs.RecomputeAfterPaymentChange(ctx, tx, payment.SubscriptionID)
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("payment linked",
		"payment_id", paymentID, "receipt_id", receiptID)
	return payment, nil
}

// Unlink clears the evidence link and reverts the payment's status:
// pending when the expected date is still ahead, missed once it passed.
func (s *Service) Unlink(ctx context.Context, paymentID string) (*models.SubscriptionPayment, error) {
	var payment *models.SubscriptionPayment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.loadPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}

		payment.ReceiptID = nil
		payment.Status = RevertedStatus(payment.ExpectedDate, time.Now())
		payment.ActualDate = nil
		payment.ActualAmount = nil
		if err := tx.WithContext(ctx).Save(payment).Error; err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		return s.subs.RecomputeAfterPaymentChange(ctx, tx, payment.SubscriptionID)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// UnlinkByReceipt releases whatever payment references the receipt, if
// any. Called from receipt deletion inside the caller's transaction.
func (s *Service) UnlinkByReceipt(ctx context.Context, tx *gorm.DB, receiptID string) error {
	var payment models.SubscriptionPayment
	err := tx.WithContext(ctx).First(&payment, "receipt_id = ?", receiptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find linked payment: %w", err)
	}

	payment.ReceiptID = nil
	payment.Status = RevertedStatus(payment.ExpectedDate, time.Now())
	payment.ActualDate = nil
	payment.ActualAmount = nil
	if err := tx.WithContext(ctx).Save(&payment).Error; err != nil {
		return fmt.Errorf("failed to unlink payment: %w", err)
	}
	return s.subs.RecomputeAfterPaymentChange(ctx, tx, payment.SubscriptionID)
}

// MissingPayments counts expected payments that elapsed without linked
// evidence. Recomputed on read, never stored, so it cannot drift.
func (s *Service) MissingPayments(ctx context.Context, subscriptionID string) (int64, error) {
	if _, err := s.subs.Get(ctx, subscriptionID); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.SubscriptionPayment{}).
		Where("subscription_id = ? AND expected_date < ? AND status IN ?",
			subscriptionID, time.Now(), []types.PaymentStatus{types.PaymentStatusPending, types.PaymentStatusMissed}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count missing payments: %w", err)
	}
	return count, nil
}

func (s *Service) loadPayment(ctx context.Context, tx *gorm.DB, paymentID string) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	err := tx.WithContext(ctx).First(&payment, "id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &payment, nil
}

// RevertedStatus is the status an unlinked payment falls back to.
func RevertedStatus(expectedDate, now time.Time) types.PaymentStatus {
	if expectedDate.After(now) {
		return types.PaymentStatusPending
	}
	return types.PaymentStatusMissed
}

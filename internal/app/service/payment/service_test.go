package payment

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapspend/backend/pkg/types"
)

func TestRevertedStatus(t *testing.T) {
	now := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expected time.Time
		want     types.PaymentStatus
	}{
		{"future expected date reverts to pending", now.AddDate(0, 0, 5), types.PaymentStatusPending},
		{"past expected date reverts to missed", now.AddDate(0, 0, -5), types.PaymentStatusMissed},
		{"exactly now counts as elapsed", now, types.PaymentStatusMissed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RevertedStatus(tt.expected, now))
		})
	}
}

func TestErrPaymentAlreadyLinked_IsWrapFriendly(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrPaymentAlreadyLinked)
	require.True(t, errors.Is(err, ErrPaymentAlreadyLinked))
}

func TestErrReceiptNotLinkable_IsWrapFriendly(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrReceiptNotLinkable)
	require.True(t, errors.Is(err, ErrReceiptNotLinkable))
}

func TestErrReceiptAlreadyLinked_IsWrapFriendly(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrReceiptAlreadyLinked)
	require.True(t, errors.Is(err, ErrReceiptAlreadyLinked))
}

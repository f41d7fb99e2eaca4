package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/snapspend/backend/pkg/types"
)

func TestSubscriptionPayment_Missing(t *testing.T) {
	now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -10)
	future := now.AddDate(0, 0, 10)

	tests := []struct {
		name    string
		payment *SubscriptionPayment
		want    bool
	}{
		{"elapsed pending counts", &SubscriptionPayment{ExpectedDate: past, Status: types.PaymentStatusPending}, true},
		{"elapsed missed counts", &SubscriptionPayment{ExpectedDate: past, Status: types.PaymentStatusMissed}, true},
		{"elapsed paid does not", &SubscriptionPayment{ExpectedDate: past, Status: types.PaymentStatusPaid}, false},
		{"elapsed cancelled does not", &SubscriptionPayment{ExpectedDate: past, Status: types.PaymentStatusCancelled}, false},
		{"future pending does not", &SubscriptionPayment{ExpectedDate: future, Status: types.PaymentStatusPending}, false},
		{"nil payment does not", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.payment.Missing(now))
		})
	}
}

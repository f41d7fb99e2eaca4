package subscription

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapspend/backend/pkg/types"
)

func validCreateRequest() CreateSubscriptionRequest {
	return CreateSubscriptionRequest{
		UserID:           "user-1",
		Name:             "Streaming",
		Amount:           decimal.RequireFromString("9.99"),
		BillingFrequency: types.BillingFrequencyMonthly,
		BillingDay:       15,
		StartDate:        time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDayKey_ZoneIndependent(t *testing.T) {
	bangkok, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)

	// the same instant keys identically regardless of the zone it is
	// expressed in
	utc := time.Date(2024, time.March, 5, 17, 0, 0, 0, time.UTC)
	local := utc.In(bangkok)
	assert.Equal(t, dayKey(utc), dayKey(local))

	// distinct days stay distinct
	assert.NotEqual(t, dayKey(utc), dayKey(utc.AddDate(0, 0, 1)))
}

func TestCreateSubscriptionRequest_Validate(t *testing.T) {
	seven := 7
	zero := 0

	t.Run("valid monthly", func(t *testing.T) {
		req := validCreateRequest()
		require.NoError(t, req.validate())
	})

	t.Run("valid custom with step", func(t *testing.T) {
		req := validCreateRequest()
		req.BillingFrequency = types.BillingFrequencyCustom
		req.CustomFrequencyDays = &seven
		require.NoError(t, req.validate())
	})

	tests := []struct {
		name   string
		mutate func(*CreateSubscriptionRequest)
	}{
		{"missing user", func(r *CreateSubscriptionRequest) { r.UserID = "" }},
		{"missing name", func(r *CreateSubscriptionRequest) { r.Name = "" }},
		{"billing day too low", func(r *CreateSubscriptionRequest) { r.BillingDay = 0 }},
		{"billing day too high", func(r *CreateSubscriptionRequest) { r.BillingDay = 32 }},
		{"unknown frequency", func(r *CreateSubscriptionRequest) { r.BillingFrequency = "weekly" }},
		{"custom without step", func(r *CreateSubscriptionRequest) { r.BillingFrequency = types.BillingFrequencyCustom }},
		{"custom with zero step", func(r *CreateSubscriptionRequest) {
			r.BillingFrequency = types.BillingFrequencyCustom
			r.CustomFrequencyDays = &zero
		}},
		{"zero start date", func(r *CreateSubscriptionRequest) { r.StartDate = time.Time{} }},
		{"end before start", func(r *CreateSubscriptionRequest) {
			end := r.StartDate.AddDate(0, 0, -1)
			r.EndDate = &end
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)
			assert.Error(t, req.validate())
		})
	}
}

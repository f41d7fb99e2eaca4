package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleDate_UnmarshalFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"iso date", `"2024-05-03"`, "2024-05-03"},
		{"rfc3339", `"2024-05-03T14:30:00Z"`, "2024-05-03"},
		{"datetime without zone", `"2024-05-03T14:30:00"`, "2024-05-03"},
		{"slash date", `"03/05/2024"`, "2024-05-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fd FlexibleDate
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &fd))
			assert.Equal(t, tt.want, fd.Time.Format("2006-01-02"))
		})
	}
}

func TestFlexibleDate_DegradesToZero(t *testing.T) {
	for _, raw := range []string{`"yesterday afternoon"`, `null`, `""`} {
		var fd FlexibleDate
		require.NoError(t, json.Unmarshal([]byte(raw), &fd), raw)
		assert.True(t, fd.Time.IsZero(), raw)
	}
}

func TestFlexibleDate_Marshal(t *testing.T) {
	fd := FlexibleDate{Time: time.Date(2024, time.May, 3, 14, 30, 0, 0, time.UTC)}
	out, err := json.Marshal(fd)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-03"`, string(out))

	out, err = json.Marshal(FlexibleDate{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestBillingFrequency_PeriodMonths(t *testing.T) {
	assert.Equal(t, 1, BillingFrequencyMonthly.PeriodMonths())
	assert.Equal(t, 3, BillingFrequencyQuarterly.PeriodMonths())
	assert.Equal(t, 12, BillingFrequencyYearly.PeriodMonths())
	assert.Equal(t, 0, BillingFrequencyCustom.PeriodMonths())
}

func TestProcessingStatus_Terminal(t *testing.T) {
	assert.False(t, ProcessingStatusPending.Terminal())
	assert.False(t, ProcessingStatusProcessing.Terminal())
	assert.True(t, ProcessingStatusCompleted.Terminal())
	assert.True(t, ProcessingStatusFailed.Terminal())
}

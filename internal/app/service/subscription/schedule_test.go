package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapspend/backend/internal/models"
	"github.com/snapspend/backend/pkg/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthlySub(billingDay int, start time.Time) *models.Subscription {
	return &models.Subscription{
		BillingFrequency: types.BillingFrequencyMonthly,
		BillingDay:       billingDay,
		StartDate:        start,
	}
}

func TestAnchoredDate_ClampsShortMonths(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		day   int
		want  time.Time
	}{
		{"january keeps day 31", 2024, time.January, 31, date(2024, time.January, 31)},
		{"february leap year clamps to 29", 2024, time.February, 31, date(2024, time.February, 29)},
		{"february non-leap clamps to 28", 2023, time.February, 31, date(2023, time.February, 28)},
		{"april clamps 31 to 30", 2024, time.April, 31, date(2024, time.April, 30)},
		{"mid-month day untouched", 2024, time.June, 15, date(2024, time.June, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := anchoredDate(tt.year, tt.month, tt.day, time.UTC)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestExpectedDates_MonthlyClampDoesNotStick(t *testing.T) {
	// A day-31 anchor must clamp in February yet return to the 31st in
	// March instead of inheriting February's shortened day.
	sub := monthlySub(31, date(2024, time.January, 1))

	got := ExpectedDates(sub, date(2024, time.April, 30))

	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, got[i].Equal(want[i]), "dates[%d]: got %s want %s", i, got[i], want[i])
	}
}

func TestExpectedDates_MonthlyFirstOfMonth(t *testing.T) {
	sub := monthlySub(1, date(2024, time.January, 1))

	got := ExpectedDates(sub, date(2024, time.April, 1))

	require.Len(t, got, 4)
	assert.True(t, got[0].Equal(date(2024, time.January, 1)))
	assert.True(t, got[3].Equal(date(2024, time.April, 1)))
}

func TestExpectedDates_QuarterlyAndYearly(t *testing.T) {
	quarterly := &models.Subscription{
		BillingFrequency: types.BillingFrequencyQuarterly,
		BillingDay:       15,
		StartDate:        date(2024, time.January, 10),
	}
	got := ExpectedDates(quarterly, date(2024, time.December, 31))
	require.Len(t, got, 4)
	assert.True(t, got[0].Equal(date(2024, time.January, 15)))
	assert.True(t, got[1].Equal(date(2024, time.April, 15)))
	assert.True(t, got[2].Equal(date(2024, time.July, 15)))
	assert.True(t, got[3].Equal(date(2024, time.October, 15)))

	yearly := &models.Subscription{
		BillingFrequency: types.BillingFrequencyYearly,
		BillingDay:       29,
		StartDate:        date(2024, time.February, 1),
	}
	got = ExpectedDates(yearly, date(2026, time.December, 31))
	require.Len(t, got, 3)
	assert.True(t, got[0].Equal(date(2024, time.February, 29)))
	// 2025 is not a leap year so the anchor clamps to the 28th.
	assert.True(t, got[1].Equal(date(2025, time.February, 28)))
	assert.True(t, got[2].Equal(date(2026, time.February, 28)))
}

func TestExpectedDates_CustomFixedStep(t *testing.T) {
	step := 10
	sub := &models.Subscription{
		BillingFrequency:    types.BillingFrequencyCustom,
		BillingDay:          1,
		CustomFrequencyDays: &step,
		StartDate:           date(2024, time.March, 5),
	}

	got := ExpectedDates(sub, date(2024, time.April, 5))

	require.Len(t, got, 4)
	assert.True(t, got[0].Equal(date(2024, time.March, 5)))
	assert.True(t, got[1].Equal(date(2024, time.March, 15)))
	assert.True(t, got[2].Equal(date(2024, time.March, 25)))
	assert.True(t, got[3].Equal(date(2024, time.April, 4)))
}

func TestExpectedDates_HonorsEndDate(t *testing.T) {
	end := date(2024, time.February, 15)
	sub := monthlySub(1, date(2024, time.January, 1))
	sub.EndDate = &end

	got := ExpectedDates(sub, date(2024, time.December, 31))

	require.Len(t, got, 2)
	assert.True(t, got[1].Equal(date(2024, time.February, 1)))
}

func TestNextBillingDate(t *testing.T) {
	sub := monthlySub(31, date(2024, time.January, 1))

	next, ok := NextBillingDate(sub, date(2024, time.February, 1))
	require.True(t, ok)
	assert.True(t, next.Equal(date(2024, time.February, 29)))

	// from before start snaps to the first anchor
	next, ok = NextBillingDate(sub, date(2020, time.May, 1))
	require.True(t, ok)
	assert.True(t, next.Equal(date(2024, time.January, 31)))

	// exactly on an anchor returns that anchor
	next, ok = NextBillingDate(sub, date(2024, time.March, 31))
	require.True(t, ok)
	assert.True(t, next.Equal(date(2024, time.March, 31)))

	// past the end date the schedule runs out
	end := date(2024, time.March, 1)
	sub.EndDate = &end
	_, ok = NextBillingDate(sub, date(2024, time.March, 2))
	require.False(t, ok)
}

func TestScheduleParamsChanged(t *testing.T) {
	ten := 10
	twenty := 20
	start := date(2024, time.January, 1)
	base := &models.Subscription{
		BillingFrequency:    types.BillingFrequencyMonthly,
		BillingDay:          5,
		CustomFrequencyDays: nil,
		StartDate:           start,
	}

	assert.False(t, scheduleParamsChanged(base, types.BillingFrequencyMonthly, 5, nil, start, nil))
	assert.True(t, scheduleParamsChanged(base, types.BillingFrequencyYearly, 5, nil, start, nil))
	assert.True(t, scheduleParamsChanged(base, types.BillingFrequencyMonthly, 6, nil, start, nil))
	assert.True(t, scheduleParamsChanged(base, types.BillingFrequencyMonthly, 5, &ten, start, nil))
	assert.True(t, scheduleParamsChanged(base, types.BillingFrequencyMonthly, 5, nil, start.AddDate(0, 0, 1), nil))

	end := date(2025, time.January, 1)
	assert.True(t, scheduleParamsChanged(base, types.BillingFrequencyMonthly, 5, nil, start, &end))

	custom := &models.Subscription{
		BillingFrequency:    types.BillingFrequencyCustom,
		BillingDay:          1,
		CustomFrequencyDays: &ten,
		StartDate:           start,
	}
	assert.False(t, scheduleParamsChanged(custom, types.BillingFrequencyCustom, 1, &ten, start, nil))
	assert.True(t, scheduleParamsChanged(custom, types.BillingFrequencyCustom, 1, &twenty, start, nil))
}

package subscription

import (
	"time"

	"github.com/snapspend/backend/internal/models"
	"github.com/snapspend/backend/pkg/types"
)

// anchoredDate builds the expected date for a given year/month, clamping
// the billing day to the last valid day of short months (billingDay=31
// in February lands on Feb 28/29).
func anchoredDate(year int, month time.Month, billingDay int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	day := billingDay
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// NextBillingDate returns the first expected billing date on or after
// from, bounded by the subscription's start and end dates. The second
// return is false when the schedule has run out (past EndDate).
func NextBillingDate(sub *models.Subscription, from time.Time) (time.Time, bool) {
	if from.Before(sub.StartDate) {
		from = sub.StartDate
	}

	var next time.Time
	if sub.Custom() {
		next = nextCustomDate(sub, from)
	} else {
		next = nextAnchoredDate(sub, from)
	}

	if sub.EndDate != nil && next.After(*sub.EndDate) {
		return time.Time{}, false
	}
	return next, true
}

// nextCustomDate advances from the start date in fixed calendar-day
// steps, not calendar-aware periods.
func nextCustomDate(sub *models.Subscription, from time.Time) time.Time {
	step := 30
	if sub.CustomFrequencyDays != nil && *sub.CustomFrequencyDays > 0 {
		step = *sub.CustomFrequencyDays
	}
	date := sub.StartDate
	for date.Before(from) {
		date = date.AddDate(0, 0, step)
	}
	return date
}

// nextAnchoredDate walks anchor months from the start date. The walk
// carries (year, month) rather than the clamped date so a Feb 28 anchor
// still lands on the 31st in March.
func nextAnchoredDate(sub *models.Subscription, from time.Time) time.Time {
	period := sub.BillingFrequency.PeriodMonths()
	if period == 0 {
		period = 1
	}

	year, month := sub.StartDate.Year(), sub.StartDate.Month()
	date := anchoredDate(year, month, sub.BillingDay, sub.StartDate.Location())
	for date.Before(from) {
		month += time.Month(period)
		for month > 12 {
			month -= 12
			year++
		}
		date = anchoredDate(year, month, sub.BillingDay, sub.StartDate.Location())
	}
	return date
}

// ExpectedDates materializes every expected billing date from the start
// date through the given bound (inclusive), honoring EndDate.
func ExpectedDates(sub *models.Subscription, through time.Time) []time.Time {
	if sub.EndDate != nil && sub.EndDate.Before(through) {
		through = *sub.EndDate
	}

	var dates []time.Time
	cursor := sub.StartDate
	for {
		next, ok := NextBillingDate(sub, cursor)
		if !ok || next.After(through) {
			return dates
		}
		dates = append(dates, next)
		cursor = next.AddDate(0, 0, 1)
	}
}

// scheduleParamsChanged reports whether an update touches any field the
// payment schedule is derived from.
func scheduleParamsChanged(old *models.Subscription, frequency types.BillingFrequency, billingDay int, customDays *int, startDate time.Time, endDate *time.Time) bool {
	if old.BillingFrequency != frequency || old.BillingDay != billingDay {
		return true
	}
	if (old.CustomFrequencyDays == nil) != (customDays == nil) {
		return true
	}
	if old.CustomFrequencyDays != nil && customDays != nil && *old.CustomFrequencyDays != *customDays {
		return true
	}
	if !old.StartDate.Equal(startDate) {
		return true
	}
	if (old.EndDate == nil) != (endDate == nil) {
		return true
	}
	if old.EndDate != nil && endDate != nil && !old.EndDate.Equal(*endDate) {
		return true
	}
	return false
}

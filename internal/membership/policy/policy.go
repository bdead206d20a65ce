// Package policy computes membership expiry dates. Policies are pure values:
// constructing one validates its configuration, and ComputeExpiry is a
// deterministic function of the reference instant with no side effects.
package policy

import (
	"time"

	dErrors "memberd/pkg/domain-errors"
)

// Policy is an expiry rule evaluated against a reference instant.
type Policy interface {
	// ComputeExpiry returns the expiry date (midnight UTC) for a membership
	// evaluated at now. Undefined when Expires reports false.
	ComputeExpiry(now time.Time) time.Time
	// Expires reports whether the policy produces an expiry at all.
	Expires() bool
}

// RecurringCutoff expires a membership at whichever comes first: the configured
// duration after now, or the next annual cutoff date.
type RecurringCutoff struct {
	durationMonths int
	cutoffDay      int
	cutoffMonth    time.Month
}

// NewRecurringCutoff validates the configuration. A cutoff day/month pair must
// exist in every calendar year, so February caps at 28; invalid pairs are
// rejected here and never reach expiry computation.
func NewRecurringCutoff(durationMonths, cutoffDay int, cutoffMonth time.Month) (RecurringCutoff, error) {
	if durationMonths < 1 {
		return RecurringCutoff{}, dErrors.New(dErrors.CodeInvalidPolicy, "duration must be at least one month")
	}
	if cutoffMonth < time.January || cutoffMonth > time.December {
		return RecurringCutoff{}, dErrors.Newf(dErrors.CodeInvalidPolicy, "month %d is not a calendar month", cutoffMonth)
	}
	if cutoffDay < 1 || cutoffDay > shortestMonthLength(cutoffMonth) {
		return RecurringCutoff{}, dErrors.Newf(dErrors.CodeInvalidPolicy,
			"day %d does not exist in every %s", cutoffDay, cutoffMonth)
	}
	return RecurringCutoff{
		durationMonths: durationMonths,
		cutoffDay:      cutoffDay,
		cutoffMonth:    cutoffMonth,
	}, nil
}

// DurationMonths returns the configured minimum duration.
func (p RecurringCutoff) DurationMonths() int { return p.durationMonths }

// CutoffDay returns the configured annual cutoff day of month.
func (p RecurringCutoff) CutoffDay() int { return p.cutoffDay }

// CutoffMonth returns the configured annual cutoff month.
func (p RecurringCutoff) CutoffMonth() time.Month { return p.cutoffMonth }

func (p RecurringCutoff) Expires() bool { return true }

// ComputeExpiry returns min(now + duration, next cutoff occurrence).
func (p RecurringCutoff) ComputeExpiry(now time.Time) time.Time {
	byDuration := addMonths(now, p.durationMonths)
	byCutoff := p.nextCutoff(now)
	if byCutoff.Before(byDuration) {
		return byCutoff
	}
	return byDuration
}

// nextCutoff finds the nearest strictly-future occurrence of (cutoffDay,
// cutoffMonth). A membership bought on the cutoff date itself runs to next
// year's cutoff.
func (p RecurringCutoff) nextCutoff(now time.Time) time.Time {
	year := now.Year()
	if !beforeInYear(now, p.cutoffMonth, p.cutoffDay) {
		year++
	}
	return time.Date(year, p.cutoffMonth, p.cutoffDay, 0, 0, 0, 0, time.UTC)
}

// FixedDate expires on a stored literal date regardless of now.
type FixedDate struct {
	EndDate time.Time
}

func (p FixedDate) Expires() bool { return true }

func (p FixedDate) ComputeExpiry(time.Time) time.Time {
	return truncateToDate(p.EndDate)
}

// Perpetual never expires. Used for types flagged does-not-expire.
type Perpetual struct{}

func (Perpetual) Expires() bool { return false }

func (Perpetual) ComputeExpiry(time.Time) time.Time { return time.Time{} }

// addMonths adds whole calendar months to now's date, rolling the year as
// needed and clamping the day to the target month's length (Jan 31 + 1 month
// is the last day of February, not March 2nd).
func addMonths(now time.Time, months int) time.Time {
	year := now.Year() + (int(now.Month())-1+months)/12
	month := time.Month((int(now.Month())-1+months)%12 + 1)
	day := now.Day()
	if max := daysIn(month, year); day > max {
		day = max
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// beforeInYear reports whether now's (month, day) falls strictly before the
// given (month, day) within the same year.
func beforeInYear(now time.Time, month time.Month, day int) bool {
	if now.Month() != month {
		return now.Month() < month
	}
	return now.Day() < day
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// shortestMonthLength is the month's length in its shortest year; a day past
// this bound would make some years' cutoffs unrepresentable.
func shortestMonthLength(month time.Month) int {
	if month == time.February {
		return 28
	}
	return daysIn(month, 2023) // any non-leap year
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

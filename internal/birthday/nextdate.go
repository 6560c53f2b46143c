package birthday

import (
	"fmt"
	"time"
)

const (
	plainYear = 365 * 24 * time.Hour
	leapYear  = 366 * 24 * time.Hour
)

// NextOccurrence computes the first future instant of an annual month/day in
// the given location. The date is interpreted in the current local year; a
// date whose local day has fully elapsed is pushed forward by whole years in
// one step. An occurrence earlier today is returned as-is so that it still
// fires on the next tick instead of rolling to next year.
func NextOccurrence(month, day int, tod *TimeOfDay, loc *time.Location, now time.Time) (time.Time, error) {
	if err := ValidateDate(month, day); err != nil {
		return time.Time{}, err
	}
	hour, minute := 0, 0
	if tod != nil {
		if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 {
			return time.Time{}, fmt.Errorf("%02d:%02d: %w", tod.Hour, tod.Minute, ErrInvalidTimeOfDay)
		}
		hour, minute = tod.Hour, tod.Minute
	}

	year := now.In(loc).Year()
	if month == 2 && day == 29 && !isLeapYear(year) {
		// No Feb 29 this year: start from the most recent leap-year
		// occurrence and approximate forward.
		base := time.Date(lastLeapYear(year), time.February, 29, hour, minute, 0, 0, loc)
		return approximateNext(base.UTC(), now), nil
	}

	candidate := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if candidate.Year() != year || candidate.Month() != time.Month(month) ||
		candidate.Day() != day || candidate.Hour() != hour || candidate.Minute() != minute {
		// time.Date normalized the input, so this wall-clock time does not
		// exist in loc (DST gap).
		return time.Time{}, fmt.Errorf("%04d-%02d-%02d %02d:%02d in %s: %w",
			year, month, day, hour, minute, loc, ErrInvalidLocalTime)
	}
	// A fall-back transition repeats an hour of wall-clock time: the same
	// components then also appear one hour away from the instant time.Date
	// picked. Refuse to guess which of the two was meant.
	for _, shift := range []time.Duration{-time.Hour, time.Hour} {
		alt := candidate.Add(shift).In(loc)
		if alt.Year() == year && alt.Month() == time.Month(month) &&
			alt.Day() == day && alt.Hour() == hour && alt.Minute() == minute {
			return time.Time{}, fmt.Errorf("%04d-%02d-%02d %02d:%02d in %s is ambiguous: %w",
				year, month, day, hour, minute, loc, ErrInvalidLocalTime)
		}
	}

	endOfDay := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	if now.Before(endOfDay) {
		return candidate.UTC(), nil
	}

	years := yearsSince(now, candidate) + 1
	target := year + years
	if month == 2 && day == 29 && !isLeapYear(target) {
		return approximateNext(candidate.UTC(), now), nil
	}
	next := time.Date(target, time.Month(month), day, hour, minute, 0, 0, loc)
	if next.Month() != time.Month(month) || next.Day() != day || !next.After(now) {
		// Offset resolution in the target year produced something else than
		// the calendar date asked for; fail over rather than error, since
		// the user's input itself was fine.
		return approximateNext(candidate.UTC(), now), nil
	}
	return next.UTC(), nil
}

// Advance moves a fired occurrence to its next year. It never fails: when
// the exact calendar date is not representable in the target year it falls
// back to 365/366-day stepping, so rescheduling always converges on a future
// instant no matter how stale the occurrence is.
func Advance(occurrenceAt time.Time, now time.Time) time.Time {
	base := occurrenceAt.UTC()
	if base.After(now) {
		return base
	}
	years := yearsSince(now, base) + 1
	target := base.Year() + years
	if base.Month() == time.February && base.Day() == 29 && !isLeapYear(target) {
		return approximateNext(base, now)
	}
	next := base.AddDate(years, 0, 0)
	if !next.After(now) {
		return approximateNext(next, now)
	}
	return next
}

// ValidateDate reports whether month/day is a real calendar date; Feb 29
// counts as valid.
func ValidateDate(month, day int) error {
	if month < 1 || month > 12 || day < 1 {
		return fmt.Errorf("%02d/%02d: %w", month, day, ErrInvalidDate)
	}
	max := daysInMonth(time.Month(month))
	if day > max {
		return fmt.Errorf("%02d/%02d: %w", month, day, ErrInvalidDate)
	}
	return nil
}

// approximateNext steps from the last representable instant in whole-year
// strides until the result is in the future. The stride covers 366 days when
// the year being stepped into is a leap year, else 365, which lands Feb 29
// anniversaries on Feb 28 of common years.
func approximateNext(from time.Time, now time.Time) time.Time {
	next := from
	for !next.After(now) {
		if isLeapYear(next.Year() + 1) {
			next = next.Add(leapYear)
		} else {
			next = next.Add(plainYear)
		}
	}
	return next
}

// yearsSince counts whole years elapsed from base to now, never negative.
func yearsSince(now, base time.Time) int {
	n := now.Year() - base.Year()
	if n <= 0 {
		return 0
	}
	anniversary := base.AddDate(n, 0, 0)
	if anniversary.After(now) {
		n--
	}
	if n < 0 {
		n = 0
	}
	return n
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func lastLeapYear(year int) int {
	for y := year; ; y-- {
		if isLeapYear(y) {
			return y
		}
	}
}

func daysInMonth(m time.Month) int {
	switch m {
	case time.February:
		return 29
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

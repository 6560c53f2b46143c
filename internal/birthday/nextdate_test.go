package birthday

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextOccurrence(t *testing.T) {
	t.Run("upcoming date stays in current year", func(t *testing.T) {
		now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
		next, err := NextOccurrence(7, 1, nil, time.UTC, now)
		require.NoError(t, err)
		require.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), next)
		require.True(t, next.After(now))
	})

	t.Run("passed date moves to next year", func(t *testing.T) {
		now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
		next, err := NextOccurrence(3, 15, nil, time.UTC, now)
		require.NoError(t, err)
		require.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("earlier today still counts as today", func(t *testing.T) {
		now := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)
		next, err := NextOccurrence(3, 15, nil, time.UTC, now)
		require.NoError(t, err)
		require.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("rolls over only after local end of day", func(t *testing.T) {
		now := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
		next, err := NextOccurrence(3, 15, nil, time.UTC, now)
		require.NoError(t, err)
		require.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("time of day in timezone", func(t *testing.T) {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		require.NoError(t, err)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		next, err := NextOccurrence(7, 1, &TimeOfDay{Hour: 9}, tokyo, now)
		require.NoError(t, err)
		require.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("feb 29 in a leap year", func(t *testing.T) {
		now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
		next, err := NextOccurrence(2, 29, nil, time.UTC, now)
		require.NoError(t, err)
		require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("feb 29 when current year is not leap", func(t *testing.T) {
		now := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
		next, err := NextOccurrence(2, 29, nil, time.UTC, now)
		require.NoError(t, err)
		require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), next)
		require.True(t, next.After(now))
	})

	t.Run("feb 29 passed with non-leap target approximates", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		next, err := NextOccurrence(2, 29, nil, time.UTC, now)
		require.NoError(t, err)
		require.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), next)
		require.True(t, next.After(now))
	})

	t.Run("nonexistent local time is rejected", func(t *testing.T) {
		newYork, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		// 02:30 on 2024-03-10 falls inside the spring-forward gap.
		_, err = NextOccurrence(3, 10, &TimeOfDay{Hour: 2, Minute: 30}, newYork, now)
		require.ErrorIs(t, err, ErrInvalidLocalTime)
	})

	t.Run("ambiguous local time is rejected", func(t *testing.T) {
		newYork, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		// 01:30 on 2024-11-03 occurs twice across the fall-back transition.
		_, err = NextOccurrence(11, 3, &TimeOfDay{Hour: 1, Minute: 30}, newYork, now)
		require.ErrorIs(t, err, ErrInvalidLocalTime)

		// The same wall time is fine once the repeated hour is over.
		next, err := NextOccurrence(11, 3, &TimeOfDay{Hour: 3, Minute: 30}, newYork, now)
		require.NoError(t, err)
		require.Equal(t, time.Date(2024, 11, 3, 8, 30, 0, 0, time.UTC), next)
	})

	t.Run("invalid dates", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for _, tc := range []struct{ month, day int }{
			{0, 1}, {13, 1}, {1, 0}, {1, 32}, {4, 31}, {2, 30},
		} {
			_, err := NextOccurrence(tc.month, tc.day, nil, time.UTC, now)
			require.ErrorIs(t, err, ErrInvalidDate, "month=%d day=%d", tc.month, tc.day)
		}
	})

	t.Run("invalid time of day", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := NextOccurrence(1, 5, &TimeOfDay{Hour: 24}, time.UTC, now)
		require.ErrorIs(t, err, ErrInvalidTimeOfDay)
		_, err = NextOccurrence(1, 5, &TimeOfDay{Hour: 0, Minute: 60}, time.UTC, now)
		require.ErrorIs(t, err, ErrInvalidTimeOfDay)
	})

	t.Run("always future for passed dates across a year", func(t *testing.T) {
		now := time.Date(2024, 8, 9, 10, 11, 12, 0, time.UTC)
		for month := 1; month <= 12; month++ {
			for _, day := range []int{1, 15, 28} {
				next, err := NextOccurrence(month, day, nil, time.UTC, now)
				require.NoError(t, err)
				endOfDay := time.Date(2024, time.Month(month), day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
				if now.Before(endOfDay) {
					continue
				}
				require.True(t, next.After(now), "month=%d day=%d next=%s", month, day, next)
			}
		}
	})
}

func TestAdvance(t *testing.T) {
	t.Run("one year forward", func(t *testing.T) {
		now := time.Date(2025, 3, 15, 0, 0, 1, 0, time.UTC)
		fired := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
		require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), Advance(fired, now))
	})

	t.Run("stale occurrence catches up in one step", func(t *testing.T) {
		now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
		fired := time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC)
		next := Advance(fired, now)
		require.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("future occurrence is untouched", func(t *testing.T) {
		now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
		future := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
		require.Equal(t, future, Advance(future, now))
	})

	t.Run("feb 29 approximates into common years", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		fired := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
		next := Advance(fired, now)
		require.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), next)
		require.True(t, next.After(now))
	})
}

func TestYearsSince(t *testing.T) {
	base := time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 5, yearsSince(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), base))
	require.Equal(t, 4, yearsSince(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), base))
	require.Equal(t, 0, yearsSince(time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC), base))
	require.Equal(t, 0, yearsSince(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), base))
}

func TestValidateDate(t *testing.T) {
	require.NoError(t, ValidateDate(2, 29))
	require.NoError(t, ValidateDate(12, 31))
	require.Error(t, ValidateDate(6, 31))
	require.True(t, errors.Is(ValidateDate(0, 10), ErrInvalidDate))
}

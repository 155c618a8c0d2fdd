package domain

import (
	"sort"
	"time"
)

// CalculateStreaks returns the current and longest run of consecutive UTC
// days with at least one completion. The current streak is alive only if the
// most recent completion is today or yesterday relative to now.
func CalculateStreaks(completions []time.Time, now time.Time) (int, int) {
	if len(completions) == 0 {
		return 0, 0
	}

	uniqueDays := make(map[string]bool)
	var sortedDates []time.Time

	for _, c := range completions {
		dateKey := c.UTC().Format(time.DateOnly)
		if !uniqueDays[dateKey] {
			uniqueDays[dateKey] = true
			t, _ := time.Parse(time.DateOnly, dateKey)
			sortedDates = append(sortedDates, t)
		}
	}

	sort.Slice(sortedDates, func(i, j int) bool {
		return sortedDates[i].After(sortedDates[j])
	})

	today, _ := time.Parse(time.DateOnly, now.UTC().Format(time.DateOnly))

	currentStreak := 0
	if diff := today.Sub(sortedDates[0]); diff >= 0 && diff <= 24*time.Hour {
		currentStreak = 1
		for i := 0; i < len(sortedDates)-1; i++ {
			if sortedDates[i].Sub(sortedDates[i+1]) == 24*time.Hour {
				currentStreak++
			} else {
				break
			}
		}
	}

	longestStreak := 0
	tempStreak := 1

	for i := 0; i < len(sortedDates)-1; i++ {
		if sortedDates[i].Sub(sortedDates[i+1]) == 24*time.Hour {
			tempStreak++
		} else {
			if tempStreak > longestStreak {
				longestStreak = tempStreak
			}
			tempStreak = 1
		}
	}
	if tempStreak > longestStreak {
		longestStreak = tempStreak
	}

	return currentStreak, longestStreak
}

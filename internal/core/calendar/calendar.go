// Package calendar derives day-level completion facts from completion
// timestamps.
//
// Every function judges days in the time zone of the reference instant it
// receives: a completion recorded at 23:30 UTC counts for the next day when
// the reference is in UTC+2. Callers choose the zone by choosing the
// location of ref (time.Now() uses the local zone). All functions are pure.
package calendar

import (
	"math"
	"time"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

const (
	WeekDays    = 7
	HeatmapDays = 35
)

// DayKey identifies a calendar day independent of the instant within it.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

func KeyOf(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// Time returns noon of the day in loc. Noon keeps day arithmetic clear of
// DST transitions.
func (k DayKey) Time(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, 12, 0, 0, 0, loc)
}

func (k DayKey) String() string {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
}

// ParseTimestamp accepts RFC 3339 instants and bare dates. A bare date is
// placed at noon of that day in loc so it keeps its calendar date.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return KeyOf(t).Time(loc), true
	}
	return time.Time{}, false
}

// completionDays maps every parsable timestamp to its day in loc.
func completionDays(timestamps []string, loc *time.Location) map[DayKey]struct{} {
	days := make(map[DayKey]struct{}, len(timestamps))
	for _, s := range timestamps {
		t, ok := ParseTimestamp(s, loc)
		if !ok {
			continue
		}
		days[KeyOf(t)] = struct{}{}
	}
	return days
}

// IsCompletedOn reports whether any timestamp falls on ref's calendar day in
// ref's location. Unparsable timestamps are ignored.
func IsCompletedOn(timestamps []string, ref time.Time) bool {
	loc := ref.Location()
	want := KeyOf(ref)
	for _, s := range timestamps {
		t, ok := ParseTimestamp(s, loc)
		if ok && KeyOf(t) == want {
			return true
		}
	}
	return false
}

// windowDays returns the trailing window of days ending on ref's day,
// oldest first.
func windowDays(days int, ref time.Time) []DayKey {
	if days <= 0 {
		return nil
	}
	loc := ref.Location()
	today := KeyOf(ref)
	keys := make([]DayKey, days)
	for i := 0; i < days; i++ {
		keys[i] = KeyOf(today.Time(loc).AddDate(0, 0, i-(days-1)))
	}
	return keys
}

// CountCompletedInWindow counts the days of the trailing window (ref's day
// included) on which h has a completion.
func CountCompletedInWindow(h domain.Habit, days int, ref time.Time) int {
	done := completionDays(h.CompletionDates, ref.Location())
	count := 0
	for _, k := range windowDays(days, ref) {
		if _, ok := done[k]; ok {
			count++
		}
	}
	return count
}

func CountCompletedToday(habits []domain.Habit, ref time.Time) int {
	count := 0
	for _, h := range habits {
		if IsCompletedOn(h.CompletionDates, ref) {
			count++
		}
	}
	return count
}

// ProgressPercentage is the rounded share of habits completed on ref's day.
// An empty list is 0%.
func ProgressPercentage(habits []domain.Habit, ref time.Time) int {
	total := max(1, len(habits))
	return percent(CountCompletedToday(habits, ref), total)
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

type DayMark struct {
	Day       DayKey
	Completed bool
}

// History marks each day of the trailing window, oldest first.
func History(h domain.Habit, days int, ref time.Time) []DayMark {
	done := completionDays(h.CompletionDates, ref.Location())
	keys := windowDays(days, ref)
	marks := make([]DayMark, len(keys))
	for i, k := range keys {
		_, ok := done[k]
		marks[i] = DayMark{Day: k, Completed: ok}
	}
	return marks
}

type WeeklyProgress struct {
	Completed  int
	Percentage int
	History    []DayMark
}

func Weekly(h domain.Habit, ref time.Time) WeeklyProgress {
	history := History(h, WeekDays, ref)
	completed := 0
	for _, m := range history {
		if m.Completed {
			completed++
		}
	}
	return WeeklyProgress{
		Completed:  completed,
		Percentage: percent(completed, WeekDays),
		History:    history,
	}
}

type HeatCell struct {
	Day       DayKey
	Completed int
	Intensity float64
	Level     int
}

// Heatmap computes, for each day of the trailing window, the share of habits
// completed that day.
func Heatmap(habits []domain.Habit, days int, ref time.Time) []HeatCell {
	loc := ref.Location()
	sets := make([]map[DayKey]struct{}, len(habits))
	for i, h := range habits {
		sets[i] = completionDays(h.CompletionDates, loc)
	}

	keys := windowDays(days, ref)
	cells := make([]HeatCell, len(keys))
	for i, k := range keys {
		completed := 0
		for _, set := range sets {
			if _, ok := set[k]; ok {
				completed++
			}
		}
		intensity := 0.0
		if len(habits) > 0 {
			intensity = float64(completed) / float64(len(habits))
		}
		cells[i] = HeatCell{Day: k, Completed: completed, Intensity: intensity, Level: LevelOf(intensity)}
	}
	return cells
}

// LevelOf buckets an intensity into 0 (none), 1 (up to a third), 2 (up to
// two thirds) or 3.
func LevelOf(intensity float64) int {
	switch {
	case intensity <= 0:
		return 0
	case intensity <= 0.33:
		return 1
	case intensity <= 0.66:
		return 2
	default:
		return 3
	}
}

type Summary struct {
	ActiveDays  int
	SuccessRate int
	MaxStreak   int
}

// WeeklySummary reports the days of the last week with any completion and
// the best individual streak.
func WeeklySummary(habits []domain.Habit, ref time.Time) Summary {
	active := 0
	for _, c := range Heatmap(habits, WeekDays, ref) {
		if c.Intensity > 0 {
			active++
		}
	}

	maxStreak := 0
	for _, h := range habits {
		maxStreak = max(maxStreak, h.LongestStreak)
	}

	return Summary{
		ActiveDays:  active,
		SuccessRate: percent(active, WeekDays),
		MaxStreak:   maxStreak,
	}
}

type Motivation int

const (
	MotivationIdle Motivation = iota
	MotivationStarted
	MotivationAlmost
	MotivationDone
)

func (m Motivation) String() string {
	switch m {
	case MotivationDone:
		return "All habits done today. Keep the pace!"
	case MotivationAlmost:
		return "Almost there! One more push for today's goal."
	case MotivationStarted:
		return "Good start! Keep adding wins to your track."
	default:
		return "Let's begin? The first step matters most."
	}
}

func MotivationFor(progress int) Motivation {
	switch {
	case progress >= 100:
		return MotivationDone
	case progress > 50:
		return MotivationAlmost
	case progress > 0:
		return MotivationStarted
	default:
		return MotivationIdle
	}
}

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/calendar"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/services"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/store"
)

// heatGlyphs is indexed by calendar.LevelOf.
var heatGlyphs = [...]string{".", "-", "+", "#"}

// RenderDashboard writes the header and the habit list shown by "list".
func RenderDashboard(w io.Writer, snap store.Snapshot, sum services.Summary, ref time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Today: %d/%d done (%d%%)\n", sum.CompletedToday, sum.Total, sum.Progress)
	fmt.Fprintln(&b, sum.Motivation.String())
	if snap.Stats != nil {
		fmt.Fprintf(&b, "Streak days: %d | Record: %d\n", sum.TotalStreakDays, sum.GlobalRecord)
	} else {
		fmt.Fprintln(&b, "Streak stats unavailable")
	}
	fmt.Fprintln(&b)

	if len(snap.Habits) == 0 {
		fmt.Fprintln(&b, "No habits yet. Create one with: habitctl create --name <name>")
	}
	for i, h := range snap.Habits {
		renderHabitLine(&b, i+1, h, ref)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderHabitLine(b *strings.Builder, pos int, h domain.Habit, ref time.Time) {
	mark := " "
	if calendar.IsCompletedOn(h.CompletionDates, ref) {
		mark = "x"
	}
	fmt.Fprintf(b, "%2d. [%s] %s  streak %d, best %d  %s/%s  %s\n",
		pos, mark, h.Name, h.CurrentStreak, h.LongestStreak, h.Color, h.Icon, h.ID)
}

// RenderHabit writes a single habit, as printed after create and edit.
func RenderHabit(w io.Writer, h domain.Habit, ref time.Time) error {
	var b strings.Builder
	renderHabitLine(&b, 1, h, ref)
	_, err := io.WriteString(w, strings.TrimPrefix(b.String(), " 1. "))
	return err
}

// RenderProgress writes the seven-day history of every habit, oldest day
// first.
func RenderProgress(w io.Writer, habits []domain.Habit, ref time.Time) error {
	var b strings.Builder

	if len(habits) == 0 {
		fmt.Fprintln(&b, "No habits yet.")
		_, err := io.WriteString(w, b.String())
		return err
	}

	width := 0
	for _, h := range habits {
		width = max(width, len(h.Name))
	}

	for i, h := range habits {
		weekly := calendar.Weekly(h, ref)
		if i == 0 {
			first, last := weekly.History[0].Day, weekly.History[len(weekly.History)-1].Day
			fmt.Fprintf(&b, "Last %d days: %s .. %s\n", calendar.WeekDays, first, last)
		}

		marks := make([]byte, len(weekly.History))
		for j, m := range weekly.History {
			marks[j] = '.'
			if m.Completed {
				marks[j] = 'x'
			}
		}
		fmt.Fprintf(&b, "%-*s  %s  %d/%d (%d%%)\n",
			width, h.Name, marks, weekly.Completed, calendar.WeekDays, weekly.Percentage)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderHeatmap writes the trailing heat-map grid, one week per row, and the
// weekly summary below it.
func RenderHeatmap(w io.Writer, habits []domain.Habit, ref time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Last %d days (%s none, %s low, %s mid, %s high)\n",
		calendar.HeatmapDays, heatGlyphs[0], heatGlyphs[1], heatGlyphs[2], heatGlyphs[3])

	cells := calendar.Heatmap(habits, calendar.HeatmapDays, ref)
	for start := 0; start < len(cells); start += calendar.WeekDays {
		row := cells[start:min(start+calendar.WeekDays, len(cells))]
		glyphs := make([]string, len(row))
		for i, c := range row {
			glyphs[i] = heatGlyphs[c.Level]
		}
		fmt.Fprintf(&b, "%s  %s\n", row[0].Day, strings.Join(glyphs, " "))
	}

	sum := calendar.WeeklySummary(habits, ref)
	fmt.Fprintf(&b, "This week: %d/%d active days (%d%%) | Best streak: %d\n",
		sum.ActiveDays, calendar.WeekDays, sum.SuccessRate, sum.MaxStreak)

	_, err := io.WriteString(w, b.String())
	return err
}

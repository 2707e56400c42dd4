package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/srs"
)

// RenderStats is the /stats dashboard.
func RenderStats(stats progress.Stats, due []srs.SubjectDue) string {
	var b strings.Builder
	b.WriteString("📊 Your progress\n")
	fmt.Fprintf(&b, "Today: %s\n", FormatMinutes(stats.TodayMinutes))
	fmt.Fprintf(&b, "Total: %s\n", FormatMinutes(stats.TotalMinutes))
	fmt.Fprintf(&b, "Streak: %d %s\n", stats.Streak, plural(stats.Streak, "day", "days"))
	if stats.Level != "" {
		fmt.Fprintf(&b, "Level: %s\n", stats.Level)
	}

	if len(stats.PerSubject) > 0 {
		b.WriteString("\nBy subject:\n")
		for _, s := range stats.PerSubject {
			fmt.Fprintf(&b, "- %s: %s\n", s.Subject, FormatMinutes(s.Minutes))
		}
	}

	if len(due) > 0 {
		b.WriteString("\nDue flashcards:\n")
		for _, d := range due {
			fmt.Fprintf(&b, "- %s: %d\n", d.Subject, d.Due)
		}
	}

	if len(stats.Subjects) == 0 {
		b.WriteString("\nPick your subjects with /subjects maths, irish, …")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatMinutes renders 95 as "1h 35m".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// RenderDeadlines lists upcoming deadlines with their ids so they can be
// removed.
func RenderDeadlines(deadlines []db.Deadline, now time.Time, offsetHours int) string {
	if len(deadlines) == 0 {
		return "No upcoming deadlines. Add one with /deadline YYYY-MM-DD subject | title"
	}
	var b strings.Builder
	b.WriteString("Upcoming deadlines:\n")
	for _, d := range deadlines {
		fmt.Fprintf(&b, "#%d %s %s\n", d.ID, d.DueAt.Format("2006-01-02"), FormatDeadline(d, progress.DaysUntil(d, now, offsetHours)))
	}
	b.WriteString("Remove one with /deadline del <id>")
	return b.String()
}

func FormatDeadline(d db.Deadline, days int) string {
	when := fmt.Sprintf("in %d days", days)
	switch days {
	case 0:
		when = "today"
	case 1:
		when = "tomorrow"
	}
	if d.Subject != "" {
		return fmt.Sprintf("%s (%s) is due %s.", d.Title, d.Subject, when)
	}
	return fmt.Sprintf("%s is due %s.", d.Title, when)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

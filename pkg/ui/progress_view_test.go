package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/srs"
)

func TestFormatMinutes(t *testing.T) {
	cases := map[int]string{0: "0m", 45: "45m", 60: "1h 00m", 95: "1h 35m", 600: "10h 00m"}
	for in, want := range cases {
		if got := FormatMinutes(in); got != want {
			t.Fatalf("FormatMinutes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderStats(t *testing.T) {
	stats := progress.Stats{
		Level:        "higher",
		Subjects:     []string{"maths"},
		TotalMinutes: 130,
		TodayMinutes: 40,
		Streak:       1,
		PerSubject:   []progress.SubjectMinutes{{Subject: "maths", Minutes: 130}},
	}
	got := RenderStats(stats, []srs.SubjectDue{{Subject: "maths", Due: 3}})

	for _, want := range []string{"Today: 40m", "Total: 2h 10m", "Streak: 1 day\n", "- maths: 2h 10m", "- maths: 3"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "/subjects") {
		t.Fatalf("did not expect the subjects hint")
	}
}

func TestRenderStatsWithoutSubjects(t *testing.T) {
	got := RenderStats(progress.Stats{Streak: 0}, nil)
	if !strings.Contains(got, "Streak: 0 days") || !strings.Contains(got, "/subjects") {
		t.Fatalf("unexpected stats %q", got)
	}
	if strings.Contains(got, "Due flashcards") {
		t.Fatalf("did not expect a due section")
	}
}

func TestRenderDeadlines(t *testing.T) {
	now := time.Date(2025, 5, 30, 22, 0, 0, 0, time.UTC)
	deadlines := []db.Deadline{
		{ID: 4, Subject: "Maths", Title: "Paper 1", DueAt: time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)},
		{ID: 7, Title: "Irish oral", DueAt: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)},
	}

	// at UTC+3 it is already the 31st
	got := RenderDeadlines(deadlines, now, 3)
	if !strings.Contains(got, "#4 2025-05-31 Paper 1 (Maths) is due today.") {
		t.Fatalf("unexpected first line in %q", got)
	}
	if !strings.Contains(got, "#7 2025-06-05 Irish oral is due in 5 days.") {
		t.Fatalf("unexpected second line in %q", got)
	}

	if got := RenderDeadlines(nil, now, 0); !strings.HasPrefix(got, "No upcoming deadlines") {
		t.Fatalf("unexpected empty list %q", got)
	}
}

func TestFormatDeadlineTomorrow(t *testing.T) {
	d := db.Deadline{Title: "Essay", Subject: "English"}
	if got := FormatDeadline(d, 1); got != "Essay (English) is due tomorrow." {
		t.Fatalf("unexpected text %q", got)
	}
}

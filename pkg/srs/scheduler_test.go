package srs

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var reviewTime = time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

var approxEase = cmpopts.EquateApprox(0, 1e-9)

func TestComputeNextScheduleFirstSuccess(t *testing.T) {
	got, err := ComputeNextSchedule(Schedule{EaseFactor: 2.5, Repetitions: 0, Interval: 0}, RatingGood, reviewTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Schedule{
		EaseFactor:  2.36,
		Repetitions: 1,
		Interval:    1,
		NextReview:  reviewTime.AddDate(0, 0, 1),
	}
	if diff := cmp.Diff(want, got, approxEase); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeNextScheduleFailureAtFloor(t *testing.T) {
	got, err := ComputeNextSchedule(Schedule{EaseFactor: 1.3, Repetitions: 2, Interval: 6}, RatingAgain, reviewTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Schedule{
		EaseFactor:  1.3,
		Repetitions: 0,
		Interval:    1,
		NextReview:  reviewTime.AddDate(0, 0, 1),
	}
	if diff := cmp.Diff(want, got, approxEase); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeNextScheduleIntervals(t *testing.T) {
	cases := []struct {
		name     string
		current  Schedule
		rating   Rating
		interval int
		reps     int
	}{
		{"second success", Schedule{EaseFactor: 2.5, Repetitions: 1, Interval: 1}, RatingGood, 6, 2},
		{"third success uses prior ease", Schedule{EaseFactor: 2.5, Repetitions: 2, Interval: 6}, RatingGood, 15, 3},
		{"rounds half up", Schedule{EaseFactor: 1.5, Repetitions: 3, Interval: 5}, RatingEasy, 8, 4},
		{"corrupt zero interval stays positive", Schedule{EaseFactor: 2.5, Repetitions: 4, Interval: 0}, RatingVeryEasy, 1, 5},
		{"hard resets", Schedule{EaseFactor: 2.8, Repetitions: 7, Interval: 40}, RatingHard, 1, 0},
		{"two counts as failure", Schedule{EaseFactor: 2.5, Repetitions: 3, Interval: 15}, Rating(2), 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeNextSchedule(tc.current, tc.rating, reviewTime)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Interval != tc.interval || got.Repetitions != tc.reps {
				t.Fatalf("expected interval %d reps %d, got %+v", tc.interval, tc.reps, got)
			}
			if !got.NextReview.Equal(reviewTime.AddDate(0, 0, tc.interval)) {
				t.Fatalf("expected next review %d days out, got %v", tc.interval, got.NextReview)
			}
		})
	}
}

func TestComputeNextScheduleProperties(t *testing.T) {
	eases := []float64{1.3, 1.7, 2.5, 3.1}
	reps := []int{0, 1, 2, 5}
	intervals := []int{0, 1, 6, 30}
	for _, ease := range eases {
		for _, rep := range reps {
			for _, interval := range intervals {
				for rating := Rating(0); rating <= 5; rating++ {
					current := Schedule{EaseFactor: ease, Repetitions: rep, Interval: interval}
					got, err := ComputeNextSchedule(current, rating, reviewTime)
					if err != nil {
						t.Fatalf("unexpected error for %+v rating %d: %v", current, rating, err)
					}
					if got.EaseFactor < EaseFloor {
						t.Fatalf("ease below floor for %+v rating %d: %+v", current, rating, got)
					}
					if got.Repetitions < 0 || got.Interval < 1 {
						t.Fatalf("invalid counters for %+v rating %d: %+v", current, rating, got)
					}
					if !got.NextReview.After(reviewTime) {
						t.Fatalf("next review not in the future for %+v rating %d", current, rating)
					}
					if rating.Passed() {
						want := interval
						switch rep {
						case 0:
							want = 1
						case 1:
							want = 6
						default:
							want = int(math.Max(1, math.Round(float64(interval)*ease)))
						}
						if got.Interval != want || got.Repetitions != rep+1 {
							t.Fatalf("pass %+v rating %d: want interval %d reps %d, got %+v", current, rating, want, rep+1, got)
						}
					} else if got.Interval != 1 || got.Repetitions != 0 {
						t.Fatalf("fail %+v rating %d: got %+v", current, rating, got)
					}
				}
			}
		}
	}
}

func TestEaseMovesWithRating(t *testing.T) {
	base := Schedule{EaseFactor: 2.5, Repetitions: 2, Interval: 6}
	wantEase := map[Rating]float64{
		RatingAgain:    1.7,
		RatingHard:     1.96,
		RatingGood:     2.36,
		RatingEasy:     2.5,
		RatingVeryEasy: 2.6,
	}
	for rating, want := range wantEase {
		got, err := ComputeNextSchedule(base, rating, reviewTime)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(got.EaseFactor-want) > 1e-9 {
			t.Fatalf("rating %d: expected ease %.2f, got %v", rating, want, got.EaseFactor)
		}
	}
}

func TestComputeNextScheduleDefaultsMissingEase(t *testing.T) {
	got, err := ComputeNextSchedule(Schedule{EaseFactor: math.NaN()}, RatingGood, reviewTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got.EaseFactor-2.36) > 1e-9 || got.Interval != 1 {
		t.Fatalf("expected missing ease treated as 2.5, got %+v", got)
	}

	got, err = ComputeNextSchedule(Schedule{EaseFactor: 1.1, Repetitions: -3, Interval: -2}, RatingVeryEasy, reviewTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got.EaseFactor-1.4) > 1e-9 || got.Repetitions != 1 || got.Interval != 1 {
		t.Fatalf("expected floored ease and reset counters, got %+v", got)
	}
}

func TestComputeNextScheduleRejectsOutOfRange(t *testing.T) {
	for _, rating := range []Rating{-1, 6, 42} {
		if _, err := ComputeNextSchedule(NewSchedule(reviewTime), rating, reviewTime); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("rating %d: expected ErrInvalidRating, got %v", rating, err)
		}
	}
}

func TestParseRating(t *testing.T) {
	for _, value := range []int{0, 1, 2, 3, 4, 5} {
		if _, err := ParseRating(value); err != nil {
			t.Fatalf("ParseRating(%d) returned error: %v", value, err)
		}
	}
	if _, err := ParseRating(7); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
}

func TestNewScheduleIsDueImmediately(t *testing.T) {
	s := NewSchedule(reviewTime)
	if s.EaseFactor != DefaultEaseFactor || s.Repetitions != 0 || s.Interval != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if !s.NextReview.Equal(reviewTime) {
		t.Fatalf("expected new card due now, got %v", s.NextReview)
	}
}

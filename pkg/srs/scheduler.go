package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Rating is the recall quality reported after a flashcard review.
type Rating int

// The review keyboard offers five answers; 2 is never emitted by the UI but
// is accepted as a failed recall.
const (
	RatingAgain    Rating = 0
	RatingHard     Rating = 1
	RatingGood     Rating = 3
	RatingEasy     Rating = 4
	RatingVeryEasy Rating = 5
)

const (
	DefaultEaseFactor = 2.5
	EaseFloor         = 1.3
	PassingRating     = 3
	maxRating         = 5
)

var ErrInvalidRating = errors.New("invalid rating")

// Ratings lists the answers offered to the user, in keyboard order.
var Ratings = []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy, RatingVeryEasy}

func ParseRating(value int) (Rating, error) {
	if value < 0 || value > maxRating {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRating, value)
	}
	return Rating(value), nil
}

func (r Rating) Passed() bool {
	return r >= PassingRating
}

func (r Rating) Label() string {
	switch r {
	case RatingAgain:
		return "Again"
	case RatingHard, 2:
		return "Hard"
	case RatingGood:
		return "Good"
	case RatingEasy:
		return "Easy"
	case RatingVeryEasy:
		return "Very Easy"
	default:
		return "Unknown"
	}
}

// Schedule is the scheduling state of one flashcard.
type Schedule struct {
	EaseFactor  float64
	Repetitions int
	Interval    int // days
	NextReview  time.Time
}

// NewSchedule returns the state of a card that has never been reviewed. It is
// due immediately.
func NewSchedule(now time.Time) Schedule {
	return Schedule{
		EaseFactor:  DefaultEaseFactor,
		Repetitions: 0,
		Interval:    0,
		NextReview:  now,
	}
}

// normalized repairs values that can only come from a missing or corrupt
// column. Zero repetitions and a zero interval are legitimate and kept.
func (s Schedule) normalized() Schedule {
	switch {
	case math.IsNaN(s.EaseFactor) || math.IsInf(s.EaseFactor, 0) || s.EaseFactor <= 0:
		s.EaseFactor = DefaultEaseFactor
	case s.EaseFactor < EaseFloor:
		s.EaseFactor = EaseFloor
	}
	if s.Repetitions < 0 {
		s.Repetitions = 0
	}
	if s.Interval < 0 {
		s.Interval = 0
	}
	return s
}

// ComputeNextSchedule applies an SM-2 step. The interval grows with the
// ease factor the card had before this review; the ease factor itself is
// then adjusted by recall quality and never drops below EaseFloor.
func ComputeNextSchedule(current Schedule, rating Rating, now time.Time) (Schedule, error) {
	if rating < 0 || rating > maxRating {
		return Schedule{}, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}
	s := current.normalized()

	next := Schedule{}
	if rating.Passed() {
		switch s.Repetitions {
		case 0:
			next.Interval = 1
		case 1:
			next.Interval = 6
		default:
			next.Interval = maxInt(1, int(math.Round(float64(s.Interval)*s.EaseFactor)))
		}
		next.Repetitions = s.Repetitions + 1
	} else {
		next.Repetitions = 0
		next.Interval = 1
	}

	next.EaseFactor = adjustEase(s.EaseFactor, rating)
	next.NextReview = now.AddDate(0, 0, next.Interval)
	return next, nil
}

func adjustEase(ease float64, rating Rating) float64 {
	miss := float64(maxRating - int(rating))
	ease = ease + 0.1 - miss*(0.08+miss*0.02)
	if ease < EaseFloor {
		return EaseFloor
	}
	return ease
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Screen identifies a node of the guided study flow.
type Screen string

const (
	ScreenGuidedStart      Screen = "start"
	ScreenAddFlashcards    Screen = "add"
	ScreenReviewFlashcards Screen = "review"
	ScreenExamRedirect     Screen = "redirect"
	ScreenExamQuestion     Screen = "question"
	ScreenMarkingScheme    Screen = "marking"
	ScreenSessionCompleted Screen = "completed"
	ScreenFinished         Screen = "finished"
)

const (
	TypeFlashcard = "flashcard"

	LevelOrdinary = "ordinary"
	LevelHigher   = "higher"
)

// A session that is still running when its clock reaches the first half
// hour is shown the completion screen once.
const (
	CompletionWindowStart = 30 * 60
	CompletionWindowEnd   = CompletionWindowStart + 30
)

var (
	ErrNoTransition  = errors.New("no transition from screen")
	ErrUnknownScreen = errors.New("unknown screen")
	ErrInvalidParams = errors.New("invalid session parameters")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Params is the parameter bag carried from screen to screen.
type Params struct {
	OverallTime int    `json:"overallTime" validate:"gte=0,lte=86400"`
	Subject     string `json:"subject" validate:"required,max=64"`
	Level       string `json:"level,omitempty" validate:"omitempty,oneof=higher ordinary"`
	Exam        string `json:"exam,omitempty" validate:"max=32"`
	Paper       string `json:"paper,omitempty" validate:"max=16"`
	Question    string `json:"question,omitempty" validate:"omitempty,numeric,max=3"`
	Year        string `json:"year,omitempty" validate:"omitempty,numeric,len=4"`
	Type        string `json:"type,omitempty" validate:"omitempty,oneof=flashcard exam"`
}

// Validate checks a parameter bag supplied by the user.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func (p Params) FlashcardOnly() bool {
	return strings.EqualFold(p.Type, TypeFlashcard)
}

func (p Params) HasPaper() bool {
	return strings.TrimSpace(p.Paper) != ""
}

// State is the in-memory state of one guided session.
type State struct {
	Params         Params
	Screen         Screen
	SeedSeconds    int
	ElapsedSeconds int
	FlushedMinutes int
	Paused         bool
}

func NewState(params Params) State {
	seed := params.OverallTime
	if seed < 0 {
		seed = 0
	}
	params.OverallTime = seed
	return State{
		Params:         params,
		Screen:         ScreenGuidedStart,
		SeedSeconds:    seed,
		ElapsedSeconds: seed,
	}
}

// Transition is the outcome of pressing Next on a screen.
type Transition struct {
	To         Screen
	Finish     bool
	Checkpoint bool
}

type transitionFunc func(State) Transition

var transitions = map[Screen]transitionFunc{
	ScreenGuidedStart: func(State) Transition {
		return Transition{To: ScreenAddFlashcards}
	},
	ScreenAddFlashcards: func(s State) Transition {
		switch {
		case s.Params.FlashcardOnly():
			return Transition{To: ScreenReviewFlashcards}
		case s.Params.HasPaper():
			return Transition{To: ScreenExamRedirect}
		default:
			return Transition{To: ScreenReviewFlashcards}
		}
	},
	ScreenReviewFlashcards: func(s State) Transition {
		switch {
		case inCompletionWindow(s.ElapsedSeconds):
			return Transition{To: ScreenSessionCompleted}
		case s.Params.FlashcardOnly():
			return Transition{Finish: true}
		default:
			return Transition{To: ScreenExamRedirect}
		}
	},
	ScreenExamRedirect: func(State) Transition {
		return Transition{To: ScreenExamQuestion}
	},
	ScreenExamQuestion: func(State) Transition {
		return Transition{To: ScreenMarkingScheme}
	},
	ScreenMarkingScheme: func(s State) Transition {
		if inCompletionWindow(s.ElapsedSeconds) {
			return Transition{To: ScreenSessionCompleted, Checkpoint: true}
		}
		return Transition{To: ScreenExamRedirect, Checkpoint: true}
	},
	ScreenSessionCompleted: func(State) Transition {
		return Transition{To: ScreenExamRedirect}
	},
}

// NextTransition looks up where Next leads from the current screen.
func NextTransition(s State) (Transition, error) {
	if s.Screen == ScreenFinished {
		return Transition{}, ErrNoTransition
	}
	fn, ok := transitions[s.Screen]
	if !ok {
		return Transition{}, ErrUnknownScreen
	}
	return fn(s), nil
}

// ToggleTarget returns the other half of the question/marking scheme pair.
func ToggleTarget(screen Screen) (Screen, bool) {
	switch screen {
	case ScreenExamQuestion:
		return ScreenMarkingScheme, true
	case ScreenMarkingScheme:
		return ScreenExamQuestion, true
	default:
		return "", false
	}
}

func ParseScreen(value string) (Screen, error) {
	screen := Screen(value)
	if screen == ScreenFinished {
		return screen, nil
	}
	if _, ok := transitions[screen]; !ok {
		return "", ErrUnknownScreen
	}
	return screen, nil
}

func inCompletionWindow(elapsed int) bool {
	return elapsed >= CompletionWindowStart && elapsed < CompletionWindowEnd
}

// advanceQuestion picks the question shown after an exam redirect.
func advanceQuestion(p Params) Params {
	p.Question = NextQuestion(p.Question)
	return p
}

// NextQuestion returns the question after current: "1" when current is
// empty or not a positive number.
func NextQuestion(current string) string {
	n, err := strconv.Atoi(strings.TrimSpace(current))
	if err != nil || n < 1 {
		return "1"
	}
	return strconv.Itoa(n + 1)
}

// StudyMinutes converts the seconds studied since the seed into whole
// minutes that have not been flushed yet.
func (s State) StudyMinutes() int {
	studied := s.ElapsedSeconds - s.SeedSeconds
	if studied <= 0 {
		return 0
	}
	pending := studied/60 - s.FlushedMinutes
	if pending < 0 {
		return 0
	}
	return pending
}

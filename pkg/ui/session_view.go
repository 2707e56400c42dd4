package ui

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/session"
)

// RenderSession draws a guided session screen with its control buttons. The
// finished screen has no keyboard.
func RenderSession(dest session.Destination) (string, *models.InlineKeyboardMarkup, error) {
	var b strings.Builder
	b.WriteString(sessionTitle(dest.Params))
	b.WriteString("\n")
	b.WriteString(clockLine(dest))
	b.WriteString("\n\n")
	b.WriteString(screenBody(dest))

	if dest.Screen == session.ScreenFinished {
		return b.String(), nil, nil
	}
	keyboard, err := sessionKeyboard(dest)
	if err != nil {
		return "", nil, err
	}
	return b.String(), keyboard, nil
}

func sessionTitle(p session.Params) string {
	title := "Guided session"
	if p.Subject != "" {
		title += ": " + p.Subject
	}
	if p.Level != "" {
		title += " (" + p.Level + ")"
	}
	return title
}

func clockLine(dest session.Destination) string {
	line := "⏱ " + FormatClock(dest.ElapsedSeconds)
	if dest.Paused {
		line += " (paused)"
	}
	return line
}

func screenBody(dest session.Destination) string {
	p := dest.Params
	switch dest.Screen {
	case session.ScreenGuidedStart:
		return "Tap Start when you are ready. The timer runs until you finish."
	case session.ScreenAddFlashcards:
		return fmt.Sprintf("Step 1: add flashcards for anything new.\nSend /addcard %s | front | back, then tap Next.", subjectOrPlaceholder(p))
	case session.ScreenReviewFlashcards:
		return fmt.Sprintf("Step 2: review your due cards with /review %s, then tap Next.", p.Subject)
	case session.ScreenExamRedirect:
		return fmt.Sprintf("Exam practice: %s.\nNext opens question %s.", paperLabel(p), session.NextQuestion(p.Question))
	case session.ScreenExamQuestion:
		return fmt.Sprintf("Question %s of %s.\nAttempt it on paper, then open the marking scheme.", p.Question, paperLabel(p))
	case session.ScreenMarkingScheme:
		return fmt.Sprintf("Marking scheme for question %s of %s.\nMark your answer honestly, then tap Next.", p.Question, paperLabel(p))
	case session.ScreenSessionCompleted:
		return "Half an hour done. Take a short break, then carry on with the next question."
	case session.ScreenFinished:
		return fmt.Sprintf("Session finished. %d minutes added to your study time.\nSee /stats for your dashboard.", dest.StudiedMinutes)
	default:
		return ""
	}
}

func sessionKeyboard(dest session.Destination) (*models.InlineKeyboardMarkup, error) {
	sessionID := dest.SessionID
	nextData, err := BuildSessionCallback(SessionNext, sessionID)
	if err != nil {
		return nil, err
	}
	finishData, err := BuildSessionCallback(SessionFinish, sessionID)
	if err != nil {
		return nil, err
	}

	first := []models.InlineKeyboardButton{{Text: nextLabel(dest.Screen), CallbackData: nextData}}
	if other, ok := session.ToggleTarget(dest.Screen); ok {
		toggleData, err := BuildSessionCallback(SessionToggle, sessionID)
		if err != nil {
			return nil, err
		}
		label := "Marking scheme"
		if other == session.ScreenExamQuestion {
			label = "Question"
		}
		first = append(first, models.InlineKeyboardButton{Text: label, CallbackData: toggleData})
	}

	if dest.Screen == session.ScreenGuidedStart {
		cancelData, err := BuildSessionCallback(SessionCancel, sessionID)
		if err != nil {
			return nil, err
		}
		return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
			first,
			{{Text: "Cancel", CallbackData: cancelData}},
		}}, nil
	}

	pauseOp, pauseLabel := SessionPause, "Pause"
	if dest.Paused {
		pauseOp, pauseLabel = SessionResume, "Resume"
	}
	pauseData, err := BuildSessionCallback(pauseOp, sessionID)
	if err != nil {
		return nil, err
	}
	resetData, err := BuildSessionCallback(SessionReset, sessionID)
	if err != nil {
		return nil, err
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		first,
		{
			{Text: pauseLabel, CallbackData: pauseData},
			{Text: "Reset", CallbackData: resetData},
			{Text: "Finish", CallbackData: finishData},
		},
	}}, nil
}

func nextLabel(screen session.Screen) string {
	switch screen {
	case session.ScreenGuidedStart:
		return "Start"
	case session.ScreenExamRedirect:
		return "Open question"
	case session.ScreenSessionCompleted:
		return "Continue"
	default:
		return "Next"
	}
}

func subjectOrPlaceholder(p session.Params) string {
	if p.Subject == "" {
		return "subject"
	}
	return p.Subject
}

func paperLabel(p session.Params) string {
	parts := make([]string, 0, 3)
	if p.Exam != "" {
		parts = append(parts, p.Exam)
	}
	if p.Year != "" {
		parts = append(parts, p.Year)
	}
	if p.Paper != "" {
		parts = append(parts, "paper "+p.Paper)
	}
	if len(parts) == 0 {
		return "the exam paper"
	}
	return strings.Join(parts, " ")
}

// FormatClock renders seconds as m:ss, or h:mm:ss from one hour.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds/60)%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

package ui

import (
	"fmt"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/srs"
)

// RenderCardFront shows the question side with a reveal button.
func RenderCardFront(card db.Flashcard, remaining int) (string, *models.InlineKeyboardMarkup, error) {
	revealData, err := BuildRevealCallback(card.ID)
	if err != nil {
		return "", nil, err
	}
	text := fmt.Sprintf("%s · %d due\n\n%s", card.Subject, remaining, card.Front)
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Show answer", CallbackData: revealData}},
		},
	}
	return text, keyboard, nil
}

// RenderCardBack shows both sides and the rating buttons.
func RenderCardBack(card db.Flashcard) (string, *models.InlineKeyboardMarkup, error) {
	row := make([]models.InlineKeyboardButton, 0, len(srs.Ratings))
	for _, rating := range srs.Ratings {
		data, err := BuildRateCallback(card.ID, int(rating))
		if err != nil {
			return "", nil, err
		}
		row = append(row, models.InlineKeyboardButton{Text: rating.Label(), CallbackData: data})
	}
	text := fmt.Sprintf("%s\n\n%s\n\n%s", card.Subject, card.Front, card.Back)
	return text, &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}, nil
}

// FormatNextReview describes when a rated card comes back.
func FormatNextReview(interval int) string {
	switch interval {
	case 0:
		return "now"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", interval)
	}
}

package onboarding

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
)

// RenderSubjectPicker shows every offered subject with a tick on the chosen
// ones. Subjects added by name that are not offered are listed in the text.
func RenderSubjectPicker(selected []string, level string) (string, *models.InlineKeyboardMarkup) {
	chosen := make(map[string]bool, len(selected))
	var custom []string
	for _, s := range selected {
		key := strings.ToLower(s)
		chosen[key] = true
		if !IsSupportedSubject(key) {
			custom = append(custom, s)
		}
	}

	text := "Pick the subjects you are studying, then tap Done."
	if len(custom) > 0 {
		text += fmt.Sprintf("\nAlso studying: %s", strings.Join(custom, ", "))
	}

	rows := make([][]models.InlineKeyboardButton, 0, (len(SubjectOptions)/2)+2)
	currentRow := make([]models.InlineKeyboardButton, 0, 2)
	for _, option := range SubjectOptions {
		label := option.Label
		if chosen[option.Code] {
			label += " ✅"
		}
		currentRow = append(currentRow, models.InlineKeyboardButton{Text: label, CallbackData: BuildSubjectCallback(option.Code)})
		if len(currentRow) == 2 {
			rows = append(rows, currentRow)
			currentRow = make([]models.InlineKeyboardButton, 0, 2)
		}
	}
	if len(currentRow) > 0 {
		rows = append(rows, currentRow)
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: fmt.Sprintf("Level: %s", level), CallbackData: BuildLevelCallback()},
		{Text: "Done", CallbackData: BuildDoneCallback()},
	})
	return text, &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// RenderSummary replaces the picker once the user is done.
func RenderSummary(selected []string, level string) string {
	if len(selected) == 0 {
		return "No subjects picked yet. Use /subjects any time."
	}
	labels := make([]string, 0, len(selected))
	for _, s := range selected {
		labels = append(labels, LabelForSubject(s))
	}
	return fmt.Sprintf("Studying at %s level: %s\nStart a guided session with /session %s", level, strings.Join(labels, ", "), selected[0])
}

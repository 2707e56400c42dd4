package ui

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

func RenderHome(timezoneOffset, reminderHour int, level string) (string, *models.InlineKeyboardMarkup, error) {
	tzData, err := BuildTimezoneCallback()
	if err != nil {
		return "", nil, err
	}
	reminderData, err := BuildReminderCallback()
	if err != nil {
		return "", nil, err
	}
	levelData, err := BuildLevelToggleCallback()
	if err != nil {
		return "", nil, err
	}
	closeData, err := BuildCloseCallback()
	if err != nil {
		return "", nil, err
	}

	text := fmt.Sprintf(
		"Settings\n- Daily reminder: %s\n- Timezone: UTC%+d\n- Level: %s",
		FormatReminderHour(reminderHour),
		timezoneOffset,
		level,
	)

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Reminder", CallbackData: reminderData},
				{Text: "Timezone", CallbackData: tzData},
			},
			{
				{Text: "Switch level", CallbackData: levelData},
				{Text: "Close", CallbackData: closeData},
			},
		},
	}

	return text, keyboard, nil
}

func RenderReminder(current int) (string, *models.InlineKeyboardMarkup, error) {
	decData, err := BuildReminderDecCallback()
	if err != nil {
		return "", nil, err
	}
	incData, err := BuildReminderIncCallback()
	if err != nil {
		return "", nil, err
	}
	backData, err := BuildHomeCallback()
	if err != nil {
		return "", nil, err
	}

	text := fmt.Sprintf("Daily reminder\nCurrent value: %s", FormatReminderHour(current))
	presets, err := buildPresetRows(BuildReminderSetCallback, []int{7, 16, 18, 20, -1}, func(v int) string {
		if v < 0 {
			return "Off"
		}
		return fmt.Sprintf("%02d:00", v)
	})
	if err != nil {
		return "", nil, err
	}

	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "-1h", CallbackData: decData},
			{Text: "+1h", CallbackData: incData},
		},
	}
	rows = append(rows, presets...)
	rows = append(rows, []models.InlineKeyboardButton{{Text: "Back", CallbackData: backData}})

	return text, &models.InlineKeyboardMarkup{InlineKeyboard: rows}, nil
}

func RenderTimezone(current int) (string, *models.InlineKeyboardMarkup, error) {
	decData, err := BuildTimezoneDecCallback()
	if err != nil {
		return "", nil, err
	}
	incData, err := BuildTimezoneIncCallback()
	if err != nil {
		return "", nil, err
	}
	backData, err := BuildHomeCallback()
	if err != nil {
		return "", nil, err
	}

	text := fmt.Sprintf("Timezone\nCurrent value: UTC%+d", current)
	presets, err := buildPresetRows(BuildTimezoneSetCallback, []int{-5, 0, 1, 2, 3, 8}, func(v int) string {
		return fmt.Sprintf("UTC%+d", v)
	})
	if err != nil {
		return "", nil, err
	}

	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "-1", CallbackData: decData},
			{Text: "+1", CallbackData: incData},
		},
	}
	rows = append(rows, presets...)
	rows = append(rows, []models.InlineKeyboardButton{{Text: "Back", CallbackData: backData}})

	return text, &models.InlineKeyboardMarkup{InlineKeyboard: rows}, nil
}

// buildPresetRows lays preset buttons out three to a row.
func buildPresetRows(build func(int) (string, error), values []int, label func(int) string) ([][]models.InlineKeyboardButton, error) {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for _, v := range values {
		data, err := build(v)
		if err != nil {
			return nil, err
		}
		row = append(row, models.InlineKeyboardButton{Text: label(v), CallbackData: data})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows, nil
}

func FormatReminderHour(hour int) string {
	if hour < 0 {
		return "off"
	}
	return fmt.Sprintf("%02d:00", hour)
}

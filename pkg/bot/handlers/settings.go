package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/session"
	"github.com/smith3v/tutor625/pkg/ui"
)

const settingsUsage = "Usage: /settings tz=<-12..14> reminder=<0..23|off> level=<higher|ordinary>"

var (
	ErrBelowMin      = errors.New("value below minimum")
	ErrAboveMax      = errors.New("value above maximum")
	ErrInvalidAction = errors.New("invalid settings action")
)

// UserSettings is the part of a profile the settings menu edits.
type UserSettings struct {
	TimezoneOffsetHours int
	ReminderHour        int
	Level               string
}

func (s UserSettings) update() progress.Settings {
	return progress.Settings{
		TimezoneOffsetHours: &s.TimezoneOffsetHours,
		ReminderHour:        &s.ReminderHour,
		Level:               &s.Level,
	}
}

// HandleSettings opens the settings menu, or applies key=value changes
// given on the command line.
func HandleSettings(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleSettings")
		return
	}
	beginCommand(update)

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	profile, err := progress.LoadProfile(userID)
	if err != nil {
		replyProfileError(ctx, b, chatID, userID, err)
		return
	}

	if _, args := splitCommand(update.Message.Text); args != "" {
		changes, err := parseSettingsArgs(args)
		if err != nil {
			sendText(ctx, b, chatID, fmt.Sprintf("%v\n%s", err, settingsUsage))
			return
		}
		updated, err := progress.UpdateSettings(ctx, userID, changes)
		if err != nil {
			if errors.Is(err, progress.ErrInvalidSettings) {
				sendText(ctx, b, chatID, "Those values are out of range.\n"+settingsUsage)
				return
			}
			logger.Error("failed to save settings", "user_id", userID, "error", err)
			sendText(ctx, b, chatID, "Failed to save your settings. Please try again later.")
			return
		}
		profile = updated
	}

	text, keyboard, err := ui.RenderHome(profile.TimezoneOffsetHours, profile.ReminderHour, profile.Level)
	if err != nil {
		logger.Error("failed to render settings home", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to render settings. Please try again later.")
		return
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.Error("failed to send settings message", "user_id", userID, "error", err)
	}
}

func parseSettingsArgs(args string) (progress.Settings, error) {
	var out progress.Settings
	for _, field := range strings.Fields(args) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return progress.Settings{}, fmt.Errorf("expected key=value, got %q", field)
		}
		switch strings.ToLower(key) {
		case "tz", "timezone":
			n, err := strconv.Atoi(strings.TrimPrefix(value, "+"))
			if err != nil {
				return progress.Settings{}, fmt.Errorf("timezone must be a whole number of hours")
			}
			out.TimezoneOffsetHours = &n
		case "reminder":
			n := progress.ReminderDisabled
			if !strings.EqualFold(value, "off") {
				parsed, err := strconv.Atoi(value)
				if err != nil {
					return progress.Settings{}, fmt.Errorf("reminder must be an hour or off")
				}
				n = parsed
			}
			out.ReminderHour = &n
		case "level":
			level := strings.ToLower(value)
			out.Level = &level
		default:
			return progress.Settings{}, fmt.Errorf("unknown setting %q", key)
		}
	}
	return out, nil
}

func HandleSettingsCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleSettingsCallback")
		return
	}
	answerCallback := callbackAnswerer(ctx, b, update.CallbackQuery.ID)
	defer answerCallback("")

	action, err := ui.ParseCallbackData(update.CallbackQuery.Data)
	if err != nil {
		logger.Warn("failed to parse settings callback", "data", update.CallbackQuery.Data, "error", err)
		answerCallback("Unknown command")
		return
	}
	msg, ok := callbackMessage(update)
	if !ok {
		logger.Error("callback query message is inaccessible", "user_id", update.CallbackQuery.From.ID)
		answerCallback("Message is not available")
		return
	}

	userID := update.CallbackQuery.From.ID
	profile, err := progress.LoadProfile(userID)
	if err != nil {
		logger.Error("failed to load user settings", "user_id", userID, "error", err)
		answerCallback("Failed to load settings")
		return
	}
	current := UserSettings{
		TimezoneOffsetHours: profile.TimezoneOffsetHours,
		ReminderHour:        profile.ReminderHour,
		Level:               profile.Level,
	}

	next, nextScreen, changed, err := ApplyAction(current, action)
	if err != nil {
		if errors.Is(err, ErrBelowMin) || errors.Is(err, ErrAboveMax) {
			min, max, ok := boundsForScreen(action.Screen)
			switch {
			case !ok:
				answerCallback("Unknown command")
			case errors.Is(err, ErrBelowMin):
				answerCallback(fmt.Sprintf("Minimum is %d", min))
			default:
				answerCallback(fmt.Sprintf("Maximum is %d", max))
			}
			return
		}
		logger.Error("failed to apply settings action", "user_id", userID, "error", err)
		answerCallback("Unknown command")
		return
	}

	if changed {
		if _, err := progress.UpdateSettings(ctx, userID, next.update()); err != nil {
			logger.Error("failed to save user settings", "user_id", userID, "error", err)
			answerCallback("Failed to save settings")
			return
		}
	}
	answerCallback("")

	if !changed && action.Op == ui.OpSet {
		return
	}

	var text string
	var keyboard *models.InlineKeyboardMarkup
	switch nextScreen {
	case ui.ScreenHome:
		text, keyboard, err = ui.RenderHome(next.TimezoneOffsetHours, next.ReminderHour, next.Level)
	case ui.ScreenReminder:
		text, keyboard, err = ui.RenderReminder(next.ReminderHour)
	case ui.ScreenTimezone:
		text, keyboard, err = ui.RenderTimezone(next.TimezoneOffsetHours)
	case ui.ScreenClose:
		text = "Settings saved ✅"
		keyboard = emptyKeyboard()
	default:
		logger.Error("unknown settings screen", "screen", nextScreen)
		return
	}
	if err != nil {
		logger.Error("failed to render settings screen", "user_id", userID, "error", err)
		return
	}

	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.Error("failed to edit settings message", "user_id", userID, "error", err)
	}
}

// ApplyAction returns the settings after a button press and the screen to
// show next. The boolean reports whether anything needs saving.
func ApplyAction(settings UserSettings, action ui.Action) (UserSettings, ui.Screen, bool, error) {
	switch action.Screen {
	case ui.ScreenHome:
		if action.Op != ui.OpNone {
			return settings, ui.ScreenHome, false, ErrInvalidAction
		}
		return settings, ui.ScreenHome, false, nil
	case ui.ScreenClose:
		if action.Op != ui.OpNone {
			return settings, ui.ScreenClose, false, ErrInvalidAction
		}
		return settings, ui.ScreenClose, false, nil
	case ui.ScreenLevel:
		if action.Op != ui.OpToggle {
			return settings, ui.ScreenHome, false, ErrInvalidAction
		}
		newSettings := settings
		newSettings.Level = session.LevelOrdinary
		if settings.Level == session.LevelOrdinary {
			newSettings.Level = session.LevelHigher
		}
		return newSettings, ui.ScreenHome, true, nil
	case ui.ScreenReminder:
		next, changed, err := applyValue(settings.ReminderHour, action, progress.ReminderDisabled, 23)
		if err != nil {
			return settings, ui.ScreenReminder, false, err
		}
		newSettings := settings
		newSettings.ReminderHour = next
		return newSettings, ui.ScreenReminder, changed, nil
	case ui.ScreenTimezone:
		next, changed, err := applyValue(settings.TimezoneOffsetHours, action, progress.MinTimezoneOffset, progress.MaxTimezoneOffset)
		if err != nil {
			return settings, ui.ScreenTimezone, false, err
		}
		newSettings := settings
		newSettings.TimezoneOffsetHours = next
		return newSettings, ui.ScreenTimezone, changed, nil
	default:
		return settings, ui.ScreenHome, false, ErrInvalidAction
	}
}

func applyValue(current int, action ui.Action, min, max int) (int, bool, error) {
	switch action.Op {
	case ui.OpNone:
		return current, false, nil
	case ui.OpInc:
		return clampValue(current, current+1, min, max)
	case ui.OpDec:
		return clampValue(current, current-1, min, max)
	case ui.OpSet:
		return clampValue(current, action.Value, min, max)
	default:
		return current, false, ErrInvalidAction
	}
}

func clampValue(current, next, min, max int) (int, bool, error) {
	if next < min {
		return current, false, ErrBelowMin
	}
	if next > max {
		return current, false, ErrAboveMax
	}
	if next == current {
		return current, false, nil
	}
	return next, true, nil
}

func boundsForScreen(screen ui.Screen) (int, int, bool) {
	switch screen {
	case ui.ScreenReminder:
		return progress.ReminderDisabled, 23, true
	case ui.ScreenTimezone:
		return progress.MinTimezoneOffset, progress.MaxTimezoneOffset, true
	default:
		return 0, 0, false
	}
}

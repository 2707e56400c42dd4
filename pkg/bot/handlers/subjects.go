package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/bot/onboarding"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/session"
)

// HandleSubjects shows the picker, or replaces the subject list with a
// comma-separated one. Lists longer than progress.MaxSubjects are cut.
func HandleSubjects(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleSubjects")
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

	_, args := splitCommand(update.Message.Text)
	if args == "" {
		sendSubjectPicker(ctx, b, chatID, progress.Subjects(profile), profile.Level)
		return
	}

	subjects, err := progress.SetSubjects(ctx, userID, strings.Split(args, ","))
	if err != nil {
		logger.Error("failed to save subjects", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to save your subjects. Please try again later.")
		return
	}
	sendText(ctx, b, chatID, onboarding.RenderSummary(subjects, profile.Level))
}

func HandleOnboardingCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleOnboardingCallback")
		return
	}
	answerCallback := callbackAnswerer(ctx, b, update.CallbackQuery.ID)
	defer answerCallback("")

	action, err := onboarding.ParseCallbackData(update.CallbackQuery.Data)
	if err != nil {
		logger.Warn("failed to parse onboarding callback", "data", update.CallbackQuery.Data, "error", err)
		answerCallback("Unknown command")
		return
	}
	msg, ok := callbackMessage(update)
	if !ok {
		answerCallback("Message is not available")
		return
	}

	userID := update.CallbackQuery.From.ID
	profile, err := progress.LoadProfile(userID)
	if err != nil {
		logger.Error("failed to load profile", "user_id", userID, "error", err)
		answerCallback("Send /start first")
		return
	}
	subjects := progress.Subjects(profile)
	level := profile.Level

	switch action.Kind {
	case onboarding.ActionToggleSubject:
		subjects, err = progress.ToggleSubject(ctx, userID, action.Code)
		if errors.Is(err, progress.ErrInvalidSettings) {
			answerCallback(fmt.Sprintf("You can pick up to %d subjects", progress.MaxSubjects))
			return
		}
	case onboarding.ActionToggleLevel:
		level = session.LevelOrdinary
		if profile.Level == session.LevelOrdinary {
			level = session.LevelHigher
		}
		_, err = progress.UpdateSettings(ctx, userID, progress.Settings{Level: &level})
	case onboarding.ActionDone:
		if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      msg.Chat.ID,
			MessageID:   msg.ID,
			Text:        onboarding.RenderSummary(subjects, level),
			ReplyMarkup: emptyKeyboard(),
		}); err != nil {
			logger.Error("failed to close subject picker", "user_id", userID, "error", err)
		}
		return
	}
	if err != nil {
		logger.Error("failed to update profile from picker", "user_id", userID, "error", err)
		answerCallback("Failed to save")
		return
	}

	text, keyboard := onboarding.RenderSubjectPicker(subjects, level)
	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.Error("failed to edit subject picker", "user_id", userID, "error", err)
	}
}

// replyProfileError covers users who have not run /start yet.
func replyProfileError(ctx context.Context, b *bot.Bot, chatID, userID int64, err error) {
	if errors.Is(err, progress.ErrNotRegistered) {
		sendText(ctx, b, chatID, "Send /start to set up your account first.")
		return
	}
	logger.Error("failed to load profile", "user_id", userID, "error", err)
	sendText(ctx, b, chatID, "Failed to load your profile. Please try again later.")
}

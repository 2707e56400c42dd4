package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/bot/onboarding"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
)

const helpText = "Commands:\n" +
	"/subjects pick the subjects you study\n" +
	"/session <subject> start a guided study session\n" +
	"/review [subject] go through due flashcards\n" +
	"/addcard subject | front | back add a flashcard\n" +
	"/stats see your study time and streak\n" +
	"/deadline YYYY-MM-DD subject | title track an exam or assignment\n" +
	"/deadlines list upcoming deadlines\n" +
	"/ask <question> ask the tutor\n" +
	"/settings reminder time, timezone and level\n" +
	"/export download your flashcards\n\n" +
	"Send a CSV file with subject,front,back columns to import flashcards. " +
	"Put a subject in the caption to import front,back files."

func HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleStart")
		return
	}
	beginCommand(update)

	userID := update.Message.From.ID
	profile, created, err := progress.EnsureProfile(userID, update.Message.From.FirstName)
	if err != nil {
		logger.Error("failed to create profile", "user_id", userID, "error", err)
		sendText(ctx, b, update.Message.Chat.ID, "Failed to set up your account. Please try again later.")
		return
	}

	subjects := progress.Subjects(profile)
	if !created && len(subjects) > 0 {
		sendText(ctx, b, update.Message.Chat.ID, fmt.Sprintf("Welcome back!\n%s\n\n%s", onboarding.RenderSummary(subjects, profile.Level), helpText))
		return
	}

	sendText(ctx, b, update.Message.Chat.ID, "Welcome to 625Tutor! I help you plan study sessions, review flashcards and keep your streak going.")
	sendSubjectPicker(ctx, b, update.Message.Chat.ID, subjects, profile.Level)
}

func HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleHelp")
		return
	}
	beginCommand(update)
	sendText(ctx, b, update.Message.Chat.ID, helpText)
}

func sendSubjectPicker(ctx context.Context, b *bot.Bot, chatID int64, subjects []string, level string) {
	text, keyboard := onboarding.RenderSubjectPicker(subjects, level)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.Error("failed to send subject picker", "chat_id", chatID, "error", err)
	}
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/ai"
	"github.com/smith3v/tutor625/pkg/bot/pending"
	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
)

// HandleAsk forwards a question to the tutor. Without a question it waits
// for one in the next message.
func HandleAsk(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleAsk")
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

	_, question := splitCommand(update.Message.Text)
	if question == "" {
		pending.DefaultManager.Start(userID, pending.Prompt{Kind: pending.KindAsk, ChatID: chatID}, pending.DefaultTimeout)
		sendText(ctx, b, chatID, fmt.Sprintf("What is your question? Send it within %d minutes.", int(pending.DefaultTimeout.Minutes())))
		return
	}
	answerQuestion(ctx, b, chatID, profile, question)
}

func answerQuestion(ctx context.Context, b *bot.Bot, chatID int64, profile db.UserProfile, question string) {
	if _, err := b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	}); err != nil {
		logger.Debug("failed to send typing action", "chat_id", chatID, "error", err)
	}

	resp, err := asker.Ask(ctx, ai.Request{
		Prompt:  question,
		Context: studentContext(profile),
	})
	switch {
	case err == nil:
		sendText(ctx, b, chatID, resp.Response)
	case errors.Is(err, ai.ErrDisabled):
		sendText(ctx, b, chatID, "The tutor is not available on this bot.")
	case errors.Is(err, ai.ErrInvalidRequest):
		sendText(ctx, b, chatID, "Please keep your question under 4000 characters.")
	default:
		logger.Error("ai request failed", "user_id", profile.UserID, "error", err)
		sendText(ctx, b, chatID, "The tutor could not answer right now. Please try again later.")
	}
}

func studentContext(profile db.UserProfile) string {
	parts := []string{fmt.Sprintf("Student level: %s.", profile.Level)}
	if subjects := progress.Subjects(profile); len(subjects) > 0 {
		parts = append(parts, fmt.Sprintf("Subjects: %s.", strings.Join(subjects, ", ")))
	}
	return strings.Join(parts, " ")
}

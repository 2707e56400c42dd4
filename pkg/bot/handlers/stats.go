package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/srs"
	"github.com/smith3v/tutor625/pkg/ui"
)

func HandleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleStats")
		return
	}
	beginCommand(update)

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	now := nowFunc()
	stats, err := progress.LoadStats(userID, now)
	if err != nil {
		replyProfileError(ctx, b, chatID, userID, err)
		return
	}
	due, err := srs.DueSummary(userID, now)
	if err != nil {
		logger.Error("failed to count due cards", "user_id", userID, "error", err)
	}
	sendText(ctx, b, chatID, ui.RenderStats(stats, due))
}

package handlers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/bot/importexport"
	"github.com/smith3v/tutor625/pkg/logger"
)

func HandleExport(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleExport")
		return
	}
	beginCommand(update)
	if update.Message.Chat.Type != models.ChatTypePrivate {
		sendText(ctx, b, update.Message.Chat.ID, "The /export command works only in private chat.")
		return
	}

	userID := update.Message.From.ID
	cards, err := importexport.LoadCardsForExport(userID)
	if err != nil {
		logger.Error("failed to fetch flashcards for export", "user_id", userID, "error", err)
		sendText(ctx, b, update.Message.Chat.ID, "Failed to export your flashcards. Please try again later.")
		return
	}
	if len(cards) == 0 {
		sendText(ctx, b, update.Message.Chat.ID, "You have no flashcards to export.")
		return
	}

	data, err := importexport.BuildExportCSV(cards)
	if err != nil {
		logger.Error("failed to build export CSV", "user_id", userID, "error", err)
		sendText(ctx, b, update.Message.Chat.ID, "Failed to export your flashcards. Please try again later.")
		return
	}

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: update.Message.Chat.ID,
		Document: &models.InputFileUpload{
			Filename: importexport.ExportFilename(nowFunc()),
			Data:     bytes.NewReader(data),
		},
		Caption: fmt.Sprintf("Your flashcards (%d cards).", len(cards)),
	})
	if err != nil {
		logger.Error("failed to send export document", "user_id", userID, "error", err)
		sendText(ctx, b, update.Message.Chat.ID, "Failed to export your flashcards. Please try again later.")
	}
}

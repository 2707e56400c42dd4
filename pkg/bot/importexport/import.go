package importexport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/config"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
)

// maxUploadBytes caps how much of an uploaded file is read.
const maxUploadBytes = 2 << 20

// HandleDocumentImport imports flashcards from an uploaded CSV. The document
// caption, if any, is the subject for two-column rows.
func HandleDocumentImport(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Document == nil || update.Message.From == nil {
		logger.Error("invalid update in HandleDocumentImport")
		return
	}
	if update.Message.Chat.ID == 0 {
		logger.Error("chat ID is zero in HandleDocumentImport")
		return
	}

	doc := update.Message.Document
	userID := update.Message.From.ID
	logger.Info("Uploading file", "file_name", doc.FileName, "user_id", userID)

	if _, err := progress.LoadProfile(userID); err != nil {
		reply(ctx, b, update.Message.Chat.ID, "Send /start first, then upload your flashcards again.")
		return
	}

	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".csv") {
		reply(ctx, b, update.Message.Chat.ID, "The uploaded file is not a CSV. Please upload a valid CSV file.")
		return
	}

	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: doc.FileID})
	if err != nil {
		logger.Error("failed to get file", "error", err)
		reply(ctx, b, update.Message.Chat.ID, "Failed to download the file. Please try again.")
		return
	}

	data, err := download(ctx, file.FilePath)
	if err != nil {
		logger.Error("failed to download CSV file", "error", err)
		reply(ctx, b, update.Message.Chat.ID, "Failed to read the CSV file. Please try again.")
		return
	}

	cards, skipped, err := ParseFlashcardCSV(data, update.Message.Caption)
	if err != nil {
		logger.Error("failed to parse CSV file", "error", err)
		reply(ctx, b, update.Message.Chat.ID, "Failed to read the CSV file. Please ensure it has subject, front and back columns.")
		return
	}
	if len(cards) == 0 {
		reply(ctx, b, update.Message.Chat.ID, "No valid flashcards found to import.")
		return
	}

	inserted, updated, err := UpsertFlashcards(userID, cards, time.Now().UTC())
	if err != nil {
		logger.Error("failed to import flashcards", "user_id", userID, "error", err)
		reply(ctx, b, update.Message.Chat.ID, "Failed to import your flashcards. Please try again later.")
		return
	}

	logger.Info("flashcards imported", "user_id", userID, "inserted", inserted, "updated", updated, "skipped", skipped)
	reply(ctx, b, update.Message.Chat.ID, fmt.Sprintf("Imported %d new cards, updated %d cards, skipped %d rows.", inserted, updated, skipped))
}

func download(ctx context.Context, filePath string) ([]byte, error) {
	fileURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", config.AppConfig.Telegram.Token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
}

func reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		logger.Error("failed to send import reply", "chat_id", chatID, "error", err)
	}
}

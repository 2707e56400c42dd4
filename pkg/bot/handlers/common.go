package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/ai"
	"github.com/smith3v/tutor625/pkg/bot/pending"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/session"
)

var (
	sessions *session.Manager
	asker    ai.Asker = ai.Disabled{}
	nowFunc           = func() time.Time { return time.Now().UTC() }
)

// Setup wires the long-lived services the handlers share. A nil asker
// disables /ask.
func Setup(m *session.Manager, a ai.Asker) {
	sessions = m
	if a == nil {
		a = ai.Disabled{}
	}
	asker = a
}

// splitCommand returns the command without a bot mention and the rest of
// the text.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	command, args, _ := strings.Cut(text, " ")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(args)
}

func validMessage(update *models.Update) bool {
	return update != nil && update.Message != nil && update.Message.From != nil && update.Message.Chat.ID != 0
}

// beginCommand drops any question the bot was waiting on; a new command
// means the user moved on.
func beginCommand(update *models.Update) {
	pending.DefaultManager.Cancel(update.Message.From.ID)
}

func sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// callbackMessage returns the message a button was pressed on.
func callbackMessage(update *models.Update) (*models.Message, bool) {
	message := update.CallbackQuery.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil {
		return nil, false
	}
	if message.Message.Chat.ID == 0 {
		return nil, false
	}
	return message.Message, true
}

// callbackAnswerer answers a callback query at most once.
func callbackAnswerer(ctx context.Context, b *bot.Bot, callbackID string) func(string) {
	answered := false
	return func(text string) {
		if answered || callbackID == "" {
			return
		}
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callbackID,
			Text:            text,
		}); err != nil {
			logger.Error("failed to answer callback query", "error", err)
		}
		answered = true
	}
}

func emptyKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}}
}

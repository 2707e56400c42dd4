package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/bot/pending"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/srs"
)

const addCardUsage = "Usage: /addcard subject | front | back\nOr send /addcard subject and then the card as front | back."

// HandleAddCard creates a flashcard. With only a subject it waits for the
// card in the next message.
func HandleAddCard(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleAddCard")
		return
	}
	beginCommand(update)

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	if _, err := progress.LoadProfile(userID); err != nil {
		replyProfileError(ctx, b, chatID, userID, err)
		return
	}

	_, args := splitCommand(update.Message.Text)
	parts := strings.Split(args, "|")
	switch {
	case len(parts) == 3:
		addCard(ctx, b, chatID, userID, srs.CardInput{Subject: parts[0], Front: parts[1], Back: parts[2]})
	case len(parts) == 1 && strings.TrimSpace(parts[0]) != "":
		pending.DefaultManager.Start(userID, pending.Prompt{
			Kind:    pending.KindAddCard,
			ChatID:  chatID,
			Subject: strings.TrimSpace(parts[0]),
		}, pending.DefaultTimeout)
		sendText(ctx, b, chatID, fmt.Sprintf("Send the %s card as: front | back", strings.TrimSpace(parts[0])))
	default:
		sendText(ctx, b, chatID, addCardUsage)
	}
}

// completeAddCard handles the message that follows /addcard subject.
func completeAddCard(ctx context.Context, b *bot.Bot, update *models.Update, prompt pending.Prompt) {
	front, back, ok := strings.Cut(update.Message.Text, "|")
	if !ok {
		sendText(ctx, b, update.Message.Chat.ID, addCardUsage)
		return
	}
	addCard(ctx, b, update.Message.Chat.ID, update.Message.From.ID, srs.CardInput{Subject: prompt.Subject, Front: front, Back: back})
}

func addCard(ctx context.Context, b *bot.Bot, chatID, userID int64, in srs.CardInput) {
	card, err := srs.CreateCard(userID, in, nowFunc())
	if err != nil {
		if errors.Is(err, srs.ErrInvalidCard) {
			sendText(ctx, b, chatID, "A card needs a subject, a front and a back.\n"+addCardUsage)
			return
		}
		logger.Error("failed to create flashcard", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to save the card. Please try again later.")
		return
	}
	logger.Debug("flashcard created", "user_id", userID, "card_id", card.ID, "subject", card.Subject)
	sendText(ctx, b, chatID, fmt.Sprintf("Added to %s: %s", card.Subject, card.Front))
}

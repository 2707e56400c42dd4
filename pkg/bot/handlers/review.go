package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/srs"
	"github.com/smith3v/tutor625/pkg/ui"
)

// HandleReview shows the most overdue card, optionally limited to one
// subject.
func HandleReview(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleReview")
		return
	}
	beginCommand(update)

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	if _, err := progress.LoadProfile(userID); err != nil {
		replyProfileError(ctx, b, chatID, userID, err)
		return
	}

	_, subject := splitCommand(update.Message.Text)
	sent, err := sendNextCard(ctx, b, chatID, userID, subject)
	if err != nil {
		logger.Error("failed to load due cards", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Failed to start review. Please try again later.")
		return
	}
	if !sent {
		sendText(ctx, b, chatID, "Nothing to review right now. Add cards with /addcard or upload a CSV.")
	}
}

// sendNextCard reports false when nothing is due.
func sendNextCard(ctx context.Context, b *bot.Bot, chatID, userID int64, subject string) (bool, error) {
	now := nowFunc()
	card, err := srs.NextDueCard(userID, subject, now)
	if err != nil {
		return false, err
	}
	if card == nil {
		return false, nil
	}
	remaining, err := srs.CountDue(userID, subject, now)
	if err != nil {
		return false, err
	}

	text, keyboard, err := ui.RenderCardFront(*card, int(remaining))
	if err != nil {
		return false, err
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.Error("failed to send flashcard", "user_id", userID, "card_id", card.ID, "error", err)
	}
	return true, nil
}

func HandleReviewCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleReviewCallback")
		return
	}
	answerCallback := callbackAnswerer(ctx, b, update.CallbackQuery.ID)
	defer answerCallback("")

	action, err := ui.ParseReviewCallback(update.CallbackQuery.Data)
	if err != nil {
		logger.Warn("failed to parse review callback", "data", update.CallbackQuery.Data, "error", err)
		answerCallback("Unknown command")
		return
	}
	msg, ok := callbackMessage(update)
	if !ok {
		answerCallback("Message is not available")
		return
	}
	userID := update.CallbackQuery.From.ID

	if action.Reveal {
		card, err := srs.LoadCard(userID, action.CardID)
		if err != nil {
			reviewCardError(answerCallback, userID, err)
			return
		}
		text, keyboard, err := ui.RenderCardBack(card)
		if err != nil {
			logger.Error("failed to render card back", "card_id", card.ID, "error", err)
			return
		}
		if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      msg.Chat.ID,
			MessageID:   msg.ID,
			Text:        text,
			ReplyMarkup: keyboard,
		}); err != nil {
			logger.Error("failed to reveal card", "card_id", card.ID, "error", err)
		}
		return
	}

	rating, err := srs.ParseRating(action.Rating)
	if err != nil {
		answerCallback("Unknown command")
		return
	}
	card, err := srs.RateCard(userID, action.CardID, rating, nowFunc())
	if err != nil {
		reviewCardError(answerCallback, userID, err)
		return
	}
	logger.Debug("card rated", "user_id", userID, "card_id", card.ID, "rating", int(rating), "interval", card.Interval)
	answerCallback(rating.Label())

	text := fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s. Next review %s.", card.Subject, card.Front, card.Back, rating.Label(), ui.FormatNextReview(card.Interval))
	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ReplyMarkup: emptyKeyboard(),
	}); err != nil {
		logger.Error("failed to edit rated card", "card_id", card.ID, "error", err)
	}

	sent, err := sendNextCard(ctx, b, msg.Chat.ID, userID, card.Subject)
	if err != nil {
		logger.Error("failed to load next card", "user_id", userID, "error", err)
		return
	}
	if !sent {
		sendText(ctx, b, msg.Chat.ID, fmt.Sprintf("All caught up in %s 🎉", card.Subject))
	}
}

func reviewCardError(answerCallback func(string), userID int64, err error) {
	if errors.Is(err, srs.ErrCardNotFound) {
		answerCallback("This card no longer exists")
		return
	}
	logger.Error("failed to load flashcard", "user_id", userID, "error", err)
	answerCallback("Failed to load the card")
}

package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/bot/importexport"
	"github.com/smith3v/tutor625/pkg/bot/onboarding"
	"github.com/smith3v/tutor625/pkg/bot/pending"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/ui"
)

// DefaultHandler takes everything no command matched: answers to a pending
// prompt, CSV uploads and anything else, which gets the help text.
func DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		logger.Debug("ignoring non-message update in DefaultHandler")
		return
	}
	if update.Message.Chat.ID == 0 {
		logger.Error("chat ID is zero in DefaultHandler")
		return
	}

	if update.Message.Document != nil {
		importexport.HandleDocumentImport(ctx, b, update)
		return
	}

	if update.Message.From != nil && update.Message.Text != "" && !strings.HasPrefix(update.Message.Text, "/") {
		if prompt, ok := pending.DefaultManager.Consume(update.Message.From.ID, update.Message.Chat.ID); ok {
			handlePromptReply(ctx, b, update, prompt)
			return
		}
	}

	sendText(ctx, b, update.Message.Chat.ID, helpText)
}

func handlePromptReply(ctx context.Context, b *bot.Bot, update *models.Update, prompt pending.Prompt) {
	switch prompt.Kind {
	case pending.KindAddCard:
		completeAddCard(ctx, b, update, prompt)
	case pending.KindAsk:
		profile, err := progress.LoadProfile(update.Message.From.ID)
		if err != nil {
			replyProfileError(ctx, b, update.Message.Chat.ID, update.Message.From.ID, err)
			return
		}
		answerQuestion(ctx, b, update.Message.Chat.ID, profile, strings.TrimSpace(update.Message.Text))
	default:
		logger.Warn("unknown pending prompt", "kind", prompt.Kind)
		sendText(ctx, b, update.Message.Chat.ID, helpText)
	}
}

// Register attaches every command and button handler to the bot.
func Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, HandleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, HandleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, HandleStats)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/export", bot.MatchTypeExact, HandleExport)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/subjects", bot.MatchTypePrefix, HandleSubjects)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/addcard", bot.MatchTypePrefix, HandleAddCard)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/review", bot.MatchTypePrefix, HandleReview)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/session", bot.MatchTypePrefix, HandleSession)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/deadline", bot.MatchTypePrefix, HandleDeadline)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/ask", bot.MatchTypePrefix, HandleAsk)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/settings", bot.MatchTypePrefix, HandleSettings)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.CallbackPrefix, bot.MatchTypePrefix, HandleSettingsCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.SessionCallbackPrefix, bot.MatchTypePrefix, HandleSessionCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.ReviewCallbackPrefix, bot.MatchTypePrefix, HandleReviewCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, onboarding.CallbackPrefix, bot.MatchTypePrefix, HandleOnboardingCallback)
}

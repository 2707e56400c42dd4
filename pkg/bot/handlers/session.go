package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/session"
	"github.com/smith3v/tutor625/pkg/ui"
)

const sessionUsage = "Usage: /session <subject> [overallTime=<seconds>] [exam=LC] [paper=1] [question=3] [year=2023] [type=flashcard|exam] [level=higher|ordinary]\n" +
	"Also: /session resume, /session finish"

// chatNavigator renders a guided session into one chat. Each new screen is
// a new message; refreshes edit the current one in place.
type chatNavigator struct {
	b      *bot.Bot
	chatID int64

	mu        sync.Mutex
	messageID int
}

func newChatNavigator(b *bot.Bot, chatID int64, messageID int) *chatNavigator {
	return &chatNavigator{b: b, chatID: chatID, messageID: messageID}
}

func (n *chatNavigator) Navigate(ctx context.Context, dest session.Destination) error {
	text, keyboard, err := ui.RenderSession(dest)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if dest.Refresh && n.messageID != 0 {
		params := &bot.EditMessageTextParams{
			ChatID:    n.chatID,
			MessageID: n.messageID,
			Text:      text,
		}
		if keyboard != nil {
			params.ReplyMarkup = keyboard
		}
		if _, err := n.b.EditMessageText(ctx, params); err != nil && !isNotModified(err) {
			return err
		}
		return nil
	}

	if n.messageID != 0 {
		// old buttons would act on a screen the session already left
		if _, err := n.b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
			ChatID:      n.chatID,
			MessageID:   n.messageID,
			ReplyMarkup: emptyKeyboard(),
		}); err != nil && !isNotModified(err) {
			logger.Debug("failed to clear previous session keyboard", "chat_id", n.chatID, "error", err)
		}
	}

	params := &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	msg, err := n.b.SendMessage(ctx, params)
	if err != nil {
		return err
	}
	n.messageID = msg.ID
	return nil
}

func (n *chatNavigator) Alert(ctx context.Context, text string) error {
	_, err := n.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	return err
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

// HandleSession starts a guided session, or resumes or finishes the current
// one.
func HandleSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleSession")
		return
	}
	beginCommand(update)
	if sessions == nil {
		logger.Error("session manager is not configured")
		sendText(ctx, b, update.Message.Chat.ID, "Guided sessions are not available right now.")
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	profile, err := progress.LoadProfile(userID)
	if err != nil {
		replyProfileError(ctx, b, chatID, userID, err)
		return
	}

	_, args := splitCommand(update.Message.Text)
	switch strings.ToLower(args) {
	case "resume":
		if c := sessions.Get(chatID, userID); c != nil {
			if err := c.Mount(ctx); err != nil {
				logger.Error("failed to show guided session", "user_id", userID, "error", err)
			}
			return
		}
		c, err := sessions.Resume(ctx, chatID, userID, newChatNavigator(b, chatID, 0))
		if err != nil {
			logger.Error("failed to resume guided session", "user_id", userID, "error", err)
			sendText(ctx, b, chatID, "Failed to resume your session. Please try again later.")
			return
		}
		if c == nil {
			sendText(ctx, b, chatID, "There is no session to resume. Start one with /session <subject>.")
		}
		return
	case "finish":
		c := sessions.Get(chatID, userID)
		if c == nil {
			sendText(ctx, b, chatID, "No session is running.")
			return
		}
		if err := c.Finish(ctx); err != nil {
			logger.Error("failed to finish guided session", "user_id", userID, "error", err)
		}
		return
	}

	params, err := parseSessionArgs(args)
	if err != nil {
		sendText(ctx, b, chatID, fmt.Sprintf("%v\n%s", err, sessionUsage))
		return
	}
	if params.Subject == "" {
		if subjects := progress.Subjects(profile); len(subjects) > 0 {
			params.Subject = subjects[0]
		}
	}
	if params.Level == "" {
		params.Level = profile.Level
	}
	if err := params.Validate(); err != nil {
		logger.Debug("rejected session parameters", "user_id", userID, "error", err)
		sendText(ctx, b, chatID, "Those session settings are not valid.\n"+sessionUsage)
		return
	}

	if _, err := sessions.StartOrRestart(ctx, chatID, userID, params, newChatNavigator(b, chatID, 0)); err != nil {
		logger.Error("failed to start guided session", "user_id", userID, "error", err)
	}
}

// parseSessionArgs reads "<subject words> key=value ...". Keys match the
// parameter names case-insensitively.
func parseSessionArgs(args string) (session.Params, error) {
	var params session.Params
	var subject []string
	for _, field := range strings.Fields(args) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			subject = append(subject, field)
			continue
		}
		switch strings.ToLower(key) {
		case "overalltime", "time":
			seconds, err := strconv.Atoi(value)
			if err != nil {
				return session.Params{}, fmt.Errorf("overallTime must be a number of seconds")
			}
			params.OverallTime = seconds
		case "subject":
			subject = append(subject, value)
		case "level":
			params.Level = strings.ToLower(value)
		case "exam":
			params.Exam = value
		case "paper":
			params.Paper = value
		case "question":
			params.Question = value
		case "year":
			params.Year = value
		case "type":
			params.Type = strings.ToLower(value)
		default:
			return session.Params{}, fmt.Errorf("unknown setting %q", key)
		}
	}
	params.Subject = strings.Join(subject, " ")
	return params, nil
}

func HandleSessionCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleSessionCallback")
		return
	}
	answerCallback := callbackAnswerer(ctx, b, update.CallbackQuery.ID)
	defer answerCallback("")

	action, err := ui.ParseSessionCallback(update.CallbackQuery.Data)
	if err != nil {
		logger.Warn("failed to parse session callback", "data", update.CallbackQuery.Data, "error", err)
		answerCallback("Unknown command")
		return
	}
	msg, ok := callbackMessage(update)
	if !ok {
		answerCallback("Message is not available")
		return
	}
	if sessions == nil {
		answerCallback("This session has ended")
		return
	}

	userID := update.CallbackQuery.From.ID
	c := sessions.Get(msg.Chat.ID, userID)
	if c == nil {
		// Resume mounts the restored screen, which is all this tap gets.
		c, err = sessions.Resume(ctx, msg.Chat.ID, userID, newChatNavigator(b, msg.Chat.ID, msg.ID))
		if err != nil {
			logger.Error("failed to load guided session", "user_id", userID, "error", err)
			answerCallback("Failed to load the session")
			return
		}
		if c == nil || ui.SessionToken(c.ID()) != action.Token {
			answerCallback("This session has ended")
			return
		}
		answerCallback("Session restored")
		return
	}
	if ui.SessionToken(c.ID()) != action.Token {
		answerCallback("This session has ended")
		return
	}

	switch action.Op {
	case ui.SessionNext:
		err = c.Next(ctx)
	case ui.SessionToggle:
		err = c.ToggleView(ctx)
	case ui.SessionPause:
		err = c.Pause(ctx)
	case ui.SessionResume:
		err = c.Resume(ctx)
	case ui.SessionReset:
		err = c.Reset(ctx)
	case ui.SessionFinish:
		err = c.Finish(ctx)
	case ui.SessionCancel:
		if err = c.Cancel(); err == nil {
			if _, editErr := b.EditMessageText(ctx, &bot.EditMessageTextParams{
				ChatID:      msg.Chat.ID,
				MessageID:   msg.ID,
				Text:        "Session cancelled. Start a new one with /session.",
				ReplyMarkup: emptyKeyboard(),
			}); editErr != nil {
				logger.Error("failed to edit cancelled session", "user_id", userID, "error", editErr)
			}
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionClosed):
		answerCallback("This session has ended")
	case errors.Is(err, session.ErrNoToggle):
		answerCallback("Nothing to switch to")
	case errors.Is(err, session.ErrNotCancelable):
		answerCallback("The session has started. Use Finish instead.")
	default:
		logger.Error("guided session action failed", "user_id", userID, "op", action.Op, "error", err)
		answerCallback("Something went wrong")
	}
}

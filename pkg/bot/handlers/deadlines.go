package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/ui"
)

const (
	deadlineUsage    = "Usage: /deadline YYYY-MM-DD subject | title\nList them with /deadlines, remove one with /deadline del <id>."
	deadlinesListed  = 20
	deadlineDayShape = "2006-01-02"
)

// HandleDeadline serves /deadline and /deadlines.
func HandleDeadline(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleDeadline")
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

	command, args := splitCommand(update.Message.Text)
	now := nowFunc()

	switch {
	case command == "/deadlines" || (command == "/deadline" && args == ""):
		deadlines, err := progress.UpcomingDeadlines(userID, now, profile.TimezoneOffsetHours, deadlinesListed)
		if err != nil {
			logger.Error("failed to list deadlines", "user_id", userID, "error", err)
			sendText(ctx, b, chatID, "Failed to load your deadlines. Please try again later.")
			return
		}
		sendText(ctx, b, chatID, ui.RenderDeadlines(deadlines, now, profile.TimezoneOffsetHours))
	case command != "/deadline":
		sendText(ctx, b, chatID, deadlineUsage)
	case strings.HasPrefix(strings.ToLower(args), "del "):
		id, err := strconv.ParseUint(strings.TrimSpace(args[4:]), 10, 64)
		if err != nil {
			sendText(ctx, b, chatID, deadlineUsage)
			return
		}
		if err := progress.DeleteDeadline(userID, uint(id)); err != nil {
			if errors.Is(err, progress.ErrDeadlineNotFound) {
				sendText(ctx, b, chatID, fmt.Sprintf("There is no deadline #%d.", id))
				return
			}
			logger.Error("failed to delete deadline", "user_id", userID, "error", err)
			sendText(ctx, b, chatID, "Failed to remove the deadline. Please try again later.")
			return
		}
		sendText(ctx, b, chatID, fmt.Sprintf("Deadline #%d removed.", id))
	default:
		in, err := parseDeadline(args)
		if err != nil {
			sendText(ctx, b, chatID, deadlineUsage)
			return
		}
		deadline, err := progress.AddDeadline(userID, in, now, profile.TimezoneOffsetHours)
		if err != nil {
			if errors.Is(err, progress.ErrInvalidDeadline) {
				sendText(ctx, b, chatID, "That deadline is in the past or missing a title.\n"+deadlineUsage)
				return
			}
			logger.Error("failed to add deadline", "user_id", userID, "error", err)
			sendText(ctx, b, chatID, "Failed to save the deadline. Please try again later.")
			return
		}
		days := progress.DaysUntil(deadline, now, profile.TimezoneOffsetHours)
		sendText(ctx, b, chatID, fmt.Sprintf("Saved #%d: %s", deadline.ID, ui.FormatDeadline(deadline, days)))
	}
}

// parseDeadline reads "YYYY-MM-DD subject | title" or "YYYY-MM-DD title".
func parseDeadline(args string) (progress.DeadlineInput, error) {
	day, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	dueAt, err := time.Parse(deadlineDayShape, day)
	if err != nil {
		return progress.DeadlineInput{}, err
	}
	in := progress.DeadlineInput{DueAt: dueAt, Title: rest}
	if subject, title, ok := strings.Cut(rest, "|"); ok {
		in.Subject = strings.TrimSpace(subject)
		in.Title = strings.TrimSpace(title)
	}
	return in, nil
}

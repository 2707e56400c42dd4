package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/srs"
	"github.com/smith3v/tutor625/pkg/ui"
)

const (
	// DeadlineHorizonDays limits which deadlines a reminder mentions.
	DeadlineHorizonDays = 7
	maxDeadlinesListed  = 5
)

func StartPeriodicMessages(ctx context.Context, b *bot.Bot) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			processReminders(ctx, b, now.UTC())
		}
	}
}

func processReminders(ctx context.Context, b *bot.Bot, now time.Time) {
	var profiles []db.UserProfile
	if err := db.DB.Where("reminder_hour >= 0").Find(&profiles).Error; err != nil {
		logger.Error("failed to fetch users for reminders", "error", err)
		return
	}

	for _, profile := range profiles {
		if ctx.Err() != nil {
			return
		}
		handleUserReminder(ctx, b, profile, now)
	}
}

func handleUserReminder(ctx context.Context, b *bot.Bot, profile db.UserProfile, now time.Time) {
	if _, ok := dueSlot(now, profile); !ok {
		return
	}

	text, err := buildReminder(profile, now)
	if err != nil {
		logger.Error("failed to build reminder", "user_id", profile.UserID, "error", err)
		return
	}
	if text != "" {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: profile.UserID,
			Text:   text,
		}); err != nil {
			logger.Error("failed to send reminder", "user_id", profile.UserID, "error", err)
			return
		}
	} else {
		logger.Debug("nothing to remind", "user_id", profile.UserID)
	}

	if err := progress.MarkReminderSent(ctx, profile.UserID, now); err != nil {
		logger.Error("failed to update reminder state", "user_id", profile.UserID, "error", err)
	}
}

// dueSlot returns today's reminder time in UTC when it has passed and no
// reminder went out since.
func dueSlot(now time.Time, profile db.UserProfile) (time.Time, bool) {
	if profile.ReminderHour < 0 || profile.ReminderHour > 23 {
		return time.Time{}, false
	}
	offset := time.Duration(profile.TimezoneOffsetHours) * time.Hour
	localNow := now.Add(offset)
	year, month, day := localNow.Date()

	slot := time.Date(year, month, day, profile.ReminderHour, 0, 0, 0, time.UTC).Add(-offset)
	if now.Before(slot) {
		return time.Time{}, false
	}
	if profile.LastReminderSentAt != nil && !profile.LastReminderSentAt.Before(slot) {
		return time.Time{}, false
	}
	return slot, true
}

// buildReminder summarizes due cards and close deadlines. It returns an
// empty string when there is nothing to say.
func buildReminder(profile db.UserProfile, now time.Time) (string, error) {
	due, err := srs.DueSummary(profile.UserID, now)
	if err != nil {
		return "", err
	}
	deadlines, err := progress.UpcomingDeadlines(profile.UserID, now, profile.TimezoneOffsetHours, maxDeadlinesListed)
	if err != nil {
		return "", err
	}

	var lines []string
	var total int64
	for _, d := range due {
		total += d.Due
	}
	if total > 0 {
		parts := make([]string, 0, len(due))
		for _, d := range due {
			parts = append(parts, fmt.Sprintf("%s %d", d.Subject, d.Due))
		}
		lines = append(lines, fmt.Sprintf("📚 %d flashcards are due (%s). Send /review to start.", total, strings.Join(parts, ", ")))
	}

	for _, d := range deadlines {
		days := progress.DaysUntil(d, now, profile.TimezoneOffsetHours)
		if days > DeadlineHorizonDays {
			break
		}
		lines = append(lines, "⏰ "+ui.FormatDeadline(d, days))
	}

	if len(lines) == 0 {
		return "", nil
	}
	if streak := progress.CurrentStreak(profile, now); streak > 0 {
		lines = append(lines, fmt.Sprintf("🔥 Keep your %d-day streak going.", streak))
	}
	return strings.Join(lines, "\n"), nil
}

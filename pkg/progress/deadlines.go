package progress

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/tutor625/pkg/db"
)

var (
	ErrInvalidDeadline  = errors.New("invalid deadline")
	ErrDeadlineNotFound = errors.New("deadline not found")
)

type DeadlineInput struct {
	Subject string    `validate:"max=64"`
	Title   string    `validate:"required,max=256"`
	DueAt   time.Time `validate:"required"`
}

// AddDeadline stores a deadline. Dates before the user's current local day
// are rejected.
func AddDeadline(userID int64, in DeadlineInput, now time.Time, offsetHours int) (db.Deadline, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.Struct(in); err != nil {
		return db.Deadline{}, fmt.Errorf("%w: %v", ErrInvalidDeadline, err)
	}
	if LocalDay(in.DueAt, 0) < LocalDay(now, offsetHours) {
		return db.Deadline{}, fmt.Errorf("%w: %s is in the past", ErrInvalidDeadline, in.DueAt.Format(dayLayout))
	}

	deadline := db.Deadline{
		UserID:  userID,
		Subject: in.Subject,
		Title:   in.Title,
		DueAt:   in.DueAt.UTC(),
	}
	if err := db.DB.Create(&deadline).Error; err != nil {
		return db.Deadline{}, err
	}
	return deadline, nil
}

// UpcomingDeadlines lists deadlines due on or after the user's current local
// day, soonest first.
func UpcomingDeadlines(userID int64, now time.Time, offsetHours, limit int) ([]db.Deadline, error) {
	from := localMidnight(now, offsetHours)
	query := db.DB.Where("user_id = ? AND due_at >= ?", userID, from).Order("due_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var deadlines []db.Deadline
	if err := query.Find(&deadlines).Error; err != nil {
		return nil, err
	}
	return deadlines, nil
}

func DeleteDeadline(userID int64, id uint) error {
	res := db.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&db.Deadline{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDeadlineNotFound
	}
	return nil
}

// DaysUntil counts whole local days from now to the deadline's date.
func DaysUntil(d db.Deadline, now time.Time, offsetHours int) int {
	due := time.Date(d.DueAt.Year(), d.DueAt.Month(), d.DueAt.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(localMidnight(now, offsetHours)) / (24 * time.Hour))
}

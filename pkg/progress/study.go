package progress

import (
	"context"
	"time"

	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dayLayout = "2006-01-02"

// Store records guided session checkpoints against the user's profile.
type Store struct {
	MaxRetries int
	now        func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{MaxRetries: DefaultMaxRetries, now: now}
}

var _ session.Store = (*Store)(nil)

func (s *Store) RecordCheckpoint(ctx context.Context, cp session.Checkpoint) error {
	minutes := cp.Minutes
	if minutes < 0 {
		minutes = 0
	}
	if minutes == 0 && !cp.Finished {
		return nil
	}
	at := cp.At
	if at.IsZero() {
		at = s.now()
	}

	profile, err := updateProfileTx(ctx, cp.UserID, s.MaxRetries, func(p *db.UserProfile) error {
		applyStudy(p, minutes, cp.Finished, at)
		return nil
	}, func(tx *gorm.DB) error {
		if minutes == 0 || cp.Subject == "" {
			return nil
		}
		return addSubjectMinutes(tx, cp.UserID, cp.Subject, minutes, at)
	})
	if err != nil {
		return err
	}
	logger.Debug("recorded study checkpoint",
		"user_id", cp.UserID,
		"session_id", cp.SessionID,
		"minutes", minutes,
		"finished", cp.Finished,
		"streak", profile.StudyStreak,
	)
	return nil
}

func applyStudy(p *db.UserProfile, minutes int, finished bool, at time.Time) {
	today := LocalDay(at, p.TimezoneOffsetHours)
	if p.StudyTodayDate == today {
		p.StudyTimeTodayMinutes += minutes
	} else {
		p.StudyTodayDate = today
		p.StudyTimeTodayMinutes = minutes
	}
	p.TotalStudyMinutes += minutes

	if finished {
		p.StudyStreak = NextStreak(p.StudyStreak, p.LastStudiedAt, at, p.TimezoneOffsetHours)
		studied := at
		p.LastStudiedAt = &studied
	}
}

// addSubjectMinutes increments the per-subject counter in a single statement.
func addSubjectMinutes(tx *gorm.DB, userID int64, subject string, minutes int, at time.Time) error {
	row := db.SubjectStudyTime{
		UserID:    userID,
		Subject:   subject,
		Minutes:   minutes,
		UpdatedAt: at,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "subject"}},
		DoUpdates: clause.Assignments(map[string]any{
			"minutes":    gorm.Expr("subject_study_times.minutes + ?", minutes),
			"updated_at": at,
		}),
	}).Create(&row).Error
}

// LocalDay formats the calendar day of t at a fixed UTC offset.
func LocalDay(t time.Time, offsetHours int) string {
	return localMidnight(t, offsetHours).Format(dayLayout)
}

func localMidnight(t time.Time, offsetHours int) time.Time {
	local := t.UTC().Add(time.Duration(offsetHours) * time.Hour)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time, offsetHours int) int {
	return int(localMidnight(to, offsetHours).Sub(localMidnight(from, offsetHours)) / (24 * time.Hour))
}

// NextStreak returns the streak after a session finished at now. Studying
// twice on one day keeps the streak, the next day extends it and a gap
// restarts it.
func NextStreak(streak int, lastStudied *time.Time, now time.Time, offsetHours int) int {
	if lastStudied == nil {
		return 1
	}
	switch days := daysBetween(*lastStudied, now, offsetHours); {
	case days <= 0:
		return max(streak, 1)
	case days == 1:
		return max(streak, 0) + 1
	default:
		return 1
	}
}

// CurrentStreak is the streak as displayed: it drops to zero once a full day
// has been missed.
func CurrentStreak(p db.UserProfile, now time.Time) int {
	if p.LastStudiedAt == nil {
		return 0
	}
	if daysBetween(*p.LastStudiedAt, now, p.TimezoneOffsetHours) > 1 {
		return 0
	}
	return p.StudyStreak
}

// TodayMinutes is the study time for the user's current local day.
func TodayMinutes(p db.UserProfile, now time.Time) int {
	if p.StudyTodayDate != LocalDay(now, p.TimezoneOffsetHours) {
		return 0
	}
	return p.StudyTimeTodayMinutes
}

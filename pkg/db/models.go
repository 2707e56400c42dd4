// pkg/db/models.go
package db

import (
	"time"

	"gorm.io/datatypes"
)

type Flashcard struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       int64     `gorm:"index;index:idx_card_user_due"`
	Subject      string    `gorm:"not null;index:idx_card_user_due"`
	Front        string    `gorm:"not null"`
	Back         string    `gorm:"not null"`
	EaseFactor   float64   `gorm:"not null;default:2.5"`
	Repetitions  int       `gorm:"not null;default:0"`
	Interval     int       `gorm:"column:interval_days;not null;default:0"`
	LastReviewed *time.Time
	NextReview   time.Time `gorm:"not null;index:idx_card_user_due"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserProfile struct {
	ID                    uint           `gorm:"primaryKey"`
	UserID                int64          `gorm:"uniqueIndex"`
	DisplayName           string         `gorm:"not null;default:''"`
	Subjects              datatypes.JSON `gorm:"not null"`
	Level                 string         `gorm:"not null;default:'higher'"`
	TotalStudyMinutes     int            `gorm:"not null;default:0"`
	StudyStreak           int            `gorm:"not null;default:0"`
	StudyTimeTodayMinutes int            `gorm:"not null;default:0"`
	StudyTodayDate        string         `gorm:"not null;default:''"` // YYYY-MM-DD in the user's timezone
	LastStudiedAt         *time.Time
	TimezoneOffsetHours   int `gorm:"not null;default:0"`
	ReminderHour          int `gorm:"not null;default:-1"` // local hour, -1 disables reminders
	LastReminderSentAt    *time.Time
	Version               int `gorm:"not null;default:0"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type SubjectStudyTime struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    int64  `gorm:"uniqueIndex:idx_subject_time_user_subject"`
	Subject   string `gorm:"not null;uniqueIndex:idx_subject_time_user_subject"`
	Minutes   int    `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

type Deadline struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    int64     `gorm:"index:idx_deadline_user_due"`
	Subject   string    `gorm:"not null;default:''"`
	Title     string    `gorm:"not null"`
	DueAt     time.Time `gorm:"not null;index:idx_deadline_user_due"`
	CreatedAt time.Time
}

type GuidedSessionRecord struct {
	ID             uint           `gorm:"primaryKey"`
	SessionID      string         `gorm:"not null;index"`
	ChatID         int64          `gorm:"index;uniqueIndex:idx_guided_session_user_chat"`
	UserID         int64          `gorm:"index;uniqueIndex:idx_guided_session_user_chat"`
	Screen         string         `gorm:"not null"`
	Params         datatypes.JSON `gorm:"not null"`
	SeedSeconds    int            `gorm:"not null;default:0"`
	ElapsedSeconds int            `gorm:"not null;default:0"`
	FlushedMinutes int            `gorm:"not null;default:0"`
	Paused         bool           `gorm:"not null;default:false"`
	LastActivityAt time.Time      `gorm:"not null"`
	ExpiresAt      time.Time      `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (GuidedSessionRecord) TableName() string {
	return "guided_sessions"
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []any {
	return []any{
		&Flashcard{},
		&UserProfile{},
		&SubjectStudyTime{},
		&Deadline{},
		&GuidedSessionRecord{},
	}
}

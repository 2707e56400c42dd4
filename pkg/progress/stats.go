package progress

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/smith3v/tutor625/pkg/db"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type SubjectMinutes struct {
	Subject string `json:"subject"`
	Minutes int    `json:"minutes"`
}

// Stats is the dashboard view of a user's progress.
type Stats struct {
	UserID        int64            `json:"userId"`
	DisplayName   string           `json:"displayName"`
	Level         string           `json:"level"`
	Subjects      []string         `json:"subjects"`
	TotalMinutes  int              `json:"totalMinutes"`
	TodayMinutes  int              `json:"todayMinutes"`
	Streak        int              `json:"streak"`
	LastStudiedAt *time.Time       `json:"lastStudiedAt,omitempty"`
	PerSubject    []SubjectMinutes `json:"perSubject"`
}

func LoadStats(userID int64, now time.Time) (Stats, error) {
	profile, err := LoadProfile(userID)
	if err != nil {
		return Stats{}, err
	}

	var perSubject []SubjectMinutes
	err = db.DB.Model(&db.SubjectStudyTime{}).
		Select("subject, minutes").
		Where("user_id = ?", userID).
		Order("minutes DESC, subject ASC").
		Scan(&perSubject).Error
	if err != nil {
		return Stats{}, err
	}

	subjects := Subjects(profile)
	if subjects == nil {
		subjects = []string{}
	}
	if perSubject == nil {
		perSubject = []SubjectMinutes{}
	}
	return Stats{
		UserID:        profile.UserID,
		DisplayName:   profile.DisplayName,
		Level:         profile.Level,
		Subjects:      subjects,
		TotalMinutes:  profile.TotalStudyMinutes,
		TodayMinutes:  TodayMinutes(profile, now),
		Streak:        CurrentStreak(profile, now),
		LastStudiedAt: profile.LastStudiedAt,
		PerSubject:    perSubject,
	}, nil
}

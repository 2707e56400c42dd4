package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultMaxRetries = 3

	MinTimezoneOffset = -12
	MaxTimezoneOffset = 14
	ReminderDisabled  = -1
	MaxSubjects       = 12
)

var (
	ErrNotRegistered    = errors.New("user is not registered")
	ErrConcurrentUpdate = errors.New("profile was modified concurrently")
	ErrInvalidSettings  = errors.New("invalid settings")
)

// EnsureProfile loads the profile or creates an empty one. The boolean
// reports whether the profile was created.
func EnsureProfile(userID int64, displayName string) (db.UserProfile, bool, error) {
	var profile db.UserProfile
	err := db.DB.Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return db.UserProfile{}, false, err
	}

	profile = db.UserProfile{
		UserID:       userID,
		DisplayName:  strings.TrimSpace(displayName),
		Subjects:     datatypes.JSON("[]"),
		Level:        "higher",
		ReminderHour: ReminderDisabled,
	}
	if err := db.DB.Create(&profile).Error; err != nil {
		return db.UserProfile{}, false, err
	}
	logger.Info("created user profile", "user_id", userID)
	return profile, true, nil
}

// LoadProfile returns ErrNotRegistered when the user never ran /start.
func LoadProfile(userID int64) (db.UserProfile, error) {
	var profile db.UserProfile
	err := db.DB.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.UserProfile{}, ErrNotRegistered
	}
	if err != nil {
		return db.UserProfile{}, err
	}
	return profile, nil
}

// Subjects decodes the profile's subject list. A malformed column reads as
// empty.
func Subjects(profile db.UserProfile) []string {
	if len(profile.Subjects) == 0 {
		return nil
	}
	var subjects []string
	if err := json.Unmarshal(profile.Subjects, &subjects); err != nil {
		logger.Warn("malformed subjects column", "user_id", profile.UserID, "error", err)
		return nil
	}
	return subjects
}

// NormalizeSubjects trims, drops blanks and removes case-insensitive
// duplicates while keeping the first spelling.
func NormalizeSubjects(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == MaxSubjects {
			break
		}
	}
	return out
}

func SetSubjects(ctx context.Context, userID int64, subjects []string) ([]string, error) {
	normalized := NormalizeSubjects(subjects)
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	_, err = updateProfile(ctx, userID, DefaultMaxRetries, func(p *db.UserProfile) error {
		p.Subjects = datatypes.JSON(encoded)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// ToggleSubject adds the subject when missing and removes it otherwise. The
// list is read inside the version check so concurrent taps do not get lost.
func ToggleSubject(ctx context.Context, userID int64, subject string) ([]string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidSettings)
	}
	var result []string
	_, err := updateProfile(ctx, userID, DefaultMaxRetries, func(p *db.UserProfile) error {
		current := Subjects(*p)
		next := make([]string, 0, len(current)+1)
		removed := false
		for _, s := range current {
			if strings.EqualFold(s, subject) {
				removed = true
				continue
			}
			next = append(next, s)
		}
		if !removed {
			if len(next) >= MaxSubjects {
				return fmt.Errorf("%w: at most %d subjects", ErrInvalidSettings, MaxSubjects)
			}
			next = append(next, subject)
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}
		p.Subjects = datatypes.JSON(encoded)
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Settings holds optional changes; nil fields are left alone.
type Settings struct {
	TimezoneOffsetHours *int    `validate:"omitempty,min=-12,max=14"`
	ReminderHour        *int    `validate:"omitempty,min=-1,max=23"`
	Level               *string `validate:"omitempty,oneof=higher ordinary"`
}

func UpdateSettings(ctx context.Context, userID int64, s Settings) (db.UserProfile, error) {
	if err := validate.Struct(s); err != nil {
		return db.UserProfile{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return updateProfile(ctx, userID, DefaultMaxRetries, func(p *db.UserProfile) error {
		if s.TimezoneOffsetHours != nil {
			p.TimezoneOffsetHours = *s.TimezoneOffsetHours
		}
		if s.ReminderHour != nil {
			p.ReminderHour = *s.ReminderHour
		}
		if s.Level != nil {
			p.Level = *s.Level
		}
		return nil
	})
}

// MarkReminderSent records when the daily reminder went out.
func MarkReminderSent(ctx context.Context, userID int64, at time.Time) error {
	_, err := updateProfile(ctx, userID, DefaultMaxRetries, func(p *db.UserProfile) error {
		sent := at
		p.LastReminderSentAt = &sent
		return nil
	})
	return err
}

// updateProfile applies fn to a fresh copy of the profile and writes it back
// only if nobody else bumped the version in between.
func updateProfile(ctx context.Context, userID int64, maxRetries int, fn func(*db.UserProfile) error) (db.UserProfile, error) {
	return updateProfileTx(ctx, userID, maxRetries, fn, nil)
}

var errVersionConflict = errors.New("profile version conflict")

// updateProfileTx is updateProfile with extra writes in the same
// transaction as the versioned profile write. If then fails the profile is
// left untouched.
func updateProfileTx(ctx context.Context, userID int64, maxRetries int, fn func(*db.UserProfile) error, then func(tx *gorm.DB) error) (db.UserProfile, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var profile db.UserProfile
		err := db.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.UserProfile{}, ErrNotRegistered
		}
		if err != nil {
			return db.UserProfile{}, err
		}

		version := profile.Version
		if err := fn(&profile); err != nil {
			return db.UserProfile{}, err
		}
		profile.Version = version + 1
		profile.UpdatedAt = time.Now().UTC()

		err = db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&db.UserProfile{}).
				Where("id = ? AND version = ?", profile.ID, version).
				Updates(map[string]any{
					"display_name":             profile.DisplayName,
					"subjects":                 profile.Subjects,
					"level":                    profile.Level,
					"total_study_minutes":      profile.TotalStudyMinutes,
					"study_streak":             profile.StudyStreak,
					"study_time_today_minutes": profile.StudyTimeTodayMinutes,
					"study_today_date":         profile.StudyTodayDate,
					"last_studied_at":          profile.LastStudiedAt,
					"timezone_offset_hours":    profile.TimezoneOffsetHours,
					"reminder_hour":            profile.ReminderHour,
					"last_reminder_sent_at":    profile.LastReminderSentAt,
					"version":                  profile.Version,
					"updated_at":               profile.UpdatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return errVersionConflict
			}
			if then != nil {
				return then(tx)
			}
			return nil
		})
		if errors.Is(err, errVersionConflict) {
			logger.Debug("profile version conflict", "user_id", userID, "attempt", attempt)
			continue
		}
		if err != nil {
			return db.UserProfile{}, err
		}
		return profile, nil
	}
	return db.UserProfile{}, ErrConcurrentUpdate
}

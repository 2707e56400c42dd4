package srs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/smith3v/tutor625/pkg/db"
	"gorm.io/gorm"
)

var (
	ErrCardNotFound = errors.New("flashcard not found")
	ErrInvalidCard  = errors.New("invalid flashcard")
)

// CardInput is what the user supplies when adding a card.
type CardInput struct {
	Subject string `validate:"required,max=64"`
	Front   string `validate:"required,max=1024"`
	Back    string `validate:"required,max=2048"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (in CardInput) normalized() CardInput {
	return CardInput{
		Subject: strings.TrimSpace(in.Subject),
		Front:   strings.TrimSpace(in.Front),
		Back:    strings.TrimSpace(in.Back),
	}
}

func (in CardInput) Validate() error {
	if err := validate.Struct(in.normalized()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}
	return nil
}

// NewCard builds an unsaved card with a fresh schedule.
func NewCard(userID int64, in CardInput, now time.Time) (db.Flashcard, error) {
	if err := in.Validate(); err != nil {
		return db.Flashcard{}, err
	}
	in = in.normalized()
	s := NewSchedule(now)
	return db.Flashcard{
		UserID:      userID,
		Subject:     in.Subject,
		Front:       in.Front,
		Back:        in.Back,
		EaseFactor:  s.EaseFactor,
		Repetitions: s.Repetitions,
		Interval:    s.Interval,
		NextReview:  s.NextReview,
	}, nil
}

func CreateCard(userID int64, in CardInput, now time.Time) (db.Flashcard, error) {
	card, err := NewCard(userID, in, now)
	if err != nil {
		return db.Flashcard{}, err
	}
	if err := db.DB.Create(&card).Error; err != nil {
		return db.Flashcard{}, err
	}
	return card, nil
}

func ScheduleOf(card db.Flashcard) Schedule {
	return Schedule{
		EaseFactor:  card.EaseFactor,
		Repetitions: card.Repetitions,
		Interval:    card.Interval,
		NextReview:  card.NextReview,
	}
}

// ApplyRating updates the scheduling fields of card in place.
func ApplyRating(card *db.Flashcard, rating Rating, now time.Time) error {
	if card == nil {
		return ErrCardNotFound
	}
	next, err := ComputeNextSchedule(ScheduleOf(*card), rating, now)
	if err != nil {
		return err
	}
	card.EaseFactor = next.EaseFactor
	card.Repetitions = next.Repetitions
	card.Interval = next.Interval
	card.NextReview = next.NextReview
	card.LastReviewed = &now
	return nil
}

// SelectDueCards returns cards whose next review is at or before now,
// earliest first. An empty subject matches every subject; limit <= 0 means
// no limit.
func SelectDueCards(userID int64, subject string, now time.Time, limit int) ([]db.Flashcard, error) {
	query := db.DB.Where("user_id = ? AND next_review <= ?", userID, now)
	if subject = strings.TrimSpace(subject); subject != "" {
		query = query.Where("subject = ?", subject)
	}
	query = query.Order("next_review ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var due []db.Flashcard
	if err := query.Find(&due).Error; err != nil {
		return nil, err
	}
	return due, nil
}

func NextDueCard(userID int64, subject string, now time.Time) (*db.Flashcard, error) {
	due, err := SelectDueCards(userID, subject, now, 1)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return nil, nil
	}
	return &due[0], nil
}

// LoadCard returns ErrCardNotFound for cards owned by someone else.
func LoadCard(userID int64, cardID uint) (db.Flashcard, error) {
	var card db.Flashcard
	err := db.DB.Where("id = ? AND user_id = ?", cardID, userID).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Flashcard{}, fmt.Errorf("%w: id %d", ErrCardNotFound, cardID)
	}
	if err != nil {
		return db.Flashcard{}, err
	}
	return card, nil
}

// RateCard records a review of one of the user's cards.
func RateCard(userID int64, cardID uint, rating Rating, now time.Time) (db.Flashcard, error) {
	card, err := LoadCard(userID, cardID)
	if err != nil {
		return db.Flashcard{}, err
	}

	if err := ApplyRating(&card, rating, now); err != nil {
		return db.Flashcard{}, err
	}
	if err := db.DB.Model(&card).Select("ease_factor", "repetitions", "interval_days", "next_review", "last_reviewed").
		Updates(&card).Error; err != nil {
		return db.Flashcard{}, err
	}
	return card, nil
}

type SubjectDue struct {
	Subject string
	Due     int64
}

// CountDue counts due cards; an empty subject counts every subject.
func CountDue(userID int64, subject string, now time.Time) (int64, error) {
	query := db.DB.Model(&db.Flashcard{}).Where("user_id = ? AND next_review <= ?", userID, now)
	if subject = strings.TrimSpace(subject); subject != "" {
		query = query.Where("subject = ?", subject)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DueSummary counts due cards per subject, alphabetically.
func DueSummary(userID int64, now time.Time) ([]SubjectDue, error) {
	var rows []SubjectDue
	err := db.DB.Model(&db.Flashcard{}).
		Select("subject, COUNT(*) AS due").
		Where("user_id = ? AND next_review <= ?", userID, now).
		Group("subject").
		Order("subject ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

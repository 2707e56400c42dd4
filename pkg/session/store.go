package session

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/smith3v/tutor625/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const RecordTTL = 24 * time.Hour

// LoadRecord returns the unexpired snapshot for the chat and user, or nil.
func LoadRecord(chatID, userID int64, now time.Time) (*Snapshot, error) {
	if db.DB == nil {
		return nil, nil
	}
	var record db.GuidedSessionRecord
	err := db.DB.
		Where("chat_id = ? AND user_id = ? AND expires_at > ?", chatID, userID, now).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap, err := snapshotFromRecord(record)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func SaveRecord(snap Snapshot) error {
	if db.DB == nil {
		return nil
	}
	record, err := recordFromSnapshot(snap)
	if err != nil {
		return err
	}
	return db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "chat_id"},
			{Name: "user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"session_id", "screen", "params", "seed_seconds", "elapsed_seconds",
			"flushed_minutes", "paused", "last_activity_at", "expires_at", "updated_at",
		}),
	}).Create(&record).Error
}

func DeleteRecord(chatID, userID int64) error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&db.GuidedSessionRecord{}).Error
}

func recordFromSnapshot(snap Snapshot) (db.GuidedSessionRecord, error) {
	params, err := json.Marshal(snap.State.Params)
	if err != nil {
		return db.GuidedSessionRecord{}, err
	}
	last := snap.LastActivityAt
	if last.IsZero() {
		last = time.Now().UTC()
	}
	return db.GuidedSessionRecord{
		SessionID:      snap.SessionID,
		ChatID:         snap.ChatID,
		UserID:         snap.UserID,
		Screen:         string(snap.State.Screen),
		Params:         datatypes.JSON(params),
		SeedSeconds:    snap.State.SeedSeconds,
		ElapsedSeconds: snap.State.ElapsedSeconds,
		FlushedMinutes: snap.State.FlushedMinutes,
		Paused:         snap.State.Paused,
		LastActivityAt: last,
		ExpiresAt:      last.Add(RecordTTL),
	}, nil
}

func snapshotFromRecord(record db.GuidedSessionRecord) (Snapshot, error) {
	screen, err := ParseScreen(record.Screen)
	if err != nil {
		return Snapshot{}, err
	}
	var params Params
	if len(record.Params) > 0 {
		if err := json.Unmarshal(record.Params, &params); err != nil {
			return Snapshot{}, err
		}
	}
	return Snapshot{
		SessionID: record.SessionID,
		ChatID:    record.ChatID,
		UserID:    record.UserID,
		State: State{
			Params:         params,
			Screen:         screen,
			SeedSeconds:    record.SeedSeconds,
			ElapsedSeconds: record.ElapsedSeconds,
			FlushedMinutes: record.FlushedMinutes,
			Paused:         record.Paused,
		},
		LastActivityAt: record.LastActivityAt,
	}, nil
}

// pkg/db/repository.go
package db

import (
	"fmt"
	"strconv"

	"github.com/smith3v/tutor625/pkg/config"
	"github.com/smith3v/tutor625/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Export DB variable
var DB *gorm.DB

func InitDB(cfg config.DatabaseConfig) error {
	gdb, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Migrate(gdb); err != nil {
		return err
	}
	DB = gdb
	return nil
}

func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormLogger, gormErr := newGormLogger(config.AppConfig.Logging.GormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", config.AppConfig.Logging.GormLevel, "error", gormErr)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(postgresDSN(cfg))
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, err
	}
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	if err := migrateCardDefaults(gdb); err != nil {
		logger.Error("failed to migrate flashcard defaults", "error", err)
		return err
	}
	if err := migrateProfileSubjects(gdb); err != nil {
		logger.Error("failed to migrate profile subjects", "error", err)
		return err
	}
	return nil
}

func postgresDSN(cfg config.DatabaseConfig) string {
	return "host=" + cfg.Host +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.DBName +
		" port=" + strconv.Itoa(cfg.Port) +
		" sslmode=" + cfg.SSLMode
}

// migrateCardDefaults repairs cards imported before scheduling columns had
// defaults: an ease below the floor means the value was never written.
func migrateCardDefaults(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if !db.Migrator().HasColumn(&Flashcard{}, "ease_factor") {
		return nil
	}
	return db.Exec(`
UPDATE flashcards
SET ease_factor = 2.5
WHERE ease_factor < 1.3
`).Error
}

func migrateProfileSubjects(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if !db.Migrator().HasColumn(&UserProfile{}, "subjects") {
		return nil
	}
	return db.Exec(`
UPDATE user_profiles
SET subjects = '[]'
WHERE subjects IS NULL OR CAST(subjects AS TEXT) = ''
`).Error
}

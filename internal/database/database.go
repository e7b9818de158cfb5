package database

import (
	"time"

	"aimtrainer/backend/internal/models"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// gormWriter routes gorm's own log lines into zerolog.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msgf(format, args...)
}

// Connect initializes the database connection and runs migrations.
func Connect(dsn string, log zerolog.Logger) error {
	log = log.With().Str("component", "database").Logger()

	// Configure GORM logger
	customLogger := logger.New(
		gormWriter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: customLogger,
	})
	if err != nil {
		return eris.Wrap(err, "failed to connect to database")
	}

	log.Info().Msg("database connection established")

	if err := db.AutoMigrate(&models.User{}, &models.PartyGameResult{}, &models.ChallengeResult{}); err != nil {
		return eris.Wrap(err, "failed to migrate database")
	}

	log.Info().Msg("database migrated successfully")
	DB = db
	return nil
}

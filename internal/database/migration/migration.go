package migration

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"

	_ "github.com/golang-migrate/migrate/v4/database/postgres" // register postgres DB and SQL
	_ "github.com/golang-migrate/migrate/v4/source/file"       // register file source
)

func Migrate(dbURL string, migrationsPath string, verbose bool, log *zap.Logger) error {
	log.Info("Running database migration", zap.String("source", migrationsPath))

	dbMigrate, err := newMigrate(dbURL, migrationsPath, verbose, log)
	if err != nil {
		return err
	}
	defer closeMigrate(dbMigrate, log)

	err = dbMigrate.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Database migration: no change needed")
			return nil
		}
		log.Error("Database migration failed", zap.Error(err))
		return err
	}

	log.Info("Database migration finished")
	return nil
}

// Rollback reverts the given number of applied migrations.
func Rollback(dbURL string, migrationsPath string, steps int, log *zap.Logger) error {
	log.Info("Rolling back database migration", zap.Int("steps", steps))

	dbMigrate, err := newMigrate(dbURL, migrationsPath, true, log)
	if err != nil {
		return err
	}
	defer closeMigrate(dbMigrate, log)

	if err := dbMigrate.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("Database rollback failed", zap.Error(err))
		return err
	}

	return nil
}

func newMigrate(dbURL string, migrationsPath string, verbose bool, log *zap.Logger) (*migrate.Migrate, error) {
	dbMigrate, err := migrate.New(migrationsPath, dbURL)
	if err != nil {
		return nil, err
	}
	dbMigrate.Log = NewLogger(log, verbose)

	return dbMigrate, nil
}

func closeMigrate(m *migrate.Migrate, log *zap.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		log.Warn("Unable to close migration handles", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
	}
}

type Logger struct {
	logger  *zap.Logger
	verbose bool
}

func (l *Logger) Printf(format string, v ...any) {
	l.logger.Sugar().Infof("DB Migration: "+format, v...)
}

func (l *Logger) Verbose() bool {
	return l.verbose
}

func NewLogger(logger *zap.Logger, verbose bool) *Logger {
	return &Logger{
		logger:  logger,
		verbose: verbose,
	}
}

// Package postgres implements the storage interfaces on PostgreSQL. The
// uniqueness and conditional-update guarantees the domain packages rely on
// (single-use codes, one rotation per token, one replay entry per proof) are
// enforced here with database constraints rather than application locks, so
// they hold across server instances.
package postgres

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Connect] gorm.Open")
	}
	return db, nil
}

// Migrate creates or updates the schema for every stored aggregate.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&authCodeModel{},
		&replayEntryModel{},
		&refreshTokenModel{},
		&sessionModel{},
		&signingKeyModel{},
		&revocationEventModel{},
		&clientModel{},
		&userModel{},
	)
	return errors.Wrap(err, "[Migrate] AutoMigrate")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package infra

import (
	"errors"
	"strings"
	"time"

	"github.com/amirasaad/sandbank/infra/repository"
	"github.com/amirasaad/sandbank/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDBConnection opens the database named by cnf.Url. URLs starting
// with postgres:// or postgresql:// use Postgres, anything else is a
// SQLite path or DSN.
func NewDBConnection(
	cnf *config.DB,
	appEnv string,
) (*gorm.DB, error) {
	databaseUrl := cnf.Url
	if databaseUrl == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	var logMode logger.LogLevel
	if appEnv == "development" {
		logMode = logger.Info
	} else {
		logMode = logger.Silent
	}

	connection, err := gorm.Open(Dialector(databaseUrl), &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := connection.DB()
	if err != nil {
		return nil, err
	}
	if IsSQLite(connection) {
		// One writer at a time; a second connection would fail with
		// "database is locked" instead of waiting.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(1 * time.Hour)
	}

	return connection, nil
}

// Dialector picks the gorm dialector for databaseUrl.
func Dialector(databaseUrl string) gorm.Dialector {
	if strings.HasPrefix(databaseUrl, "postgres://") || strings.HasPrefix(databaseUrl, "postgresql://") {
		return postgres.Open(databaseUrl)
	}
	return sqlite.Open(strings.TrimPrefix(databaseUrl, "sqlite://"))
}

func IsSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(repository.Models()...)
}

package db

import (
	"database/sql"
	stdlog "log"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DatabaseConnection struct {
	db    *gorm.DB
	sqlDb *sql.DB
}

// Connect opens the configured database, runs migrations and applies the
// connection pool limits. The caller owns the returned connection and
// passes it explicitly to everything that needs storage.
func Connect() (*DatabaseConnection, error) {
	dbType := viper.GetString("db.type")

	var dialector gorm.Dialector
	switch dbType {
	case "sqlite":
		dialector = sqlite.Open(viper.GetString("db.sqlite_path"))
	case "postgres":
		dsn := viper.GetString("db.dsn")
		if dsn == "" {
			log.Error().Msg("db.dsn is required when db.type is postgres")
			os.Exit(1)
		}
		dialector = postgres.Open(dsn)
	default:
		log.Error().Str("type", dbType).Msg("Unknown database type")
		dialector = sqlite.Open(viper.GetString("db.sqlite_path"))
	}

	newLogger := logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	if err := db.AutoMigrate(&Scan{}, &Rule{}, &DownloadURL{}); err != nil {
		log.Error().Err(err).Msg("Failed to migrate database")
		return nil, err
	}

	// Dispatch only ever looks at rows that are still in flight, a full
	// status index would be mostly dead weight.
	if db.Dialector.Name() == "postgres" {
		err := db.Exec(
			`CREATE INDEX IF NOT EXISTS idx_scans_dispatch ON scans (status) WHERE status IN ('queued', 'pending')`,
		).Error
		if err != nil {
			log.Error().Err(err).Msg("Failed to create dispatch index")
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get underlying database connection")
		return nil, err
	}
	sqlDB.SetMaxIdleConns(viper.GetInt("db.pool.persistent"))
	sqlDB.SetMaxOpenConns(viper.GetInt("db.pool.max"))
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DatabaseConnection{
		db:    db,
		sqlDb: sqlDB,
	}, nil
}

// Close releases the underlying connection pool.
func (d *DatabaseConnection) Close() error {
	return d.sqlDb.Close()
}

// Size returns a human readable size of the current database. Postgres only.
func (d *DatabaseConnection) Size() (string, error) {
	var result string
	err := d.db.Raw("SELECT pg_size_pretty(pg_database_size(current_database()))").Scan(&result).Error
	if err != nil {
		return "", err
	}
	return result, nil
}

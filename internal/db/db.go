package db

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB wraps the GORM database connection
type DB struct {
	*gorm.DB
}

// Connect establishes a connection to the PostgreSQL database. SQL logging is
// routed through log.
func Connect(dsn string, log *zap.Logger) (*DB, error) {
	return Open(postgres.Open(dsn), log)
}

// Open wraps an arbitrary dialector with the service's GORM settings and
// connection pool limits. Tests use it with the sqlite driver.
func Open(dialector gorm.Dialector, log *zap.Logger) (*DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(log),
		SkipDefaultTransaction: true,
		NowFunc:                Now,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DB{DB: db}, nil
}

// Now is the clock used for every persisted timestamp: UTC with microsecond
// precision, matching what PostgreSQL stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Ping checks if the database connection is alive
func (db *DB) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

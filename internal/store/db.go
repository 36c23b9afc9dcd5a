package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

var (
	// ErrDuplicateWork reports an insert that collided with the idempotency
	// key. Not a failure: redelivered signals are expected to hit it.
	ErrDuplicateWork = errors.New("store: duplicate work item")
	// ErrTerminal reports an update against a work item already EXECUTED or
	// FAILED.
	ErrTerminal = errors.New("store: work item already terminal")
	// ErrNotFound reports a missing row.
	ErrNotFound = errors.New("store: not found")
)

// Open connects to Postgres and migrates the core tables. TranslateError is
// on so unique-index violations surface as gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(
		&domain.CopySession{},
		&domain.WorkItem{},
		&domain.TradeHistoryRecord{},
		&domain.BrokerSnapshot{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

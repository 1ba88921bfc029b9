package database

import (
	"fmt"
	"time"

	"github.com/user/shortlinks/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLite opens (and auto-migrates) a SQLite database at dsn.
// The pool is pinned to one connection: SQLite serializes writers anyway,
// and in-memory databases live only as long as their connection.
func NewSQLite(dsn string) (*gorm.DB, error) {
	conn, err := connectSQLite(dsn)
	if err != nil {
		return nil, fmt.Errorf("init database error: %w", err)
	}
	if err := migrateSQLite(conn); err != nil {
		return nil, fmt.Errorf("migrate database error: %w", err)
	}
	return conn, nil
}

// MemorySQLiteDSN names a private in-memory database.
func MemorySQLiteDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

func connectSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database with path %s error: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return db, nil
}

func migrateSQLite(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Link{}, &models.ClickEvent{}, &models.DailyClicks{}); err != nil {
		return fmt.Errorf("migrating sql: %w", err)
	}
	return nil
}

// CloseSQLite closes the underlying connection pool.
func CloseSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PingSQLite checks that the database still answers.
func PingSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

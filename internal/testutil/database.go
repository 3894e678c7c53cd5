// Package testutil provides test helpers for setting up in-memory databases,
// creating fixtures, and making assertions.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"walletwise/internal/logger"
	"walletwise/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

func init() {
	logger.Init("test")
}

// SetupTestDB creates an isolated in-memory SQLite database with all models
// migrated. Each call gets its own named database so parallel tests never
// share rows. The pool is capped at one connection; code under test must not
// use the root handle while it holds a transaction.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:walletwise_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// FailCreatesOn makes every INSERT into table fail with err until the
// returned func is called.
func FailCreatesOn(t *testing.T, db *gorm.DB, table string, err error) (restore func()) {
	t.Helper()

	name := fmt.Sprintf("testutil:fail_create_%s_%d", table, dbCounter.Add(1))
	var enabled atomic.Bool
	enabled.Store(true)
	cbErr := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if enabled.Load() && tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	})
	if cbErr != nil {
		t.Fatalf("failed to register failing callback: %v", cbErr)
	}
	return func() { enabled.Store(false) }
}

// FailCreatesWhen makes an INSERT fail with err whenever match returns true
// for the statement, until the returned func is called.
func FailCreatesWhen(t *testing.T, db *gorm.DB, match func(tx *gorm.DB) bool, err error) (restore func()) {
	t.Helper()

	name := fmt.Sprintf("testutil:fail_create_when_%d", dbCounter.Add(1))
	var enabled atomic.Bool
	enabled.Store(true)
	cbErr := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if enabled.Load() && match(tx) {
			_ = tx.AddError(err)
		}
	})
	if cbErr != nil {
		t.Fatalf("failed to register failing callback: %v", cbErr)
	}
	return func() { enabled.Store(false) }
}

// AfterFirstQueryOn runs fn once, right after the first SELECT on table
// completes. It lets a test slip a competing write between a service's read
// and its write.
func AfterFirstQueryOn(t *testing.T, db *gorm.DB, table string, fn func()) {
	t.Helper()

	name := fmt.Sprintf("testutil:after_query_%s_%d", table, dbCounter.Add(1))
	var fired atomic.Bool
	cbErr := db.Callback().Query().After("gorm:query").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != table || tx.Error != nil {
			return
		}
		if fired.CompareAndSwap(false, true) {
			fn()
		}
	})
	if cbErr != nil {
		t.Fatalf("failed to register query callback: %v", cbErr)
	}
}

// BeforeFirstCreateOn runs fn once, just before the first INSERT into table.
// fn receives the statement's handle, so writes it makes share the caller's
// database transaction.
func BeforeFirstCreateOn(t *testing.T, db *gorm.DB, table string, fn func(tx *gorm.DB)) {
	t.Helper()

	name := fmt.Sprintf("testutil:before_create_%s_%d", table, dbCounter.Add(1))
	var fired atomic.Bool
	cbErr := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table && fired.CompareAndSwap(false, true) {
			fn(tx.Session(&gorm.Session{NewDB: true}))
		}
	})
	if cbErr != nil {
		t.Fatalf("failed to register create callback: %v", cbErr)
	}
}

// Package sqlite opens a SQLite-backed ChainPay store.
package sqlite

import (
	"fmt"
	"io"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chainpayid/chainpay/store/sqldb"
)

// New opens the SQLite database at dsn, e.g. "chainpay.db" or
// "file::memory:?cache=shared", and returns a store over it. Call Migrate
// (or Engine.Start) before use.
func New(dsn string) (*sqldb.Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("chainpay/sqlite: open %s: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("chainpay/sqlite: sql handle: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	return sqldb.New(db), nil
}

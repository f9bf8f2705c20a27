package db

import (
	"database/sql"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradewatch/internal/config"
	"tradewatch/internal/models"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open opens (or creates) the local preferences database. A sqlite file is
// the whole persistence story here: the engine itself keeps no state.
func Open(cfg config.DBConfig) (*DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	gdb, err := gorm.Open(sqlite.Open(cfg.Path), gcfg)
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	// sqlite handles one writer at a time.
	sqldb.SetMaxOpenConns(1)

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Preference{},
		&models.RecentSearch{},
	)
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Ping()
}

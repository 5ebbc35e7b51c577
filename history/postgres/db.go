package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZutrixPog/llmdispatch/history"
	ps "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrMigration          = errors.New("database migration failed")
	ErrDbInitiationFailed = errors.New("couldn't connect to database")
)

// Options tune the connection pool. Zero values keep database/sql defaults;
// a nil Gorm config silences gorm's own logging.
type Options struct {
	Gorm            *gorm.Config
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// InitDB connects, checks the connection and migrates the history schema.
func InitDB(dsn string, opts Options) (*gorm.DB, error) {
	config := opts.Gorm
	if config == nil {
		config = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	}

	db, err := gorm.Open(ps.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDbInitiationFailed, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDbInitiationFailed, err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", ErrDbInitiationFailed, err)
	}

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&history.TaskReport{}); err != nil {
		return fmt.Errorf("%w: %v", ErrMigration, err)
	}
	return nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

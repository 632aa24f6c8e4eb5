package driver

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DBPool hands out gorm handles to sql drivers. The default handle is owned
// by the caller; handles opened from a DSN are memoized per dialect and DSN
// and closed by Close.
type DBPool struct {
	mu     sync.Mutex
	def    *gorm.DB
	opened map[string]*gorm.DB
}

// NewDBPool returns a pool whose Get falls back to def. def may be nil.
func NewDBPool(def *gorm.DB) *DBPool {
	return &DBPool{def: def, opened: make(map[string]*gorm.DB)}
}

// Get returns the handle for dsn, opening it on first use. An empty dsn
// selects the default handle.
func (p *DBPool) Get(dialect, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		if p.def == nil {
			return nil, fmt.Errorf("%w: no database handle configured", ErrBackend)
		}
		return p.def, nil
	}

	key := strings.ToLower(dialect) + "|" + dsn
	p.mu.Lock()
	defer p.mu.Unlock()
	if db, ok := p.opened[key]; ok {
		return db, nil
	}

	var d gorm.Dialector
	switch strings.ToLower(dialect) {
	case "", "sqlite":
		d = sqlite.Open(dsn)
	case "postgres", "postgresql":
		d = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: unsupported dialect %q", ErrInvalidOptions, dialect)
	}
	db, err := gorm.Open(d, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s database: %v", ErrBackend, dialect, err)
	}
	p.opened[key] = db
	return db, nil
}

// Close closes every handle opened from a DSN.
func (p *DBPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for key, db := range p.opened {
		if sqlDB, err := db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
		delete(p.opened, key)
	}
	return errors.Join(errs...)
}

// Package connect opens the database named by a database.Config and pairs
// the resulting handle with the matching error classifier.
package connect

import (
	"context"
	"errors"
	"fmt"

	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/database/mysql"
	"github.com/koustreak/rowx/database/postgres"
	"github.com/koustreak/rowx/database/sqlite"
	"github.com/koustreak/rowx/internal/errs"
)

// DB is an open handle plus the driver-specific pieces the commands need.
type DB struct {
	database.Handle

	driver   database.Driver
	classify func(error) error
	ping     func(context.Context) error
	close    func() error
}

// Open connects using cfg.Driver. The caller must Close the returned DB.
func Open(ctx context.Context, cfg *database.Config) (*DB, error) {
	switch cfg.Driver {
	case database.DriverPostgres:
		p, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &DB{
			Handle:   p,
			driver:   cfg.Driver,
			classify: postgres.Classify,
			ping:     p.Ping,
			close:    func() error { p.Close(); return nil },
		}, nil

	case database.DriverMySQL:
		m, err := mysql.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &DB{Handle: m, driver: cfg.Driver, classify: mysql.Classify, ping: m.Ping, close: m.Close}, nil

	case database.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &DB{Handle: s, driver: cfg.Driver, classify: sqlite.Classify, ping: s.Ping, close: s.Close}, nil

	default:
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported driver %q", cfg.Driver))
	}
}

// Driver reports which engine the handle talks to.
func (d *DB) Driver() database.Driver { return d.driver }

// Classify maps a native driver error to an *errs.Error. Errors that
// already are *errs.Error (such as an invalid handle) pass through.
func (d *DB) Classify(err error) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return d.classify(err)
}

// Ping checks the database is reachable.
func (d *DB) Ping(ctx context.Context) error { return d.ping(ctx) }

// Close releases the pool.
func (d *DB) Close() error { return d.close() }

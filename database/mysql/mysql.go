// Package mysql opens go-sql-driver/mysql pools as database.Handle values.
package mysql

import (
	"context"
	"database/sql"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/database/sqldb"
	"github.com/koustreak/rowx/internal/errs"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultConnTimeout     = 5 * time.Second
)

// DB is a Handle backed by a *sql.DB it owns. It is safe for concurrent
// use by multiple goroutines.
type DB struct {
	*sqldb.Handle
	db *sql.DB
}

// NewHandle wraps a caller-owned *sql.DB, *sql.Conn or *sql.Tx opened with
// the mysql driver.
func NewHandle(q sqldb.Querier) *sqldb.Handle {
	return sqldb.New(q, database.DialectMySQL, sqldb.WithNormalizer(Normalize))
}

// Open creates a connection pool from cfg and pings it before returning.
// parseTime is always enabled so DATETIME columns come back as time.Time.
func Open(ctx context.Context, cfg *database.Config) (*DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to open mysql", err)
	}

	// Pool settings
	db.SetMaxOpenConns(orDefault(int(cfg.MaxConns), defaultMaxOpenConns))
	db.SetMaxIdleConns(orDefault(int(cfg.MinConns), defaultMaxIdleConns))
	db.SetConnMaxLifetime(orDefault(cfg.MaxConnLifetime, defaultConnMaxLifetime))
	db.SetConnMaxIdleTime(orDefault(cfg.MaxConnIdleTime, defaultConnMaxIdleTime))

	d := &DB{Handle: NewHandle(db), db: db}

	pingCtx, cancel := context.WithTimeout(ctx, orDefault(cfg.ConnectTimeout, defaultConnTimeout))
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// Ping verifies the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return Classify(d.db.PingContext(ctx))
}

// Close shuts down the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Raw returns the underlying *sql.DB.
func (d *DB) Raw() *sql.DB {
	return d.db
}

// Begin starts a transaction. Helpers called with the returned Tx run
// inside it until Commit or Rollback.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Classify(err)
	}
	return &Tx{Handle: NewHandle(tx), tx: tx}, nil
}

// Tx is a Handle bound to one transaction.
type Tx struct {
	*sqldb.Handle
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// buildDSN parses cfg.DSN and forces the options the handle relies on.
func buildDSN(cfg *database.Config) (string, error) {
	mc, err := gomysql.ParseDSN(cfg.DSN)
	if err != nil {
		return "", err
	}
	mc.ParseTime = true
	if mc.Timeout == 0 {
		mc.Timeout = orDefault(cfg.ConnectTimeout, defaultConnTimeout)
	}
	return mc.FormatDSN(), nil
}

func orDefault[T comparable](val, def T) T {
	var zero T
	if val == zero {
		return def
	}
	return val
}

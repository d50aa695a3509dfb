// Package sqlite opens modernc.org/sqlite databases as database.Handle
// values. No cgo is required.
package sqlite

import (
	"context"
	"database/sql"
	"net/url"
	"strings"

	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/database/sqldb"
	"github.com/koustreak/rowx/internal/errs"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 5
)

// pragmas applied to every connection: WAL for concurrent readers, a busy
// timeout instead of immediate SQLITE_BUSY, and enforced foreign keys.
var pragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"journal_mode(WAL)",
}

// DB is a Handle backed by a *sql.DB it owns.
type DB struct {
	*sqldb.Handle
	db   *sql.DB
	path string
}

// NewHandle wraps a caller-owned *sql.DB, *sql.Conn or *sql.Tx opened with
// the sqlite driver.
func NewHandle(q sqldb.Querier) *sqldb.Handle {
	return sqldb.New(q, database.DialectSQLite)
}

// Open opens the database file at cfg.DSN, creating it if needed, and pings
// it. ":memory:" gives a private in-memory database on a single connection.
func Open(ctx context.Context, cfg *database.Config) (*DB, error) {
	path := cfg.DSN
	if path == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "sqlite: database path is required")
	}

	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to open database", err)
	}

	// SQLite with WAL mode supports concurrent reads but serializes writes.
	maxOpen, maxIdle := defaultMaxOpenConns, defaultMaxIdleConns
	if cfg.MaxConns > 0 {
		maxOpen = int(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		maxIdle = int(cfg.MinConns)
	}
	if isMemory(path) {
		// every connection to :memory: would see its own empty database
		maxOpen, maxIdle = 1, 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	if !isMemory(path) {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
		db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}

	d := &DB{Handle: NewHandle(db), db: db, path: path}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Ping verifies the database can be opened.
func (d *DB) Ping(ctx context.Context) error {
	return Classify(d.db.PingContext(ctx))
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Raw returns the underlying *sql.DB.
func (d *DB) Raw() *sql.DB {
	return d.db
}

// Begin starts a transaction.
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

func buildDSN(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

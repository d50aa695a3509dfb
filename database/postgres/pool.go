package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/internal/errs"
)

const (
	defaultMaxConns    = 10
	defaultMinConns    = 2
	defaultConnTimeout = 5 * time.Second
)

// Pool is a Handle backed by a pgxpool it owns. It is safe for concurrent
// use by multiple goroutines.
type Pool struct {
	*Handle
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL using cfg and returns a Pool.
// It pings the server before returning.
func Open(ctx context.Context, cfg *database.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	poolCfg.MaxConns = withDefault(cfg.MaxConns, defaultMaxConns)
	poolCfg.MinConns = withDefault(cfg.MinConns, defaultMinConns)
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolCfg.ConnConfig.ConnectTimeout = defaultConnTimeout
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}

	p := &Pool{Handle: New(pool), pool: pool}
	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return Classify(err)
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (p *Pool) Close() {
	p.pool.Close()
}

// Raw returns the underlying pgxpool (for advanced use).
func (p *Pool) Raw() *pgxpool.Pool {
	return p.pool
}

// Acquire checks out a single connection. Calls through the returned Conn
// run sequentially on that connection until Release.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	return &Conn{Handle: New(c), conn: c}, nil
}

// Conn is a Handle bound to one pooled connection.
type Conn struct {
	*Handle
	conn *pgxpool.Conn
}

// Release returns the connection to the pool. The Conn must not be used
// afterwards.
func (c *Conn) Release() {
	c.conn.Release()
}

// withDefault returns val if non-zero, otherwise returns def
func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}

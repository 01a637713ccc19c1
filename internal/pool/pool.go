// Package pool manages the bounded set of target connections shared by
// replay workers.
package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pgindex/pgindex/internal/errs"
)

// Connection recycling policy.
const (
	DefaultMaxLifetime    = 48 * time.Hour
	DefaultIdleTimeout    = 24 * time.Hour
	DefaultConnectTimeout = 5 * time.Second
)

// ErrPoolTimeout is returned by Acquire when no connection became free in time.
var ErrPoolTimeout = errors.New("timed out waiting for a free connection")

// Config describes the pool. MaxConnections should equal the worker count.
type Config struct {
	URL            string
	Driver         string // detected from URL when empty
	MaxConnections int
	MaxLifetime    time.Duration
	IdleTimeout    time.Duration
	AcquireTimeout time.Duration
	ConnectTimeout time.Duration
}

// NewConfig returns a config sized for workers with the default recycling
// policy.
func NewConfig(url string, workers int, acquireTimeout time.Duration) Config {
	return Config{
		URL:            url,
		MaxConnections: workers,
		MaxLifetime:    DefaultMaxLifetime,
		IdleTimeout:    DefaultIdleTimeout,
		AcquireTimeout: acquireTimeout,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Stats is a point-in-time view of pool usage.
type Stats struct {
	MaxConnections int
	InUse          int
	MaxInUse       int
	Acquired       int
}

// Pool hands out at most MaxConnections connections at a time.
type Pool struct {
	db     *sql.DB
	cfg    Config
	driver string

	mu       sync.Mutex
	inUse    int
	maxInUse int
	acquired int
}

// Open builds the pool and verifies the target is reachable.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.MaxConnections < 1 {
		return nil, errs.E(errs.KindConfig, "open pool", fmt.Errorf("max connections must be at least 1, got %d", cfg.MaxConnections))
	}
	if cfg.Driver == "" {
		driver, err := DetectDriver(cfg.URL)
		if err != nil {
			return nil, errs.E(errs.KindConfig, "open pool", err)
		}
		cfg.Driver = driver
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	dsn, err := DataSourceName(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, errs.E(errs.KindConfig, "open pool", err)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, errs.Connectivity("open target connection", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errs.Connectivity("connect to target", err)
	}

	return &Pool{db: db, cfg: cfg, driver: cfg.Driver}, nil
}

// Driver returns the database/sql driver in use.
func (p *Pool) Driver() string { return p.driver }

// Acquire blocks until a connection is free, ctx is done, or the
// acquisition timeout elapses. The latter yields an ErrPoolTimeout.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	acquireCtx := ctx
	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	c, err := p.db.Conn(acquireCtx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			return nil, errs.E(errs.KindPoolTimeout, "acquire connection",
				fmt.Errorf("%w after %s", ErrPoolTimeout, p.cfg.AcquireTimeout))
		default:
			return nil, errs.Connectivity("acquire connection", err)
		}
	}

	p.mu.Lock()
	p.inUse++
	p.acquired++
	if p.inUse > p.maxInUse {
		p.maxInUse = p.inUse
	}
	p.mu.Unlock()

	return &Conn{pool: p, conn: c}, nil
}

func (p *Pool) release() {
	p.mu.Lock()
	p.inUse--
	p.mu.Unlock()
}

// Stats reports current and peak usage.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		MaxConnections: p.cfg.MaxConnections,
		InUse:          p.inUse,
		MaxInUse:       p.maxInUse,
		Acquired:       p.acquired,
	}
}

// Close closes every idle connection and prevents new ones.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Conn is a connection borrowed from a Pool.
type Conn struct {
	pool *Pool
	conn *sql.Conn
	once sync.Once
}

// Exec runs a single statement on the borrowed connection.
func (c *Conn) Exec(ctx context.Context, statement string) error {
	_, err := c.conn.ExecContext(ctx, statement)
	return err
}

// Release returns the connection to the pool. Calls after the first are
// no-ops.
func (c *Conn) Release() {
	c.once.Do(func() {
		_ = c.conn.Close()
		c.pool.release()
	})
}

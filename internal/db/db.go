package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"
)

// ErrMissingDatabaseURL is returned when no connection string was configured.
var ErrMissingDatabaseURL = errors.New("database url is not configured")

// Pool abstracts the pgx connection pool to make testing easier.
type Pool interface {
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

// ConnectFunc opens a new pool for the provided database URL.
type ConnectFunc func(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error)

// Provider lazily establishes a single shared connection pool. Concurrent
// first callers share one connection attempt; a failed attempt is not cached
// so a later call may retry.
type Provider struct {
	url      string
	maxConns int32
	connect  ConnectFunc

	mu     sync.Mutex
	pool   *pgxpool.Pool
	closed bool
	group  singleflight.Group
}

// Option customises a Provider.
type Option func(*Provider)

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxConns = n
		}
	}
}

// WithConnectFunc replaces the function used to open the pool.
func WithConnectFunc(fn ConnectFunc) Option {
	return func(p *Provider) {
		if fn != nil {
			p.connect = fn
		}
	}
}

// NewProvider constructs a Provider. No connection is made until first use.
func NewProvider(databaseURL string, opts ...Option) *Provider {
	p := &Provider{
		url:      strings.TrimSpace(databaseURL),
		maxConns: 10,
		connect:  Connect,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pool returns the shared pool, connecting on first use.
func (p *Provider) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	if p.url == "" {
		return nil, ErrMissingDatabaseURL
	}

	if pool, err := p.cached(); pool != nil || err != nil {
		return pool, err
	}

	ch := p.group.DoChan("connect", func() (any, error) {
		if pool, err := p.cached(); pool != nil || err != nil {
			return pool, err
		}

		// The attempt outlives any single caller's cancellation; callers
		// still stop waiting when their own context ends.
		pool, err := p.connect(context.WithoutCancel(ctx), p.url, p.maxConns)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			pool.Close()
			return nil, errProviderClosed
		}
		p.pool = pool
		return pool, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*pgxpool.Pool), nil
	}
}

var errProviderClosed = errors.New("database provider closed")

func (p *Provider) cached() (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errProviderClosed
	}
	return p.pool, nil
}

// Acquire checks out a connection from the shared pool.
func (p *Provider) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	pool, err := p.Pool(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Acquire(ctx)
}

// Ping verifies that the database is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	pool, err := p.Pool(ctx)
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// Close releases the cached pool, if any.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}

// Connect initialises a PostgreSQL connection pool using the provided database URL
// and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

var _ Pool = (*Provider)(nil)

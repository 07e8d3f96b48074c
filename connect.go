package sqlinspect

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Connection pool defaults.
const (
	ConnectionTimeout  = 10 * time.Second
	MaxConnectionsIdle = 5
	MaxConnectionsOpen = 10
	ConnMaxLifetime    = time.Hour
)

type options struct {
	logger         *slog.Logger
	connectTimeout time.Duration
	maxOpen        int
	maxIdle        int
	maxLifetime    time.Duration
	postgresDriver string
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger used by the connection and its helpers.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConnectTimeout bounds the initial ping.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithPool overrides the pool limits. Zero values keep the defaults.
func WithPool(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return func(o *options) {
		if maxOpen > 0 {
			o.maxOpen = maxOpen
		}
		if maxIdle > 0 {
			o.maxIdle = maxIdle
		}
		if maxLifetime > 0 {
			o.maxLifetime = maxLifetime
		}
	}
}

// WithPostgresDriver selects PostgresDriverPQ or PostgresDriverPGX.
func WithPostgresDriver(name string) Option {
	return func(o *options) { o.postgresDriver = name }
}

// DB is a live connection pool bound to one descriptor and its adapter.
type DB struct {
	*Introspector
	*Executor

	pool    *sql.DB
	desc    *ConnectionDescriptor
	adapter DialectAdapter
	logger  *slog.Logger
}

// Open connects to the database described by desc and verifies the
// connection with a ping. Failures match ErrConnectionFailed.
func Open(ctx context.Context, desc *ConnectionDescriptor, opts ...Option) (*DB, error) {
	o := options{
		logger:         slog.Default(),
		connectTimeout: ConnectionTimeout,
		maxOpen:        MaxConnectionsOpen,
		maxIdle:        MaxConnectionsIdle,
		maxLifetime:    ConnMaxLifetime,
	}
	for _, opt := range opts {
		opt(&o)
	}

	adapter, err := AdapterFor(desc.Dialect())
	if err != nil {
		return nil, err
	}
	if pg, ok := adapter.(*PostgresAdapter); ok {
		pg.Driver = o.postgresDriver
	}

	dsn, err := adapter.DSN(desc)
	if err != nil {
		return nil, &ConnectionError{Dialect: desc.Dialect(), Cause: err}
	}

	pool, err := sql.Open(adapter.DriverName(), dsn)
	if err != nil {
		return nil, &ConnectionError{Dialect: desc.Dialect(), Cause: err}
	}
	pool.SetMaxOpenConns(o.maxOpen)
	pool.SetMaxIdleConns(o.maxIdle)
	pool.SetConnMaxLifetime(o.maxLifetime)
	if desc.InMemory() {
		// The database lives only as long as one of its connections does.
		pool.SetMaxIdleConns(max(o.maxIdle, 1))
		pool.SetConnMaxLifetime(0)
		pool.SetConnMaxIdleTime(0)
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.connectTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, &ConnectionError{Dialect: desc.Dialect(), Cause: err}
	}

	o.logger.Info("connected",
		"dialect", desc.Dialect().String(),
		"driver", adapter.DriverName(),
		"url", desc.Redacted(),
		"read_only", desc.ReadOnly(),
	)

	return &DB{
		Introspector: NewIntrospector(pool, desc, adapter, o.logger),
		Executor:     NewExecutor(pool, adapter, o.logger),
		pool:         pool,
		desc:         desc,
		adapter:      adapter,
		logger:       o.logger,
	}, nil
}

func (d *DB) Descriptor() *ConnectionDescriptor { return d.desc }
func (d *DB) Adapter() DialectAdapter           { return d.adapter }
func (d *DB) Pool() *sql.DB                     { return d.pool }

// ConnectionInfo summarizes the live connection for display.
type ConnectionInfo struct {
	URL       string  `json:"url" yaml:"url"`
	Dialect   Dialect `json:"dialect" yaml:"dialect"`
	Database  string  `json:"database" yaml:"database"`
	ReadOnly  bool    `json:"read_only" yaml:"read_only"`
	Connected bool    `json:"connected" yaml:"connected"`
	Version   *string `json:"version,omitempty" yaml:"version,omitempty"`
}

// ConnectionInfo pings the server and reports its version. Ping and version
// failures are reflected in the result rather than returned.
func (d *DB) ConnectionInfo(ctx context.Context) ConnectionInfo {
	info := ConnectionInfo{
		URL:      d.desc.Redacted(),
		Dialect:  d.desc.Dialect(),
		Database: d.desc.DatabaseName(),
		ReadOnly: d.desc.ReadOnly(),
	}
	if err := d.pool.PingContext(ctx); err != nil {
		d.logger.Warn("ping failed", "err", err)
		return info
	}
	info.Connected = true
	if v, err := d.ServerVersion(ctx); err == nil && v != "" {
		info.Version = &v
	}
	return info
}

// Close releases the pool.
func (d *DB) Close() error {
	return d.pool.Close()
}

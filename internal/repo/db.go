// Package repo implements data access for the water-consumption reporting
// view, backed by GORM. This file contains connection bootstrapping: one
// fresh, single-connection handle per request for either Oracle (PEM wallet
// over TCPS via go-ora) or SQLite (pure Go driver, local development and tests).
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlite "github.com/glebarez/sqlite"
	oracle "github.com/godoes/gorm-oracle"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-water-backend/internal/config"
	"github.com/tbourn/go-water-backend/internal/observability"
)

// ConnectionError reports a failure to acquire a database connection. Its
// message is the driver's own message so it can be surfaced verbatim.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string { return e.Err.Error() }

// Unwrap exposes the driver error.
func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or anything it wraps) is a
// *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// Conn is one open database connection scoped to a single request.
// Close is safe to call more than once; only the first call reaches the driver.
type Conn struct {
	DB *gorm.DB

	sqlDB *sql.DB
	once  sync.Once
	err   error
}

// Close releases the underlying connection exactly once.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	c.once.Do(func() {
		if c.sqlDB != nil {
			c.err = c.sqlDB.Close()
		}
	})
	return c.err
}

// NewConn wraps an already opened handle so it can be released through Close.
func NewConn(db *gorm.DB) (*Conn, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &Conn{DB: db, sqlDB: sqlDB}, nil
}

// Connector opens a fresh connection per call. There is deliberately no
// pool shared between calls.
type Connector interface {
	Open(ctx context.Context) (*Conn, error)
}

// GormConnector opens connections through a GORM dialector.
type GormConnector struct {
	// Driver labels logs and metrics ("oracle", "sqlite").
	Driver string
	// Dialector builds the dialector for each new connection.
	Dialector func() (gorm.Dialector, error)
	// LogQueries enables statement logging.
	LogQueries bool
	// Tracing installs the GORM OpenTelemetry plugin.
	Tracing bool
}

// Open dials, pings with ctx, and returns a single-connection handle.
// Every failure is returned as a *ConnectionError.
func (g *GormConnector) Open(ctx context.Context) (*Conn, error) {
	start := time.Now()
	conn, err := g.open(ctx)
	if err != nil {
		observability.ObserveConnect(g.Driver, "error", time.Since(start))
		log.Error().Err(err).Str("driver", g.Driver).Msg("database connection failed")
		return nil, &ConnectionError{Driver: g.Driver, Err: err}
	}
	observability.ObserveConnect(g.Driver, "ok", time.Since(start))
	log.Debug().Str("driver", g.Driver).Msg("database connection opened")
	return conn, nil
}

func (g *GormConnector) open(ctx context.Context) (*Conn, error) {
	if g.Dialector == nil {
		return nil, errors.New("no dialector configured")
	}
	d, err := g.Dialector()
	if err != nil {
		return nil, err
	}

	lvl := logger.Warn
	if g.LogQueries {
		lvl = logger.Info
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger:               logger.Default.LogMode(lvl),
		DisableAutomaticPing: true,
	})
	if err != nil {
		if db != nil {
			if sqlDB, derr := db.DB(); derr == nil {
				_ = sqlDB.Close()
			}
		}
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// One connection, never reused after Close.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if g.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return &Conn{DB: db, sqlDB: sqlDB}, nil
}

// NewConnector returns the connector for the configured driver.
func NewConnector(cfg config.DBConfig, tracingEnabled bool) (Connector, error) {
	switch cfg.Driver {
	case config.DriverOracle:
		return NewOracleConnector(cfg, tracingEnabled), nil
	case config.DriverSQLite:
		c := NewSQLiteConnector(cfg.SQLitePath)
		c.LogQueries = cfg.LogQueries
		c.Tracing = tracingEnabled
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewOracleConnector connects over TCPS with the PEM wallet at
// cfg.WalletDir, resolving cfg.DSN through <cfg.ConfigDir>/tnsnames.ora. The
// alias and wallet are read on every Open so the connector never caches
// file contents.
func NewOracleConnector(cfg config.DBConfig, tracingEnabled bool) *GormConnector {
	return &GormConnector{
		Driver:     config.DriverOracle,
		LogQueries: cfg.LogQueries,
		Tracing:    tracingEnabled,
		Dialector: func() (gorm.Dialector, error) {
			pool, err := OpenOracleDB(cfg)
			if err != nil {
				return nil, err
			}
			return oracle.New(oracle.Config{Conn: pool}), nil
		},
	}
}

// NewSQLiteConnector opens the SQLite file at path. The parent directory
// must already exist.
func NewSQLiteConnector(path string) *GormConnector {
	return &GormConnector{
		Driver: config.DriverSQLite,
		Dialector: func() (gorm.Dialector, error) {
			// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
			if dir := filepath.Dir(path); dir != "." {
				if _, err := os.Stat(dir); err != nil {
					return nil, err
				}
			}
			return sqlite.Open(withBusyTimeout(path)), nil
		},
	}
}

// withBusyTimeout appends a busy_timeout pragma to a SQLite DSN.
func withBusyTimeout(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

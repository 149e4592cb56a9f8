package config

import (
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/louisdevie/kiwiq/dialect"
	"github.com/louisdevie/kiwiq/dialect/sql"
	"github.com/louisdevie/kiwiq/mapping"
)

// Database is a mapping schema opened from a Config.
type Database struct {
	*mapping.Schema
	stats *sql.StatsDriver
	conn  *sql.Driver
}

// Open opens the database described by cfg and returns a schema running
// on it. Commands are counted, slow ones are logged as warnings, and every
// command is logged at debug level when cfg.Debug is set. A nil logger
// discards the logs.
func Open(cfg *Config, logger *slog.Logger, opts ...mapping.Option) (*Database, error) {
	if cfg == nil {
		return nil, errors.New("config: nil config")
	}
	c := *cfg
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d, _ := sql.LookupDialect(c.Dialect)
	conn, err := sql.Open(d, c.Driver, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", c.Driver, err)
	}

	var drv dialect.Driver = conn
	if c.Debug {
		drv = sql.NewDebugDriver(drv, logger)
	}
	stats := sql.NewStatsDriver(drv,
		sql.WithSlowThreshold(c.SlowQueryThreshold),
		sql.WithSlowQueryLog(logger),
	)
	logger.Debug("opened database", "dialect", d.Name(), "driver", c.Driver, "debug", c.Debug)

	opts = append([]mapping.Option{
		mapping.WithNaming(c.NamingStrategy()),
		mapping.WithLogger(logger),
	}, opts...)
	return &Database{
		Schema: mapping.NewSchema(stats, opts...),
		stats:  stats,
		conn:   conn,
	}, nil
}

// Stats returns the command statistics of the database.
func (db *Database) Stats() sql.StatsSnapshot { return db.stats.QueryStats().Stats() }

// Conn returns the underlying database/sql driver.
func (db *Database) Conn() *sql.Driver { return db.conn }

// Close closes the database.
func (db *Database) Close() error { return db.conn.Close() }

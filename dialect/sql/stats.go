package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/louisdevie/kiwiq/dialect"
)

// QueryStats counts the commands run through a StatsDriver, including the
// ones run on connections it pinned. All fields are updated atomically.
type QueryStats struct {
	// TotalQueries counts row-returning commands: selections, scalar reads
	// and last-id lookups.
	TotalQueries atomic.Int64
	// TotalExecs counts inserts, updates and deletes.
	TotalExecs atomic.Int64
	// TotalDuration is the time spent in commands, in nanoseconds.
	TotalDuration atomic.Int64
	// SlowQueries counts commands that ran longer than the slow threshold.
	SlowQueries atomic.Int64
	// Errors counts failed commands.
	Errors atomic.Int64
	// Pinned counts the connections pinned for an insert and its last-id
	// lookup.
	Pinned atomic.Int64
}

// Stats returns a copy of the counters.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
		Pinned:        s.Pinned.Load(),
	}
}

// Reset zeroes the counters.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
	s.Pinned.Store(0)
}

// StatsSnapshot is a copy of the QueryStats counters, as returned by
// config.Database.Stats.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
	Pinned        int64
}

// Commands returns the number of commands counted.
func (s StatsSnapshot) Commands() int64 { return s.TotalQueries + s.TotalExecs }

// AvgQueryDuration returns the mean duration of a command.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	if s.Commands() == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Commands())
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d pinned=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.Pinned, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called with every command slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver counts the commands of the driver it wraps. Inserts run
// through Pin, so the insert and its last-id lookup are both counted.
type StatsDriver struct {
	dialect.Driver
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a command is slow. It
// defaults to 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets the function called with slow commands.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow commands to logger, or to the default logger
// when logger is nil.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		logger.WarnContext(ctx, "slow command", "duration", duration, "sql", query, "args", args)
	})
}

// NewStatsDriver wraps drv. config.Open installs one in front of every
// schema it opens:
//
//	drv, _ := sql.Open(dialect.Postgres, "postgres", dsn)
//	stats := sql.NewStatsDriver(drv, sql.WithSlowQueryLog(logger))
//	schema := mapping.NewSchema(stats)
//	_, _ = mapping.Insert[Fruit](schema).Entity(lemon).Apply(ctx)
//	fmt.Println(stats.QueryStats().Stats()) // queries=1 execs=1 pinned=1 ...
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the live counters.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the slow command threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow command threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query implements dialect.ExecQuerier.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return statsConn{d.Driver, d}.Query(ctx, query, args, v)
}

// Exec implements dialect.ExecQuerier.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return statsConn{d.Driver, d}.Exec(ctx, query, args, v)
}

// Pin pins the wrapped driver to one connection. Commands on the pinned
// connection are counted like the others.
func (d *StatsDriver) Pin(ctx context.Context) (dialect.ExecQuerier, func() error, error) {
	ex, release, err := pin(ctx, d.Driver)
	if err != nil {
		d.stats.Errors.Add(1)
		return nil, nil, err
	}
	d.stats.Pinned.Add(1)
	return statsConn{ex, d}, release, nil
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		d.stats.Errors.Add(1)
	}

	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()

	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil {
			list, _ := args.([]any)
			hook(ctx, query, list, duration)
		}
	}
}

// statsConn records the commands run on an ExecQuerier.
type statsConn struct {
	ex     dialect.ExecQuerier
	driver *StatsDriver
}

func (c statsConn) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := c.ex.Query(ctx, query, args, v)
	c.driver.record(ctx, query, args, start, err, true)
	return err
}

func (c statsConn) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := c.ex.Exec(ctx, query, args, v)
	c.driver.record(ctx, query, args, start, err, false)
	return err
}

// DebugDriver logs every command of the driver it wraps at debug level.
type DebugDriver struct {
	dialect.Driver
	logger *slog.Logger
}

// NewDebugDriver wraps drv. A nil logger logs to the default logger.
// config.Open installs one when Debug is set.
func NewDebugDriver(drv dialect.Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

// Query implements dialect.ExecQuerier.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	return debugConn{d.Driver, d.logger}.Query(ctx, query, args, v)
}

// Exec implements dialect.ExecQuerier.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	return debugConn{d.Driver, d.logger}.Exec(ctx, query, args, v)
}

// Pin pins the wrapped driver to one connection and keeps logging.
func (d *DebugDriver) Pin(ctx context.Context) (dialect.ExecQuerier, func() error, error) {
	ex, release, err := pin(ctx, d.Driver)
	if err != nil {
		return nil, nil, err
	}
	d.logger.DebugContext(ctx, "pinned connection")
	return debugConn{ex, d.logger}, release, nil
}

type debugConn struct {
	ex     dialect.ExecQuerier
	logger *slog.Logger
}

func (c debugConn) Query(ctx context.Context, query string, args, v any) error {
	c.logger.DebugContext(ctx, "query", "sql", query, "args", args)
	return c.ex.Query(ctx, query, args, v)
}

func (c debugConn) Exec(ctx context.Context, query string, args, v any) error {
	c.logger.DebugContext(ctx, "exec", "sql", query, "args", args)
	return c.ex.Exec(ctx, query, args, v)
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ Pinner         = (*StatsDriver)(nil)
	_ Pinner         = (*DebugDriver)(nil)
)

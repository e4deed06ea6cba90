package sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/querygen/dialect"
)

// QueryStats holds execution counters of a StatsDriver.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
	// ConstraintErrors counts failures classified by IsConstraintError.
	ConstraintErrors atomic.Int64

	mu     sync.Mutex
	byVerb map[string]int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	s.mu.Lock()
	verbs := make(map[string]int64, len(s.byVerb))
	for k, v := range s.byVerb {
		verbs[k] = v
	}
	s.mu.Unlock()
	return StatsSnapshot{
		TotalQueries:     s.TotalQueries.Load(),
		TotalExecs:       s.TotalExecs.Load(),
		TotalDuration:    time.Duration(s.TotalDuration.Load()),
		SlowQueries:      s.SlowQueries.Load(),
		Errors:           s.Errors.Load(),
		ConstraintErrors: s.ConstraintErrors.Load(),
		ByVerb:           verbs,
	}
}

// Reset sets every counter back to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
	s.ConstraintErrors.Store(0)
	s.mu.Lock()
	s.byVerb = nil
	s.mu.Unlock()
}

func (s *QueryStats) countVerb(query string) {
	verb := statementVerb(query)
	s.mu.Lock()
	if s.byVerb == nil {
		s.byVerb = make(map[string]int64)
	}
	s.byVerb[verb]++
	s.mu.Unlock()
}

// statementVerb returns the leading keyword of a compiled statement,
// skipping the MSSQL prologues emitted before INSERT and UPDATE.
func statementVerb(query string) string {
	q := strings.TrimSpace(query)
	for _, prefix := range []string{"DECLARE @tmp TABLE", "SET IDENTITY_INSERT"} {
		if strings.HasPrefix(q, prefix) {
			if i := strings.Index(q, "; "); i >= 0 {
				q = q[i+2:]
			}
		}
	}
	verb, _, _ := strings.Cut(q, " ")
	return strings.ToUpper(strings.TrimSuffix(verb, ";"))
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	TotalQueries     int64
	TotalExecs       int64
	TotalDuration    time.Duration
	SlowQueries      int64
	Errors           int64
	ConstraintErrors int64
	// ByVerb counts statements by leading keyword, e.g. SELECT or INSERT.
	ByVerb map[string]int64
}

// AvgQueryDuration returns the mean duration of all statements.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d constraint_errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors, s.ConstraintErrors,
	)
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, duration time.Duration)

// StatsDriver wraps a Driver and records statement statistics.
type StatsDriver struct {
	*Driver
	stats         *QueryStats
	slowThreshold atomic.Int64
	slowHook      SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement counts as
// slow. Defaults to 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold.Store(int64(d))
	}
}

// WithSlowQueryHook sets the callback for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog reports slow statements to l at warn level.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, duration time.Duration) {
		l.WarnContext(ctx, "slow statement", slog.Duration("duration", duration), slog.String("sql", query))
	})
}

// NewStatsDriver wraps drv with statistics collection.
//
//	drv, _ := sql.Open(dialect.Postgres, dsn)
//	stats := sql.NewStatsDriver(drv,
//		sql.WithSlowThreshold(200*time.Millisecond),
//		sql.WithSlowQueryLog(logger),
//	)
//	fmt.Println(stats.QueryStats().Stats())
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: &QueryStats{}}
	s.slowThreshold.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenWithStats is Open followed by NewStatsDriver.
func OpenWithStats(name, source string, genOpts []Option, opts ...StatsOption) (*StatsDriver, error) {
	drv, err := Open(name, source, genOpts...)
	if err != nil {
		return nil, err
	}
	return NewStatsDriver(drv, opts...), nil
}

// QueryStats returns the collected statistics.
func (d *StatsDriver) QueryStats() *QueryStats { return d.stats }

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.slowThreshold.Load())
}

// SetSlowThreshold updates the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.slowThreshold.Store(int64(threshold))
}

// Query implements dialect.ExecQuerier.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, start, err, true)
	return err
}

// Exec implements dialect.ExecQuerier.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, start, err, false)
	return err
}

// ExecCompiled is Driver.ExecCompiled with statistics.
func (d *StatsDriver) ExecCompiled(ctx context.Context, build Compiled) (Result, error) {
	return execCompiled(ctx, d, d.gen, build)
}

// QueryCompiled is Driver.QueryCompiled with statistics.
func (d *StatsDriver) QueryCompiled(ctx context.Context, build Compiled) (*Rows, error) {
	return queryCompiled(ctx, d, d.gen, build)
}

func (d *StatsDriver) record(ctx context.Context, query string, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))
	d.stats.countVerb(query)
	if err != nil {
		d.stats.Errors.Add(1)
		if IsConstraintError(err) {
			d.stats.ConstraintErrors.Add(1)
		}
	}
	if duration > d.SlowThreshold() {
		d.stats.SlowQueries.Add(1)
		if d.slowHook != nil {
			d.slowHook(ctx, query, duration)
		}
	}
}

// Tx starts a transaction that also records statistics.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx wraps a transaction with statistics collection.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query implements dialect.ExecQuerier.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, start, err, true)
	return err
}

// Exec implements dialect.ExecQuerier.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, query, start, err, false)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
)

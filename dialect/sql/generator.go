package sql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/querygen/dialect"
)

// Generator compiles operation descriptors into SQL text for one dialect.
// A Generator is immutable after construction and safe for concurrent use.
type Generator struct {
	caps           dialect.Capabilities
	loc            *time.Location
	typeValidation bool
	omitNull       bool
	log            *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimezone sets the zone dates are rendered in. Defaults to UTC.
func WithTimezone(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithTypeValidation toggles validation of values against the attribute
// type they are compared with or assigned to. Enabled by default.
func WithTypeValidation(enabled bool) Option {
	return func(g *Generator) {
		g.typeValidation = enabled
	}
}

// WithOmitNull drops nil values from INSERT and UPDATE value maps.
func WithOmitNull(enabled bool) Option {
	return func(g *Generator) {
		g.omitNull = enabled
	}
}

// WithLogger sets the logger compiled statements are reported to at
// debug level.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		g.log = l
	}
}

// NewGenerator returns a Generator for the named dialect.
func NewGenerator(name string, opts ...Option) (*Generator, error) {
	caps, err := dialect.Lookup(name)
	if err != nil {
		return nil, err
	}
	g := &Generator{
		caps:           caps,
		loc:            time.UTC,
		typeValidation: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Dialect is like NewGenerator but panics on unknown dialects.
//
//	g := sql.Dialect(dialect.Postgres)
//	query, err := g.SelectQuery(sql.Table("users"), &sql.SelectOptions{Where: sql.M("id", 5)}, nil)
func Dialect(name string, opts ...Option) *Generator {
	g, err := NewGenerator(name, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// Name returns the dialect name.
func (g *Generator) Name() string { return g.caps.Name }

// Capabilities returns a copy of the dialect descriptor.
func (g *Generator) Capabilities() dialect.Capabilities { return g.caps }

// Location returns the zone dates are rendered in.
func (g *Generator) Location() *time.Location { return g.loc }

// logged reports a compiled statement to the configured logger.
func (g *Generator) logged(kind, query string) string {
	if g.log != nil && g.log.Enabled(context.Background(), slog.LevelDebug) {
		g.log.Debug("compiled statement",
			slog.String("dialect", g.caps.Name),
			slog.String("kind", kind),
			slog.String("sql", query),
		)
	}
	return query
}

// Log reports a statement compiled outside this package, such as DDL, and
// returns it unchanged.
func (g *Generator) Log(kind, query string) string { return g.logged(kind, query) }

// String implements the fmt.Stringer interface.
func (g *Generator) String() string {
	return fmt.Sprintf("sql.Generator(%s)", g.caps.Name)
}

package schema

import (
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
)

// Emitter compiles DDL and transaction statements for the dialect of the
// wrapped generator. It is safe for concurrent use.
type Emitter struct {
	g    *sql.Generator
	caps dialect.Capabilities
}

// New returns an Emitter sharing the quoting and escaping of g.
func New(g *sql.Generator) *Emitter {
	return &Emitter{g: g, caps: g.Capabilities()}
}

// Generator returns the wrapped generator.
func (e *Emitter) Generator() *sql.Generator { return e.g }

// identifierLimit is the maximum identifier length per dialect. Longer
// generated names are truncated by the server.
var identifierLimit = map[string]int{
	dialect.Postgres: 63,
	dialect.MySQL:    64,
	dialect.MSSQL:    128,
}

// deriveName builds the default name of an index or constraint from the
// table and its columns, e.g. "users_first_name".
func deriveName(table sql.TableRef, prefix string, fields []string, suffix ...string) string {
	if prefix == "" {
		prefix = table.Name
		if table.Schema != "" {
			prefix = table.Schema + "_" + prefix
		}
	}
	parts := append([]string{prefix}, fields...)
	parts = append(parts, suffix...)
	name := strings.Join(parts, "_")
	name = strings.NewReplacer(`"`, "", "'", "", "`", "", ".", "_").Replace(name)
	return inflect.Underscore(name)
}

func (e *Emitter) quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = e.g.QuoteName(c)
	}
	return strings.Join(quoted, ", ")
}

func (e *Emitter) unsupported(feature string, required ...string) error {
	return querygen.NewCapabilityError(feature, e.caps.Name, required...)
}

// supporting returns the dialects whose descriptor satisfies ok.
func supporting(ok func(dialect.Capabilities) bool) []string {
	var names []string
	for _, name := range dialect.Names() {
		if c, err := dialect.Lookup(name); err == nil && ok(c) {
			names = append(names, name)
		}
	}
	return names
}

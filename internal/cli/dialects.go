package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/querygen/dialect"
)

var title = cases.Title(language.English)

// displayNames holds names that title casing gets wrong.
var displayNames = map[string]string{
	dialect.MSSQL:  "MSSQL",
	dialect.MySQL:  "MySQL",
	dialect.SQLite: "SQLite",
}

// DialectTitle returns the display name of a dialect, e.g. "Postgres".
func DialectTitle(name string) string {
	if s, ok := displayNames[name]; ok {
		return s
	}
	return title.String(name)
}

// Features lists the notable capabilities of a dialect.
func Features(c dialect.Capabilities) []string {
	var fs []string
	switch c.Returning {
	case dialect.ReturnReturning:
		fs = append(fs, "returning")
	case dialect.ReturnOutput:
		fs = append(fs, "output")
	}
	if c.OnConflictDoNothing != "" || c.Ignore != "" {
		fs = append(fs, "ignore-duplicates")
	}
	if c.UpdateOnDuplicate != "" {
		fs = append(fs, "upsert")
	}
	if c.Lock {
		fs = append(fs, "row-locks")
	}
	if c.SkipLocked {
		fs = append(fs, "skip-locked")
	}
	if c.JSON != dialect.JSONNone {
		fs = append(fs, "json")
	}
	if c.Regexp != dialect.RegexpNone {
		fs = append(fs, "regexp")
	}
	if c.ILike {
		fs = append(fs, "ilike")
	}
	if c.RangeOperators {
		fs = append(fs, "range-operators")
	}
	if c.Arrays {
		fs = append(fs, "arrays")
	}
	if c.IndexHints {
		fs = append(fs, "index-hints")
	}
	if c.Index.Concurrently {
		fs = append(fs, "concurrent-index")
	}
	if c.Index.Where {
		fs = append(fs, "partial-index")
	}
	if c.Deferrable {
		fs = append(fs, "deferrable")
	}
	return fs
}

// WriteDialects writes a table of the registered dialects to w.
func WriteDialects(w io.Writer, verbose bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if verbose {
		fmt.Fprintln(tw, "NAME\tDIALECT\tQUOTE\tFEATURES")
	} else {
		fmt.Fprintln(tw, "NAME\tDIALECT")
	}
	for _, name := range dialect.Names() {
		c, err := dialect.Lookup(name)
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(tw, "%s\t%s\t%s%s\t%s\n", name, DialectTitle(name), c.QuoteOpen, c.QuoteClose, strings.Join(Features(c), ", "))
		} else {
			fmt.Fprintf(tw, "%s\t%s\n", name, DialectTitle(name))
		}
	}
	return tw.Flush()
}

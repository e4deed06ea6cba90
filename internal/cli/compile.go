package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/privacy"
	"github.com/syssam/querygen/querylanguage"
)

// Output formats of the compile command.
const (
	FormatSQL  = "sql"
	FormatYAML = "yaml"
)

// CompileOptions control how descriptor documents are compiled.
type CompileOptions struct {
	// Dialect overrides the dialect named by a document.
	Dialect string
	// DefaultDialect is used when neither Dialect nor the document name one.
	DefaultDialect string
	// Timezone overrides the zone named by a document.
	Timezone string
	// DefaultTimezone is used when neither Timezone nor the document name one.
	DefaultTimezone string

	TypeValidation bool
	OmitNull       bool
	Concurrency    int
	Policy         privacy.Policy
	Logger         *slog.Logger
}

// Options builds CompileOptions from the configuration.
func (c *Config) Options(logger *slog.Logger) CompileOptions {
	return CompileOptions{
		DefaultDialect:  c.Dialect,
		DefaultTimezone: c.Timezone,
		TypeValidation:  c.Compile.TypeValidation,
		OmitNull:        c.Compile.OmitNull,
		Concurrency:     c.Concurrency,
		Policy:          c.Policy.Policy(),
		Logger:          logger,
	}
}

// Result holds the statements compiled from one document.
type Result struct {
	Path       string
	Dialect    string
	Statements []querylanguage.Statement
	Elapsed    time.Duration
}

// CompileFiles compiles the documents at paths concurrently. Results are
// returned in the order of paths. Every failing document is reported; the
// returned error is a querygen.AggregateError when more than one failed.
func CompileFiles(ctx context.Context, paths []string, opts CompileOptions) ([]Result, error) {
	results := make([]Result, len(paths))
	errs := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, path := range paths {
		path := path
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			res, err := CompileFile(ctx, path, opts)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", path, err)
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := querygen.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	return results, nil
}

// CompileFile parses, authorizes and compiles a single document.
func CompileFile(ctx context.Context, path string, opts CompileOptions) (*Result, error) {
	start := time.Now()
	doc, err := querylanguage.ParseFile(path)
	if err != nil {
		return nil, err
	}
	res, err := CompileDocument(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	res.Path = path
	res.Elapsed = time.Since(start)
	if opts.Logger != nil {
		opts.Logger.InfoContext(ctx, "compiled document",
			slog.String("path", path),
			slog.String("dialect", res.Dialect),
			slog.Int("statements", len(res.Statements)),
			slog.Duration("elapsed", res.Elapsed),
		)
	}
	return res, nil
}

// CompileDocument authorizes and compiles a parsed document.
func CompileDocument(ctx context.Context, doc *querylanguage.Document, opts CompileOptions) (*Result, error) {
	g, err := opts.Generator(doc)
	if err != nil {
		return nil, err
	}
	if err := Authorize(ctx, opts.Policy, doc); err != nil {
		return nil, err
	}
	stmts, err := doc.Compile(g)
	if err != nil {
		return nil, err
	}
	return &Result{Dialect: g.Name(), Statements: stmts}, nil
}

// Generator returns the generator for doc. Explicit options take
// precedence over the document, which takes precedence over defaults.
func (o CompileOptions) Generator(doc *querylanguage.Document) (*sql.Generator, error) {
	name := firstNonEmpty(o.Dialect, doc.Dialect, o.DefaultDialect)
	if name == "" {
		return nil, fmt.Errorf("no dialect given")
	}
	loc, err := loadLocation(firstNonEmpty(o.Timezone, doc.Timezone, o.DefaultTimezone))
	if err != nil {
		return nil, err
	}
	genOpts := []sql.Option{
		sql.WithTimezone(loc),
		sql.WithTypeValidation(o.TypeValidation),
		sql.WithOmitNull(o.OmitNull),
	}
	if o.Logger != nil {
		genOpts = append(genOpts, sql.WithLogger(o.Logger))
	}
	return sql.NewGenerator(name, genOpts...)
}

// WriteResults writes compiled statements to w in the given format.
func WriteResults(w io.Writer, results []Result, format string) error {
	switch format {
	case "", FormatSQL:
		for i, res := range results {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "-- %s (%s)\n", res.Path, res.Dialect); err != nil {
				return err
			}
			for _, stmt := range res.Statements {
				if stmt.Name != "" {
					if _, err := fmt.Fprintf(w, "-- %s\n", stmt.Name); err != nil {
						return err
					}
				}
				if _, err := fmt.Fprintln(w, stmt.SQL); err != nil {
					return err
				}
			}
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resultDocs(results)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

type statementDoc struct {
	Name string `yaml:"name,omitempty"`
	Op   string `yaml:"op"`
	SQL  string `yaml:"sql"`
}

type resultDoc struct {
	Path       string         `yaml:"path"`
	Dialect    string         `yaml:"dialect"`
	Statements []statementDoc `yaml:"statements"`
}

func resultDocs(results []Result) []resultDoc {
	docs := make([]resultDoc, len(results))
	for i, res := range results {
		docs[i] = resultDoc{Path: res.Path, Dialect: res.Dialect}
		for _, stmt := range res.Statements {
			docs[i].Statements = append(docs[i].Statements, statementDoc{
				Name: stmt.Name,
				Op:   strings.TrimPrefix(stmt.Op.String(), "Op"),
				SQL:  stmt.SQL,
			})
		}
	}
	return docs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

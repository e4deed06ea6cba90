package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
	"github.com/syssam/querygen/querylanguage"
)

// explainable are the operations a query plan can be requested for.
const explainable = querygen.OpSelect | querygen.OpInsert | querygen.OpUpdate | querygen.OpDelete

// ExplainPrefix returns the statement prefix that asks the dialect for a
// query plan.
func ExplainPrefix(name string) (string, error) {
	switch name {
	case dialect.Postgres, dialect.MySQL:
		return "EXPLAIN ", nil
	case dialect.SQLite:
		return "EXPLAIN QUERY PLAN ", nil
	default:
		return "", querygen.NewCapabilityError("explain", name, dialect.Postgres, dialect.MySQL, dialect.SQLite)
	}
}

// ValidateDSN checks that dsn is well formed for the dialect driver.
func ValidateDSN(name, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("no dsn given")
	}
	switch name {
	case dialect.MySQL:
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return fmt.Errorf("mysql dsn: %w", err)
		}
	case dialect.Postgres:
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if _, err := pq.ParseURL(dsn); err != nil {
				return fmt.Errorf("postgres dsn: %w", err)
			}
		}
	}
	return nil
}

// OpenExplainDriver opens a driver that reports statements slower than
// threshold to logger.
func OpenExplainDriver(name, dsn string, threshold time.Duration, logger *slog.Logger, genOpts ...sql.Option) (*sql.StatsDriver, error) {
	if err := ValidateDSN(name, dsn); err != nil {
		return nil, err
	}
	statsOpts := []sql.StatsOption{sql.WithSlowQueryLog(logger)}
	if threshold > 0 {
		statsOpts = append(statsOpts, sql.WithSlowThreshold(threshold))
	}
	return sql.OpenWithStats(name, dsn, genOpts, statsOpts...)
}

// Plan is the query plan reported for one statement.
type Plan struct {
	Statement querylanguage.Statement
	Columns   []string
	Rows      [][]string
}

// Explain requests the query plan of every explainable statement.
// Statements of other kinds are skipped.
func Explain(ctx context.Context, drv dialect.ExecQuerier, name string, stmts []querylanguage.Statement) ([]Plan, error) {
	prefix, err := ExplainPrefix(name)
	if err != nil {
		return nil, err
	}
	var plans []Plan
	for _, stmt := range stmts {
		if !stmt.Op.Is(explainable) {
			continue
		}
		plan, err := explainOne(ctx, drv, prefix, stmt)
		if err != nil {
			label := stmt.Name
			if label == "" {
				label = stmt.SQL
			}
			return nil, fmt.Errorf("explain %s: %w", label, err)
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}

func explainOne(ctx context.Context, drv dialect.ExecQuerier, prefix string, stmt querylanguage.Statement) (_ *Plan, rerr error) {
	query := prefix + strings.TrimSuffix(strings.TrimSpace(stmt.SQL), ";")
	var rows sql.Rows
	if err := drv.Query(ctx, query, []any{}, &rows); err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = err
		}
	}()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	plan := &Plan{Statement: stmt, Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = planValue(v)
		}
		plan.Rows = append(plan.Rows, row)
	}
	return plan, rows.Err()
}

func planValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// WritePlans writes query plans to w as tables.
func WritePlans(w io.Writer, plans []Plan) error {
	for i, plan := range plans {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if plan.Statement.Name != "" {
			fmt.Fprintf(w, "-- %s\n", plan.Statement.Name)
		}
		fmt.Fprintln(w, plan.Statement.SQL)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(plan.Columns, "\t"))
		for _, row := range plan.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

package schema

import (
	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
)

// default schema per dialect, used by catalog queries on unqualified tables.
var defaultSchema = map[string]string{
	dialect.Postgres: "public",
	dialect.MSSQL:    "dbo",
}

// RenameTableQuery compiles a table rename.
func (e *Emitter) RenameTableQuery(from, to sql.TableRef) (string, error) {
	if from.Name == "" || to.Name == "" {
		return "", querygen.NewCompileError("rename table", "", "missing table name")
	}
	before, after := e.quoteTable(from), e.quoteTable(to)
	var query string
	switch e.caps.Rename {
	case dialect.RenameStatement:
		query = "RENAME TABLE " + before + " TO " + after
	case dialect.RenameProcedure:
		query = "EXEC sp_rename " + before + ", " + after
	default:
		query = "ALTER TABLE " + before + " RENAME TO " + after
	}
	return e.g.Log("rename table", query+";"), nil
}

// DropTableOptions configures DropTableQuery.
type DropTableOptions struct {
	// Cascade drops dependent objects too.
	Cascade bool
}

// DropTableQuery compiles a DROP TABLE that is a no-op for missing tables.
func (e *Emitter) DropTableQuery(table sql.TableRef, opts *DropTableOptions) (string, error) {
	if opts == nil {
		opts = &DropTableOptions{}
	}
	if table.Name == "" {
		return "", querygen.NewCompileError("drop table", "", "missing table name")
	}
	if opts.Cascade && !e.caps.TruncateCascade {
		return "", e.unsupported("drop table cascade", supporting(func(c dialect.Capabilities) bool { return c.TruncateCascade })...)
	}
	quoted := e.quoteTable(table)
	if e.caps.DropTableGuard {
		lit, err := e.g.Escape(quoted)
		if err != nil {
			return "", err
		}
		return e.g.Log("drop table", "IF OBJECT_ID("+lit+", 'U') IS NOT NULL DROP TABLE "+quoted+";"), nil
	}
	query := "DROP TABLE IF EXISTS " + quoted
	if opts.Cascade {
		query += " CASCADE"
	}
	return e.g.Log("drop table", query+";"), nil
}

// DescribeTableQuery compiles a catalog query listing the columns of a
// table with their type, nullability, default and primary key flag.
func (e *Emitter) DescribeTableQuery(table sql.TableRef) (string, error) {
	if table.Name == "" {
		return "", querygen.NewCompileError("describe table", "", "missing table name")
	}
	var query string
	switch e.caps.Catalog {
	case dialect.CatalogShow:
		query = "SHOW FULL COLUMNS FROM " + e.quoteTable(table)
	case dialect.CatalogPragma:
		query = "PRAGMA TABLE_INFO(" + e.quoteTable(table) + ")"
	default:
		name, schema, err := e.catalogNames(table)
		if err != nil {
			return "", err
		}
		if e.caps.Catalog == dialect.CatalogSysProc {
			query = "SELECT c.COLUMN_NAME AS Name, c.DATA_TYPE AS Type, c.CHARACTER_MAXIMUM_LENGTH AS Length, " +
				"c.IS_NULLABLE AS IsNull, c.COLUMN_DEFAULT AS [Default], pk.CONSTRAINT_TYPE AS [Constraint], " +
				"COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA+'.'+c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') AS IsIdentity " +
				"FROM INFORMATION_SCHEMA.COLUMNS c " +
				"LEFT JOIN (SELECT tc.TABLE_SCHEMA, tc.TABLE_NAME, cu.COLUMN_NAME, tc.CONSTRAINT_TYPE " +
				"FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE cu " +
				"ON tc.TABLE_SCHEMA=cu.TABLE_SCHEMA AND tc.TABLE_NAME=cu.TABLE_NAME AND tc.CONSTRAINT_NAME=cu.CONSTRAINT_NAME " +
				"AND tc.CONSTRAINT_TYPE='PRIMARY KEY') pk " +
				"ON pk.TABLE_SCHEMA=c.TABLE_SCHEMA AND pk.TABLE_NAME=c.TABLE_NAME AND pk.COLUMN_NAME=c.COLUMN_NAME " +
				"WHERE c.TABLE_NAME = " + name + " AND c.TABLE_SCHEMA = " + schema
			break
		}
		query = `SELECT pk.constraint_type AS "Constraint", c.column_name AS "Field", c.column_default AS "Default", ` +
			`c.is_nullable AS "Null", c.data_type || (CASE WHEN c.character_maximum_length IS NOT NULL ` +
			`THEN '(' || c.character_maximum_length || ')' ELSE '' END) AS "Type" ` +
			`FROM information_schema.columns c ` +
			`LEFT JOIN (SELECT tc.table_schema, tc.table_name, cu.column_name, tc.constraint_type ` +
			`FROM information_schema.TABLE_CONSTRAINTS tc JOIN information_schema.KEY_COLUMN_USAGE cu ` +
			`ON tc.table_schema=cu.table_schema AND tc.table_name=cu.table_name AND tc.constraint_name=cu.constraint_name ` +
			`AND tc.constraint_type='PRIMARY KEY') pk ` +
			`ON pk.table_schema=c.table_schema AND pk.table_name=c.table_name AND pk.column_name=c.column_name ` +
			`WHERE c.table_name = ` + name + ` AND c.table_schema = ` + schema
	}
	return e.g.Log("describe table", query+";"), nil
}

// ShowIndexesQuery compiles a catalog query listing the indexes of a table.
func (e *Emitter) ShowIndexesQuery(table sql.TableRef) (string, error) {
	if table.Name == "" {
		return "", querygen.NewCompileError("show indexes", "", "missing table name")
	}
	var query string
	switch e.caps.Catalog {
	case dialect.CatalogShow:
		query = "SHOW INDEX FROM " + e.quoteTable(table)
	case dialect.CatalogPragma:
		query = "PRAGMA INDEX_LIST(" + e.quoteTable(table) + ")"
	case dialect.CatalogSysProc:
		lit, err := e.g.Escape(e.quoteTable(table))
		if err != nil {
			return "", err
		}
		query = "EXEC sys.sp_helpindex @objname = " + lit
	default:
		name, schema, err := e.catalogNames(table)
		if err != nil {
			return "", err
		}
		query = "SELECT i.relname AS name, ix.indisprimary AS primary, ix.indisunique AS unique, ix.indkey AS indkey, " +
			"array_agg(a.attnum) AS column_indexes, array_agg(a.attname) AS column_names, " +
			"pg_get_indexdef(ix.indexrelid) AS definition " +
			"FROM pg_class t, pg_class i, pg_index ix, pg_attribute a, pg_namespace s " +
			"WHERE t.oid = ix.indrelid AND i.oid = ix.indexrelid AND a.attrelid = t.oid AND t.relkind = 'r' " +
			"AND t.relname = " + name + " AND s.oid = t.relnamespace AND s.nspname = " + schema + " " +
			"GROUP BY i.relname, ix.indexrelid, ix.indisprimary, ix.indisunique, ix.indkey ORDER BY i.relname"
	}
	return e.g.Log("show indexes", query+";"), nil
}

// catalogNames escapes the table and schema names as string literals.
func (e *Emitter) catalogNames(table sql.TableRef) (name, schema string, err error) {
	s := table.Schema
	if s == "" {
		s = defaultSchema[e.caps.Name]
	}
	if name, err = e.g.Escape(table.Name); err != nil {
		return "", "", err
	}
	if schema, err = e.g.Escape(s); err != nil {
		return "", "", err
	}
	return name, schema, nil
}

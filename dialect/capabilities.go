package dialect

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ReturnStyle describes how a dialect hands back rows written by a DML statement.
type ReturnStyle int

// Return styles.
const (
	ReturnNone      ReturnStyle = iota // No returning support.
	ReturnReturning                    // RETURNING col, ...
	ReturnOutput                       // OUTPUT INSERTED.col, ...
)

// LimitStyle describes the row-limit syntax of a SELECT.
type LimitStyle int

// Limit styles.
const (
	LimitOffset LimitStyle = iota // LIMIT n OFFSET m
	LimitComma                    // LIMIT m, n
	OffsetFetch                   // OFFSET m ROWS FETCH NEXT n ROWS ONLY
)

// RowLimit describes how a row limit is applied to UPDATE and DELETE.
type RowLimit int

// Row limit styles.
const (
	RowLimitNone     RowLimit = iota // Not supported.
	RowLimitClause                   // Trailing LIMIT n.
	RowLimitTop                      // UPDATE TOP(n) / DELETE TOP(n).
	RowLimitSubquery                 // WHERE pk IN (SELECT pk ... LIMIT n).
)

// JSONStyle selects the JSON path extraction syntax.
type JSONStyle int

// JSON styles.
const (
	JSONNone     JSONStyle = iota
	JSONPostgres           // ("col"#>>'{a,b}')
	JSONMySQL              // json_unquote(json_extract(`col`,'$."a"."b"'))
	JSONSQLite             // json_extract(`col`,'$.a.b')
	JSONMSSQL              // JSON_VALUE([col],'$.a.b')
)

// BlobStyle selects the literal syntax of binary values.
type BlobStyle int

// Blob styles.
const (
	BlobEscapeHex BlobStyle = iota // E'\\x0102'
	BlobHexString                  // X'0102'
	BlobHexNumber                  // 0x0102
)

// TxStyle selects the transaction-control statement family.
type TxStyle int

// Transaction styles.
const (
	TxStandard TxStyle = iota // START TRANSACTION / SAVEPOINT / ROLLBACK TO SAVEPOINT.
	TxSQLite                  // BEGIN <type> TRANSACTION / SAVEPOINT.
	TxMSSQL                   // BEGIN TRANSACTION / SAVE TRANSACTION.
)

// RegexpStyle selects how regular-expression operators are spelled.
type RegexpStyle int

// Regexp styles.
const (
	RegexpNone  RegexpStyle = iota // Not supported.
	RegexpTilde                    // ~, !~, ~*, !~*
	RegexpWord                     // REGEXP, NOT REGEXP
)

// IsolationStyle selects how the isolation level is changed.
type IsolationStyle int

// Isolation styles.
const (
	IsolationStatement IsolationStyle = iota // SET TRANSACTION ISOLATION LEVEL ...
	IsolationPragma                          // PRAGMA read_uncommitted = ON|OFF
)

// AutocommitStyle selects how autocommit is toggled.
type AutocommitStyle int

// Autocommit styles.
const (
	AutocommitNone         AutocommitStyle = iota // Always on, cannot be disabled.
	AutocommitVariable                            // SET autocommit = 1|0
	AutocommitImplicitTxns                        // SET IMPLICIT_TRANSACTIONS OFF|ON
)

// CatalogStyle selects the statements used to describe tables and indexes.
type CatalogStyle int

// Catalog styles.
const (
	CatalogInformationSchema CatalogStyle = iota // information_schema / pg_catalog queries.
	CatalogShow                                  // SHOW FULL COLUMNS / SHOW INDEX.
	CatalogPragma                                // PRAGMA TABLE_INFO / INDEX_LIST.
	CatalogSysProc                               // INFORMATION_SCHEMA and sp_helpindex.
)

// DropIndexStyle selects the DROP INDEX shape.
type DropIndexStyle int

// Drop index styles.
const (
	DropIndexIfExists DropIndexStyle = iota // DROP INDEX IF EXISTS name
	DropIndexOnTable                        // DROP INDEX name ON table
)

// RenameStyle selects the table rename statement.
type RenameStyle int

// Rename styles.
const (
	RenameAlter     RenameStyle = iota // ALTER TABLE a RENAME TO b
	RenameStatement                    // RENAME TABLE a TO b
	RenameProcedure                    // EXEC sp_rename a, b
)

// IndexCapabilities groups the index-creation features of a dialect.
type IndexCapabilities struct {
	Collate      bool // COLLATE per column.
	Length       bool // Prefix length per column.
	Parser       bool // WITH PARSER.
	Concurrently bool // CONCURRENTLY.
	Type         bool // UNIQUE/FULLTEXT/SPATIAL index types.
	Operator     bool // Operator classes.
	Where        bool // Partial indexes.
	Include      bool // INCLUDE (covering) columns.
	ViaAlter     bool // ALTER TABLE ... ADD INDEX instead of CREATE INDEX.
	Using        int  // 0: no USING, 1: USING before ON, 2: USING after ON.
}

// Capabilities is the flat, immutable capability descriptor of a dialect.
// Every compiler consults it instead of switching on the dialect name.
type Capabilities struct {
	Name       string
	QuoteOpen  string
	QuoteClose string
	// Schemas reports whether schema-qualified names are quoted per segment.
	Schemas bool

	// INSERT.
	DefaultValues        bool   // INSERT INTO t DEFAULT VALUES.
	EmptyValues          bool   // INSERT INTO t VALUES ().
	Default              bool   // DEFAULT keyword inside VALUES.
	AutoIncrementDefault bool   // Auto-increment columns accept DEFAULT/NULL.
	AutoIncrementUpdate  bool   // Auto-increment columns may be updated.
	IdentityInsert       bool   // Explicit identity values need SET IDENTITY_INSERT.
	BulkDefault          bool   // DEFAULT allowed per row in multi-row VALUES.
	MaxInsertRows        int    // Maximum VALUES tuples per statement, 0 for unbounded.
	Ignore               string // Keyword spliced after INSERT to ignore duplicates.
	OnConflictDoNothing  string // Suffix that ignores duplicates.
	UpdateOnDuplicate    string // Upsert clause prefix.
	Returning            ReturnStyle
	TmpTableTrigger      bool // OUTPUT INTO a table variable when triggers exist.

	// SELECT.
	UnionAll           bool
	RightJoin          bool
	JoinTableDependent bool // Through joins are nested inside the target join.
	IndexHints         bool
	TableHints         bool
	Limit              LimitStyle
	Lock               bool
	LockKey            bool
	LockOf             bool
	SkipLocked         bool
	ForShare           string

	// UPDATE and DELETE.
	UpdateLimit RowLimit
	DeleteLimit RowLimit

	// Predicates and literals.
	JSON             JSONStyle
	Regexp           RegexpStyle
	ILike            bool
	RangeOperators   bool // &&, @>, <@, -|-, <<, >>, &<, &>, @@.
	Arrays           bool // ARRAY[...] literals.
	BooleanAsInt     bool // Booleans render as 1/0.
	NationalStrings  bool // N'...' string literals.
	BackslashEscapes bool // Backslash is an escape character inside strings.
	EscapeNUL        bool // NUL bytes are rewritten as \0.
	DateOffset       bool // Date literals carry a UTC offset.
	Blob             BlobStyle

	// DDL and transactions.
	Index             IndexCapabilities
	DropIndex         DropIndexStyle
	Rename            RenameStyle
	Catalog           CatalogStyle
	DropTableGuard    bool // IF OBJECT_ID(...) IS NOT NULL instead of IF EXISTS.
	Truncate          bool // TRUNCATE is available; otherwise DELETE FROM.
	TruncateTable     bool // TRUNCATE TABLE t.
	TruncateCascade   bool // CASCADE and RESTART IDENTITY modifiers.
	DefaultConstraint bool // Named DEFAULT constraints.
	AlterConstraint   bool // ALTER TABLE ... ADD/DROP CONSTRAINT.
	Deferrable        bool // DEFERRABLE constraints and SET CONSTRAINTS.
	Tx                TxStyle
	Isolation         IsolationStyle
	Autocommit        AutocommitStyle
}

// Validate checks the descriptor for missing or contradictory flags.
func (c *Capabilities) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("missing name"))
	}
	if c.QuoteOpen == "" || c.QuoteClose == "" {
		errs = append(errs, errors.New("missing identifier quote characters"))
	}
	if c.TmpTableTrigger && c.Returning != ReturnOutput {
		errs = append(errs, errors.New("temp-table trigger capture requires OUTPUT returning"))
	}
	if (c.LockKey || c.LockOf || c.SkipLocked || c.ForShare != "") && !c.Lock {
		errs = append(errs, errors.New("lock variants require lock support"))
	}
	if c.MaxInsertRows < 0 {
		errs = append(errs, fmt.Errorf("negative insert row limit %d", c.MaxInsertRows))
	}
	if c.Index.Using < 0 || c.Index.Using > 2 {
		errs = append(errs, fmt.Errorf("invalid index USING position %d", c.Index.Using))
	}
	if c.DefaultValues && c.EmptyValues {
		errs = append(errs, errors.New("DEFAULT VALUES and VALUES () are exclusive"))
	}
	if c.Limit < LimitOffset || c.Limit > OffsetFetch {
		errs = append(errs, fmt.Errorf("invalid limit style %d", c.Limit))
	}
	if len(errs) > 0 {
		name := c.Name
		if name == "" {
			name = "<unnamed>"
		}
		return fmt.Errorf("dialect %s: %w", name, errors.Join(errs...))
	}
	return nil
}

// registry holds the built-in descriptors. It is populated and validated
// once during package initialization and never written afterwards.
var registry = map[string]Capabilities{
	Postgres: {
		Name:                 Postgres,
		QuoteOpen:            `"`,
		QuoteClose:           `"`,
		Schemas:              true,
		DefaultValues:        true,
		Default:              true,
		AutoIncrementDefault: true,
		BulkDefault:          true,
		OnConflictDoNothing:  " ON CONFLICT DO NOTHING",
		UpdateOnDuplicate:    " ON CONFLICT DO UPDATE SET",
		Returning:            ReturnReturning,
		UnionAll:             true,
		RightJoin:            true,
		JoinTableDependent:   true,
		Limit:                LimitOffset,
		Lock:                 true,
		LockKey:              true,
		LockOf:               true,
		SkipLocked:           true,
		ForShare:             "FOR SHARE",
		DeleteLimit:          RowLimitSubquery,
		JSON:                 JSONPostgres,
		Regexp:               RegexpTilde,
		ILike:                true,
		RangeOperators:       true,
		Arrays:               true,
		EscapeNUL:            true,
		DateOffset:           true,
		Blob:                 BlobEscapeHex,
		Index: IndexCapabilities{
			Collate:      true,
			Concurrently: true,
			Operator:     true,
			Where:        true,
			Include:      true,
			Using:        2,
		},
		DropIndex:       DropIndexIfExists,
		Rename:          RenameAlter,
		Catalog:         CatalogInformationSchema,
		Truncate:        true,
		TruncateCascade: true,
		AlterConstraint: true,
		Deferrable:      true,
		Tx:              TxStandard,
		Isolation:       IsolationStatement,
		Autocommit:      AutocommitNone,
	},
	MySQL: {
		Name:                 MySQL,
		QuoteOpen:            "`",
		QuoteClose:           "`",
		Schemas:              true,
		EmptyValues:          true,
		Default:              true,
		AutoIncrementDefault: true,
		AutoIncrementUpdate:  true,
		BulkDefault:          true,
		Ignore:               " IGNORE",
		UpdateOnDuplicate:    " ON DUPLICATE KEY UPDATE",
		Returning:            ReturnNone,
		UnionAll:             true,
		RightJoin:            true,
		IndexHints:           true,
		Limit:                LimitComma,
		Lock:                 true,
		ForShare:             "LOCK IN SHARE MODE",
		UpdateLimit:          RowLimitClause,
		DeleteLimit:          RowLimitClause,
		JSON:                 JSONMySQL,
		Regexp:               RegexpWord,
		BackslashEscapes:     true,
		Blob:                 BlobHexString,
		Index: IndexCapabilities{
			Length:   true,
			Parser:   true,
			Type:     true,
			ViaAlter: true,
			Using:    1,
		},
		DropIndex:       DropIndexOnTable,
		Rename:          RenameStatement,
		Catalog:         CatalogShow,
		Truncate:        true,
		AlterConstraint: true,
		Tx:              TxStandard,
		Isolation:       IsolationStatement,
		Autocommit:      AutocommitVariable,
	},
	MSSQL: {
		Name:               MSSQL,
		QuoteOpen:          "[",
		QuoteClose:         "]",
		Schemas:            true,
		DefaultValues:      true,
		Default:            true,
		IdentityInsert:     true,
		MaxInsertRows:      1000,
		Returning:          ReturnOutput,
		TmpTableTrigger:    true,
		UnionAll:           true,
		RightJoin:          true,
		JoinTableDependent: true,
		TableHints:         true,
		Limit:              OffsetFetch,
		UpdateLimit:        RowLimitTop,
		DeleteLimit:        RowLimitTop,
		JSON:               JSONMSSQL,
		BooleanAsInt:       true,
		NationalStrings:    true,
		DateOffset:         true,
		Blob:               BlobHexNumber,
		Index:              IndexCapabilities{Type: true, Where: true, Include: true},
		DropIndex:          DropIndexOnTable,
		Rename:             RenameProcedure,
		Catalog:            CatalogSysProc,
		DropTableGuard:     true,
		Truncate:           true,
		TruncateTable:      true,
		DefaultConstraint:  true,
		AlterConstraint:    true,
		Tx:                 TxMSSQL,
		Isolation:          IsolationStatement,
		Autocommit:         AutocommitImplicitTxns,
	},
	SQLite: {
		Name:                 SQLite,
		QuoteOpen:            "`",
		QuoteClose:           "`",
		DefaultValues:        true,
		AutoIncrementDefault: true,
		Ignore:               " OR IGNORE",
		UpdateOnDuplicate:    " ON CONFLICT DO UPDATE SET",
		Returning:            ReturnReturning,
		UnionAll:             true,
		JoinTableDependent:   true,
		Limit:                LimitComma,
		DeleteLimit:          RowLimitSubquery,
		JSON:                 JSONSQLite,
		BooleanAsInt:         true,
		DateOffset:           true,
		Blob:                 BlobHexString,
		Index:                IndexCapabilities{Collate: true, Where: true},
		DropIndex:            DropIndexIfExists,
		Rename:               RenameAlter,
		Catalog:              CatalogPragma,
		Tx:                   TxSQLite,
		Isolation:            IsolationPragma,
		Autocommit:           AutocommitNone,
	},
}

func init() {
	for name, c := range registry {
		if err := c.Validate(); err != nil {
			panic(fmt.Sprintf("dialect: invalid built-in descriptor %q: %v", name, err))
		}
	}
}

// Lookup returns a copy of the capability descriptor registered for the
// given dialect name. Names are matched case-insensitively and the
// driver names "sqlite3" and "sqlserver" are accepted as aliases.
func Lookup(name string) (Capabilities, error) {
	name = strings.ToLower(name)
	switch name {
	case "sqlite3":
		name = SQLite
	case "sqlserver":
		name = MSSQL
	}
	c, ok := registry[name]
	if !ok {
		return Capabilities{}, fmt.Errorf("dialect: unknown dialect %q", name)
	}
	return c, nil
}

// Names returns the registered dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

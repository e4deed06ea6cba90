package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
)

// TxType is the locking mode of a SQLite transaction.
type TxType string

// SQLite transaction types.
const (
	Deferred  TxType = "DEFERRED"
	Immediate TxType = "IMMEDIATE"
	Exclusive TxType = "EXCLUSIVE"
)

// Isolation levels accepted by SetIsolationLevelQuery.
const (
	ReadUncommitted = "READ UNCOMMITTED"
	ReadCommitted   = "READ COMMITTED"
	RepeatableRead  = "REPEATABLE READ"
	Serializable    = "SERIALIZABLE"
)

var isolationLevels = []string{ReadUncommitted, ReadCommitted, RepeatableRead, Serializable}

// Transaction identifies a transaction or, when Parent is set, a
// savepoint inside one. Statements for it are emitted by the Emitter;
// tracking its lifecycle is left to the caller.
type Transaction struct {
	ID     string
	Name   string // savepoint name.
	Parent *Transaction
	Type   TxType

	savepoints int
}

// NewTransaction returns a top-level transaction with a random ID.
func NewTransaction(typ TxType) *Transaction {
	return &Transaction{ID: uuid.NewString(), Type: typ}
}

// Savepoint returns a child transaction named after t and the number of
// savepoints t created before it. It is not safe for concurrent use.
func (t *Transaction) Savepoint() *Transaction {
	name := fmt.Sprintf("%s-sp-%d", t.ID, t.savepoints)
	t.savepoints++
	return &Transaction{ID: t.ID, Name: name, Parent: t}
}

func (e *Emitter) savepointName(t *Transaction) (string, error) {
	if t.Name == "" {
		return "", querygen.NewCompileError("transaction", "name", "savepoint without a name")
	}
	return e.g.QuoteName(t.Name), nil
}

// StartTransactionQuery begins t, or creates its savepoint when t has a
// parent.
func (e *Emitter) StartTransactionQuery(t *Transaction) (string, error) {
	if t == nil {
		t = &Transaction{}
	}
	if t.Parent != nil {
		name, err := e.savepointName(t)
		if err != nil {
			return "", err
		}
		if e.caps.Tx == dialect.TxMSSQL {
			return e.g.Log("transaction", "SAVE TRANSACTION "+name+";"), nil
		}
		return e.g.Log("transaction", "SAVEPOINT "+name+";"), nil
	}
	switch e.caps.Tx {
	case dialect.TxSQLite:
		typ := t.Type
		if typ == "" {
			typ = Deferred
		}
		if !slices.Contains([]TxType{Deferred, Immediate, Exclusive}, typ) {
			return "", querygen.NewCompileError("transaction", "type", "unknown transaction type %q", t.Type)
		}
		return e.g.Log("transaction", "BEGIN "+string(typ)+" TRANSACTION;"), nil
	case dialect.TxMSSQL:
		return e.g.Log("transaction", "BEGIN TRANSACTION;"), nil
	default:
		return e.g.Log("transaction", "START TRANSACTION;"), nil
	}
}

// CommitQuery commits t. Savepoints are released with their parent, so
// committing one emits nothing.
func (e *Emitter) CommitQuery(t *Transaction) string {
	if t != nil && t.Parent != nil {
		return ""
	}
	if e.caps.Tx == dialect.TxMSSQL {
		return e.g.Log("transaction", "COMMIT TRANSACTION;")
	}
	return e.g.Log("transaction", "COMMIT;")
}

// RollbackQuery rolls back t, or back to its savepoint when t has a parent.
func (e *Emitter) RollbackQuery(t *Transaction) (string, error) {
	mssql := e.caps.Tx == dialect.TxMSSQL
	if t == nil || t.Parent == nil {
		if mssql {
			return e.g.Log("transaction", "ROLLBACK TRANSACTION;"), nil
		}
		return e.g.Log("transaction", "ROLLBACK;"), nil
	}
	name, err := e.savepointName(t)
	if err != nil {
		return "", err
	}
	if mssql {
		return e.g.Log("transaction", "ROLLBACK TRANSACTION "+name+";"), nil
	}
	return e.g.Log("transaction", "ROLLBACK TO SAVEPOINT "+name+";"), nil
}

// SetIsolationLevelQuery sets the isolation level of the next
// transaction. Savepoints inherit the level of their parent and emit
// nothing.
func (e *Emitter) SetIsolationLevelQuery(level string, t *Transaction) (string, error) {
	if t != nil && t.Parent != nil {
		return "", nil
	}
	level = strings.ToUpper(level)
	if !slices.Contains(isolationLevels, level) {
		return "", querygen.NewCompileError("transaction", "isolationLevel", "unknown isolation level %q", level)
	}
	if e.caps.Isolation == dialect.IsolationPragma {
		mode := "OFF"
		if level == ReadUncommitted {
			mode = "ON"
		}
		return e.g.Log("transaction", "PRAGMA read_uncommitted = "+mode+";"), nil
	}
	return e.g.Log("transaction", "SET TRANSACTION ISOLATION LEVEL "+level+";"), nil
}

// SetAutocommitQuery toggles autocommit for the session. Dialects that
// always autocommit emit nothing when enabling it and reject disabling it.
func (e *Emitter) SetAutocommitQuery(enabled bool, t *Transaction) (string, error) {
	if t != nil && t.Parent != nil {
		return "", nil
	}
	switch e.caps.Autocommit {
	case dialect.AutocommitVariable:
		v := "0"
		if enabled {
			v = "1"
		}
		return e.g.Log("transaction", "SET autocommit = "+v+";"), nil
	case dialect.AutocommitImplicitTxns:
		v := "ON"
		if enabled {
			v = "OFF"
		}
		return e.g.Log("transaction", "SET IMPLICIT_TRANSACTIONS "+v+";"), nil
	default:
		if enabled {
			return "", nil
		}
		return "", e.unsupported("disable autocommit", supporting(func(c dialect.Capabilities) bool { return c.Autocommit != dialect.AutocommitNone })...)
	}
}

// DeferrableKind selects when constraint checks run.
type DeferrableKind int

// Deferrable kinds. The first three are attached to constraints, the
// SET kinds change the checks of the running transaction.
const (
	NotDeferrable DeferrableKind = iota
	InitiallyImmediate
	InitiallyDeferred
	SetDeferred
	SetImmediate
)

// Deferrable is the deferral mode of a constraint or a SET CONSTRAINTS
// request. Constraints restricts a SET request to the named constraints.
type Deferrable struct {
	Kind        DeferrableKind
	Constraints []string
}

func (d *Deferrable) clause() string {
	switch d.Kind {
	case InitiallyImmediate:
		return "DEFERRABLE INITIALLY IMMEDIATE"
	case InitiallyDeferred:
		return "DEFERRABLE INITIALLY DEFERRED"
	default:
		return "NOT DEFERRABLE"
	}
}

// SetDeferrableQuery compiles SET CONSTRAINTS for the running transaction.
//
//	e.SetDeferrableQuery(&schema.Deferrable{Kind: schema.SetDeferred})
//	// SET CONSTRAINTS ALL DEFERRED;
func (e *Emitter) SetDeferrableQuery(d *Deferrable) (string, error) {
	if !e.caps.Deferrable {
		return "", e.unsupported("set constraints", supporting(func(c dialect.Capabilities) bool { return c.Deferrable })...)
	}
	if d == nil || (d.Kind != SetDeferred && d.Kind != SetImmediate) {
		return "", querygen.NewCompileError("transaction", "deferrable", "expected SetDeferred or SetImmediate")
	}
	target := "ALL"
	if len(d.Constraints) > 0 {
		target = e.quoteColumns(d.Constraints)
	}
	mode := "DEFERRED"
	if d.Kind == SetImmediate {
		mode = "IMMEDIATE"
	}
	return e.g.Log("transaction", "SET CONSTRAINTS "+target+" "+mode+";"), nil
}

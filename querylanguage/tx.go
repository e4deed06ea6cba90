package querylanguage

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	sqlschema "github.com/syssam/querygen/dialect/sql/schema"
)

// Transaction actions.
const (
	ActionBegin          = "begin"
	ActionSavepoint      = "savepoint"
	ActionCommit         = "commit"
	ActionRollback       = "rollback"
	ActionIsolationLevel = "isolationLevel"
	ActionAutocommit     = "autocommit"
	ActionDeferrable     = "deferrable"
)

// TransactionSpec is a transaction control statement. It is written as the
// bare action or as a mapping:
//
//	- transaction: begin
//	- transaction: {action: isolationLevel, level: SERIALIZABLE}
//	- transaction: {action: savepoint, name: before_import}
type TransactionSpec struct {
	Action      string   `yaml:"action"`
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Level       string   `yaml:"level"`
	Enabled     *bool    `yaml:"enabled"`
	Kind        string   `yaml:"kind"`
	Constraints []string `yaml:"constraints"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (s *TransactionSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		s.Action = n.Value
		return nil
	}
	type plain TransactionSpec
	return n.Decode((*plain)(s))
}

// txState tracks the transaction opened by a document so savepoints,
// commits and rollbacks nest.
type txState struct {
	current *sqlschema.Transaction
}

func (st *txState) compile(e *sqlschema.Emitter, s *TransactionSpec) (string, error) {
	switch s.Action {
	case ActionBegin:
		if st.current != nil {
			return "", fmt.Errorf("transaction already started, use a savepoint")
		}
		t := sqlschema.NewTransaction(sqlschema.TxType(strings.ToUpper(s.Type)))
		if s.Name != "" {
			t.ID = s.Name
		}
		query, err := e.StartTransactionQuery(t)
		if err != nil {
			return "", err
		}
		st.current = t
		return query, nil
	case ActionSavepoint:
		if st.current == nil {
			return "", fmt.Errorf("savepoint outside of a transaction")
		}
		sp := st.current.Savepoint()
		if s.Name != "" {
			sp.Name = s.Name
		}
		query, err := e.StartTransactionQuery(sp)
		if err != nil {
			return "", err
		}
		st.current = sp
		return query, nil
	case ActionCommit:
		if st.current == nil {
			return "", fmt.Errorf("commit outside of a transaction")
		}
		query := e.CommitQuery(st.current)
		st.current = st.current.Parent
		return query, nil
	case ActionRollback:
		if st.current == nil {
			return "", fmt.Errorf("rollback outside of a transaction")
		}
		query, err := e.RollbackQuery(st.current)
		if err != nil {
			return "", err
		}
		st.current = st.current.Parent
		return query, nil
	case ActionIsolationLevel:
		return e.SetIsolationLevelQuery(strings.ToUpper(s.Level), st.current)
	case ActionAutocommit:
		if s.Enabled == nil {
			return "", fmt.Errorf("autocommit requires enabled")
		}
		return e.SetAutocommitQuery(*s.Enabled, st.current)
	case ActionDeferrable:
		d, err := (&DeferrableSpec{Kind: s.Kind, Constraints: s.Constraints}).deferrable()
		if err != nil {
			return "", err
		}
		return e.SetDeferrableQuery(d)
	}
	return "", fmt.Errorf("unknown transaction action %q", s.Action)
}

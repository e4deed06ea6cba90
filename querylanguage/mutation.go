package querylanguage

import (
	"fmt"

	"github.com/syssam/querygen/dialect/sql"
)

// ReturnSpec asks a mutation to hand back the written rows.
type ReturnSpec struct {
	Returning     bool     `yaml:"returning"`
	ReturnColumns []string `yaml:"returnColumns"`
	HasTrigger    bool     `yaml:"hasTrigger"`
}

func (r ReturnSpec) options() sql.ReturnOptions {
	return sql.ReturnOptions{
		Returning:     r.Returning,
		ReturnColumns: r.ReturnColumns,
		HasTrigger:    r.HasTrigger,
	}
}

// InsertSpec describes an INSERT. A mapping of values inserts one row, a
// sequence of mappings inserts them in bulk.
type InsertSpec struct {
	Target            `yaml:",inline"`
	ReturnSpec        `yaml:",inline"`
	Values            Value    `yaml:"values"`
	IgnoreDuplicates  bool     `yaml:"ignoreDuplicates"`
	UpdateOnDuplicate []string `yaml:"updateOnDuplicate"`
	UpsertKeys        []string `yaml:"upsertKeys"`
	ConflictWhere     Value    `yaml:"conflictWhere"`
}

func (s *InsertSpec) options() *sql.InsertOptions {
	return &sql.InsertOptions{
		ReturnOptions:     s.ReturnSpec.options(),
		IgnoreDuplicates:  s.IgnoreDuplicates,
		UpdateOnDuplicate: s.UpdateOnDuplicate,
		UpsertKeys:        s.UpsertKeys,
		ConflictWhere:     s.ConflictWhere.V,
	}
}

// rows returns the rows of a bulk insert, or nil for a single row.
func (s *InsertSpec) rows() ([]any, bool, error) {
	switch v := s.Values.V.(type) {
	case sql.Map:
		return nil, false, nil
	case []any:
		for i, r := range v {
			if _, ok := r.(sql.Map); !ok {
				return nil, false, fmt.Errorf("values[%d]: expected a mapping, got %T", i, r)
			}
		}
		return v, true, nil
	case nil:
		return nil, false, fmt.Errorf("values are required")
	default:
		return nil, false, fmt.Errorf("values must be a mapping or a sequence of mappings, got %T", v)
	}
}

// UpdateSpec describes an UPDATE.
type UpdateSpec struct {
	Target     `yaml:",inline"`
	ReturnSpec `yaml:",inline"`
	Set        Value `yaml:"set"`
	Where      Value `yaml:"where"`
	Limit      int   `yaml:"limit"`
}

func (s *UpdateSpec) options() *sql.UpdateOptions {
	return &sql.UpdateOptions{ReturnOptions: s.ReturnSpec.options(), Limit: s.Limit}
}

// ArithmeticSpec describes an increment or decrement. By maps columns to
// amounts, Set holds plain assignments made in the same statement.
type ArithmeticSpec struct {
	Target     `yaml:",inline"`
	ReturnSpec `yaml:",inline"`
	By         Value `yaml:"by"`
	Set        Value `yaml:"set"`
	Where      Value `yaml:"where"`
}

// options returns nil when nothing was requested, which returns every
// column by default.
func (s *ArithmeticSpec) options() *sql.UpdateOptions {
	if !s.Returning && len(s.ReturnColumns) == 0 && !s.HasTrigger {
		return nil
	}
	return &sql.UpdateOptions{ReturnOptions: s.ReturnSpec.options()}
}

// DeleteSpec describes a DELETE.
type DeleteSpec struct {
	Target `yaml:",inline"`
	Where  Value `yaml:"where"`
	Limit  int   `yaml:"limit"`
}

// TruncateSpec describes a TRUNCATE.
type TruncateSpec struct {
	Target          `yaml:",inline"`
	Cascade         bool `yaml:"cascade"`
	RestartIdentity bool `yaml:"restartIdentity"`
}

package sql

import (
	"fmt"
	"maps"
	"sort"
	"sync/atomic"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/dialect"
)

// Op is a canonical operator token used as a condition key.
type Op string

// Operator tokens.
const (
	OpEq            Op = "eq"
	OpNe            Op = "ne"
	OpGte           Op = "gte"
	OpGt            Op = "gt"
	OpLte           Op = "lte"
	OpLt            Op = "lt"
	OpNot           Op = "not"
	OpIs            Op = "is"
	OpIn            Op = "in"
	OpNotIn         Op = "notIn"
	OpLike          Op = "like"
	OpNotLike       Op = "notLike"
	OpILike         Op = "iLike"
	OpNotILike      Op = "notILike"
	OpStartsWith    Op = "startsWith"
	OpEndsWith      Op = "endsWith"
	OpSubstring     Op = "substring"
	OpRegexp        Op = "regexp"
	OpNotRegexp     Op = "notRegexp"
	OpIRegexp       Op = "iRegexp"
	OpNotIRegexp    Op = "notIRegexp"
	OpBetween       Op = "between"
	OpNotBetween    Op = "notBetween"
	OpOverlap       Op = "overlap"
	OpContains      Op = "contains"
	OpContained     Op = "contained"
	OpAdjacent      Op = "adjacent"
	OpStrictLeft    Op = "strictLeft"
	OpStrictRight   Op = "strictRight"
	OpNoExtendRight Op = "noExtendRight"
	OpNoExtendLeft  Op = "noExtendLeft"
	OpAny           Op = "any"
	OpAll           Op = "all"
	OpValues        Op = "values"
	OpAnd           Op = "and"
	OpOr            Op = "or"
	OpCol           Op = "col"
	OpPlaceholder   Op = "placeholder"
	OpMatch         Op = "match"
	OpRaw           Op = "raw"
)

// operatorMap is the default spelling of each operator.
var operatorMap = map[Op]string{
	OpEq:            "=",
	OpNe:            "!=",
	OpGte:           ">=",
	OpGt:            ">",
	OpLte:           "<=",
	OpLt:            "<",
	OpNot:           "IS NOT",
	OpIs:            "IS",
	OpIn:            "IN",
	OpNotIn:         "NOT IN",
	OpLike:          "LIKE",
	OpNotLike:       "NOT LIKE",
	OpILike:         "ILIKE",
	OpNotILike:      "NOT ILIKE",
	OpStartsWith:    "LIKE",
	OpEndsWith:      "LIKE",
	OpSubstring:     "LIKE",
	OpRegexp:        "~",
	OpNotRegexp:     "!~",
	OpIRegexp:       "~*",
	OpNotIRegexp:    "!~*",
	OpBetween:       "BETWEEN",
	OpNotBetween:    "NOT BETWEEN",
	OpOverlap:       "&&",
	OpContains:      "@>",
	OpContained:     "<@",
	OpAdjacent:      "-|-",
	OpStrictLeft:    "<<",
	OpStrictRight:   ">>",
	OpNoExtendRight: "&<",
	OpNoExtendLeft:  "&>",
	OpAny:           "ANY",
	OpAll:           "ALL",
	OpAnd:           " AND ",
	OpOr:            " OR ",
	OpCol:           "COL",
	OpPlaceholder:   "$$PLACEHOLDER$$",
	OpMatch:         "@@",
}

// Operators returns the canonical operator tokens in sorted order.
func Operators() []Op {
	ops := make([]Op, 0, len(operatorMap))
	for op := range operatorMap {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// isOp reports whether key is a canonical operator token.
func isOp(key string) bool {
	switch Op(key) {
	case OpValues, OpRaw:
		return true
	}
	_, ok := operatorMap[Op(key)]
	return ok
}

// isLogical reports whether key combines nested conditions.
func isLogical(key string) bool {
	switch Op(key) {
	case OpAnd, OpOr, OpNot:
		return true
	}
	return false
}

// aliases holds the installed alias table. Reads are lock-free; a new
// table replaces the previous one atomically.
var aliases atomic.Pointer[map[string]Op]

// SetOperatorAliases replaces the operator alias table. Aliases let
// conditions use alternative spellings, such as "$gt", for canonical
// tokens. A nil or empty table disables aliasing.
func SetOperatorAliases(table map[string]Op) error {
	if len(table) == 0 {
		aliases.Store(nil)
		return nil
	}
	for name, op := range table {
		if !isOp(string(op)) {
			return fmt.Errorf("sql: alias %q refers to unknown operator %q", name, op)
		}
	}
	cp := maps.Clone(table)
	aliases.Store(&cp)
	return nil
}

// OperatorAliases returns a copy of the installed alias table.
func OperatorAliases() map[string]Op {
	if t := aliases.Load(); t != nil {
		return maps.Clone(*t)
	}
	return nil
}

// unalias maps an aliased key to its canonical token.
func unalias(key string) string {
	if t := aliases.Load(); t != nil {
		if op, ok := (*t)[key]; ok {
			return string(op)
		}
	}
	return key
}

// Resolve returns the default SQL spelling of an operator token, applying
// installed aliases first.
func Resolve(token string) (string, bool) {
	s, ok := operatorMap[Op(unalias(token))]
	return s, ok
}

// Operator returns the spelling of op for the generator dialect, or a
// CompileError when the dialect cannot express it.
func (g *Generator) Operator(op Op) (string, error) {
	s, ok := operatorMap[op]
	if !ok {
		return "", querygen.NewCompileError("where", string(op), "unknown operator")
	}
	unsupported := func() (string, error) {
		return "", querygen.NewCompileError("where", string(op), "operator is not supported by %s", g.caps.Name)
	}
	switch op {
	case OpRegexp, OpNotRegexp, OpIRegexp, OpNotIRegexp:
		switch g.caps.Regexp {
		case dialect.RegexpNone:
			return unsupported()
		case dialect.RegexpWord:
			switch op {
			case OpRegexp:
				return "REGEXP", nil
			case OpNotRegexp:
				return "NOT REGEXP", nil
			}
			return unsupported()
		}
	case OpILike, OpNotILike:
		if !g.caps.ILike {
			return unsupported()
		}
	case OpOverlap, OpContains, OpContained, OpAdjacent, OpStrictLeft, OpStrictRight,
		OpNoExtendRight, OpNoExtendLeft, OpMatch:
		if !g.caps.RangeOperators {
			return unsupported()
		}
	case OpAny, OpAll:
		if !g.caps.Arrays {
			return unsupported()
		}
	}
	return s, nil
}

package privacy

import (
	"context"
	"slices"

	"github.com/syssam/querygen"
)

// DenyOperationRule returns a rule denying the specified operation kinds.
//
// Example:
//
//	privacy.Policy{
//	    privacy.DenyOperationRule(querygen.OpDDL | querygen.OpTruncate),
//	}
func DenyOperationRule(op querygen.Op) Rule {
	rule := RuleFunc(func(_ context.Context, o Operation) error {
		return Denyf("querygen/privacy: operation %s is not allowed", o.Op())
	})
	return OnOperation(rule, op)
}

// AllowOperationRule returns a rule allowing the specified operation kinds.
func AllowOperationRule(op querygen.Op) Rule {
	rule := RuleFunc(func(context.Context, Operation) error {
		return Allow
	})
	return OnOperation(rule, op)
}

// ReadOnlyRule denies every operation writing rows or changing the schema.
// Transaction control and reads are left to the next rule.
func ReadOnlyRule() Rule {
	return DenyOperationRule(querygen.OpMutation | querygen.OpDDL)
}

// DenyUnfilteredRule denies updates and deletes without a where condition,
// and truncates, which always touch every row of a table.
//
// Example:
//
//	privacy.Policies{
//	    privacy.Policy{privacy.DenyUnfilteredRule()},
//	}
func DenyUnfilteredRule() Rule {
	return RuleFunc(func(_ context.Context, o Operation) error {
		switch op := o.Op(); {
		case op.Is(querygen.OpTruncate):
			return Denyf("querygen/privacy: truncate of %q touches every row", o.Table())
		case op.Is(querygen.OpUpdate|querygen.OpDelete) && !o.Filtered():
			return Denyf("querygen/privacy: %s of %q has no where condition", op, o.Table())
		}
		return Skip
	})
}

// DenyTableRule denies any operation on one of the given tables.
func DenyTableRule(tables ...string) Rule {
	return RuleFunc(func(_ context.Context, o Operation) error {
		if t := o.Table(); t != "" && slices.Contains(tables, t) {
			return Denyf("querygen/privacy: table %q is not allowed", t)
		}
		return Skip
	})
}

// AllowTableRule allows any operation on one of the given tables and skips
// the others.
func AllowTableRule(tables ...string) Rule {
	return RuleFunc(func(_ context.Context, o Operation) error {
		if slices.Contains(tables, o.Table()) {
			return Allow
		}
		return Skip
	})
}

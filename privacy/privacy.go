// Package privacy provides sets of types and helpers for writing rules
// that decide whether a compiled operation may be emitted, and deals with
// their evaluation at runtime.
package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/querygen"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from rules to indicate how the
// policy evaluation should proceed. Use errors.Is() to check for these
// values:
//
//	if errors.Is(err, privacy.Allow) { ... }
//	if errors.Is(err, privacy.Deny) { ... }
//	if errors.Is(err, privacy.Skip) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	Allow = errors.New("querygen/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	Deny = errors.New("querygen/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	Skip = errors.New("querygen/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Operation is the view of a decoded operation that rules evaluate.
// *querylanguage.Operation implements it.
type Operation interface {
	// Op returns the kind of statement the operation compiles to.
	Op() querygen.Op
	// Table returns the table the operation works on, or "".
	Table() string
	// Filtered reports whether a condition restricts the touched rows.
	Filtered() bool
}

// Rule defines the interface deciding whether an operation is allowed.
type Rule interface {
	Eval(context.Context, Operation) error
}

// RuleFunc type is an adapter which allows the use of ordinary functions
// as rules.
type RuleFunc func(context.Context, Operation) error

// Eval returns f(ctx, op).
func (f RuleFunc) Eval(ctx context.Context, op Operation) error {
	return f(ctx, op)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() Rule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() Rule {
	return fixedDecision{Deny}
}

// ContextRule creates a rule from a context evaluation function.
// Returning nil is equivalent to returning Skip.
func ContextRule(eval func(context.Context) error) Rule {
	return RuleFunc(func(ctx context.Context, _ Operation) error {
		return eval(ctx)
	})
}

// OnOperation evaluates the given rule only on the given operation kinds.
func OnOperation(rule Rule, op querygen.Op) Rule {
	return RuleFunc(func(ctx context.Context, o Operation) error {
		if o.Op().Is(op) {
			return rule.Eval(ctx, o)
		}
		return Skip
	})
}

// Policy is a list of rules evaluated in order. The first rule returning
// anything but nil or Skip decides, and its decision is returned as is.
type Policy []Rule

// Eval evaluates the rules of the policy.
func (p Policy) Eval(ctx context.Context, op Operation) error {
	for _, rule := range p {
		switch decision := rule.Eval(ctx, op); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

// Policies combines multiple policies into a single policy. An Allow
// decision from one of them stops the evaluation with a nil error.
type Policies []Rule

// Eval evaluates the policies. A decision attached to the context with
// DecisionContext takes precedence over all of them.
func (policies Policies) Eval(ctx context.Context, op Operation) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, policy := range policies {
		switch decision := policy.Eval(ctx, op); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attach to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) Eval(context.Context, Operation) error {
	return f.decision
}

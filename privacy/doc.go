// Package privacy evaluates rules against decoded operations before they
// are compiled, so a descriptor file cannot emit statements its caller
// does not permit.
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: grants the operation and stops evaluation
//   - Deny: rejects the operation and stops evaluation
//   - Skip: continues to the next rule
//
// If every rule skips, the operation is allowed. End a policy with
// AlwaysDenyRule to deny by default.
//
// # Built-in Rules
//
//   - AlwaysAllowRule, AlwaysDenyRule: fixed decisions
//   - DenyOperationRule, AllowOperationRule: match operation kinds
//   - ReadOnlyRule: denies mutations and DDL
//   - DenyUnfilteredRule: denies updates and deletes without a where condition
//   - DenyTableRule, AllowTableRule: match table names
//
// # Example
//
//	policy := privacy.Policies{
//	    privacy.Policy{
//	        privacy.DenyTableRule("audit_log"),
//	        privacy.DenyUnfilteredRule(),
//	    },
//	}
//	for i := range doc.Operations {
//	    if err := policy.Eval(ctx, &doc.Operations[i]); err != nil {
//	        return err
//	    }
//	}
//
// A decision attached with DecisionContext overrides every policy, which
// lets a caller force an operation through:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy

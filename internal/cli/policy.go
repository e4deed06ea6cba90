package cli

import (
	"context"
	"fmt"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/privacy"
	"github.com/syssam/querygen/querylanguage"
)

// Policy builds the privacy policy described by cfg. An empty
// configuration allows every operation.
func (c PolicyConfig) Policy() privacy.Policy {
	var policy privacy.Policy
	if c.ReadOnly {
		policy = append(policy, privacy.ReadOnlyRule())
	}
	if c.DenyDDL {
		policy = append(policy, privacy.DenyOperationRule(querygen.OpDDL))
	}
	if len(c.DenyTables) > 0 {
		policy = append(policy, privacy.DenyTableRule(c.DenyTables...))
	}
	if c.DenyUnfiltered {
		policy = append(policy, privacy.DenyUnfilteredRule())
	}
	return policy
}

// Authorize evaluates policy against every operation of doc and returns
// the first denial.
func Authorize(ctx context.Context, policy privacy.Policy, doc *querylanguage.Document) error {
	if len(policy) == 0 {
		return nil
	}
	policies := privacy.Policies{policy}
	for i := range doc.Operations {
		op := &doc.Operations[i]
		if err := policies.Eval(ctx, op); err != nil {
			name := op.Name
			if name == "" {
				name = fmt.Sprintf("#%d (%s)", i, op.Kind())
			}
			return fmt.Errorf("operation %s: %w", name, err)
		}
	}
	return nil
}

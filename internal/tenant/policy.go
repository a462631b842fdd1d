package tenant

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

//go:embed policy.rego
var defaultPolicyModule string

// PolicyInput is the compliance-check input document evaluated against
// the embedded Rego module (spec.md 4.1 "Access validation").
type PolicyInput struct {
	ComplianceTags []string `json:"compliance_tags"`
	RequestRegion  string   `json:"request_region"`
}

// CompliancePolicy evaluates a PolicyInput against a Rego module and
// reports whether the request is allowed. Swapping the policy engine
// for an if/else chain would work too, but Rego makes the region/tag
// rule independently testable and lets operators override the module
// at deploy time via OPAPolicyPath without a code change.
type CompliancePolicy struct {
	query rego.PreparedEvalQuery
}

// NewCompliancePolicy prepares the policy query once at startup. An
// empty modulePath falls back to the module embedded in the binary.
func NewCompliancePolicy(ctx context.Context, modulePath string) (*CompliancePolicy, error) {
	opts := []func(*rego.Rego){
		rego.Query("data.tenant.access.allow"),
	}
	if modulePath != "" {
		opts = append(opts, rego.Load([]string{modulePath}, nil))
	} else {
		opts = append(opts, rego.Module("policy.rego", defaultPolicyModule))
	}
	query, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("tenant: prepare compliance policy: %w", err)
	}
	return &CompliancePolicy{query: query}, nil
}

// Allow evaluates the policy for one request. Any evaluation error is
// treated as a failure of directory access validation and surfaces to
// the caller as ErrDenied, not swallowed as an implicit allow.
func (p *CompliancePolicy) Allow(ctx context.Context, in PolicyInput) (bool, error) {
	results, err := p.query.Eval(ctx, rego.EvalInput(map[string]any{
		"compliance_tags": in.ComplianceTags,
		"request_region":  in.RequestRegion,
	}))
	if err != nil {
		return false, fmt.Errorf("tenant: evaluate compliance policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, fmt.Errorf("tenant: compliance policy produced no result")
	}
	allow, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("tenant: compliance policy result was not boolean")
	}
	return allow, nil
}

package tenant

import "errors"

// Sentinel errors returned by Directory.Resolve, matched with errors.Is
// at the orchestrator's HTTP boundary to pick a status code (spec.md 4.7).
var (
	// ErrMissing means no identifier was found in any of the five
	// locations the identifier chain checks.
	ErrMissing = errors.New("tenant: no identifier present on request")

	// ErrUnknown means an identifier was found but does not resolve to
	// any tenant in the directory.
	ErrUnknown = errors.New("tenant: identifier does not resolve to a known tenant")

	// ErrDenied means the tenant resolved but failed compliance policy
	// or exceeded its rate limit.
	ErrDenied = errors.New("tenant: request denied by policy or rate limit")
)

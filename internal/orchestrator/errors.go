package orchestrator

import "errors"

// ErrMalformedJSON is the sentinel for spec.md 4.7 step 3's "malformed
// JSON -> 500 with internal error envelope" case, distinct from a
// missing-required-field ValidationFailure which maps to 400.
var ErrMalformedJSON = errors.New("orchestrator: malformed request body")

package tenant

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// platformDomain is the second label a host-header subdomain must match
// to be treated as a tenant slug (spec.md 4.1.3).
const platformDomain = "foundry-iot"

// identifierFunc extracts a tenant identifier from a request, returning
// "" when its location carries none.
type identifierFunc func(r *http.Request) string

// identifierChain is the fallback chain from spec.md 4.1, tried in
// order until one returns a non-empty identifier. Preserving the order
// as a slice of small functions — rather than one long if/else — is
// the REDESIGN FLAG "ad-hoc tenant-identifier extraction" fix.
var identifierChain = []identifierFunc{
	identifierFromHeader,
	identifierFromBearerJWT,
	identifierFromHostSubdomain,
	identifierFromQueryParam,
	identifierFromAPIKey,
}

// Identify runs the fallback chain and returns the first non-empty
// identifier, or "" if none of the five locations carried one.
func Identify(r *http.Request) string {
	for _, fn := range identifierChain {
		if id := fn(r); id != "" {
			return id
		}
	}
	return ""
}

func identifierFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
}

// identifierFromBearerJWT decodes the unverified payload segment of a
// JWT-shaped bearer token and reads its tenant_id claim. Signature
// verification is out of scope here — the identifier chain only
// extracts an identifier; access validation happens afterward in
// Directory.Resolve.
func identifierFromBearerJWT(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	token := strings.TrimPrefix(auth, prefix)
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var claims struct {
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return claims.TenantID
}

// identifierFromHostSubdomain treats the first label of the Host header
// as a tenant slug when the host has at least three dot-separated
// labels and the second label matches the platform domain, e.g.
// "acme-corp.foundry-iot.example.com".
func identifierFromHostSubdomain(r *http.Request) string {
	host := r.Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	labels := strings.Split(host, ".")
	if len(labels) < 3 || labels[1] != platformDomain {
		return ""
	}
	return labels[0]
}

func identifierFromQueryParam(r *http.Request) string {
	return r.URL.Query().Get("tenant_id")
}

// identifierFromAPIKey takes the substring of X-API-Key before its
// first underscore, e.g. "acmecorp_live_sk_abc123" -> "acmecorp".
func identifierFromAPIKey(r *http.Request) string {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		return ""
	}
	if i := strings.IndexByte(key, '_'); i >= 0 {
		return key[:i]
	}
	return key
}

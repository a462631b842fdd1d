package tenant

import (
	"encoding/base64"
	"net/http/httptest"
	"testing"
)

func TestIdentifyHeaderWins(t *testing.T) {
	r := httptest.NewRequest("POST", "/data?tenant_id=from-query", nil)
	r.Header.Set("X-Tenant-ID", "from-header")
	r.Header.Set("X-API-Key", "from-apikey_live_sk")

	if got := Identify(r); got != "from-header" {
		t.Errorf("Identify() = %q, want %q", got, "from-header")
	}
}

func TestIdentifyFallsBackThroughChain(t *testing.T) {
	r := httptest.NewRequest("POST", "/data?tenant_id=from-query", nil)
	if got := Identify(r); got != "from-query" {
		t.Errorf("Identify() = %q, want %q", got, "from-query")
	}
}

func TestIdentifyFromBearerJWT(t *testing.T) {
	claims := `{"tenant_id":"acme-corp"}`
	payload := base64.RawURLEncoding.EncodeToString([]byte(claims))
	token := "header." + payload + ".signature"

	r := httptest.NewRequest("POST", "/data", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	if got := Identify(r); got != "acme-corp" {
		t.Errorf("Identify() = %q, want %q", got, "acme-corp")
	}
}

func TestIdentifyFromHostSubdomain(t *testing.T) {
	r := httptest.NewRequest("POST", "/data", nil)
	r.Host = "acme-corp.foundry-iot.example.com"

	if got := Identify(r); got != "acme-corp" {
		t.Errorf("Identify() = %q, want %q", got, "acme-corp")
	}
}

func TestIdentifyFromHostSubdomainRejectsWrongDomain(t *testing.T) {
	r := httptest.NewRequest("POST", "/data", nil)
	r.Host = "acme-corp.someother.example.com"

	if got := Identify(r); got != "" {
		t.Errorf("Identify() = %q, want empty for a non-platform host", got)
	}
}

func TestIdentifyFromAPIKeyPrefix(t *testing.T) {
	r := httptest.NewRequest("POST", "/data", nil)
	r.Header.Set("X-API-Key", "acmecorp_live_sk_abc123")

	if got := Identify(r); got != "acmecorp" {
		t.Errorf("Identify() = %q, want %q", got, "acmecorp")
	}
}

func TestIdentifyReturnsEmptyWhenNoLocationCarriesOne(t *testing.T) {
	r := httptest.NewRequest("POST", "/data", nil)
	if got := Identify(r); got != "" {
		t.Errorf("Identify() = %q, want empty", got)
	}
}

func TestIdentifierFromBearerJWTIgnoresMalformedToken(t *testing.T) {
	r := httptest.NewRequest("POST", "/data", nil)
	r.Header.Set("Authorization", "Bearer not-a-jwt")
	if got := identifierFromBearerJWT(r); got != "" {
		t.Errorf("expected empty identifier for malformed JWT, got %q", got)
	}
}

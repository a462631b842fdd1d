// Package secrets resolves a tenant's ObjectConfig.EncryptionKeyRef
// into the actual encryption key material the cold tier needs, via a
// 1Password-backed store with a local-file fallback — adapted from the
// teacher's SSH-provisioning keystore to a simpler string-keyed lookup
// since this domain has no key generation or rotation workflow, only
// resolution of references a tenant's directory record already names.
package secrets

import "context"

// KeyStore resolves a key reference to its material.
type KeyStore interface {
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// Config selects and configures a KeyStore backend.
type Config struct {
	// Backend is "1password", "local", or "auto" (1Password if
	// configured, local otherwise).
	Backend string

	OnePasswordToken string
	OnePasswordHost  string
	OnePasswordVault string

	LocalKeyDir string
}

// ConfigFromEnv builds a Config from the standard 1Password Connect
// environment variables, mirroring the teacher's secrets factory.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := Config{
		Backend:          orDefault(getenv("SECRETS_BACKEND"), "auto"),
		OnePasswordToken: getenv("OP_CONNECT_TOKEN"),
		OnePasswordHost:  getenv("OP_CONNECT_HOST"),
		OnePasswordVault: orDefault(getenv("OP_VAULT_ID"), ""),
		LocalKeyDir:      orDefault(getenv("LOCAL_KEY_DIR"), ""),
	}
	return cfg
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

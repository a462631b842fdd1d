package secrets

import (
	"fmt"
	"log/slog"
)

// New builds a KeyStore from cfg, falling back to the local backend
// when "auto" is requested and 1Password is not configured — the same
// fallback discipline as the teacher's secrets factory.
func New(cfg Config, logger *slog.Logger) (KeyStore, error) {
	switch cfg.Backend {
	case "1password":
		return NewOnePasswordKeyStore(cfg.OnePasswordHost, cfg.OnePasswordToken, cfg.OnePasswordVault, logger)

	case "local":
		return NewLocalKeyStore(cfg.LocalKeyDir, logger)

	case "auto", "":
		if cfg.OnePasswordToken != "" {
			ks, err := NewOnePasswordKeyStore(cfg.OnePasswordHost, cfg.OnePasswordToken, cfg.OnePasswordVault, logger)
			if err != nil {
				logger.Warn("1password keystore init failed, falling back to local", "error", err)
				return NewLocalKeyStore(cfg.LocalKeyDir, logger)
			}
			return ks, nil
		}
		return NewLocalKeyStore(cfg.LocalKeyDir, logger)

	default:
		return nil, fmt.Errorf("secrets: unknown backend %q", cfg.Backend)
	}
}

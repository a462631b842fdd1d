package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1Password/connect-sdk-go/connect"
)

// OnePasswordKeyStore resolves encryption key references against a
// 1Password vault via the Connect API, caching lookups for the
// lifetime of the process.
type OnePasswordKeyStore struct {
	client  connect.Client
	vaultID string
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewOnePasswordKeyStore constructs a store against a running Connect
// server.
func NewOnePasswordKeyStore(host, token, vaultID string, logger *slog.Logger) (*OnePasswordKeyStore, error) {
	if host == "" || token == "" || vaultID == "" {
		return nil, fmt.Errorf("secrets: 1password configuration incomplete: host, token and vault id are required")
	}
	client := connect.NewClientWithUserAgent(host, token, "telemetry-ingest")
	return &OnePasswordKeyStore{
		client:  client,
		vaultID: vaultID,
		logger:  logger,
		cache:   make(map[string]string),
	}, nil
}

// Resolve looks up ref as an item title in the configured vault and
// returns its "key" field value.
func (ks *OnePasswordKeyStore) Resolve(ctx context.Context, ref string) (string, error) {
	ks.mu.RLock()
	if v, ok := ks.cache[ref]; ok {
		ks.mu.RUnlock()
		return v, nil
	}
	ks.mu.RUnlock()

	item, err := ks.client.GetItemByTitle(ref, ks.vaultID)
	if err != nil {
		return "", fmt.Errorf("secrets: resolve key ref %q: %w", ref, err)
	}
	for _, field := range item.Fields {
		if field.Label == "key" {
			ks.mu.Lock()
			ks.cache[ref] = field.Value
			ks.mu.Unlock()
			return field.Value, nil
		}
	}
	return "", fmt.Errorf("secrets: item %q has no %q field", ref, "key")
}

func (ks *OnePasswordKeyStore) Close() error { return nil }

package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalKeyStore resolves a key reference to the contents of a file
// named <ref> under a directory, for development and CI use.
type LocalKeyStore struct {
	dir    string
	logger *slog.Logger
}

// NewLocalKeyStore constructs a store rooted at dir, defaulting to
// ~/.telemetry-ingest/keys when dir is empty.
func NewLocalKeyStore(dir string, logger *slog.Logger) (*LocalKeyStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("secrets: resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".telemetry-ingest", "keys")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("secrets: create key directory %q: %w", dir, err)
	}
	return &LocalKeyStore{dir: dir, logger: logger}, nil
}

func (ks *LocalKeyStore) Resolve(ctx context.Context, ref string) (string, error) {
	if strings.ContainsAny(ref, "/\\") {
		return "", fmt.Errorf("secrets: invalid key reference %q", ref)
	}
	data, err := os.ReadFile(filepath.Join(ks.dir, ref))
	if err != nil {
		return "", fmt.Errorf("secrets: read local key %q: %w", ref, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (ks *LocalKeyStore) Close() error { return nil }

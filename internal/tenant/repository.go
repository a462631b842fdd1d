package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// PostgresRepository backs Repository against the warm-store pool.
// Tenant onboarding and directory management are explicitly out of
// scope (spec.md 2 "Deliberately out of scope") — this is only the
// read side a running process needs to resolve a tenant_id into its
// TenantContext, grounded on the teacher's store.Store query style.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a Repository over pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Schema (the tenants directory table) is created by db/migrate's
// warm-tier migration set, run once against the shared warm pool at
// startup, alongside equipment_status.

// GetTenant loads one tenant's context. A nil, nil result means the
// tenant does not exist, matched by Directory to ErrUnknown.
func (r *PostgresRepository) GetTenant(ctx context.Context, tenantID string) (*types.TenantContext, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT context FROM tenants WHERE tenant_id = $1`, tenantID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tenant: load tenant %q: %w", tenantID, err)
	}
	var tc types.TenantContext
	if err := json.Unmarshal(raw, &tc); err != nil {
		return nil, fmt.Errorf("tenant: decode tenant %q: %w", tenantID, err)
	}
	return &tc, nil
}

// Put upserts a tenant's context. Nothing in the ingestion process or
// its tests calls it; the write path is out of scope for the ingestion
// process proper.
func (r *PostgresRepository) Put(ctx context.Context, tc types.TenantContext) error {
	raw, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("tenant: encode tenant %q: %w", tc.TenantID, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO tenants (tenant_id, context, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant_id) DO UPDATE SET context = EXCLUDED.context, updated_at = now()
	`, tc.TenantID, raw)
	if err != nil {
		return fmt.Errorf("tenant: store tenant %q: %w", tc.TenantID, err)
	}
	return nil
}

// Package dataplane resolves a TenantContext into the concrete
// connection pools, object-store target, and topic names a request
// must use (spec.md 4.2).
package dataplane

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BorrowedConn wraps a pooled connection that has had the shared-mode
// row-level-security session variable set on it. Release returns the
// connection to its pool without clearing the variable; BorrowShared
// sets it again on every acquisition, so each shared-pool borrower sees
// its own tenant's value (spec.md 4.2 "Row-level-security discipline",
// REDESIGN FLAG "dynamic tenant-keyed resource selection").
type BorrowedConn struct {
	conn *pgxpool.Conn
}

// Conn exposes the underlying connection for queries.
func (b *BorrowedConn) Conn() *pgx.Conn {
	return b.conn.Conn()
}

// Release returns the connection to the pool.
func (b *BorrowedConn) Release() {
	b.conn.Release()
}

// BorrowShared acquires a connection from a shared pool and sets
// app.current_tenant_id on it with set_config. The variable is
// session-scoped (not transaction-local), so it applies to every
// statement run on the connection for the duration of the borrow.
func BorrowShared(ctx context.Context, pool *pgxpool.Pool, tenantID string) (*BorrowedConn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("dataplane: acquire shared connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "SELECT set_config('app.current_tenant_id', $1, false)", tenantID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("dataplane: set session tenant variable: %w", err)
	}
	return &BorrowedConn{conn: conn}, nil
}

// BorrowDedicated acquires a connection from a tenant's dedicated pool.
// No session variable is required since the pool itself is scoped to
// one tenant.
func BorrowDedicated(ctx context.Context, pool *pgxpool.Pool) (*BorrowedConn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("dataplane: acquire dedicated connection: %w", err)
	}
	return &BorrowedConn{conn: conn}, nil
}

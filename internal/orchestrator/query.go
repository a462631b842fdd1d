package orchestrator

import (
	"context"
	"net/http"
	"time"

	"github.com/foundry-iot/telemetry-ingest/internal/cache"
	"github.com/foundry-iot/telemetry-ingest/internal/config"
	"github.com/foundry-iot/telemetry-ingest/internal/dataplane"
)

// handleListEquipment implements "equipment current status" over every
// tracked equipment for the resolved tenant's warm tier (spec.md 4.8).
func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	tc, dp, ok := s.resolveQuery(w, r)
	if !ok {
		return
	}
	statuses, err := s.deps.Warm.ListStatus(r.Context(), dp.WarmPool)
	if err != nil {
		s.logger.Error("list equipment status failed", "tenant_id", tc.TenantID, "error", err)
		s.writeEnvelope(w, http.StatusInternalServerError, nil, "Internal server error", []string{err.Error()})
		return
	}
	s.writeEnvelope(w, http.StatusOK, statuses, "", nil)
}

// handleEquipmentStatus implements "equipment current status" for one
// equipment (spec.md 4.8).
func (s *Server) handleEquipmentStatus(w http.ResponseWriter, r *http.Request) {
	tc, dp, ok := s.resolveQuery(w, r)
	if !ok {
		return
	}
	equipmentID := r.PathValue("id")

	key := cache.Key(tc.TenantID, equipmentID, "status")
	var cached struct {
		Status any `json:"status"`
	}
	if s.deps.Cache != nil {
		if hit, _ := s.deps.Cache.GetJSON(r.Context(), key, &cached); hit {
			s.writeEnvelope(w, http.StatusOK, cached.Status, "", nil)
			return
		}
	}

	status, err := s.deps.Warm.GetStatus(r.Context(), dp.WarmPool, equipmentID)
	if err != nil {
		s.writeEnvelope(w, http.StatusNotFound, nil, "equipment not found", []string{err.Error()})
		return
	}
	if s.deps.Cache != nil {
		cached.Status = status
		_ = s.deps.Cache.SetJSON(r.Context(), key, cached, config.CacheTTLEquipmentStatus)
	}
	s.writeEnvelope(w, http.StatusOK, status, "", nil)
}

// handleEquipmentMetrics implements "recent sensor data" from the hot
// tier over [start_time, end_time], defaulting to the trailing 30 days
// (spec.md 4.8).
func (s *Server) handleEquipmentMetrics(w http.ResponseWriter, r *http.Request) {
	tc, dp, ok := s.resolveQuery(w, r)
	if !ok {
		return
	}
	equipmentID := r.PathValue("id")
	start, end := parseRange(r)

	conn, err := s.borrowHot(r.Context(), dp, tc.TenantID)
	if err != nil {
		s.logger.Error("borrow hot tier connection failed", "tenant_id", tc.TenantID, "error", err)
		s.writeEnvelope(w, http.StatusInternalServerError, nil, "Internal server error", []string{err.Error()})
		return
	}
	defer conn.Release()

	readings, err := s.deps.Hot.ListRecent(r.Context(), conn, equipmentID, start, end)
	if err != nil {
		s.logger.Error("list recent sensor data failed", "tenant_id", tc.TenantID, "error", err)
		s.writeEnvelope(w, http.StatusInternalServerError, nil, "Internal server error", []string{err.Error()})
		return
	}
	s.writeEnvelope(w, http.StatusOK, readings, "", nil)
}

// handleHistoricalKeys implements "historical keys" over the cold tier
// (spec.md 4.8): object keys only, no bodies.
func (s *Server) handleHistoricalKeys(w http.ResponseWriter, r *http.Request) {
	tc, dp, ok := s.resolveQuery(w, r)
	if !ok {
		return
	}
	equipmentID := r.PathValue("id")
	start, end := parseRange(r)

	keys, err := s.deps.Cold.ListKeys(r.Context(), dp.Object.Bucket, dp.Object.Prefix, equipmentID, start, end)
	if err != nil {
		s.logger.Error("list historical keys failed", "tenant_id", tc.TenantID, "error", err)
		s.writeEnvelope(w, http.StatusInternalServerError, nil, "Internal server error", []string{err.Error()})
		return
	}
	s.writeEnvelope(w, http.StatusOK, keys, "", nil)
}

// resolveQuery runs the shared prelude every Query Surface operation
// requires: tenant resolution, data-plane selection, and a usage tick
// (spec.md 4.8 "Each operation resolves tenant context... and emits a
// per-tenant usage tick").
func (s *Server) resolveQuery(w http.ResponseWriter, r *http.Request) (tenantContextResult, dataplane.DataPlane, bool) {
	tc, err := s.deps.Directory.Resolve(r.Context(), r, s.deps.Region)
	if err != nil {
		s.writeTenantError(w, err)
		return tenantContextResult{}, dataplane.DataPlane{}, false
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.TickTenantUsage(tc.TenantID)
	}
	dp, err := s.deps.Selector.Select(r.Context(), tc)
	if err != nil {
		s.logger.Error("data-plane selection failed", "tenant_id", tc.TenantID, "error", err)
		s.writeEnvelope(w, http.StatusInternalServerError, nil, "Internal server error", []string{err.Error()})
		return tenantContextResult{}, dataplane.DataPlane{}, false
	}
	return tenantContextResult{TenantID: tc.TenantID}, dp, true
}

// tenantContextResult is the narrow slice of TenantContext query
// handlers need after resolution.
type tenantContextResult struct {
	TenantID string
}

func (s *Server) borrowHot(ctx context.Context, dp dataplane.DataPlane, tenantID string) (*dataplane.BorrowedConn, error) {
	if dp.Shared {
		return dataplane.BorrowShared(ctx, dp.HotPool, tenantID)
	}
	return dataplane.BorrowDedicated(ctx, dp.HotPool)
}

func parseRange(r *http.Request) (start, end time.Time) {
	end = time.Now().UTC()
	start = end.Add(-30 * 24 * time.Hour)
	if v := r.URL.Query().Get("start_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			start = t
		}
	}
	if v := r.URL.Query().Get("end_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			end = t
		}
	}
	return start, end
}

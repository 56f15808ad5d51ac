// Package handler provides HTTP handlers for the schedule API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/schedulehub/p2p/internal/api/models"
	"github.com/schedulehub/p2p/internal/api/response"
	"github.com/schedulehub/p2p/internal/provider/resilience"
)

// readinessTimeout bounds dependency checks.
const readinessTimeout = 2 * time.Second

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds the dependencies reported by the ops endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Cache is the shared cache; nil when caching is disabled.
	Cache Pinger

	// CacheBackend names the cache backend for status output.
	CacheBackend string

	Registry *resilience.Registry
	Pool     *resilience.Pool
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. A cache outage does not make the
// service unready, since searches fall through to the carriers; it is
// reported as degraded.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	cache := h.cacheStatus(r.Context())

	health := models.Health{
		Status: cache.Status,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"cache": cache.Status,
		},
	}
	if cache.Detail != nil {
		health.Details["cacheError"] = *cache.Detail
	}
	if h.cfg.Registry != nil {
		health.Details["carriers"] = h.cfg.Registry.Count()
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - carrier circuits and subsystems.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Version:    h.cfg.Version,
		Subsystems: []models.SubsystemStatus{h.cacheStatus(r.Context())},
		Carriers:   []models.CarrierStatus{},
	}

	if h.cfg.Registry != nil {
		for _, health := range h.cfg.Registry.GetAllHealth() {
			status.Carriers = append(status.Carriers, carrierStatus(health))
		}
	}
	if h.cfg.Pool != nil {
		limits := h.cfg.Pool.Limits()
		status.Pool = &models.PoolStatus{
			MaxIdleConns:    limits.MaxIdleConns,
			MaxConnsPerHost: limits.MaxConnsPerHost,
			Growths:         limits.Growths,
		}
	}

	status.Status = overall(status)
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) cacheStatus(ctx context.Context) models.SubsystemStatus {
	name := "cache"
	if h.cfg.CacheBackend != "" {
		name = "cache:" + h.cfg.CacheBackend
	}
	if h.cfg.Cache == nil {
		detail := "disabled"
		return models.SubsystemStatus{Name: name, Status: models.HealthStatusOK, Detail: &detail}
	}

	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	if err := h.cfg.Cache.Ping(ctx); err != nil {
		detail := err.Error()
		return models.SubsystemStatus{Name: name, Status: models.HealthStatusDegraded, Detail: &detail}
	}
	return models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
}

func carrierStatus(h *resilience.CarrierHealth) models.CarrierStatus {
	s := models.CarrierStatus{
		Carrier:             h.Name,
		CircuitState:        h.CircuitState.String(),
		ConsecutiveFailures: h.Counts.ConsecutiveFailures,
		LastSuccessAt:       models.TimestampPtr(h.LastSuccessAt),
		LastFailureAt:       models.TimestampPtr(h.LastFailureAt),
	}
	switch h.CircuitState {
	case gobreaker.StateOpen:
		s.Status = models.HealthStatusFail
	case gobreaker.StateHalfOpen:
		s.Status = models.HealthStatusDegraded
	default:
		s.Status = models.HealthStatusOK
	}
	if h.LastError != "" {
		msg := h.LastError
		s.Message = &msg
	}
	return s
}

// overall is FAIL when every carrier circuit is open and DEGRADED when any
// subsystem or carrier is unhealthy.
func overall(s models.SystemStatus) models.HealthStatus {
	open := 0
	degraded := false
	for _, c := range s.Carriers {
		if c.Status == models.HealthStatusFail {
			open++
		}
		if c.Status != models.HealthStatusOK {
			degraded = true
		}
	}
	for _, sub := range s.Subsystems {
		if sub.Status != models.HealthStatusOK {
			degraded = true
		}
	}
	switch {
	case len(s.Carriers) > 0 && open == len(s.Carriers):
		return models.HealthStatusFail
	case degraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

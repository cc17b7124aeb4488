package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

const probeTimeout = 2 * time.Second

// componentCheck probes one dependency. The critical flag decides whether a
// failure takes the whole service unhealthy; the cache is best-effort.
type componentCheck struct {
	name     string
	critical bool
	probe    func(ctx context.Context) error
}

// HealthStatus is the JSON body of the /health endpoint
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker probes the service's storage dependencies
type HealthChecker struct {
	checks []componentCheck
}

// NewHealthChecker builds the dependency probe set. The redis client may be
// nil when no cache backend is configured.
func NewHealthChecker(dbPool *pgxpool.Pool, redisClient *redis.Client) *HealthChecker {
	h := &HealthChecker{}
	if dbPool != nil {
		h.checks = append(h.checks, componentCheck{
			name:     "database",
			critical: true,
			probe:    dbPool.Ping,
		})
	}
	if redisClient != nil {
		h.checks = append(h.checks, componentCheck{
			name:  "cache",
			probe: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	return h
}

// Check runs every probe with a short per-probe timeout
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(h.checks)),
	}

	for _, c := range h.checks {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := c.probe(probeCtx)
		cancel()

		if err != nil {
			status.Checks[c.name] = "unhealthy: " + err.Error()
			if c.critical {
				status.Status = "unhealthy"
			}
			continue
		}
		status.Checks[c.name] = "healthy"
	}
	return status
}

// HealthHandler serves the probe results; non-200 when a critical dependency
// is down
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}

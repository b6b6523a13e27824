package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthChecker is one dependency probe run by the readiness endpoint.
type HealthChecker interface {
	Check(ctx context.Context) error
	Name() string
}

type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status   string `json:"status"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RedisHealthChecker probes the activity pub/sub backend.
type RedisHealthChecker struct {
	client *redis.Client
}

func NewRedisHealthChecker(redisURL string) (*RedisHealthChecker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisHealthChecker{client: redis.NewClient(opts)}, nil
}

func (c *RedisHealthChecker) Name() string { return "redis" }

func (c *RedisHealthChecker) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// PostgresHealthChecker probes the usage store.
type PostgresHealthChecker struct {
	db *sql.DB
}

func NewPostgresHealthChecker(db *sql.DB) *PostgresHealthChecker {
	return &PostgresHealthChecker{db: db}
}

func (c *PostgresHealthChecker) Name() string { return "postgres" }

func (c *PostgresHealthChecker) Check(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func runHealthChecks(ctx context.Context, checkers []HealthChecker) map[string]CheckResult {
	results := make(map[string]CheckResult)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)

			result := CheckResult{
				Status:   "ok",
				Duration: time.Since(start).String(),
			}
			if err != nil {
				result.Status = "error"
				result.Error = err.Error()
			}

			mu.Lock()
			results[c.Name()] = result
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":     "ok",
		"last_model": h.gateway.LastModel(),
	})
}

func (h *Handler) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// handleHealthReady reports ready only when every dependency probe
// passes. With no probes configured it is always ready.
func handleHealthReady(checkers []HealthChecker, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		results := runHealthChecks(ctx, checkers)

		status := HealthStatus{Status: "ready", Checks: results}
		httpStatus := http.StatusOK
		for _, result := range results {
			if result.Status != "ok" {
				status.Status = "not_ready"
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		json.NewEncoder(w).Encode(status)
	}
}

package httpx

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthProbeTimeout = 2 * time.Second

// Probe results reported per dependency.
const (
	ProbeOK          = "ok"
	ProbeUnreachable = "unreachable"
	ProbeDisabled    = "disabled"
)

// HealthChecker is satisfied by database.Database, cache.RedisClient and
// events.EventBus.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthChecks lists the dependencies probed by HealthHandler. A nil checker
// is reported as disabled, which is how the in-memory mode runs without a
// database and event bus.
type HealthChecks struct {
	Storage  string // storage driver name, echoed in the response
	Database HealthChecker
	Redis    HealthChecker
	EventBus HealthChecker
}

type healthResponse struct {
	Status   string `json:"status"`
	Storage  string `json:"storage,omitempty"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	EventBus string `json:"event_bus"`
}

// HealthHandler pings every configured dependency in parallel and answers
// 503 when any of them is unreachable.
func HealthHandler(checks HealthChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Storage: checks.Storage}
		var g errgroup.Group
		for _, p := range []struct {
			checker HealthChecker
			result  *string
		}{
			{checks.Database, &resp.Database},
			{checks.Redis, &resp.Redis},
			{checks.EventBus, &resp.EventBus},
		} {
			g.Go(func() error {
				*p.result = probe(ctx, p.checker)
				return nil
			})
		}
		_ = g.Wait()

		status := http.StatusOK
		for _, res := range []string{resp.Database, resp.Redis, resp.EventBus} {
			if res == ProbeUnreachable {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		JSON(w, status, resp)
	}
}

func probe(ctx context.Context, c HealthChecker) string {
	if c == nil {
		return ProbeDisabled
	}
	if err := c.Ping(ctx); err != nil {
		return ProbeUnreachable
	}
	return ProbeOK
}

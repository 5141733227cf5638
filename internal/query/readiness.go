package query

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/SEJeff/pyth-crosschain/sdk/vaa"
)

// ReadinessStalenessThreshold is the constant window within which a slot
// must have completed for the core to report ready.
const ReadinessStalenessThreshold = 30 * time.Second

// Readiness tracks the monotonic time of the most recently completed
// slot and exposes it as a standard gRPC health service, flipped
// SERVING/NOT_SERVING as completions arrive and go stale.
type Readiness struct {
	mu              sync.RWMutex
	lastCompletedAt time.Time

	chain   vaa.ChainID
	service string
	health  *health.Server
}

// MustRegisterReadinessSyncing wires a Readiness tracker for chain into
// the given health server under service, panicking if chain is unset —
// a readiness probe with no configured oracle chain is a configuration
// bug, not a runtime condition to handle gracefully.
func MustRegisterReadinessSyncing(chain vaa.ChainID, service string, healthServer *health.Server) *Readiness {
	if chain == vaa.ChainIDUnset {
		panic("query: cannot register readiness for an unset chain id")
	}

	r := &Readiness{chain: chain, service: service, health: healthServer}
	healthServer.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	return r
}

// RecordCompletion marks a slot as having just completed, advancing the
// readiness window and flipping the health service to SERVING.
func (r *Readiness) RecordCompletion(now time.Time) {
	r.mu.Lock()
	r.lastCompletedAt = now
	r.mu.Unlock()
	r.health.SetServingStatus(r.service, healthpb.HealthCheckResponse_SERVING)
}

// IsReady reports whether a slot completed within ReadinessStalenessThreshold
// of now.
func (r *Readiness) IsReady(now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastCompletedAt.IsZero() {
		return false
	}
	return now.Sub(r.lastCompletedAt) < ReadinessStalenessThreshold
}

// Sweep periodically re-checks staleness and flips the health service to
// NOT_SERVING once the readiness window has elapsed without a new
// completion; it runs until ctx is canceled.
func (r *Readiness) Sweep(ctx context.Context, logger *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.IsReady(time.Now()) {
				r.health.SetServingStatus(r.service, healthpb.HealthCheckResponse_NOT_SERVING)
				logger.Debug("readiness sweep marked service not serving", zap.String("service", r.service))
			}
		}
	}
}

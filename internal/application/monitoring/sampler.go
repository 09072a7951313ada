// Package monitoring
package monitoring

import (
	"context"

	"fleetmon-server/internal/domain"
)

// Sampler reads one complete snapshot of a host. Implementations may keep
// state between calls (counter deltas), so a Sampler is owned by one Collector
// and is never called concurrently.
type Sampler interface {
	Sample(ctx context.Context) (*domain.ServerMetrics, error)
}

type SamplerFactory func(serverID string) Sampler

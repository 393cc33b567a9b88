package utils

import (
	"context"
	"sync"
	"time"
)

// Pinger is anything whose reachability the health monitor tracks.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Dependencies map[string]bool `json:"dependencies"`
	CheckedAt    time.Time       `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// CheckHealth pings every dependency once and stores the snapshot.
func CheckHealth(ctx context.Context, deps []Pinger) HealthStatus {
	status := HealthStatus{Dependencies: make(map[string]bool, len(deps)), CheckedAt: time.Now()}
	for _, d := range deps {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		status.Dependencies[d.Name()] = d.Ping(pctx) == nil
		cancel()
	}

	mu.Lock()
	currentHealth = status
	mu.Unlock()
	return status
}

// StartHealthMonitor performs periodic health checks until ctx is done.
func StartHealthMonitor(ctx context.Context, deps []Pinger, interval time.Duration) {
	CheckHealth(ctx, deps)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CheckHealth(ctx, deps)
			}
		}
	}()
}

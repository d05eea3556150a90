package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Pinger is implemented by components that expose a liveness probe.
// HealthPing must return nil when the component is healthy.
type Pinger interface {
	HealthPing(ctx context.Context) error
}

// Checker is implemented by component-level checkers.
type Checker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// ComponentChecker periodically probes a Pinger and caches the result.
type ComponentChecker struct {
	name         string
	pinger       Pinger
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewComponentChecker creates a checker for the named component. Checkers
// start unhealthy until the first successful probe.
func NewComponentChecker(name string, p Pinger, log zerolog.Logger, probeTimeout time.Duration) *ComponentChecker {
	return &ComponentChecker{name: name, pinger: p, log: log, probeTimeout: probeTimeout}
}

func (c *ComponentChecker) Name() string { return c.name }

// IsHealthy returns the cached health status (non-blocking).
func (c *ComponentChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Start begins periodic probing until the context is cancelled.
func (c *ComponentChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		to := c.probeTimeout
		if to <= 0 {
			to = 2 * time.Second
		}
		probeCtx, cancel := context.WithTimeout(ctx, to)
		defer cancel()

		if err := c.pinger.HealthPing(probeCtx); err != nil {
			c.log.Error().Str("checker", c.name).Err(err).Msg("health check failed")
			c.healthy.Store(0)
			return
		}
		c.healthy.Store(1)
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// ServiceChecker aggregates component checkers into a single service flag.
type ServiceChecker struct {
	healthy atomic.Int32
	deps    []Checker
	log     zerolog.Logger
}

func NewServiceChecker(log zerolog.Logger, deps ...Checker) *ServiceChecker {
	return &ServiceChecker{deps: deps, log: log}
}

// IsHealthy returns cached service health.
func (s *ServiceChecker) IsHealthy() bool { return s.healthy.Load() == 1 }

// Start periodically evaluates dependency health and updates the service flag.
func (s *ServiceChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(0)
	eval := func() {
		all := int32(1)
		for _, c := range s.deps {
			if !c.IsHealthy() {
				all = 0
			}
		}
		s.healthy.Store(all)
		if all != prev {
			if all == 1 {
				s.log.Info().Msg("service health: UP")
			} else {
				s.log.Error().Msg("service health: DOWN")
			}
			prev = all
		}
	}

	eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eval()
		}
	}
}

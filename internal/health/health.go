// Package health tracks dependency liveness behind cached flags so the
// health endpoint never blocks on a probe.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Pinger is implemented by components that expose a direct health
// probe. A nil return means healthy.
type Pinger interface {
	HealthPing(ctx context.Context) error
}

// Checker is a component-level health monitor.
type Checker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// StoreChecker probes the store on a timer and caches the result.
type StoreChecker struct {
	pinger       Pinger
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewStoreChecker starts unhealthy until the first successful probe.
func NewStoreChecker(p Pinger, log zerolog.Logger, probeTimeout time.Duration) *StoreChecker {
	return &StoreChecker{pinger: p, log: log, probeTimeout: probeTimeout}
}

func (c *StoreChecker) Name() string { return "store" }

func (c *StoreChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

func (c *StoreChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probe := func() {
		to := c.probeTimeout
		if to <= 0 {
			to = 2 * time.Second
		}
		probeCtx, cancel := context.WithTimeout(ctx, to)
		defer cancel()

		if err := c.pinger.HealthPing(probeCtx); err != nil {
			c.healthy.Store(0)
			c.log.Error().Stack().Str("checker", c.Name()).Err(err).Msg("store health probe failed")
			return
		}
		c.healthy.Store(1)
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

// ServiceChecker folds component checkers into one service-level flag.
type ServiceChecker struct {
	healthy atomic.Int32
	deps    []Checker
	log     zerolog.Logger
}

func NewServiceChecker(log zerolog.Logger, deps ...Checker) *ServiceChecker {
	return &ServiceChecker{deps: deps, log: log}
}

func (s *ServiceChecker) IsHealthy() bool { return s.healthy.Load() == 1 }

// Start re-evaluates dependency health on a timer and logs transitions.
func (s *ServiceChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(0)
	eval := func() {
		up := int32(1)
		for _, c := range s.deps {
			if !c.IsHealthy() {
				up = 0
				break
			}
		}
		s.healthy.Store(up)
		if up != prev {
			if up == 1 {
				s.log.Info().Msg("service health: UP")
			} else {
				s.log.Error().Msg("service health: DOWN")
			}
			prev = up
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

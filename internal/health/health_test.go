package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type flakyPinger struct{ fail atomic.Bool }

func (p *flakyPinger) HealthPing(ctx context.Context) error {
	if p.fail.Load() {
		return errors.New("store down")
	}
	return nil
}

func waitTrue(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestStoreChecker_TracksPinger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &flakyPinger{}
	c := NewStoreChecker(p, zerolog.Nop(), time.Second)
	require.False(t, c.IsHealthy(), "unhealthy until first probe")

	go c.Start(ctx, 10*time.Millisecond)
	waitTrue(t, c.IsHealthy)

	p.fail.Store(true)
	waitTrue(t, func() bool { return !c.IsHealthy() })

	p.fail.Store(false)
	waitTrue(t, c.IsHealthy)
}

func TestServiceChecker_AggregatesDeps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &flakyPinger{}
	b := &flakyPinger{}
	ca := NewStoreChecker(a, zerolog.Nop(), time.Second)
	cb := NewStoreChecker(b, zerolog.Nop(), time.Second)
	go ca.Start(ctx, 10*time.Millisecond)
	go cb.Start(ctx, 10*time.Millisecond)

	svc := NewServiceChecker(zerolog.Nop(), ca, cb)
	go svc.Start(ctx, 10*time.Millisecond)
	waitTrue(t, svc.IsHealthy)

	b.fail.Store(true)
	waitTrue(t, func() bool { return !svc.IsHealthy() })

	b.fail.Store(false)
	waitTrue(t, svc.IsHealthy)
}

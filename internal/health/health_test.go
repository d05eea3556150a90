package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// flakyPinger fails until flipped healthy.
type flakyPinger struct {
	mu  sync.Mutex
	err error
}

func (p *flakyPinger) HealthPing(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *flakyPinger) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func TestComponentCheckerStartsUnhealthy(t *testing.T) {
	c := NewComponentChecker("store", &flakyPinger{}, zerolog.Nop(), time.Second)
	require.False(t, c.IsHealthy(), "checkers must report unhealthy before the first probe")
	require.Equal(t, "store", c.Name())
}

func TestComponentCheckerTransitions(t *testing.T) {
	p := &flakyPinger{err: errors.New("connection refused")}
	c := NewComponentChecker("store", p, zerolog.Nop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx, 10*time.Millisecond)

	// stays down while the probe fails
	time.Sleep(50 * time.Millisecond)
	require.False(t, c.IsHealthy())

	p.set(nil)
	require.Eventually(t, c.IsHealthy, time.Second, 10*time.Millisecond)

	p.set(errors.New("connection refused"))
	require.Eventually(t, func() bool { return !c.IsHealthy() }, time.Second, 10*time.Millisecond)
}

func TestServiceCheckerAggregates(t *testing.T) {
	good := &flakyPinger{}
	bad := &flakyPinger{err: errors.New("down")}

	c1 := NewComponentChecker("a", good, zerolog.Nop(), time.Second)
	c2 := NewComponentChecker("b", bad, zerolog.Nop(), time.Second)
	svc := NewServiceChecker(zerolog.Nop(), c1, c2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c1.Start(ctx, 10*time.Millisecond)
	go c2.Start(ctx, 10*time.Millisecond)
	go svc.Start(ctx, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.False(t, svc.IsHealthy(), "one unhealthy dependency keeps the service down")

	bad.set(nil)
	require.Eventually(t, svc.IsHealthy, time.Second, 10*time.Millisecond)
}

func TestServiceCheckerNoDependencies(t *testing.T) {
	svc := NewServiceChecker(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx, 10*time.Millisecond)

	require.Eventually(t, svc.IsHealthy, time.Second, 10*time.Millisecond)
}

// Package timectrl drives the relay update loop at a fixed cadence.
package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock exposes the controller's notion of elapsed ticks so components can
// depend on an abstraction rather than the concrete controller.
type Clock interface {
	// Tick returns the number of completed ticks.
	Tick() uint64
	// Now returns the wall-clock time of the last completed tick.
	Now() time.Time
}

// Listener is invoked once per tick with the tick number and a context that
// is cancelled when the controller stops.
type Listener func(ctx context.Context, tick uint64)

// Controller fires registered listeners on a fixed interval. It implements
// Clock.
type Controller struct {
	mu       sync.RWMutex
	interval time.Duration

	tick     uint64
	lastTick time.Time

	listeners []Listener
}

// NewController constructs a controller with the given tick interval.
func NewController(interval time.Duration) *Controller {
	return &Controller{interval: interval, lastTick: time.Now()}
}

// Tick returns the number of completed ticks. Implements Clock.
func (c *Controller) Tick() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick
}

// Now returns the wall-clock time of the last completed tick. Implements
// Clock.
func (c *Controller) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastTick
}

// AddListener registers a callback invoked on every tick. Listeners must be
// registered before Start.
func (c *Controller) AddListener(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Start runs the tick loop until the context is cancelled or, when maxTicks
// is greater than zero, until that many ticks have fired. It returns a
// channel that is closed when the loop exits.
func (c *Controller) Start(ctx context.Context, maxTicks uint64) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.mu.Lock()
				c.tick++
				c.lastTick = now
				tick := c.tick
				listeners := append([]Listener{}, c.listeners...)
				c.mu.Unlock()

				for _, fn := range listeners {
					fn(ctx, tick)
				}
				if maxTicks > 0 && tick >= maxTicks {
					return
				}
			}
		}
	}()
	return done
}

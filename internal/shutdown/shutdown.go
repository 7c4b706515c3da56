// Package shutdown coordinates graceful teardown of long-running processes.
// A Coordinator starts Running, the first Trigger moves it to ShuttingDown
// and drains the registered callbacks, and once the drain finishes it is
// Stopped for good.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/taskflows/taskflows/internal/log"
)

// State identifies where the coordinator is in its lifecycle.
type State int

// Coordinator states, in the only order they can be visited.
const (
	Running State = iota
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultCallbackTimeout bounds each shutdown callback.
const DefaultCallbackTimeout = 5 * time.Second

type callback struct {
	name string
	fn   func() error
}

// Coordinator runs registered teardown callbacks exactly once, on the first
// Trigger. Later triggers are ignored, so every code path can request
// shutdown without coordinating with the others.
type Coordinator struct {
	logger  log.Logger
	clock   clock.Clock
	timeout time.Duration

	mu        sync.Mutex
	state     State
	callbacks []callback
	code      int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option adjusts a Coordinator.
type Option func(*Coordinator)

// WithClock substitutes the clock used for callback timeouts.
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// WithCallbackTimeout changes how long each callback may run.
func WithCallbackTimeout(d time.Duration) Option {
	return func(co *Coordinator) { co.timeout = d }
}

// NewCoordinator creates a coordinator in the Running state.
func NewCoordinator(logger log.Logger, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		logger:  logger,
		clock:   clock.New(),
		timeout: DefaultCallbackTimeout,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Context is cancelled as soon as shutdown begins. Long-running loops
// select on it to stop promptly.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Register adds a named teardown callback. Callbacks run in registration
// order during the drain. Registering after shutdown has begun is a no-op.
func (c *Coordinator) Register(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		c.logger.Warn("Ignoring callback registered during shutdown", "name", name)
		return
	}
	c.callbacks = append(c.callbacks, callback{name: name, fn: fn})
}

// Trigger begins shutdown with the given exit code and returns once the
// drain has finished. Only the first call does anything; later calls return
// immediately, whatever code they carry.
func (c *Coordinator) Trigger(code int) {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return
	}
	c.state = ShuttingDown
	c.code = code
	callbacks := make([]callback, len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	c.logger.Info("Shutting down", "code", code, "callbacks", len(callbacks))
	c.cancel()

	for _, cb := range callbacks {
		c.logger.Debug("Running shutdown callback", "name", cb.name)
		if err := c.runCallback(cb); err != nil {
			c.logger.Error("Shutdown callback failed", "name", cb.name, "error", err)
		}
	}

	c.mu.Lock()
	c.state = Stopped
	c.mu.Unlock()
	close(c.done)
}

// runCallback bounds one callback with the configured timeout. The timer is
// armed before the callback starts, so a stuck callback never holds up the
// drain past its slot.
func (c *Coordinator) runCallback(cb callback) error {
	timeout := c.clock.After(c.timeout)
	done := make(chan error, 1)
	go func() { done <- cb.fn() }()

	select {
	case err := <-done:
		return err
	case <-timeout:
		return fmt.Errorf("callback %s timed out after %s", cb.name, c.timeout)
	}
}

// AwaitTermination blocks until the drain has finished and returns the exit
// code passed to the winning Trigger.
func (c *Coordinator) AwaitTermination() int {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// Notify triggers a clean shutdown (exit code 0) when one of the signals
// arrives. With no arguments it watches SIGTERM, SIGINT and SIGHUP.
func (c *Coordinator) Notify(signals ...os.Signal) {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			c.logger.Info("Received signal", "signal", sig.String())
			c.Trigger(0)
		case <-c.ctx.Done():
		}
	}()
}

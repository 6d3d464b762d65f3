package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 30 * time.Second

// ShutdownFunc releases one resource during shutdown
type ShutdownFunc func(context.Context) error

// ShutdownManager drains the HTTP server and then closes registered
// resources when the process receives SIGINT or SIGTERM. The server
// drain and every closer share one deadline.
type ShutdownManager struct {
	log     *Logger
	server  *http.Server
	timeout time.Duration

	mu      sync.Mutex
	closers []namedCloser
}

type namedCloser struct {
	name string
	fn   ShutdownFunc
}

// NewShutdownManager wires a manager around the server. A non-positive
// timeout falls back to 30 seconds.
func NewShutdownManager(log *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &ShutdownManager{log: log, server: server, timeout: timeout}
}

// RegisterCloser adds a resource to release after the server has drained.
// The name identifies the resource in shutdown logs and errors.
func (sm *ShutdownManager) RegisterCloser(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.closers = append(sm.closers, namedCloser{name: name, fn: fn})
}

// WaitForShutdown blocks until SIGINT or SIGTERM, drains the server, then
// runs every registered closer concurrently. Closers all run to completion
// even when one fails; the first failure is returned.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	sm.log.WithField("signal", sig.String()).Info("shutting down")
	return sm.drain()
}

func (sm *ShutdownManager) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.log.WithError(err).Error("server drain failed")
			return fmt.Errorf("server drain: %w", err)
		}
		sm.log.Info("server drained")
	}

	sm.mu.Lock()
	closers := sm.closers
	sm.mu.Unlock()

	var g errgroup.Group
	for _, c := range closers {
		c := c
		g.Go(func() error {
			if err := c.fn(ctx); err != nil {
				sm.log.WithError(err).WithField("closer", c.name).Error("close failed")
				return fmt.Errorf("close %s: %w", c.name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sm.log.Info("shutdown complete")
	return nil
}

package goGate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MrEthical07/goGate/api"
	"github.com/MrEthical07/goGate/router"
	"github.com/MrEthical07/goGate/storage"
)

// Engine defines a public type used by goGate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config    Config
	session   *Session
	guard     *Guard
	navigator *router.Navigator
	table     *router.Table
	client    *api.Client
	states    storage.StateStorage
	audit     *auditDispatcher
	metrics   *Metrics
	logger    *slog.Logger

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// Session returns the owned session.
func (e *Engine) Session() *Session {
	if e == nil {
		return nil
	}
	return e.session
}

// Guard returns the navigation guard registered on the navigator.
func (e *Engine) Guard() *Guard {
	if e == nil {
		return nil
	}
	return e.guard
}

// Navigator returns the guarded navigator.
func (e *Engine) Navigator() *router.Navigator {
	if e == nil {
		return nil
	}
	return e.navigator
}

// Client returns the Auth API client the engine created, or nil when one was supplied
// through [Builder.WithAuthAPI]. Warehouse stores share it.
func (e *Engine) Client() *api.Client {
	if e == nil {
		return nil
	}
	return e.client
}

// StateStorage returns the persistence used by warehouse stores that keep their state
// across restarts. It is the session backend when that backend supports named records,
// otherwise a process-local store.
func (e *Engine) StateStorage() storage.StateStorage {
	if e == nil {
		return nil
	}
	return e.states
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Navigate describes the navigate operation and its observable behavior.
//
// Navigate pushes location through the guarded navigator. A blocked transition returns
// an error wrapping [router.ErrNavigationAborted].
func (e *Engine) Navigate(ctx context.Context, location string) (*router.Route, error) {
	if e == nil || e.navigator == nil {
		return nil, ErrEngineNotReady
	}
	return e.navigator.Push(ctx, location)
}

// NavigateNamed pushes the named route through the guarded navigator.
func (e *Engine) NavigateNamed(ctx context.Context, name string, params map[string]string) (*router.Route, error) {
	if e == nil || e.navigator == nil {
		return nil, ErrEngineNotReady
	}
	return e.navigator.PushNamed(ctx, name, params)
}

// Close describes the close operation and its observable behavior.
//
// Close stops background verification, drains the audit queue and releases storage
// resources the engine created. It is idempotent.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.closeOnce.Do(func() {
		e.session.Close()
		if e.audit != nil {
			e.audit.Close()
		}
		var errs []error
		for _, c := range e.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped reports events discarded by a full audit buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const defaultMaxRedirects = 10

var (
	// ErrNavigationAborted is returned when a hook blocks the transition.
	ErrNavigationAborted = errors.New("navigation aborted")
	// ErrRedirectLoop is returned when redirects exceed the hop limit.
	ErrRedirectLoop = errors.New("navigation redirect loop")
)

// Hook decides a transition from origin (nil on initial load) to target.
// Hooks must not navigate.
type Hook func(ctx context.Context, target, origin *Route) Decision

// Viewport receives the document-level side effects of navigation.
type Viewport interface {
	SetTitle(title string)
	ScrollToTop(smooth bool)
}

// Locator performs full-page navigations outside the router.
type Locator interface {
	Assign(path string)
}

// NopViewport discards every side effect.
type NopViewport struct{}

func (NopViewport) SetTitle(string)  {}
func (NopViewport) ScrollToTop(bool) {}

// NopLocator ignores full-page navigations.
type NopLocator struct{}

func (NopLocator) Assign(string) {}

// Option configures a [Navigator].
type Option func(*Navigator)

// WithViewport routes scroll side effects to v.
func WithViewport(v Viewport) Option {
	return func(n *Navigator) {
		if v != nil {
			n.viewport = v
		}
	}
}

// WithMaxRedirects caps the redirect hops of a single navigation.
func WithMaxRedirects(max int) Option {
	return func(n *Navigator) {
		if max > 0 {
			n.maxRedirects = max
		}
	}
}

// Navigator owns the current route and the history of committed transitions.
type Navigator struct {
	table        *Table
	viewport     Viewport
	maxRedirects int

	navMu sync.Mutex // serializes transitions

	mu      sync.RWMutex
	hooks   []Hook
	current *Route
	history []*Route
}

// NewNavigator creates a navigator over table with no current route.
func NewNavigator(table *Table, opts ...Option) *Navigator {
	n := &Navigator{
		table:        table,
		viewport:     NopViewport{},
		maxRedirects: defaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Table returns the route table.
func (n *Navigator) Table() *Table {
	return n.table
}

// BeforeEach registers a hook run before every transition, in registration order.
func (n *Navigator) BeforeEach(h Hook) {
	if h == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hooks = append(n.hooks, h)
}

// Current returns the committed route, or nil before the first navigation.
func (n *Navigator) Current() *Route {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

// History returns committed routes, oldest first.
func (n *Navigator) History() []*Route {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*Route(nil), n.history...)
}

// Push navigates to location and records it in history.
func (n *Navigator) Push(ctx context.Context, location string) (*Route, error) {
	target, err := n.table.Resolve(location)
	if err != nil {
		return nil, err
	}
	return n.navigate(ctx, target, true)
}

// PushNamed navigates to the named route.
func (n *Navigator) PushNamed(ctx context.Context, name string, params map[string]string) (*Route, error) {
	target, err := n.table.ResolveName(name, params)
	if err != nil {
		return nil, err
	}
	return n.navigate(ctx, target, true)
}

// Replace navigates to location, replacing the latest history entry.
func (n *Navigator) Replace(ctx context.Context, location string) (*Route, error) {
	target, err := n.table.Resolve(location)
	if err != nil {
		return nil, err
	}
	return n.navigate(ctx, target, false)
}

func (n *Navigator) navigate(ctx context.Context, target *Route, push bool) (*Route, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	n.navMu.Lock()
	defer n.navMu.Unlock()

	n.mu.RLock()
	origin := n.current
	hooks := append([]Hook(nil), n.hooks...)
	n.mu.RUnlock()

	for hops := 0; ; hops++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d := decide(ctx, hooks, target, origin)
		switch d.Kind {
		case KindProceed:
			n.commit(target, push)
			return target, nil
		case KindBlock:
			return nil, fmt.Errorf("%w: %s", ErrNavigationAborted, target.FullPath())
		case KindRedirect:
			if hops >= n.maxRedirects {
				return nil, fmt.Errorf("%w: gave up at %q after %d hops", ErrRedirectLoop, d.Target, hops)
			}
			next, err := n.table.ResolveName(d.Target, nil)
			if err != nil {
				return nil, fmt.Errorf("redirect to %q: %w", d.Target, err)
			}
			target = next
		default:
			return nil, fmt.Errorf("unknown navigation decision %d", d.Kind)
		}
	}
}

func decide(ctx context.Context, hooks []Hook, target, origin *Route) Decision {
	for _, h := range hooks {
		if d := h(ctx, target, origin); d.Kind != KindProceed {
			return d
		}
	}
	return Proceed()
}

func (n *Navigator) commit(target *Route, push bool) {
	n.mu.Lock()
	n.current = target
	if push || len(n.history) == 0 {
		n.history = append(n.history, target)
	} else {
		n.history[len(n.history)-1] = target
	}
	n.mu.Unlock()

	n.viewport.ScrollToTop(true)
}

package goGate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrEthical07/goGate/router"
	"github.com/MrEthical07/goGate/session"
)

// Guard decides every route transition from the session snapshot and route metadata.
type Guard struct {
	cfg      GuardConfig
	appName  string
	session  *Session
	viewport router.Viewport
	metrics  *Metrics
	audit    *auditDispatcher
	logger   *slog.Logger
}

type guardDeps struct {
	session  *Session
	viewport router.Viewport
	metrics  *Metrics
	audit    *auditDispatcher
	logger   *slog.Logger
}

func newGuard(cfg GuardConfig, appName string, deps guardDeps) *Guard {
	if deps.viewport == nil {
		deps.viewport = router.NopViewport{}
	}
	if deps.logger == nil {
		deps.logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{
		cfg:      cfg,
		appName:  appName,
		session:  deps.session,
		viewport: deps.viewport,
		metrics:  deps.metrics,
		audit:    deps.audit,
		logger:   deps.logger,
	}
}

// Hook adapts the guard to [router.Navigator.BeforeEach].
func (g *Guard) Hook() router.Hook {
	return g.Decide
}

// Decide describes the decide operation and its observable behavior.
//
// Decide always lets the logout route through. Otherwise it sets the document title,
// triggers verification and decides on the resulting snapshot: restricted operators are
// confined to the operator screen, authenticated users are kept off the login page and
// prompted for a password until their email is verified, production runs require the
// production capability, and auth-only routes send anonymous sessions to login.
//
// origin is nil on the initial navigation.
func (g *Guard) Decide(ctx context.Context, target, origin *router.Route) router.Decision {
	routes := g.cfg.Routes
	if target.Is(routes.Logout) {
		return g.record(ctx, target, router.Proceed())
	}

	title := target.Meta.PageTitle
	if title == "" {
		title = g.cfg.DefaultTitle
	}
	g.viewport.SetTitle(title + " - " + g.appName)

	snap := g.verify(ctx)
	return g.record(ctx, target, g.decide(snap, target, origin))
}

func (g *Guard) decide(snap session.State, target, origin *router.Route) router.Decision {
	routes := g.cfg.Routes
	user := snap.User

	if snap.Authenticated && user.OperatorRestricted() &&
		!target.Is(routes.OperatorScreen) && !target.Is(routes.Login) {
		if origin.Is(routes.OperatorScreen) {
			return router.Block()
		}
		g.metrics.Inc(MetricOperatorRedirect)
		return router.RedirectTo(routes.OperatorScreen)
	}

	if snap.Authenticated {
		switch {
		case target.Is(routes.Login):
			return router.RedirectTo(routes.Dashboard)
		case !user.EmailVerified():
			g.session.ShowPasswordModal()
			g.metrics.Inc(MetricPasswordPrompt)
			return router.Proceed()
		}
		g.session.HidePasswordModal()
		if target.Is(routes.ProductionRuns) && !user.HasProduction {
			return router.RedirectTo(routes.Dashboard)
		}
		return router.Proceed()
	}

	if target.Meta.RequiresAuth() {
		return router.RedirectTo(routes.Login)
	}
	return router.Proceed()
}

// verify returns the snapshot the decision is based on: the state right after the
// synchronous part of VerifyAuth, or the refreshed state when verification is awaited.
func (g *Guard) verify(ctx context.Context) session.State {
	if !g.cfg.AwaitVerification {
		snap, _ := g.session.verifyAsync(ctx)
		return snap
	}

	vctx, cancel := context.WithTimeout(ctx, g.cfg.VerifyTimeout)
	defer cancel()
	snap, err := g.session.verifySync(vctx)
	if err != nil && !errors.Is(err, ErrNoToken) {
		g.logger.Debug("awaited verification failed", "error", err)
	}
	return snap
}

func (g *Guard) record(ctx context.Context, target *router.Route, d router.Decision) router.Decision {
	switch d.Kind {
	case router.KindProceed:
		g.metrics.Inc(MetricNavigationProceed)
	case router.KindRedirect:
		g.metrics.Inc(MetricNavigationRedirect)
	case router.KindBlock:
		g.metrics.Inc(MetricNavigationBlock)
	}
	g.logger.Debug("navigation decided", "route", target.RouteName(), "path", target.FullPath(), "decision", d.String())

	if g.audit != nil {
		g.audit.Emit(ctx, AuditEvent{
			EventType: AuditNavigation,
			Route:     target.RouteName(),
			Decision:  d.String(),
			Success:   d.Kind != router.KindBlock,
		})
	}
	return d
}

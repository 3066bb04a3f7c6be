package goGate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goGate/api"
	"github.com/MrEthical07/goGate/router"
	"github.com/MrEthical07/goGate/storage"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goGate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	authAPI  AuthAPI
	tokens   storage.TokenStorage
	redis    redis.UniversalClient
	table    *router.Table
	viewport router.Viewport
	locator  router.Locator
	logger   *slog.Logger

	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from [DefaultConfig]. It performs no I/O.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAuthAPI sets the Auth API. Without one, Build creates an [api.Client] from
// Config.API.
func (b *Builder) WithAuthAPI(a AuthAPI) *Builder {
	b.authAPI = a
	return b
}

// WithTokenStorage sets the token storage, overriding Config.Storage.
func (b *Builder) WithTokenStorage(ts storage.TokenStorage) *Builder {
	b.tokens = ts
	return b
}

// WithRedis supplies the client used by the redis storage backend. The engine does not
// close a client it was given.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRouteTable replaces [router.DefaultRoutes].
func (b *Builder) WithRouteTable(t *router.Table) *Builder {
	b.table = t
	return b
}

// WithViewport receives document title and scroll side effects.
func (b *Builder) WithViewport(v router.Viewport) *Builder {
	b.viewport = v
	return b
}

// WithLocator receives the full-page navigation issued after logout.
func (b *Builder) WithLocator(l router.Locator) *Builder {
	b.locator = l
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink has effect only when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles Config.Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build is [Builder.BuildContext] with a background context.
func (b *Builder) Build() (*Engine, error) {
	return b.BuildContext(context.Background())
}

// BuildContext validates the configuration, wires the engine and restores the persisted
// session. A builder can be used once.
func (b *Builder) BuildContext(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- ROUTES --------
	table := b.table
	if table == nil {
		t, err := router.NewTable(router.DefaultRoutes())
		if err != nil {
			return nil, err
		}
		table = t
	}
	r := cfg.Guard.Routes
	for _, name := range []string{r.Login, r.Logout, r.Dashboard, r.OperatorScreen, r.ProductionRuns} {
		if !table.Has(name) {
			return nil, fmt.Errorf("%w: guard route %q is not in the route table", ErrInvalidConfig, name)
		}
	}

	// -------- AUTH API --------
	authAPI := b.authAPI
	var client *api.Client
	if authAPI == nil {
		if cfg.API.BaseURL == "" {
			return nil, ErrAuthAPIRequired
		}
		c, err := api.New(api.Config{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout,
			UserAgent: cfg.API.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		client, authAPI = c, c
	}

	// -------- TOKEN STORAGE --------
	engine := &Engine{
		config: cloneConfig(cfg),
		table:  table,
		logger: logger,
	}
	tokens := b.tokens
	if tokens == nil {
		ts, closer, err := openStorage(cfg.Storage, b.redis)
		if err != nil {
			return nil, err
		}
		tokens = ts
		if closer != nil {
			engine.closers = append(engine.closers, closer)
		}
	}

	if st, ok := tokens.(storage.StateStorage); ok {
		engine.states = st
	} else {
		engine.states = storage.NewMemory()
	}

	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	engine.session = newSession(cfg.Session, sessionDeps{
		api:     authAPI,
		tokens:  tokens,
		locator: b.locator,
		logger:  logger.With("component", "session"),
		metrics: engine.metrics,
		audit:   engine.audit,
		now:     b.now,
	})
	if client != nil {
		client.WithTokenSource(engine.session.Token)
		engine.client = client
	}

	engine.guard = newGuard(cfg.Guard, cfg.AppName, guardDeps{
		session:  engine.session,
		viewport: b.viewport,
		metrics:  engine.metrics,
		audit:    engine.audit,
		logger:   logger.With("component", "guard"),
	})

	navOpts := []router.Option{}
	if b.viewport != nil {
		navOpts = append(navOpts, router.WithViewport(b.viewport))
	}
	engine.navigator = router.NewNavigator(table, navOpts...)
	engine.navigator.BeforeEach(engine.guard.Hook())

	engine.session.restore(ctx)

	b.built = true

	return engine, nil
}

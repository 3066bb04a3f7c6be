// Package cli implements the wmsgate command line: a terminal client for the warehouse
// Auth API that keeps its session in a file or in Redis between invocations.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/router"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath  string
	baseURL     string
	backend     string
	dir         string
	redisAddr   string
	logLevel    string
	logFormat   string
	routesPath  string
	auditStream string
	errOut      io.Writer
	viewport    *titleViewport
	loadedTable *router.Table
}

// NewRootCommand returns the wmsgate command tree. Logs go to errOut.
func NewRootCommand(errOut io.Writer) *cobra.Command {
	opts := &options{errOut: errOut}

	root := &cobra.Command{
		Use:   "wmsgate",
		Short: "Warehouse session client",
		Long: `wmsgate signs in to the warehouse Auth API, keeps the session between runs and
answers what the navigation guard would do for a location.

The session is stored in a file under --dir, or in Redis when --storage redis is given,
so several workstations can share it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", os.Getenv("WMSGATE_CONFIG"), "YAML config file")
	f.StringVar(&opts.baseURL, "base-url", "", "Auth API base URL")
	f.StringVar(&opts.backend, "storage", "", "token storage: memory, file or redis")
	f.StringVar(&opts.dir, "dir", "", "directory of the file storage")
	f.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address of the redis storage")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	f.StringVar(&opts.routesPath, "routes", "", "YAML route table replacing the built-in catalogue")
	f.StringVar(&opts.auditStream, "audit-stream", "", "Redis stream receiving audit events; needs the redis storage")

	root.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newVerifyCommand(opts),
		newStatusCommand(opts),
		newNavigateCommand(opts),
		newRoutesCommand(opts),
		newMetricsCommand(opts),
		newReceiptFiltersCommand(opts),
	)
	return root
}

// ExecuteContext runs the command tree with os.Args.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand(os.Stderr).ExecuteContext(ctx)
}

// config resolves the file configuration, then applies the flags that were set.
// Without a config file the session is kept in a file so it survives the process.
func (o *options) config(cmd *cobra.Command) (goGate.Config, error) {
	cfg := goGate.DefaultConfig()
	if o.configPath != "" {
		loaded, err := goGate.LoadConfig(o.configPath)
		if err != nil {
			return goGate.Config{}, err
		}
		cfg = loaded
	} else {
		cfg.Storage.Backend = goGate.StorageFile
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.API.BaseURL = o.baseURL
	}
	if flags.Changed("storage") {
		cfg.Storage.Backend = goGate.StorageBackend(o.backend)
	}
	if flags.Changed("dir") {
		cfg.Storage.Dir = o.dir
	}
	if flags.Changed("redis-addr") {
		cfg.Storage.RedisAddr = o.redisAddr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}

	if cfg.Storage.Backend == goGate.StorageFile && cfg.Storage.Dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return goGate.Config{}, fmt.Errorf("resolving session directory: %w", err)
		}
		cfg.Storage.Dir = filepath.Join(base, "wmsgate")
	}
	return cfg, cfg.Validate()
}

func (o *options) table() (*router.Table, error) {
	if o.loadedTable != nil {
		return o.loadedTable, nil
	}
	if o.routesPath == "" {
		return router.NewTable(router.DefaultRoutes())
	}
	t, err := router.LoadTableFile(o.routesPath)
	if err != nil {
		return nil, fmt.Errorf("loading routes: %w", err)
	}
	o.loadedTable = t
	return t, nil
}

// terminal is an engine plus the resources the command opened for it.
type terminal struct {
	*goGate.Engine
	closers []func() error
}

// Close closes the engine, then the resources it was given.
func (t *terminal) Close() error {
	err := t.Engine.Close()
	for _, c := range t.closers {
		err = errors.Join(err, c())
	}
	return err
}

// engine builds a goGate engine for one command run. mutate may adjust the resolved
// configuration first.
func (o *options) engine(cmd *cobra.Command, mutate func(*goGate.Config)) (*terminal, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	table, err := o.table()
	if err != nil {
		return nil, err
	}
	o.viewport = &titleViewport{}
	logger := newLogger(cfg.Logging, o.errOut)

	t := &terminal{}
	b := goGate.New().
		WithConfig(cfg).
		WithRouteTable(table).
		WithViewport(o.viewport).
		WithLogger(logger)

	if o.auditStream != "" {
		if cfg.Storage.Backend != goGate.StorageRedis {
			return nil, errors.New("--audit-stream needs the redis storage")
		}
		cfg.Audit.Enabled = true
		b.WithConfig(cfg)
	}
	if cfg.Audit.Enabled {
		auditLog := logger.With("component", "audit")
		sinks := goGate.Sinks{goGate.NewSlogSink(auditLog)}
		if o.auditStream != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Storage.RedisAddr,
				Password: cfg.Storage.RedisPassword,
				DB:       cfg.Storage.RedisDB,
			})
			t.closers = append(t.closers, rdb.Close)
			b.WithRedis(rdb)
			sinks = append(sinks, goGate.NewRedisStreamSink(rdb, o.auditStream, 10000, func(err error) {
				auditLog.Warn("audit stream write failed", "error", err)
			}))
		}
		b.WithAuditSink(sinks)
	}

	engine, err := b.BuildContext(cmd.Context())
	if err != nil {
		for _, c := range t.closers {
			_ = c()
		}
		return nil, err
	}
	t.Engine = engine
	return t, nil
}

// titleViewport remembers the last document title the guard set.
type titleViewport struct {
	title string
}

func (v *titleViewport) SetTitle(title string) { v.title = title }

func (v *titleViewport) ScrollToTop(bool) {}

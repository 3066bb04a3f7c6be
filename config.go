package goGate

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/router"
)

// Config defines a public type used by goGate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AppName string
	API     APIConfig
	Session SessionConfig
	Guard   GuardConfig
	Storage StorageConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Logging LoggingConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote Auth API.
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goGate APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// PersistUser stores the user record next to the token when the storage supports it,
	// so a restarted client restores an authenticated session.
	PersistUser bool
	// RejectExpiredTokens fails verification locally when the token is a JWT whose exp
	// claim has passed.
	RejectExpiredTokens bool
	ExpiryLeeway        time.Duration
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig defines a public type used by goGate APIs.
//
// GuardConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GuardConfig struct {
	// AwaitVerification makes the guard block on the verify call and decide on the
	// refreshed session. The default decides on the snapshot taken before the call.
	AwaitVerification bool
	VerifyTimeout     time.Duration
	DefaultTitle      string
	Routes            GuardRoutes
}

// GuardRoutes names the routes the guard treats specially.
type GuardRoutes struct {
	Login          string
	Logout         string
	Dashboard      string
	OperatorScreen string
	ProductionRuns string
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects where the api token is persisted.
type StorageBackend string

const (
	// StorageMemory keeps the token for the lifetime of the process.
	StorageMemory StorageBackend = "memory"
	// StorageFile keeps the token in a 0600 JSON file.
	StorageFile StorageBackend = "file"
	// StorageRedis keeps the token in Redis, shared across workstations.
	StorageRedis StorageBackend = "redis"
)

// StorageConfig defines a public type used by goGate APIs.
//
// StorageConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StorageConfig struct {
	Backend       StorageBackend
	Dir           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	TTL           time.Duration
}

/*
====================================
AUDIT / METRICS / LOGGING
====================================
*/

// AuditConfig defines a public type used by goGate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goGate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LoggingConfig selects the log level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string
	Format string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		AppName: "WMS",
		API: APIConfig{
			BaseURL:   "http://localhost:8000/api/",
			Timeout:   15 * time.Second,
			UserAgent: "wmsgate",
		},
		Session: SessionConfig{
			PersistUser:         true,
			RejectExpiredTokens: false,
			ExpiryLeeway:        30 * time.Second,
		},
		Guard: GuardConfig{
			AwaitVerification: false,
			VerifyTimeout:     5 * time.Second,
			DefaultTitle:      "Default",
			Routes: GuardRoutes{
				Login:          router.RouteLogin,
				Logout:         router.RouteLogout,
				Dashboard:      router.RouteDashboard,
				OperatorScreen: router.RouteOperatorScreen,
				ProductionRuns: router.RouteProductionRuns,
			},
		},
		Storage: StorageConfig{
			Backend:     StorageMemory,
			RedisPrefix: "wms:session",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// cloneConfig returns an independent copy of cfg. Extend it when Config grows
// reference-typed fields.
func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AppName) == "" {
		return invalid("AppName must not be empty")
	}

	// API
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("API BaseURL must be an absolute http(s) URL")
		}
	}
	if c.API.Timeout < 0 {
		return invalid("API Timeout must be >= 0")
	}

	// Session
	if c.Session.ExpiryLeeway < 0 {
		return invalid("Session ExpiryLeeway must be >= 0")
	}

	// Guard
	if c.Guard.AwaitVerification && c.Guard.VerifyTimeout <= 0 {
		return invalid("Guard VerifyTimeout must be > 0 when AwaitVerification is true")
	}
	r := c.Guard.Routes
	for name, v := range map[string]string{
		"Login":          r.Login,
		"Logout":         r.Logout,
		"Dashboard":      r.Dashboard,
		"OperatorScreen": r.OperatorScreen,
		"ProductionRuns": r.ProductionRuns,
	} {
		if strings.TrimSpace(v) == "" {
			return invalid("Guard Routes." + name + " must not be empty")
		}
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.Storage.Dir) == "" {
			return invalid("Storage Dir is required for the file backend")
		}
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return invalid("Storage RedisAddr is required for the redis backend")
		}
		if c.Storage.RedisDB < 0 {
			return invalid("Storage RedisDB must be >= 0")
		}
	default:
		return invalid(fmt.Sprintf("Storage Backend %q is not one of memory, file, redis", c.Storage.Backend))
	}
	if c.Storage.TTL < 0 {
		return invalid("Storage TTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("Logging Level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return invalid(fmt.Sprintf("Logging Format %q is not one of text, json", c.Logging.Format))
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

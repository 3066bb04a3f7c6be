package goGate

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of [Config]. Durations are kept as raw strings so a
// file can say "15s".
type fileConfig struct {
	AppName string `yaml:"app_name"`
	API     struct {
		BaseURL    string `yaml:"base_url"`
		TimeoutRaw string `yaml:"timeout"`
		UserAgent  string `yaml:"user_agent"`
	} `yaml:"api"`
	Session struct {
		PersistUser         bool   `yaml:"persist_user"`
		RejectExpiredTokens bool   `yaml:"reject_expired_tokens"`
		ExpiryLeewayRaw     string `yaml:"expiry_leeway"`
	} `yaml:"session"`
	Guard struct {
		AwaitVerification bool   `yaml:"await_verification"`
		VerifyTimeoutRaw  string `yaml:"verify_timeout"`
		DefaultTitle      string `yaml:"default_title"`
		Routes            struct {
			Login          string `yaml:"login"`
			Logout         string `yaml:"logout"`
			Dashboard      string `yaml:"dashboard"`
			OperatorScreen string `yaml:"operator_screen"`
			ProductionRuns string `yaml:"production_runs"`
		} `yaml:"routes"`
	} `yaml:"guard"`
	Storage struct {
		Backend       string `yaml:"backend"`
		Dir           string `yaml:"dir"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
		RedisPrefix   string `yaml:"redis_prefix"`
		TTLRaw        string `yaml:"ttl"`
	} `yaml:"storage"`
	Audit struct {
		Enabled    bool `yaml:"enabled"`
		BufferSize int  `yaml:"buffer_size"`
		DropIfFull bool `yaml:"drop_if_full"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled                 bool `yaml:"enabled"`
		EnableLatencyHistograms bool `yaml:"latency_histograms"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadConfig reads a YAML configuration file on top of [DefaultConfig].
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration bytes on top of [DefaultConfig].
func ParseConfig(data []byte) (Config, error) {
	fc := toFile(DefaultConfig())
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &fc); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg, err := fc.config()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func toFile(c Config) fileConfig {
	var fc fileConfig
	fc.AppName = c.AppName
	fc.API.BaseURL = c.API.BaseURL
	fc.API.TimeoutRaw = formatDuration(c.API.Timeout)
	fc.API.UserAgent = c.API.UserAgent
	fc.Session.PersistUser = c.Session.PersistUser
	fc.Session.RejectExpiredTokens = c.Session.RejectExpiredTokens
	fc.Session.ExpiryLeewayRaw = formatDuration(c.Session.ExpiryLeeway)
	fc.Guard.AwaitVerification = c.Guard.AwaitVerification
	fc.Guard.VerifyTimeoutRaw = formatDuration(c.Guard.VerifyTimeout)
	fc.Guard.DefaultTitle = c.Guard.DefaultTitle
	fc.Guard.Routes.Login = c.Guard.Routes.Login
	fc.Guard.Routes.Logout = c.Guard.Routes.Logout
	fc.Guard.Routes.Dashboard = c.Guard.Routes.Dashboard
	fc.Guard.Routes.OperatorScreen = c.Guard.Routes.OperatorScreen
	fc.Guard.Routes.ProductionRuns = c.Guard.Routes.ProductionRuns
	fc.Storage.Backend = string(c.Storage.Backend)
	fc.Storage.Dir = c.Storage.Dir
	fc.Storage.RedisAddr = c.Storage.RedisAddr
	fc.Storage.RedisPassword = c.Storage.RedisPassword
	fc.Storage.RedisDB = c.Storage.RedisDB
	fc.Storage.RedisPrefix = c.Storage.RedisPrefix
	fc.Storage.TTLRaw = formatDuration(c.Storage.TTL)
	fc.Audit.Enabled = c.Audit.Enabled
	fc.Audit.BufferSize = c.Audit.BufferSize
	fc.Audit.DropIfFull = c.Audit.DropIfFull
	fc.Metrics.Enabled = c.Metrics.Enabled
	fc.Metrics.EnableLatencyHistograms = c.Metrics.EnableLatencyHistograms
	fc.Logging.Level = c.Logging.Level
	fc.Logging.Format = c.Logging.Format
	return fc
}

func (fc fileConfig) config() (Config, error) {
	c := Config{AppName: fc.AppName}

	var err error
	if c.API.Timeout, err = parseDuration("api.timeout", fc.API.TimeoutRaw); err != nil {
		return Config{}, err
	}
	if c.Session.ExpiryLeeway, err = parseDuration("session.expiry_leeway", fc.Session.ExpiryLeewayRaw); err != nil {
		return Config{}, err
	}
	if c.Guard.VerifyTimeout, err = parseDuration("guard.verify_timeout", fc.Guard.VerifyTimeoutRaw); err != nil {
		return Config{}, err
	}
	if c.Storage.TTL, err = parseDuration("storage.ttl", fc.Storage.TTLRaw); err != nil {
		return Config{}, err
	}

	c.API.BaseURL = fc.API.BaseURL
	c.API.UserAgent = fc.API.UserAgent
	c.Session.PersistUser = fc.Session.PersistUser
	c.Session.RejectExpiredTokens = fc.Session.RejectExpiredTokens
	c.Guard.AwaitVerification = fc.Guard.AwaitVerification
	c.Guard.DefaultTitle = fc.Guard.DefaultTitle
	c.Guard.Routes = GuardRoutes{
		Login:          fc.Guard.Routes.Login,
		Logout:         fc.Guard.Routes.Logout,
		Dashboard:      fc.Guard.Routes.Dashboard,
		OperatorScreen: fc.Guard.Routes.OperatorScreen,
		ProductionRuns: fc.Guard.Routes.ProductionRuns,
	}
	c.Storage = StorageConfig{
		Backend:       StorageBackend(fc.Storage.Backend),
		Dir:           fc.Storage.Dir,
		RedisAddr:     fc.Storage.RedisAddr,
		RedisPassword: fc.Storage.RedisPassword,
		RedisDB:       fc.Storage.RedisDB,
		RedisPrefix:   fc.Storage.RedisPrefix,
		TTL:           c.Storage.TTL,
	}
	c.Audit = AuditConfig(fc.Audit)
	c.Metrics = MetricsConfig(fc.Metrics)
	c.Logging = LoggingConfig(fc.Logging)
	return c, nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
	}
	return d, nil
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

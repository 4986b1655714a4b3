// ABOUTME: Configuration loading and parsing for santecall-gateway
// ABOUTME: Defaults, optional YAML file with ${VAR} expansion, then environment overrides

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/2389/santecall-gateway/internal/auth"
)

// Defaults
const (
	DefaultAPIURL          = "https://hds.santecall.ai/public/lookup"
	DefaultTimeout         = 30 * time.Second
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 5002
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMetricsPath     = "/metrics"
)

// Config represents the complete santecall-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	SanteCall SanteCallConfig `yaml:"santecall"`
	Auth      AuthConfig      `yaml:"auth"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	ShutdownTimeoutRaw string `yaml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SanteCallConfig holds the lookup API configuration
type SanteCallConfig struct {
	APIURL            string        `yaml:"api_url"`
	Token             string        `yaml:"token"`
	DefaultVolubileID string        `yaml:"default_volubile_id"`
	Timeout           time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// AuthConfig holds authentication configuration.
// An empty JWTSecret leaves the MCP endpoints open.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// AuditConfig holds the tool call audit trail configuration.
// An empty Path disables auditing.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Debug  bool   `yaml:"debug"`  // forces debug level
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// CORSConfig holds cross-origin configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		SanteCall: SanteCallConfig{
			APIURL:  DefaultAPIURL,
			Timeout: DefaultTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the process environment, in that order.
// Environment variables in the format ${VAR_NAME} are expanded in the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables in the raw YAML content
		expandedData := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}

		if err := parseDurations(cfg); err != nil {
			return nil, fmt.Errorf("parsing durations: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// envOverrides lists the environment variables read by applyEnv. A nil field
// means the variable is unset and the file/default value is kept.
type envOverrides struct {
	APIURL            *string  `envconfig:"SANTECALL_API_URL"`
	Token             *string  `envconfig:"SANTECALL_TOKEN"`
	DefaultVolubileID *string  `envconfig:"DEFAULT_VOLUBILE_ID"`
	Timeout           *string  `envconfig:"SANTECALL_TIMEOUT"`
	Host              *string  `envconfig:"HOST"`
	Port              *int     `envconfig:"PORT"`
	ShutdownTimeout   *string  `envconfig:"SHUTDOWN_TIMEOUT"`
	FlaskDebug        *string  `envconfig:"FLASK_DEBUG"`
	Debug             *bool    `envconfig:"DEBUG"`
	LogLevel          *string  `envconfig:"LOG_LEVEL"`
	LogFormat         *string  `envconfig:"LOG_FORMAT"`
	CORSOrigins       []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	MetricsEnabled    *bool    `envconfig:"METRICS_ENABLED"`
	MetricsPath       *string  `envconfig:"METRICS_PATH"`
	JWTSecret         *string  `envconfig:"AUTH_JWT_SECRET"`
	AuditPath         *string  `envconfig:"AUDIT_DB_PATH"`
}

// applyEnv overlays set environment variables onto cfg.
func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	setString(&cfg.SanteCall.APIURL, env.APIURL)
	setString(&cfg.SanteCall.Token, env.Token)
	setString(&cfg.SanteCall.DefaultVolubileID, env.DefaultVolubileID)
	setString(&cfg.Server.Host, env.Host)
	setString(&cfg.Logging.Level, env.LogLevel)
	setString(&cfg.Logging.Format, env.LogFormat)
	setString(&cfg.Metrics.Path, env.MetricsPath)
	setString(&cfg.Auth.JWTSecret, env.JWTSecret)
	setString(&cfg.Audit.Path, env.AuditPath)

	if env.Port != nil {
		cfg.Server.Port = *env.Port
	}
	if env.MetricsEnabled != nil {
		cfg.Metrics.Enabled = *env.MetricsEnabled
	}
	// FLASK_DEBUG is on only for "true" in any case; other values are off.
	if (env.FlaskDebug != nil && strings.EqualFold(*env.FlaskDebug, "true")) || (env.Debug != nil && *env.Debug) {
		cfg.Logging.Debug = true
	}
	if env.CORSOrigins != nil {
		cfg.CORS.AllowedOrigins = trimAll(env.CORSOrigins)
	}

	var err error
	if env.Timeout != nil {
		if cfg.SanteCall.Timeout, err = parseDuration(*env.Timeout); err != nil {
			return fmt.Errorf("parsing SANTECALL_TIMEOUT %q: %w", *env.Timeout, err)
		}
	}
	if env.ShutdownTimeout != nil {
		if cfg.Server.ShutdownTimeout, err = parseDuration(*env.ShutdownTimeout); err != nil {
			return fmt.Errorf("parsing SHUTDOWN_TIMEOUT %q: %w", *env.ShutdownTimeout, err)
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseDuration accepts Go duration strings ("30s", "1m") and bare integers,
// which are read as seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.SanteCall.TimeoutRaw != "" {
		cfg.SanteCall.Timeout, err = parseDuration(cfg.SanteCall.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing santecall.timeout %q: %w", cfg.SanteCall.TimeoutRaw, err)
		}
	}

	if cfg.Server.ShutdownTimeoutRaw != "" {
		cfg.Server.ShutdownTimeout, err = parseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing server.shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
		}
	}

	return nil
}

// reservedPaths are served by the gateway itself and cannot host metrics.
var reservedPaths = map[string]bool{"/": true, "/health": true, "/mcp": true}

// Validate checks that all configuration fields are present and valid.
// Every problem found is reported, not only the first.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		result = multierror.Append(result, errors.New("server.shutdown_timeout must be positive"))
	}

	if err := validateAPIURL(c.SanteCall.APIURL); err != nil {
		result = multierror.Append(result, err)
	}
	if c.SanteCall.Timeout <= 0 {
		result = multierror.Append(result, errors.New("santecall.timeout must be positive"))
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < auth.MinSecretLength {
		result = multierror.Append(result, fmt.Errorf("auth.jwt_secret must be at least %d bytes", auth.MinSecretLength))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	if c.Metrics.Enabled {
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			result = multierror.Append(result, fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path))
		} else if reservedPaths[c.Metrics.Path] {
			result = multierror.Append(result, fmt.Errorf("metrics.path %q collides with a gateway route", c.Metrics.Path))
		}
	}

	return result.ErrorOrNil()
}

func validateAPIURL(raw string) error {
	if raw == "" {
		return errors.New("santecall.api_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("santecall.api_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("santecall.api_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("santecall.api_url must include a host")
	}
	return nil
}

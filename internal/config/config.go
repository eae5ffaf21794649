package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hongminglow/deepsea-be/internal/auth"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	minJWTSecretLength = 16
)

// Duration accepts both "7d" style TTLs and Go duration strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Database struct {
	URL            string   `yaml:"url"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Name           string   `yaml:"name"`
	User           string   `yaml:"user"`
	Password       string   `yaml:"password"`
	SSL            bool     `yaml:"ssl"`
	PoolMax        int32    `yaml:"pool_max"`
	IdleTimeout    Duration `yaml:"idle_timeout"`
	AcquireTimeout Duration `yaml:"acquire_timeout"`
	AutoMigrate    bool     `yaml:"auto_migrate"`
}

type JWT struct {
	Secret           string   `yaml:"secret"`
	Issuer           string   `yaml:"issuer"`
	ExpiresIn        Duration `yaml:"expires_in"`
	RefreshExpiresIn Duration `yaml:"refresh_expires_in"`
}

type NameCache struct {
	Size int      `yaml:"size"`
	TTL  Duration `yaml:"ttl"`
}

// Config holds runtime configuration.
type Config struct {
	Port          string    `yaml:"port"`
	Env           string    `yaml:"env"`
	CORSOrigins   []string  `yaml:"cors_allowed_origins"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy    bool      `yaml:"trust_proxy"`
	StorageDriver string    `yaml:"storage_driver"`
	Logging       Logging   `yaml:"logging"`
	Database      Database  `yaml:"database"`
	JWT           JWT       `yaml:"jwt"`
	NameCache     NameCache `yaml:"name_cache"`
}

func defaultConfig() *Config {
	return &Config{
		Port:          "3000",
		Env:           EnvDevelopment,
		CORSOrigins:   []string{"*"},
		StorageDriver: DriverPostgres,
		Logging:       Logging{Level: "info", Format: "json"},
		Database: Database{
			Host:           "localhost",
			Port:           5432,
			IdleTimeout:    Duration(30 * time.Second),
			AcquireTimeout: Duration(2 * time.Second),
			AutoMigrate:    true,
		},
		JWT: JWT{
			Issuer:           "deepsea-backend",
			ExpiresIn:        Duration(24 * time.Hour),
			RefreshExpiresIn: Duration(auth.DefaultRefreshTTL),
		},
		NameCache: NameCache{Size: 256, TTL: Duration(30 * time.Second)},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, then the environment. The result is validated.
func Load() (*Config, error) {
	cfg, err := LoadUnvalidated()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated resolves every source but skips Validate. The admin CLI
// uses it since it needs the database settings and nothing else.
func LoadUnvalidated() (*Config, error) {
	cfg := defaultConfig()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if cfg.Database.PoolMax == 0 {
		cfg.Database.PoolMax = 20
		if cfg.Env == EnvProduction {
			cfg.Database.PoolMax = 50
		}
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error

	setString(&cfg.Port, "PORT")
	setString(&cfg.Env, "APP_ENV")
	if v := env("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSOrigins = parseCSV(v)
	}
	setString(&cfg.StorageDriver, "STORAGE_DRIVER")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	errs = append(errs,
		setBool(&cfg.TrustProxy, "TRUST_PROXY"),
		setInt(&cfg.Database.Port, "DB_PORT"),
		setBool(&cfg.Database.SSL, "DB_SSL"),
		setBool(&cfg.Database.AutoMigrate, "DB_AUTO_MIGRATE"),
		setDuration(&cfg.Database.IdleTimeout, "DB_IDLE_TIMEOUT"),
		setDuration(&cfg.Database.AcquireTimeout, "DB_ACQUIRE_TIMEOUT"),
	)
	if v := env("DB_POOL_MAX"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("DB_POOL_MAX: %w", err))
		} else {
			cfg.Database.PoolMax = int32(n)
		}
	}

	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.Issuer, "JWT_ISSUER")
	errs = append(errs,
		setDuration(&cfg.JWT.ExpiresIn, "JWT_EXPIRES_IN"),
		setDuration(&cfg.JWT.RefreshExpiresIn, "REFRESH_TOKEN_EXPIRES_IN"),
		setInt(&cfg.NameCache.Size, "NAME_CACHE_SIZE"),
		setDuration(&cfg.NameCache.TTL, "NAME_CACHE_TTL"),
	)
	return errors.Join(errs...)
}

// Validate collects every problem into one error.
func (c *Config) Validate() error {
	var errs []string

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Sprintf("APP_ENV must be %q or %q", EnvDevelopment, EnvProduction))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, "PORT must be numeric")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, "LOG_FORMAT must be json or text")
	}

	if c.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(c.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, fmt.Sprintf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}
	if c.JWT.ExpiresIn <= 0 || c.JWT.RefreshExpiresIn <= 0 {
		errs = append(errs, "token lifetimes must be positive")
	}

	switch c.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" && (c.Database.Name == "" || c.Database.User == "") {
			errs = append(errs, "DATABASE_URL or DB_NAME and DB_USER are required")
		}
		if c.Database.PoolMax < 1 {
			errs = append(errs, "DB_POOL_MAX must be positive")
		}
		if c.Database.AcquireTimeout <= 0 {
			errs = append(errs, "DB_ACQUIRE_TIMEOUT must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_DRIVER must be %q or %q", DriverPostgres, DriverMemory))
	}

	if c.NameCache.Size < 1 {
		errs = append(errs, "NAME_CACHE_SIZE must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment reports whether verbose error bodies are allowed.
func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// DatabaseURL returns DATABASE_URL or a URL assembled from the DB_* parts.
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	sslmode := "disable"
	if c.Database.SSL {
		sslmode = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

// SetupLogger installs the configured slog handler as the default logger.
func SetupLogger(c *Config) *slog.Logger {
	level, _ := parseLogLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler).With(slog.String("service", "deepsea-be"), slog.String("version", Version))
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q must be debug, info, warn or error", s)
	}
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := auth.ParseTTL(s); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := env(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := env(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *Duration, key string) error {
	v := env(key)
	if v == "" {
		return nil
	}
	d, err := parseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = Duration(d)
	return nil
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

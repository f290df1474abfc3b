package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Guard         GuardConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds database configuration. Driver selects between an
// embedded SQLite file (Path) and PostgreSQL. For PostgreSQL, ConnectionString
// (from DATABASE_URL) takes precedence over the individual fields.
type DatabaseConfig struct {
	Driver           string
	Path             string
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds bearer token validation settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

// GuardConfig holds publish guard settings that are not stored as options
type GuardConfig struct {
	// ActivateOnStart seeds the installation defaults when absent
	ActivateOnStart bool
	// AvailablePostTypes are offered by the settings surface
	AvailablePostTypes []string
	SettingsCacheTTL   time.Duration
	AuditBufferSize    int
	AuditWorkers       int
	DefaultLocale      string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_ISSUER", "publish-guard"),
			Audience:  getEnv("AUTH_AUDIENCE", ""),
		},
		Guard: GuardConfig{
			ActivateOnStart:    getEnvAsBool("GUARD_ACTIVATE_ON_START", true),
			AvailablePostTypes: getEnvAsSlice("GUARD_AVAILABLE_POST_TYPES", []string{"post", "page"}),
			SettingsCacheTTL:   getEnvAsDuration("GUARD_SETTINGS_CACHE_TTL", 30*time.Second),
			AuditBufferSize:    getEnvAsInt("GUARD_AUDIT_BUFFER_SIZE", 1000),
			AuditWorkers:       getEnvAsInt("GUARD_AUDIT_WORKERS", 2),
			DefaultLocale:      getEnv("GUARD_DEFAULT_LOCALE", "en-US"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite: set DB_PATH")
		}
	case DriverPostgres:
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Database.ConnectionString == "" {
			if c.Database.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Database.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth JWT secret of at least 32 bytes is required in production")
	}

	if len(c.Guard.AvailablePostTypes) == 0 {
		return fmt.Errorf("at least one available post type is required")
	}
	if c.Guard.AuditWorkers < 1 {
		return fmt.Errorf("audit workers must be at least 1")
	}
	if c.Guard.AuditBufferSize < 1 {
		return fmt.Errorf("audit buffer size must be at least 1")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the data source name for the configured driver
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		if c.Path == ":memory:" {
			return c.Path
		}
		return c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("driver=sqlite path=%s", c.Path)
	}
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("driver=postgres host=%s port=%s database=%s", host, port, db)
		}
		return "driver=postgres host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("driver=postgres host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_DRIVER and the
// driver specific variables
func loadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		Driver:          strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite)),
		Path:            getEnv("DB_PATH", "publish-guard.db"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if cfg.Driver != DriverPostgres {
		return cfg
	}
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		cfg.ConnectionString = dbURL
		return cfg
	}
	cfg.Host = getEnv("DB_HOST", "localhost")
	cfg.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.User = getEnv("DB_USER", "dev")
	cfg.Password = getEnv("DB_PASSWORD", "")
	cfg.Database = getEnv("DB_NAME", "publish_guard")
	cfg.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma separated value, dropping blank entries
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

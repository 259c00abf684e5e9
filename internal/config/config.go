// Package config provides centralized configuration management for the table server.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Grid     GridConfig
	Export   ExportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodySize caps JSON request bodies, rows included (default: 32MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"33554432"`
}

// DatabaseConfig holds the optional Postgres connection used by
// server-side tables. Leave URL empty to run without a database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// FetchTimeout bounds one server-side page query (default: 30s)
	FetchTimeout time.Duration `env:"DB_FETCH_TIMEOUT" default:"30s"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// GridConfig holds the defaults applied to tables created without them.
type GridConfig struct {
	// RowsPerPage is the initial page size (default: 10)
	RowsPerPage int `env:"GRID_ROWS_PER_PAGE" default:"10"`

	// PageSizes are the page sizes users may pick (default: 10,25,50,100)
	PageSizes []int `env:"GRID_PAGE_SIZES" default:"10,25,50,100"`

	// SearchDebounce is the quiet time before a typed search runs (default: 300ms)
	SearchDebounce time.Duration `env:"GRID_SEARCH_DEBOUNCE" default:"300ms"`

	// RowHeight is the pixel height of one row in virtual mode (default: 32)
	RowHeight float64 `env:"GRID_ROW_HEIGHT" default:"32"`

	// BufferRows are extra rows rendered above and below the viewport (default: 5)
	BufferRows int `env:"GRID_BUFFER_ROWS" default:"5"`

	// Locale selects number formatting and collation (default: en-US)
	Locale string `env:"GRID_LOCALE" default:"en-US"`

	// MaxSessions caps live tables held by the server (default: 1000)
	MaxSessions int `env:"GRID_MAX_SESSIONS" default:"1000"`

	// SessionTTL is how long an idle table lives (default: 30m)
	SessionTTL time.Duration `env:"GRID_SESSION_TTL" default:"30m"`

	// SweepInterval is how often idle tables are expired (default: 1m)
	SweepInterval time.Duration `env:"GRID_SWEEP_INTERVAL" default:"1m"`

	// ImportMaxRows caps the data rows of one CSV import, 0 for no limit (default: 100000)
	ImportMaxRows int `env:"GRID_IMPORT_MAX_ROWS" default:"100000"`
}

// ExportConfig holds CSV and text export settings.
type ExportConfig struct {
	// MaxConcurrent is the maximum number of parallel exports (default: 4)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an export slot (default: 10s)
	MaxWaitTime time.Duration `env:"EXPORT_MAX_WAIT_TIME" default:"10s"`

	// FlushEvery is the number of rows written between flushes (default: 1000)
	FlushEvery int `env:"EXPORT_FLUSH_EVERY" default:"1000"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 600)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"600"`

	// ExportLimit is requests per minute for export endpoints (default: 20)
	ExportLimit int `env:"RATE_LIMIT_EXPORT" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects requests without a valid X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the generation provider, the key-value store backend, the email
// gate, content limits and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported key-value store drivers.
const (
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// GeminiConfig holds the generative-language provider settings.
type GeminiConfig struct {
	APIKey  string        // GEMINI_API_KEY
	BaseURL string        // GEMINI_API_URL, without the /models suffix
	Model   string        // GEMINI_MODEL
	Timeout time.Duration // GEMINI_TIMEOUT; 0 keeps the transport default
}

// StoreConfig selects and configures the shared key-value store.
type StoreConfig struct {
	Driver   string // redis|sqlite|memory
	RedisURL string // REDIS_URL
	DBPath   string // DB_PATH, sqlite driver only
	Prefix   string // REDIS_KEY_PREFIX, redis driver only

	// JanitorInterval sweeps expired rows from stores without native expiry.
	JanitorInterval time.Duration
}

// AuthConfig controls the email gate.
type AuthConfig struct {
	AllowedDomains []string
	MaxAttempts    int
	Window         time.Duration
	Block          time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	// Providers and storage
	Gemini GeminiConfig
	Store  StoreConfig
	Auth   AuthConfig

	// Content limits and lifetimes
	MaxTextRunes int           // single-field translate input
	MaxBodyRunes int           // body field of the three-field input
	CacheTTL     time.Duration // generation cache entry lifetime
	ResultTTL    time.Duration // shared result lifetime

	// TestMode disables the generation cache and echoes status codes in
	// response bodies.
	TestMode bool

	// Edge rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		Gemini: GeminiConfig{
			APIKey:  getenv("GEMINI_API_KEY", ""),
			BaseURL: strings.TrimRight(getenv("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta"), "/"),
			Model:   getenv("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout: getdur("GEMINI_TIMEOUT", 0),
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(getenv("STORE_DRIVER", StoreRedis)),
			RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),
			DBPath:   getenv("DB_PATH", "subtext.db"),
			Prefix:   getenv("REDIS_KEY_PREFIX", ""),

			JanitorInterval: getdur("STORE_JANITOR_INTERVAL", 10*time.Minute),
		},
		Auth: AuthConfig{
			AllowedDomains: splitCSV(getenv("AUTH_ALLOWED_DOMAINS", "gmail.com,naver.com,hanmail.net,daum.net")),
			MaxAttempts:    getint("AUTH_MAX_ATTEMPTS", 3),
			Window:         getdur("AUTH_WINDOW", 10*time.Minute),
			Block:          getdur("AUTH_BLOCK", 30*time.Minute),
		},

		MaxTextRunes: getint("MAX_TEXT_RUNES", 5000),
		MaxBodyRunes: getint("MAX_BODY_RUNES", 5000),
		CacheTTL:     getdur("CACHE_TTL", 5*time.Minute),
		ResultTTL:    getdur("RESULT_TTL", 24*time.Hour),
		TestMode:     getbool("TEST_MODE", false),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "subtext-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	for i, d := range cfg.Auth.AllowedDomains {
		cfg.Auth.AllowedDomains[i] = strings.ToLower(d)
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.Gemini.Timeout < 0 {
		return cfg, errors.New("GEMINI_TIMEOUT must be >= 0")
	}
	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		return cfg, errors.New("GEMINI_MODEL must not be empty")
	}
	switch cfg.Store.Driver {
	case StoreRedis:
		if strings.TrimSpace(cfg.Store.RedisURL) == "" {
			return cfg, errors.New("REDIS_URL must not be empty when STORE_DRIVER=redis")
		}
	case StoreSQLite:
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty when STORE_DRIVER=sqlite")
		}
	case StoreMemory:
	default:
		return cfg, errors.New("STORE_DRIVER must be one of: redis, sqlite, memory")
	}
	if cfg.Store.JanitorInterval < 0 {
		return cfg, errors.New("STORE_JANITOR_INTERVAL must be >= 0")
	}
	if len(cfg.Auth.AllowedDomains) == 0 {
		return cfg, errors.New("AUTH_ALLOWED_DOMAINS must list at least one domain")
	}
	if cfg.Auth.MaxAttempts < 1 {
		return cfg, errors.New("AUTH_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Auth.Window <= 0 || cfg.Auth.Block <= 0 {
		return cfg, errors.New("AUTH_WINDOW and AUTH_BLOCK must be positive durations")
	}
	if cfg.MaxTextRunes < 1 || cfg.MaxBodyRunes < 1 {
		return cfg, errors.New("MAX_TEXT_RUNES and MAX_BODY_RUNES must be >= 1")
	}
	if cfg.CacheTTL <= 0 {
		return cfg, errors.New("CACHE_TTL must be > 0")
	}
	if cfg.ResultTTL <= 0 {
		return cfg, errors.New("RESULT_TTL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}

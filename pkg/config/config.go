package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional, margin snapshot store)
	Database DatabaseConfig

	// Redis (optional, margin rate cache)
	Redis RedisConfig

	// Margin rate provider
	Margin MarginConfig

	// Analytics engines
	Engine EngineConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPath    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// MarginConfig holds margin rate provider configuration
type MarginConfig struct {
	Source          string // tradestation, ninjatrader
	SourceURL       string // empty = source default
	CacheTTL        time.Duration
	RefreshSchedule string // cron expression with seconds
	FetchTimeout    time.Duration
	RequestsPerSec  float64
}

// EngineConfig holds caps and defaults for the analytics engines
// 메모리/연산량 상한은 매직 넘버 대신 여기서 설정
type EngineConfig struct {
	MinSimulations     int
	MaxSimulations     int
	StartingCapital    float64
	Workers            int // 0 = GOMAXPROCS
	MaxMarginPoints    int
	CorrelationMethod  string // pearson, spearman
	DefaultMarginType  string // intraday, overnight
	MaxUploadSizeBytes int64
}

// Load reads configuration from environment variables.
// Malformed values are errors, not silent defaults; every problem is reported at once.
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	env := &envReader{}
	cfg := &Config{
		// Server
		Port: env.getString("PORT", "8089"),
		Env:  env.getString("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             env.getString("DATABASE_URL", ""),
			MaxConns:        env.getInt("DB_MAX_CONNS", 5),
			MinConns:        env.getInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: env.getDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: env.getDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},

		// Redis
		Redis: RedisConfig{
			Host:     env.getString("REDIS_HOST", "localhost"),
			Port:     env.getString("REDIS_PORT", "6379"),
			Password: env.getString("REDIS_PASSWORD", ""),
			DB:       env.getInt("REDIS_DB", 0),
			Enabled:  env.getBool("REDIS_ENABLED", false),
		},

		Margin: MarginConfig{
			Source:          env.getString("MARGIN_SOURCE", "tradestation"),
			SourceURL:       env.getString("MARGIN_SOURCE_URL", ""),
			CacheTTL:        env.getDuration("MARGIN_CACHE_TTL", 24*time.Hour),
			RefreshSchedule: env.getString("MARGIN_REFRESH_SCHEDULE", "0 0 6 * * *"),
			FetchTimeout:    env.getDuration("MARGIN_FETCH_TIMEOUT", 20*time.Second),
			RequestsPerSec:  env.getFloat("MARGIN_RATE_LIMIT", 1),
		},

		Engine: EngineConfig{
			MinSimulations:     env.getInt("MC_MIN_SIMULATIONS", 100),
			MaxSimulations:     env.getInt("MC_MAX_SIMULATIONS", 10000),
			StartingCapital:    env.getFloat("MC_STARTING_CAPITAL", 100000),
			Workers:            env.getInt("MC_WORKERS", 0),
			MaxMarginPoints:    env.getInt("MARGIN_MAX_POINTS", 1000),
			CorrelationMethod:  env.getString("CORRELATION_METHOD", "pearson"),
			DefaultMarginType:  env.getString("MARGIN_TYPE", "overnight"),
			MaxUploadSizeBytes: int64(env.getInt("MAX_UPLOAD_MB", 32)) << 20,
		},

		// Logging
		LogLevel:  env.getString("LOG_LEVEL", "info"),
		LogFormat: env.getString("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: env.getBool("METRICS_ENABLED", true),
		MetricsPath:    env.getString("METRICS_PATH", "/metrics"),
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, fmt.Errorf("config parse failed: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that values are consistent; all violations are joined
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	check(oneOf(c.Env, "development", "staging", "production"),
		"ENV must be one of: development, staging, production")
	check(oneOf(c.Margin.Source, "tradestation", "ninjatrader"),
		"MARGIN_SOURCE must be one of: tradestation, ninjatrader")
	check(c.Margin.CacheTTL > 0, "MARGIN_CACHE_TTL must be > 0")
	check(c.Margin.RequestsPerSec > 0, "MARGIN_RATE_LIMIT must be > 0")
	check(c.Engine.MinSimulations > 0 && c.Engine.MaxSimulations >= c.Engine.MinSimulations,
		"MC_MIN_SIMULATIONS must be > 0 and <= MC_MAX_SIMULATIONS")
	check(c.Engine.StartingCapital > 0, "MC_STARTING_CAPITAL must be > 0")
	check(c.Engine.Workers >= 0, "MC_WORKERS must be >= 0")
	check(c.Engine.MaxMarginPoints > 0, "MARGIN_MAX_POINTS must be > 0")
	check(c.Engine.MaxUploadSizeBytes > 0, "MAX_UPLOAD_MB must be > 0")
	check(oneOf(c.Engine.CorrelationMethod, "pearson", "spearman"),
		"CORRELATION_METHOD must be one of: pearson, spearman")
	check(oneOf(c.Engine.DefaultMarginType, "intraday", "overnight"),
		"MARGIN_TYPE must be one of: intraday, overnight")

	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// loadEnvFile loads the first .env found next to the working dir or the binary
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// envReader reads typed variables and remembers malformed ones
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) fail(key, value, kind string) {
	r.errs = append(r.errs, fmt.Errorf("%s: %q is not a valid %s", key, value, kind))
}

func (r *envReader) getString(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r *envReader) getInt(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, "integer")
		return def
	}
	return n
}

func (r *envReader) getFloat(key string, def float64) float64 {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, "number")
		return def
	}
	return f
}

func (r *envReader) getBool(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, "boolean")
		return def
	}
	return b
}

func (r *envReader) getDuration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, "duration")
		return def
	}
	return d
}

// loads up the .env files and environment variables used internally by Wanna.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default debounce window of realtime list updates.
const DefaultDebounceWindow = 300 * time.Millisecond

// Config holds every setting Wanna reads from its environment.
type Config struct {
	Env           string
	Version       string
	SrvAddr       string
	SrvPort       string
	AllowedOrigin string

	RedisAddr         string
	RedisPort         string
	RedisPassword     string
	RedisDBNumber     int
	RedisTxMaxRetries int

	// Window during which repeated changes of one list collapse into one broadcast.
	DebounceWindow time.Duration
	// How often the in-memory realtime metrics are written to redis.
	MetricsPersistInterval time.Duration
	// Time allowed for the graceful shutdown before forcing an exit.
	ShutdownTimeout time.Duration
}

// uses go package: godotenv to load up development enviroment variables
func LoadDevConfig(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the environment, falling back to defaults for anything unset.
func Load() (Config, error) {
	cfg := Config{
		Env:           getenv("ENV", "DEV"),
		Version:       getenv("VERSION", "1.0.0"),
		SrvAddr:       getenv("SRV_ADDR", "localhost"),
		SrvPort:       getenv("SRV_PORT", "8080"),
		AllowedOrigin: getenv("ALLOWED_ORIGIN", "*"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost"),
		RedisPort:     getenv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.RedisDBNumber, err = getint("REDIS_DB_NUMBER", 0); err != nil {
		return cfg, err
	}
	if cfg.RedisTxMaxRetries, err = getint("REDIS_TX_MAX_RETRIES", 5); err != nil {
		return cfg, err
	}
	if cfg.DebounceWindow, err = getduration("DEBOUNCE_WINDOW", DefaultDebounceWindow); err != nil {
		return cfg, err
	}
	if cfg.MetricsPersistInterval, err = getduration("METRICS_PERSIST_INTERVAL", time.Minute); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = getduration("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return cfg, err
	}
	if cfg.DebounceWindow <= 0 {
		return cfg, fmt.Errorf("DEBOUNCE_WINDOW must be positive, got %s", cfg.DebounceWindow)
	}
	return cfg, nil
}

// RedisURL returns host:port of the redis-server.
func (c Config) RedisURL() string {
	return c.RedisAddr + ":" + c.RedisPort
}

// ListenAddr returns host:port the gin server listens on.
func (c Config) ListenAddr() string {
	return c.SrvAddr + ":" + c.SrvPort
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("couldn't parse ENV: %s: %w", key, err)
	}
	return n, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("couldn't parse ENV: %s: %w", key, err)
	}
	return d, nil
}

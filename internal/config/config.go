// Package config loads and hot-reloads the daemon's configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Conf is the process-wide configuration, populated by Init/InitFromFile.
var Conf = new(AppConfig)

// AppConfig mirrors the daemon's full configuration surface.
type AppConfig struct {
	Name      string `mapstructure:"name"`
	Version   string `mapstructure:"version"`
	StartTime string `mapstructure:"start_time"`

	Pool    PoolConfig    `mapstructure:"pool"`
	Log     LogConfig     `mapstructure:"log"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Admin   AdminConfig   `mapstructure:"admin"`
	History HistoryConfig `mapstructure:"history"`
	Client  ClientConfig  `mapstructure:"client"`
}

// PoolConfig governs the upstream connection pool and dispatcher.
type PoolConfig struct {
	MaxSize             int    `mapstructure:"max_size"`
	ConnectionTimeout    int    `mapstructure:"connection_timeout"`
	MaxRetries           int    `mapstructure:"max_retries"`
	UnixPath             string `mapstructure:"unix_path"`
	MaxResponseBytes     int    `mapstructure:"max_response_bytes"`
	HealthCheckInterval  int    `mapstructure:"health_check_interval"`
	MetricsEnabled       bool   `mapstructure:"metrics_enabled"`
}

// LogConfig configures zap + lumberjack log rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// RedisConfig configures the optional external metrics/health cache.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// AdminConfig configures the optional HTTP/websocket admin surface.
type AdminConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr"`
	AuthEnabled bool  `mapstructure:"auth_enabled"`
	JWTSecret  string `mapstructure:"jwt_secret"`
}

// HistoryConfig configures the optional MySQL statistics export.
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// ClientConfig governs the client library's defaults; the daemon loads it
// but never acts on it, and get_config does not report it.
type ClientConfig struct {
	TimeoutMs       int  `mapstructure:"timeout_ms"`
	RetryAttempts   int  `mapstructure:"retry_attempts"`
	RetryDelayMs    int  `mapstructure:"retry_delay_ms"`
	CircuitBreaker  bool `mapstructure:"circuit_breaker"`
	CBThreshold     int  `mapstructure:"cb_threshold"`
	CBTimeoutS      int  `mapstructure:"cb_timeout_s"`
	CacheEnabled    bool `mapstructure:"cache_enabled"`
	CacheTTLS       int  `mapstructure:"cache_ttl_s"`
}

func setDefaults() {
	viper.SetDefault("pool.max_size", 100)
	viper.SetDefault("pool.connection_timeout", 30)
	viper.SetDefault("pool.max_retries", 3)
	viper.SetDefault("pool.unix_path", "/tmp/socket_pool_service.sock")
	viper.SetDefault("pool.max_response_bytes", 2048)
	viper.SetDefault("pool.health_check_interval", 60)
	viper.SetDefault("pool.metrics_enabled", true)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.filename", "")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age", 14)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.pool_size", 10)

	viper.SetDefault("admin.enabled", false)
	viper.SetDefault("admin.addr", ":9600")
	viper.SetDefault("admin.auth_enabled", false)

	viper.SetDefault("history.enabled", false)
	viper.SetDefault("history.max_open_conns", 5)
	viper.SetDefault("history.max_idle_conns", 2)

	viper.SetDefault("client.timeout_ms", 5000)
	viper.SetDefault("client.retry_attempts", 3)
	viper.SetDefault("client.retry_delay_ms", 200)
	viper.SetDefault("client.circuit_breaker", true)
	viper.SetDefault("client.cb_threshold", 3)
	viper.SetDefault("client.cb_timeout_s", 30)
	viper.SetDefault("client.cache_enabled", false)
	viper.SetDefault("client.cache_ttl_s", 10)
}

// bindEnv wires the SOCKET_POOL_* / REDIS_* environment variables named in
// the wire spec onto their config keys, so env overrides work even without
// a config file present.
func bindEnv() {
	viper.SetEnvPrefix("SOCKET_POOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	binds := map[string]string{
		"pool.max_size":              "SOCKET_POOL_MAX_SIZE",
		"pool.connection_timeout":    "SOCKET_POOL_TIMEOUT",
		"pool.max_retries":           "SOCKET_POOL_MAX_RETRIES",
		"pool.unix_path":             "SOCKET_POOL_UNIX_PATH",
		"log.level":                  "SOCKET_POOL_LOG_LEVEL",
		"log.filename":               "SOCKET_POOL_LOG_FILE",
		"redis.enabled":              "SOCKET_POOL_REDIS_ENABLED",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"redis.password":             "REDIS_PASSWORD",
		"pool.metrics_enabled":       "SOCKET_POOL_METRICS_ENABLED",
		"pool.health_check_interval": "SOCKET_POOL_HEALTH_INTERVAL",
		"history.enabled":            "SOCKET_POOL_HISTORY_ENABLED",
		"history.dsn":                "SOCKET_POOL_MYSQL_DSN",
		"admin.enabled":              "SOCKET_POOL_ADMIN_ENABLED",
		"admin.addr":                 "SOCKET_POOL_ADMIN_ADDR",
		"admin.auth_enabled":         "SOCKET_POOL_ADMIN_AUTH",
		"admin.jwt_secret":           "SOCKET_POOL_ADMIN_JWT_SECRET",
		"client.timeout_ms":          "SOCKET_POOL_CLIENT_TIMEOUT",
		"client.retry_attempts":      "SOCKET_POOL_RETRY_ATTEMPTS",
		"client.retry_delay_ms":      "SOCKET_POOL_RETRY_DELAY",
		"client.circuit_breaker":     "SOCKET_POOL_CIRCUIT_BREAKER",
		"client.cb_threshold":        "SOCKET_POOL_CB_THRESHOLD",
		"client.cb_timeout_s":        "SOCKET_POOL_CB_TIMEOUT",
		"client.cache_enabled":       "SOCKET_POOL_CACHE_ENABLED",
		"client.cache_ttl_s":         "SOCKET_POOL_CACHE_TTL",
	}
	for key, env := range binds {
		_ = viper.BindEnv(key, env)
	}
}

// Init loads config.yaml from the current directory, binds environment
// overrides, and starts watching the file for changes.
func Init() error {
	return InitFromFile("config.yaml")
}

// InitFromFile loads the named YAML config file (if present — a missing
// file is not fatal, since env vars and defaults can fully configure the
// daemon) and wires hot-reload via fsnotify.
func InitFromFile(path string) error {
	setDefaults()
	bindEnv()

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	if err := viper.Unmarshal(Conf); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	if Conf.StartTime == "" {
		Conf.StartTime = time.Now().UTC().Format(time.RFC3339)
	}

	viper.OnConfigChange(func(in fsnotify.Event) {
		_ = viper.Unmarshal(Conf)
	})
	viper.WatchConfig()
	return nil
}

// ConnectionTimeout returns the pool idle TTL as a time.Duration.
func (c *AppConfig) ConnectionTimeout() time.Duration {
	return time.Duration(c.Pool.ConnectionTimeout) * time.Second
}

// HealthCheckInterval returns the health self-check period as a time.Duration.
func (c *AppConfig) HealthCheckInterval() time.Duration {
	return time.Duration(c.Pool.HealthCheckInterval) * time.Second
}

// Redacted returns the subset of configuration safe to disclose over the
// IPC get_config action: no secrets (redis password, admin JWT key).
func (c *AppConfig) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"name":         c.Name,
		"version":      c.Version,
		"start_time":   c.StartTime,
		"pool": map[string]interface{}{
			"max_size":              c.Pool.MaxSize,
			"connection_timeout":    c.Pool.ConnectionTimeout,
			"max_retries":           c.Pool.MaxRetries,
			"unix_path":             c.Pool.UnixPath,
			"max_response_bytes":    c.Pool.MaxResponseBytes,
			"health_check_interval": c.Pool.HealthCheckInterval,
			"metrics_enabled":       c.Pool.MetricsEnabled,
		},
		"redis_enabled":   c.Redis.Enabled,
		"admin_enabled":   c.Admin.Enabled,
		"history_enabled": c.History.Enabled,
	}
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string `yaml:"port"`
	WebRoot string `yaml:"web_root"`

	// Credential store
	StoreBackend string `yaml:"store_backend"`
	SQLitePath   string `yaml:"sqlite_path"`

	// Redis
	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`

	// PostgreSQL
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`

	// Session guard
	SessionTTL        time.Duration `yaml:"session_ttl"`
	LoginWindow       time.Duration `yaml:"login_window"`
	LoginMaxAttempts  int64         `yaml:"login_max_attempts"`
	RateLimitBackend  string        `yaml:"rate_limit_backend"`
	AdminUsername     string        `yaml:"admin_username"`
	AdminPassword     string        `yaml:"admin_password"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
	AdminRole         string        `yaml:"admin_role"`
	ModeRequireAuth   bool          `yaml:"mode_require_auth"`

	// Provisioning
	APDefaultSSID           string        `yaml:"ap_default_ssid"`
	APDefaultPassword       string        `yaml:"ap_default_password"`
	DisconnectWipeThreshold int64         `yaml:"disconnect_wipe_threshold"`
	RestartDelay            time.Duration `yaml:"restart_delay"`

	// UI task
	SplashDuration   time.Duration `yaml:"splash_duration"`
	UIQueueDepth     int64         `yaml:"ui_queue_depth"`
	UIPollInterval   time.Duration `yaml:"ui_poll_interval"`
	UIEnqueueTimeout time.Duration `yaml:"ui_enqueue_timeout"`
	UIShutdownGrace  time.Duration `yaml:"ui_shutdown_grace"`

	// CORS
	CORSAllowedOrigins string `yaml:"cors_allowed_origins"`
	CORSAllowedMethods string `yaml:"cors_allowed_methods"`
	CORSAllowedHeaders string `yaml:"cors_allowed_headers"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server shutdown
	ShutdownTimeoutSecs int64 `yaml:"shutdown_timeout_secs"`
}

// Defaults returns the built-in configuration without consulting the environment.
func Defaults() *Config {
	return &Config{
		Port:    "8080",
		WebRoot: "./react",

		StoreBackend: "sqlite",
		SQLitePath:   "./data/nvs.db",

		RedisHost: "localhost",
		RedisPort: "6379",

		PostgresHost: "localhost",
		PostgresPort: "5432",
		PostgresDB:   "doorbell",
		PostgresUser: "doorbell",

		SessionTTL:       24 * time.Hour,
		LoginWindow:      60 * time.Second,
		LoginMaxAttempts: 5,
		RateLimitBackend: "memory",
		AdminUsername:    "admin",
		AdminPassword:    "password123",
		AdminRole:        "admin",
		ModeRequireAuth:  true,

		APDefaultSSID:           "Doorbell_Setup",
		APDefaultPassword:       "12345678",
		DisconnectWipeThreshold: 1,
		RestartDelay:            time.Second,

		SplashDuration:   5 * time.Second,
		UIQueueDepth:     4,
		UIPollInterval:   10 * time.Millisecond,
		UIEnqueueTimeout: 100 * time.Millisecond,
		UIShutdownGrace:  200 * time.Millisecond,

		CORSAllowedMethods: "GET,POST,OPTIONS",
		CORSAllowedHeaders: "Authorization,Content-Type",

		MetricsEnabled: true,

		LogLevel:  "info",
		LogFormat: "text",

		ShutdownTimeoutSecs: 10,
	}
}

// Load returns the defaults overridden by environment variables.
func Load() *Config {
	cfg := Defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML file on top of the defaults, then applies environment
// overrides. ${VAR} references inside the file are expanded.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks backend names and numeric limits.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "sqlite", "redis", "postgres":
	default:
		return fmt.Errorf("store_backend %q is not supported", c.StoreBackend)
	}
	switch c.RateLimitBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("rate_limit_backend %q is not supported", c.RateLimitBackend)
	}
	if c.StoreBackend == "sqlite" && c.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required for the sqlite backend")
	}
	if c.LoginMaxAttempts < 1 {
		return fmt.Errorf("login_max_attempts must be at least 1")
	}
	if c.LoginWindow <= 0 {
		return fmt.Errorf("login_window must be positive")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("session_ttl must not be negative")
	}
	if c.DisconnectWipeThreshold < 1 {
		return fmt.Errorf("disconnect_wipe_threshold must be at least 1")
	}
	if c.UIQueueDepth < 1 {
		return fmt.Errorf("ui_queue_depth must be at least 1")
	}
	if c.AdminUsername == "" || (c.AdminPassword == "" && c.AdminPasswordHash == "") {
		return fmt.Errorf("admin_username and admin_password (or admin_password_hash) are required")
	}
	return nil
}

func (c *Config) PostgresURL() string {
	return "postgres://" + c.PostgresUser + ":" + c.PostgresPassword + "@" + c.PostgresHost + ":" + c.PostgresPort + "/" + c.PostgresDB
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

func applyEnv(c *Config) {
	c.Port = getEnv("HTTP_PORT", c.Port)
	c.WebRoot = getEnv("WEB_ROOT", c.WebRoot)

	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)

	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnv("REDIS_PORT", c.RedisPort)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)

	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)

	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.LoginWindow = getEnvDuration("LOGIN_WINDOW", c.LoginWindow)
	c.LoginMaxAttempts = getEnvInt64("LOGIN_MAX_ATTEMPTS", c.LoginMaxAttempts)
	c.RateLimitBackend = getEnv("RATE_LIMIT_BACKEND", c.RateLimitBackend)
	c.AdminUsername = getEnv("ADMIN_USERNAME", c.AdminUsername)
	c.AdminPassword = getEnv("ADMIN_PASSWORD", c.AdminPassword)
	c.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", c.AdminPasswordHash)
	c.AdminRole = getEnv("ADMIN_ROLE", c.AdminRole)
	c.ModeRequireAuth = getEnvBool("MODE_REQUIRE_AUTH", c.ModeRequireAuth)

	c.APDefaultSSID = getEnv("AP_DEFAULT_SSID", c.APDefaultSSID)
	c.APDefaultPassword = getEnv("AP_DEFAULT_PASSWORD", c.APDefaultPassword)
	c.DisconnectWipeThreshold = getEnvInt64("DISCONNECT_WIPE_THRESHOLD", c.DisconnectWipeThreshold)
	c.RestartDelay = getEnvDuration("RESTART_DELAY", c.RestartDelay)

	c.SplashDuration = getEnvDuration("SPLASH_DURATION", c.SplashDuration)
	c.UIQueueDepth = getEnvInt64("UI_QUEUE_DEPTH", c.UIQueueDepth)
	c.UIPollInterval = getEnvDuration("UI_POLL_INTERVAL", c.UIPollInterval)
	c.UIEnqueueTimeout = getEnvDuration("UI_ENQUEUE_TIMEOUT", c.UIEnqueueTimeout)
	c.UIShutdownGrace = getEnvDuration("UI_SHUTDOWN_GRACE", c.UIShutdownGrace)

	c.CORSAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.CORSAllowedMethods = getEnv("CORS_ALLOWED_METHODS", c.CORSAllowedMethods)
	c.CORSAllowedHeaders = getEnv("CORS_ALLOWED_HEADERS", c.CORSAllowedHeaders)

	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.ShutdownTimeoutSecs = getEnvInt64("SHUTDOWN_TIMEOUT_SECS", c.ShutdownTimeoutSecs)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

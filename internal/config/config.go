package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
	// StaticDir, when set, is served at / for a browser front end.
	StaticDir string `yaml:"static_dir" envconfig:"STATIC_DIR"`
}

// SecurityConfig contains the shared secret gate and request protection settings.
// Either Password or PasswordHash (bcrypt) must be set.
type SecurityConfig struct {
	Password       string          `yaml:"password" envconfig:"PASSWORD"`
	PasswordHash   string          `yaml:"password_hash" envconfig:"PASSWORD_HASH"`
	SessionKey     string          `yaml:"session_key" envconfig:"SESSION_KEY"`
	SessionName    string          `yaml:"session_name" envconfig:"SESSION_NAME" default:"playlistpulse_session"`
	SessionMaxAge  time.Duration   `yaml:"session_max_age" envconfig:"SESSION_MAX_AGE" default:"12h"`
	CookieSecure   bool            `yaml:"cookie_secure" envconfig:"COOKIE_SECURE" default:"false"`
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"100"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/playlistpulse.log"`
}

// DashboardConfig controls the data pipeline and the per-session dataset cache.
type DashboardConfig struct {
	DefaultTopN  int           `yaml:"default_top_n" envconfig:"DEFAULT_TOP_N" default:"10"`
	AllowedTopN  []int         `yaml:"allowed_top_n" envconfig:"ALLOWED_TOP_N" default:"10,25"`
	DateLayouts  []string      `yaml:"date_layouts" envconfig:"DATE_LAYOUTS"`
	CacheTTL     time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL" default:"2h"`
	MaxSessions  int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS" default:"256"`
	CacheCleanup time.Duration `yaml:"cache_cleanup" envconfig:"CACHE_CLEANUP" default:"5m"`
	ChartWidth   int           `yaml:"chart_width" envconfig:"CHART_WIDTH" default:"1024"`
	ChartHeight  int           `yaml:"chart_height" envconfig:"CHART_HEIGHT" default:"600"`
}

// TopNAllowed reports whether n is one of the configured ranking sizes.
func (d DashboardConfig) TopNAllowed(n int) bool {
	return slices.Contains(d.AllowedTopN, n)
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"playlistpulse"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
	MaxMessageBytes int64         `yaml:"max_message_bytes" envconfig:"MAX_MESSAGE_BYTES" default:"4096"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// override returns file when env still holds the built-in default and the
// file sets a value.
func override[T comparable](env, file, def T) T {
	var zero T
	if env == def && file != zero {
		return file
	}
	return env
}

// mergeConfigs merges file config with env config (explicit env values win)
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := Default()
	out := envConfig

	out.Server.Port = override(envConfig.Server.Port, fileConfig.Server.Port, def.Server.Port)
	out.Server.ReadTimeout = override(envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, def.Server.ReadTimeout)
	out.Server.WriteTimeout = override(envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, def.Server.WriteTimeout)
	out.Server.IdleTimeout = override(envConfig.Server.IdleTimeout, fileConfig.Server.IdleTimeout, def.Server.IdleTimeout)
	out.Server.ShutdownTimeout = override(envConfig.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout, def.Server.ShutdownTimeout)
	out.Server.RequestTimeout = override(envConfig.Server.RequestTimeout, fileConfig.Server.RequestTimeout, def.Server.RequestTimeout)
	out.Server.MaxUploadBytes = override(envConfig.Server.MaxUploadBytes, fileConfig.Server.MaxUploadBytes, def.Server.MaxUploadBytes)
	out.Server.StaticDir = override(envConfig.Server.StaticDir, fileConfig.Server.StaticDir, "")

	out.Security.Password = override(envConfig.Security.Password, fileConfig.Security.Password, "")
	out.Security.PasswordHash = override(envConfig.Security.PasswordHash, fileConfig.Security.PasswordHash, "")
	out.Security.SessionKey = override(envConfig.Security.SessionKey, fileConfig.Security.SessionKey, "")
	out.Security.SessionName = override(envConfig.Security.SessionName, fileConfig.Security.SessionName, def.Security.SessionName)
	out.Security.SessionMaxAge = override(envConfig.Security.SessionMaxAge, fileConfig.Security.SessionMaxAge, def.Security.SessionMaxAge)
	out.Security.CookieSecure = override(envConfig.Security.CookieSecure, fileConfig.Security.CookieSecure, def.Security.CookieSecure)
	if slices.Equal(envConfig.Security.AllowedOrigins, def.Security.AllowedOrigins) && len(fileConfig.Security.AllowedOrigins) > 0 {
		out.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	out.Security.RateLimit.RPS = override(envConfig.Security.RateLimit.RPS, fileConfig.Security.RateLimit.RPS, def.Security.RateLimit.RPS)
	out.Security.RateLimit.Burst = override(envConfig.Security.RateLimit.Burst, fileConfig.Security.RateLimit.Burst, def.Security.RateLimit.Burst)

	out.Logging.Level = override(envConfig.Logging.Level, fileConfig.Logging.Level, def.Logging.Level)
	out.Logging.Output = override(envConfig.Logging.Output, fileConfig.Logging.Output, def.Logging.Output)
	out.Logging.FilePath = override(envConfig.Logging.FilePath, fileConfig.Logging.FilePath, def.Logging.FilePath)

	out.Dashboard.DefaultTopN = override(envConfig.Dashboard.DefaultTopN, fileConfig.Dashboard.DefaultTopN, def.Dashboard.DefaultTopN)
	if slices.Equal(envConfig.Dashboard.AllowedTopN, def.Dashboard.AllowedTopN) && len(fileConfig.Dashboard.AllowedTopN) > 0 {
		out.Dashboard.AllowedTopN = fileConfig.Dashboard.AllowedTopN
	}
	if len(envConfig.Dashboard.DateLayouts) == 0 {
		out.Dashboard.DateLayouts = fileConfig.Dashboard.DateLayouts
	}
	out.Dashboard.CacheTTL = override(envConfig.Dashboard.CacheTTL, fileConfig.Dashboard.CacheTTL, def.Dashboard.CacheTTL)
	out.Dashboard.MaxSessions = override(envConfig.Dashboard.MaxSessions, fileConfig.Dashboard.MaxSessions, def.Dashboard.MaxSessions)

	out.Telemetry.TraceExporter = override(envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter, def.Telemetry.TraceExporter)
	out.Telemetry.MetricExporter = override(envConfig.Telemetry.MetricExporter, fileConfig.Telemetry.MetricExporter, def.Telemetry.MetricExporter)
	out.Telemetry.Environment = override(envConfig.Telemetry.Environment, fileConfig.Telemetry.Environment, def.Telemetry.Environment)

	return out
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload bytes must be positive")
	}

	if c.Security.Password == "" && c.Security.PasswordHash == "" {
		return fmt.Errorf("security password or password_hash must be set")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if len(c.Dashboard.AllowedTopN) == 0 {
		return fmt.Errorf("dashboard allowed_top_n must not be empty")
	}
	for _, n := range c.Dashboard.AllowedTopN {
		if n <= 0 {
			return fmt.Errorf("dashboard allowed_top_n values must be positive, got %d", n)
		}
	}
	if !c.Dashboard.TopNAllowed(c.Dashboard.DefaultTopN) {
		return fmt.Errorf("dashboard default_top_n %d is not in allowed_top_n %v", c.Dashboard.DefaultTopN, c.Dashboard.AllowedTopN)
	}

	if c.Dashboard.MaxSessions <= 0 {
		return fmt.Errorf("dashboard max_sessions must be positive")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/playlistpulse.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxUploadBytes:  DefaultMaxUploadBytes,
		},
		Security: SecurityConfig{
			SessionName:    DefaultSessionName,
			SessionMaxAge:  12 * time.Hour,
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/playlistpulse.log",
		},
		Dashboard: DashboardConfig{
			DefaultTopN:  DefaultTopN,
			AllowedTopN:  []int{10, 25},
			CacheTTL:     2 * time.Hour,
			MaxSessions:  256,
			CacheCleanup: 5 * time.Minute,
			ChartWidth:   1024,
			ChartHeight:  600,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageBytes: 4096,
		},
	}
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Scheduler   SchedulerConfig
	Consumption ConsumptionConfig
	Scoring     ScoringConfig
	Alert       AlertConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file, ":memory:" allowed
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	RequestTimeout   time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// SchedulerConfig holds the background job settings. Sweep and health
// scoring run once a day at the configured UTC time.
type SchedulerConfig struct {
	Enabled      bool
	Workers      int
	QueueSize    int
	JobTimeout   time.Duration
	SweepHour    int
	SweepMinute  int
	HealthHour   int
	HealthMinute int
}

// ConsumptionConfig holds the commitment consumption window and the retry
// policy for optimistic lock conflicts
type ConsumptionConfig struct {
	ForwardWindowDays int
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

// ScoringConfig holds the health score tunables
type ScoringConfig struct {
	WindowDays       int
	ExpectedOrders   int
	HealthyThreshold float64
	AtRiskThreshold  float64
}

// AlertConfig holds alerting settings
type AlertConfig struct {
	DiscountThresholdPct  float64
	IdempotencyTTL        time.Duration
	// days of missed commitments and health drops rechecked for lost alerts
	ReconcileLookbackDays int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // development only
	MetricsEnabled    bool
	LogsEnabled       bool
	DBTraceEnabled    bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DEALEROPS_ prefix (e.g., DEALEROPS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DEALEROPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			RequestTimeout:   v.GetDuration("http.request_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      v.GetBool("scheduler.enabled"),
			Workers:      v.GetInt("scheduler.workers"),
			QueueSize:    v.GetInt("scheduler.queue_size"),
			JobTimeout:   v.GetDuration("scheduler.job_timeout"),
			SweepHour:    v.GetInt("scheduler.sweep_hour"),
			SweepMinute:  v.GetInt("scheduler.sweep_minute"),
			HealthHour:   v.GetInt("scheduler.health_hour"),
			HealthMinute: v.GetInt("scheduler.health_minute"),
		},
		Consumption: ConsumptionConfig{
			ForwardWindowDays: v.GetInt("consumption.forward_window_days"),
			MaxRetries:        v.GetInt("consumption.max_retries"),
			InitialBackoff:    v.GetDuration("consumption.initial_backoff"),
			MaxBackoff:        v.GetDuration("consumption.max_backoff"),
		},
		Scoring: ScoringConfig{
			WindowDays:       v.GetInt("scoring.window_days"),
			ExpectedOrders:   v.GetInt("scoring.expected_orders"),
			HealthyThreshold: v.GetFloat64("scoring.healthy_threshold"),
			AtRiskThreshold:  v.GetFloat64("scoring.at_risk_threshold"),
		},
		Alert: AlertConfig{
			DiscountThresholdPct:  v.GetFloat64("alert.discount_threshold_pct"),
			IdempotencyTTL:        v.GetDuration("alert.idempotency_ttl"),
			ReconcileLookbackDays: v.GetInt("alert.reconcile_lookback_days"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "dealerops"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "dealerops"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "dealerops.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 2
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 16
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	// Sweep at 00:15 UTC, health at 01:00 UTC unless configured.
	if cfg.Scheduler.SweepHour == 0 && cfg.Scheduler.SweepMinute == 0 {
		cfg.Scheduler.SweepMinute = 15
	}
	if cfg.Scheduler.HealthHour == 0 && cfg.Scheduler.HealthMinute == 0 {
		cfg.Scheduler.HealthHour = 1
	}
	if cfg.Consumption.ForwardWindowDays == 0 {
		cfg.Consumption.ForwardWindowDays = 7
	}
	if cfg.Consumption.MaxRetries == 0 {
		cfg.Consumption.MaxRetries = 5
	}
	if cfg.Consumption.InitialBackoff == 0 {
		cfg.Consumption.InitialBackoff = 10 * time.Millisecond
	}
	if cfg.Consumption.MaxBackoff == 0 {
		cfg.Consumption.MaxBackoff = 200 * time.Millisecond
	}
	if cfg.Scoring.WindowDays == 0 {
		cfg.Scoring.WindowDays = 180
	}
	if cfg.Scoring.ExpectedOrders == 0 {
		cfg.Scoring.ExpectedOrders = 6
	}
	if cfg.Scoring.HealthyThreshold == 0 {
		cfg.Scoring.HealthyThreshold = 70
	}
	if cfg.Scoring.AtRiskThreshold == 0 {
		cfg.Scoring.AtRiskThreshold = 50
	}
	if cfg.Alert.DiscountThresholdPct == 0 {
		cfg.Alert.DiscountThresholdPct = 3.0
	}
	if cfg.Alert.IdempotencyTTL == 0 {
		cfg.Alert.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Alert.ReconcileLookbackDays == 0 {
		cfg.Alert.ReconcileLookbackDays = 7
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "dealerops"
	}
}

// IsProduction reports whether the service runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.IsProduction() {
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if err := validClock("sweep", c.Scheduler.SweepHour, c.Scheduler.SweepMinute); err != nil {
		return err
	}
	if err := validClock("health", c.Scheduler.HealthHour, c.Scheduler.HealthMinute); err != nil {
		return err
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be at least 1")
	}

	if c.Consumption.ForwardWindowDays < 0 {
		return fmt.Errorf("consumption.forward_window_days cannot be negative")
	}
	if c.Consumption.MaxRetries < 1 {
		return fmt.Errorf("consumption.max_retries must be at least 1")
	}
	if c.Consumption.InitialBackoff > c.Consumption.MaxBackoff {
		return fmt.Errorf("consumption.initial_backoff (%s) cannot exceed consumption.max_backoff (%s)",
			c.Consumption.InitialBackoff, c.Consumption.MaxBackoff)
	}

	if c.Scoring.AtRiskThreshold >= c.Scoring.HealthyThreshold {
		return fmt.Errorf("scoring.at_risk_threshold (%.1f) must be below scoring.healthy_threshold (%.1f)",
			c.Scoring.AtRiskThreshold, c.Scoring.HealthyThreshold)
	}
	if c.Scoring.WindowDays <= 0 || c.Scoring.ExpectedOrders <= 0 {
		return fmt.Errorf("scoring.window_days and scoring.expected_orders must be positive")
	}

	if c.Alert.DiscountThresholdPct < 0 || c.Alert.DiscountThresholdPct > 100 {
		return fmt.Errorf("alert.discount_threshold_pct must be between 0 and 100, got %f", c.Alert.DiscountThresholdPct)
	}
	if c.Alert.ReconcileLookbackDays < 0 {
		return fmt.Errorf("alert.reconcile_lookback_days must not be negative, got %d", c.Alert.ReconcileLookbackDays)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

func validClock(name string, hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("scheduler.%s_hour/%s_minute out of range: %02d:%02d", name, name, hour, minute)
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

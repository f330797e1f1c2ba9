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
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Extraction ExtractionConfig
	Validation ValidationConfig
	StockSync  StockSyncConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// ExtractionConfig holds page acquisition and extractor settings
type ExtractionConfig struct {
	FetchTimeout      time.Duration
	RequestsPerSecond float64
	RequestBurst      int
	UserAgent         string
	ReviewLimit       int
	// RenderPages routes fetches through headless Chrome instead of plain HTTP
	RenderPages bool
	// ChromeRemoteURL points at a remote Chrome instance when rendering
	ChromeRemoteURL string
	// CacheTTL for extraction results keyed by source URL; 0 disables caching
	CacheTTL time.Duration
}

// ValidationConfig holds the admission-control thresholds
type ValidationConfig struct {
	MinScore             int
	MinDescriptionLength int
	PenaltyNoImages      int
	PenaltySingleImage   int
	PenaltyShortDesc     int
	PenaltyNoBrand       int
	PenaltyNoSKU         int
	PenaltyNoSpecs       int
}

// StockSyncConfig holds stock reconciliation settings
type StockSyncConfig struct {
	Enabled           bool
	Interval          time.Duration
	Concurrency       int
	PerProductTimeout time.Duration
	StaleAfter        time.Duration
	BatchSize         int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHOPOPTI_ prefix (e.g., SHOPOPTI_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SHOPOPTI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
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
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Extraction: ExtractionConfig{
			FetchTimeout:      v.GetDuration("extraction.fetch_timeout"),
			RequestsPerSecond: v.GetFloat64("extraction.requests_per_second"),
			RequestBurst:      v.GetInt("extraction.request_burst"),
			UserAgent:         v.GetString("extraction.user_agent"),
			ReviewLimit:       v.GetInt("extraction.review_limit"),
			RenderPages:       v.GetBool("extraction.render_pages"),
			ChromeRemoteURL:   v.GetString("extraction.chrome_remote_url"),
			CacheTTL:          v.GetDuration("extraction.cache_ttl"),
		},
		Validation: ValidationConfig{
			MinScore:             v.GetInt("validation.min_score"),
			MinDescriptionLength: v.GetInt("validation.min_description_length"),
			PenaltyNoImages:      v.GetInt("validation.penalty_no_images"),
			PenaltySingleImage:   v.GetInt("validation.penalty_single_image"),
			PenaltyShortDesc:     v.GetInt("validation.penalty_short_desc"),
			PenaltyNoBrand:       v.GetInt("validation.penalty_no_brand"),
			PenaltyNoSKU:         v.GetInt("validation.penalty_no_sku"),
			PenaltyNoSpecs:       v.GetInt("validation.penalty_no_specs"),
		},
		StockSync: StockSyncConfig{
			Enabled:           v.GetBool("stock_sync.enabled"),
			Interval:          v.GetDuration("stock_sync.interval"),
			Concurrency:       v.GetInt("stock_sync.concurrency"),
			PerProductTimeout: v.GetDuration("stock_sync.per_product_timeout"),
			StaleAfter:        v.GetDuration("stock_sync.stale_after"),
			BatchSize:         v.GetInt("stock_sync.batch_size"),
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
		cfg.App.Name = "shopopti-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "shopopti"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
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
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "shopopti-backend"
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
		// Rendered extractions can take a while on slow storefronts
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Extraction.FetchTimeout == 0 {
		cfg.Extraction.FetchTimeout = 15 * time.Second
	}
	if cfg.Extraction.RequestsPerSecond == 0 {
		cfg.Extraction.RequestsPerSecond = 2
	}
	if cfg.Extraction.RequestBurst == 0 {
		cfg.Extraction.RequestBurst = 4
	}
	if cfg.Extraction.ReviewLimit == 0 {
		cfg.Extraction.ReviewLimit = 50
	}
	if cfg.Extraction.CacheTTL == 0 {
		cfg.Extraction.CacheTTL = 15 * time.Minute
	}
	if cfg.Validation.MinScore == 0 {
		cfg.Validation.MinScore = 70
	}
	if cfg.Validation.MinDescriptionLength == 0 {
		cfg.Validation.MinDescriptionLength = 50
	}
	if cfg.Validation.PenaltyNoImages == 0 {
		cfg.Validation.PenaltyNoImages = 30
	}
	if cfg.Validation.PenaltySingleImage == 0 {
		cfg.Validation.PenaltySingleImage = 10
	}
	if cfg.Validation.PenaltyShortDesc == 0 {
		cfg.Validation.PenaltyShortDesc = 10
	}
	if cfg.Validation.PenaltyNoBrand == 0 {
		cfg.Validation.PenaltyNoBrand = 5
	}
	if cfg.Validation.PenaltyNoSKU == 0 {
		cfg.Validation.PenaltyNoSKU = 5
	}
	if cfg.Validation.PenaltyNoSpecs == 0 {
		cfg.Validation.PenaltyNoSpecs = 5
	}
	if cfg.StockSync.Interval == 0 {
		cfg.StockSync.Interval = time.Hour
	}
	if cfg.StockSync.Concurrency == 0 {
		cfg.StockSync.Concurrency = 5
	}
	if cfg.StockSync.PerProductTimeout == 0 {
		cfg.StockSync.PerProductTimeout = 20 * time.Second
	}
	if cfg.StockSync.StaleAfter == 0 {
		cfg.StockSync.StaleAfter = 6 * time.Hour
	}
	if cfg.StockSync.BatchSize == 0 {
		cfg.StockSync.BatchSize = 50
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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

	if c.Validation.MinScore < 0 || c.Validation.MinScore > 100 {
		return fmt.Errorf("validation.min_score must be between 0 and 100, got %d", c.Validation.MinScore)
	}
	if c.StockSync.Concurrency <= 0 {
		return fmt.Errorf("stock_sync.concurrency must be positive")
	}
	if c.StockSync.BatchSize <= 0 {
		return fmt.Errorf("stock_sync.batch_size must be positive")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
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

// RedisAddr returns the host:port address for the Redis client
func (r *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

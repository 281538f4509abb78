package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Environment
	Environment string `mapstructure:"ENV"`

	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Queue    QueueConfig
	Storage  StorageConfig
	LLM      LLMConfig
	Data     DataConfig

	// File Processing
	MaxFileSize int64 `mapstructure:"MAX_FILE_SIZE_MB"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string
	Port            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig configures the postgres connection used to persist analysis runs.
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // minutes
	MaxConnIdleTime int // minutes
	LogLevel        string
}

// CacheConfig configures the redis table and conversation cache.
type CacheConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	DialTimeout  int // seconds
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	PoolSize     int
	MinIdleConns int
	TTL          time.Duration
}

// QueueConfig configures the asynq client and worker.
type QueueConfig struct {
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	DialTimeout    int // seconds
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	Concurrency    int
	StrictPriority bool
	MaxRetries     int
}

// StorageConfig configures local file retention.
type StorageConfig struct {
	BasePath  string
	Retention time.Duration
}

// LLMConfig configures the chat assistant.
type LLMConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	AllowedModels []string
	Timeout       time.Duration
	MaxRows       int
}

// DataConfig points at the default workbooks and dictionary overrides.
type DataConfig struct {
	OutagesPath    string
	ResistancePath string
	LocatorPath    string
	SyncBasePath   string
	SyncUpdatePath string
	SyncOutputPath string
	LookupPath     string
	WatchDir       string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(".env"); err != nil {
		// Try parent directory
		if err := godotenv.Load("../.env"); err != nil {
			slog.Debug("no .env file found, using environment variables only")
		}
	}

	v := viper.New()
	setDefaults(v)

	// Bind environment variables
	v.AutomaticEnv()

	config := &Config{
		Environment: v.GetString("ENV"),
		MaxFileSize: v.GetInt64("MAX_FILE_SIZE_MB"),
	}

	config.Server = ServerConfig{
		Host:            v.GetString("SERVER_HOST"),
		Port:            v.GetString("SERVER_PORT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
	}

	config.Database = DatabaseConfig{
		Enabled:         v.GetBool("DB_ENABLED"),
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Database:        v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSLMODE"),
		MaxConnections:  v.GetInt("DB_MAX_CONNECTIONS"),
		MinConnections:  v.GetInt("DB_MIN_CONNECTIONS"),
		MaxConnLifetime: v.GetInt("DB_MAX_CONN_LIFETIME"),
		MaxConnIdleTime: v.GetInt("DB_MAX_CONN_IDLE_TIME"),
		LogLevel:        v.GetString("DB_LOG_LEVEL"),
	}

	config.Cache = CacheConfig{
		Enabled:      v.GetBool("REDIS_ENABLED"),
		Host:         v.GetString("REDIS_HOST"),
		Port:         v.GetInt("REDIS_PORT"),
		Password:     v.GetString("REDIS_PASSWORD"),
		DB:           v.GetInt("REDIS_DB"),
		DialTimeout:  v.GetInt("REDIS_DIAL_TIMEOUT"),
		ReadTimeout:  v.GetInt("REDIS_READ_TIMEOUT"),
		WriteTimeout: v.GetInt("REDIS_WRITE_TIMEOUT"),
		PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
		MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		TTL:          v.GetDuration("CACHE_TTL"),
	}

	// The queue shares the redis instance unless QUEUE_REDIS_* overrides it.
	config.Queue = QueueConfig{
		RedisHost:      v.GetString("QUEUE_REDIS_HOST"),
		RedisPort:      v.GetInt("QUEUE_REDIS_PORT"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("QUEUE_REDIS_DB"),
		DialTimeout:    v.GetInt("REDIS_DIAL_TIMEOUT"),
		ReadTimeout:    v.GetInt("REDIS_READ_TIMEOUT"),
		WriteTimeout:   v.GetInt("REDIS_WRITE_TIMEOUT"),
		Concurrency:    v.GetInt("WORKER_CONCURRENCY"),
		StrictPriority: v.GetBool("WORKER_STRICT_PRIORITY"),
		MaxRetries:     v.GetInt("WORKER_MAX_RETRIES"),
	}
	if config.Queue.RedisHost == "" {
		config.Queue.RedisHost = config.Cache.Host
	}
	if config.Queue.RedisPort == 0 {
		config.Queue.RedisPort = config.Cache.Port
	}

	config.Storage = StorageConfig{
		BasePath:  v.GetString("STORAGE_PATH"),
		Retention: v.GetDuration("STORAGE_RETENTION"),
	}

	config.LLM = LLMConfig{
		APIKey:        v.GetString("OPENAI_API_KEY"),
		BaseURL:       v.GetString("OPENAI_BASE_URL"),
		Model:         v.GetString("OPENAI_MODEL"),
		AllowedModels: splitList(v.GetString("OPENAI_ALLOWED_MODELS")),
		Timeout:       v.GetDuration("OPENAI_TIMEOUT"),
		MaxRows:       v.GetInt("LLM_CONTEXT_MAX_ROWS"),
	}

	config.Data = DataConfig{
		OutagesPath:    v.GetString("OUTAGES_WORKBOOK"),
		ResistancePath: v.GetString("RESISTANCE_WORKBOOK"),
		LocatorPath:    v.GetString("LOCATOR_WORKBOOK"),
		SyncBasePath:   v.GetString("SYNC_BASE_WORKBOOK"),
		SyncUpdatePath: v.GetString("SYNC_UPDATE_WORKBOOK"),
		SyncOutputPath: v.GetString("SYNC_OUTPUT_WORKBOOK"),
		LookupPath:     v.GetString("LOOKUP_FILE"),
		WatchDir:       v.GetString("WATCH_DIR"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	// Database defaults
	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "outages")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNECTIONS", 10)
	v.SetDefault("DB_MIN_CONNECTIONS", 2)
	v.SetDefault("DB_MAX_CONN_LIFETIME", 30)
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", 5)
	v.SetDefault("DB_LOG_LEVEL", "silent")

	// Redis defaults
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5)
	v.SetDefault("REDIS_READ_TIMEOUT", 3)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("CACHE_TTL", "1h")

	// Worker defaults
	v.SetDefault("QUEUE_REDIS_DB", 1)
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("WORKER_STRICT_PRIORITY", false)
	v.SetDefault("WORKER_MAX_RETRIES", 3)

	// Storage defaults
	v.SetDefault("STORAGE_PATH", "/tmp/outage-analytics")
	v.SetDefault("STORAGE_RETENTION", "168h")

	// LLM defaults
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_ALLOWED_MODELS", "gpt-4o-mini,gpt-4o")
	v.SetDefault("OPENAI_TIMEOUT", "60s")
	v.SetDefault("LLM_CONTEXT_MAX_ROWS", 400)

	// File processing defaults
	v.SetDefault("MAX_FILE_SIZE_MB", 100)
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Database.Enabled {
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required when DB_ENABLED is set")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when DB_ENABLED is set")
		}
	}
	if c.LLM.MaxRows <= 0 || c.LLM.MaxRows%2 != 0 {
		return fmt.Errorf("LLM_CONTEXT_MAX_ROWS must be a positive even number, got %d", c.LLM.MaxRows)
	}
	if len(c.LLM.AllowedModels) == 0 {
		return fmt.Errorf("OPENAI_ALLOWED_MODELS must list at least one model")
	}
	if !c.LLM.IsAllowedModel(c.LLM.Model) {
		return fmt.Errorf("OPENAI_MODEL %q is not in OPENAI_ALLOWED_MODELS", c.LLM.Model)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive")
	}
	if out := c.Data.SyncOutputPath; out != "" {
		for _, in := range []string{c.Data.SyncBasePath, c.Data.SyncUpdatePath} {
			if in != "" && filepath.Clean(in) == filepath.Clean(out) {
				return fmt.Errorf("SYNC_OUTPUT_WORKBOOK must differ from the sync inputs, got %q", out)
			}
		}
	}
	return nil
}

// IsAllowedModel reports whether model is one of the configured chat models.
func (l LLMConfig) IsAllowedModel(model string) bool {
	for _, m := range l.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

// GetServerAddr returns the host:port the API listens on
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// MaxFileSizeBytes converts the configured limit to bytes
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSize * 1024 * 1024
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LogConfig logs the configuration (hiding sensitive data)
func (c *Config) LogConfig(logger *slog.Logger) {
	apiKey := "[NOT SET]"
	if c.LLM.APIKey != "" {
		apiKey = "[CONFIGURED]"
	}

	logger.Info("configuration loaded",
		slog.String("environment", c.Environment),
		slog.String("server", c.GetServerAddr()),
		slog.Bool("database_enabled", c.Database.Enabled),
		slog.String("database", fmt.Sprintf("%s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Database)),
		slog.Bool("redis_enabled", c.Cache.Enabled),
		slog.String("redis", fmt.Sprintf("%s:%d (DB: %d)", c.Cache.Host, c.Cache.Port, c.Cache.DB)),
		slog.Int("worker_concurrency", c.Queue.Concurrency),
		slog.String("llm_model", c.LLM.Model),
		slog.String("openai_api_key", apiKey),
		slog.String("storage_path", c.Storage.BasePath),
	)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

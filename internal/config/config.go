package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// DBHostEnv is the environment variable for database host. The sync-run audit log is disabled when empty.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// DBMigrationsPathEnv is the environment variable for the migrations directory.
	DBMigrationsPathEnv = "DB_MIGRATIONS_PATH"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// Env is the environment variable for environment name.
	Env = "ENV"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// LocalhostEnv is the constant for localhost.
	LocalhostEnv = "localhost"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// SQSQueueURLEnv is the environment variable for SQS queue URL. Notifications are disabled when empty.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// InventoryPathEnv is the environment variable for the inventory store file.
	InventoryPathEnv = "INVENTORY_PATH"

	// InventoryAPIKeyEnv is the environment variable for the shared key of the trusted replace endpoint.
	InventoryAPIKeyEnv = "INVENTORY_API_KEY"

	// FetchTimeoutEnv is the environment variable for the remote fetch timeout.
	FetchTimeoutEnv = "FETCH_TIMEOUT"

	// AutoSyncURLEnv is the environment variable for the periodically synced source.
	AutoSyncURLEnv = "AUTO_SYNC_URL"

	// AutoSyncIntervalEnv is the environment variable for the auto-sync period.
	AutoSyncIntervalEnv = "AUTO_SYNC_INTERVAL"

	// BackupRetentionDaysEnv is the environment variable for the backup retention window.
	BackupRetentionDaysEnv = "BACKUP_RETENTION_DAYS"

	// BackupKeepMinimumEnv is the environment variable for the number of newest backups always kept.
	BackupKeepMinimumEnv = "BACKUP_KEEP_MINIMUM"

	// BackupSweepScheduleEnv is the environment variable for the cron schedule of the backup sweep.
	BackupSweepScheduleEnv = "BACKUP_SWEEP_SCHEDULE"

	// ChatWebhookURLEnv is the environment variable for the automation webhook receiving orders and chat.
	ChatWebhookURLEnv = "CHAT_WEBHOOK_URL"

	// RedisAddrEnv is the environment variable for the redis address. Caching is disabled when empty.
	RedisAddrEnv = "REDIS_ADDR"

	// RedisPasswordEnv is the environment variable for the redis password.
	RedisPasswordEnv = "REDIS_PASSWORD"

	// RedisDBEnv is the environment variable for the redis database index.
	RedisDBEnv = "REDIS_DB"

	// CacheTTLEnv is the environment variable for cached product list lifetime.
	CacheTTLEnv = "CACHE_TTL"

	// LogFileEnv is the environment variable for an optional rotating log file.
	LogFileEnv = "LOG_FILE"

	DefaultInventoryPath       = "data/inventory.json"
	DefaultMigrationsPath      = "migrations"
	DefaultFetchTimeout        = 30 * time.Second
	DefaultAutoSyncInterval    = 5 * time.Minute
	DefaultBackupRetentionDays = 30
	DefaultBackupKeepMinimum   = 2
	DefaultBackupSweepSchedule = "@daily"
	DefaultCacheTTL            = time.Minute
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	Database      DB
	HTTPServer    Server
	MetricsServer Server
	AWS           AWSConfig
	Inventory     Inventory
	Webhook       Webhook
	Redis         Redis
	LogFile       string
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region      string
	Endpoint    string
	SQSQueueURL string
}

// Enabled reports whether a queue is configured.
func (c AWSConfig) Enabled() bool {
	return c.SQSQueueURL != ""
}

// DB represents database configuration settings.
type DB struct {
	Host           string
	User           string
	Password       string
	Name           string
	Port           string
	MigrationsPath string
}

// Enabled reports whether the audit database is configured.
func (c DB) Enabled() bool {
	return c.Host != ""
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

// Inventory holds the store location and the sync/backup policy.
type Inventory struct {
	Path                string
	APIKey              string
	FetchTimeout        time.Duration
	AutoSyncURL         string
	AutoSyncInterval    time.Duration
	BackupRetentionDays int
	BackupKeepMinimum   int
	BackupSweepSchedule string
}

type Webhook struct {
	ChatURL string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a redis address is configured.
func (c Redis) Enabled() bool {
	return c.Addr != ""
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
		InventoryPathEnv:     c.Inventory.Path,
	}); err != nil {
		return fmt.Errorf("server configuration incomplete: %w", err)
	}

	if err := allNumbers(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	if c.Database.Enabled() {
		if err := allNonEmpty(map[string]string{
			DBUserEnv: c.Database.User,
			DBNameEnv: c.Database.Name,
		}); err != nil {
			return fmt.Errorf("database configuration incomplete: %w", err)
		}
		if err := allNumbers(map[string]string{DBPortEnv: c.Database.Port}); err != nil {
			return fmt.Errorf("invalid port number: %w", err)
		}
	}

	if c.Inventory.AutoSyncURL != "" && c.Inventory.AutoSyncInterval <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrMissingConfig, AutoSyncIntervalEnv)
	}
	if c.Inventory.FetchTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrMissingConfig, FetchTimeoutEnv)
	}

	return nil
}

// RequireSQS fails when no queue is configured.
func (c *Config) RequireSQS() error {
	if err := allNonEmpty(map[string]string{SQSQueueURLEnv: c.AWS.SQSQueueURL}); err != nil {
		return fmt.Errorf("AWS configuration incomplete: %w", err)
	}
	return nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	val := os.Getenv(name)
	if val == "" {
		return defaultValue
	}
	n, err := cast.ToIntE(val)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", slog.String("key", name), slog.String("value", val))
		return defaultValue
	}
	return n
}

// getEnvAsDuration accepts Go durations ("90s", "5m") or a plain number of seconds.
func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(name)
	if val == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := cast.ToDurationE(val)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", slog.String("key", name), slog.String("value", val))
		return defaultValue
	}
	return d
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		Database: DB{
			Host:           os.Getenv(DBHostEnv),
			User:           os.Getenv(DBUserEnv),
			Password:       os.Getenv(DBPassEnv),
			Name:           os.Getenv(DBNameEnv),
			Port:           getEnv(DBPortEnv, "5432"),
			MigrationsPath: getEnv(DBMigrationsPathEnv, DefaultMigrationsPath),
		},
		HTTPServer: Server{
			Port: os.Getenv(HTTPServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		AWS: AWSConfig{
			Region:      os.Getenv(AWSRegionEnv),
			Endpoint:    os.Getenv(AWSEndpointEnv),
			SQSQueueURL: os.Getenv(SQSQueueURLEnv),
		},
		Inventory: Inventory{
			Path:                getEnv(InventoryPathEnv, DefaultInventoryPath),
			APIKey:              os.Getenv(InventoryAPIKeyEnv),
			FetchTimeout:        getEnvAsDuration(FetchTimeoutEnv, DefaultFetchTimeout),
			AutoSyncURL:         os.Getenv(AutoSyncURLEnv),
			AutoSyncInterval:    getEnvAsDuration(AutoSyncIntervalEnv, DefaultAutoSyncInterval),
			BackupRetentionDays: getEnvAsInt(BackupRetentionDaysEnv, DefaultBackupRetentionDays),
			BackupKeepMinimum:   getEnvAsInt(BackupKeepMinimumEnv, DefaultBackupKeepMinimum),
			BackupSweepSchedule: getEnv(BackupSweepScheduleEnv, DefaultBackupSweepSchedule),
		},
		Webhook: Webhook{
			ChatURL: os.Getenv(ChatWebhookURLEnv),
		},
		Redis: Redis{
			Addr:     os.Getenv(RedisAddrEnv),
			Password: os.Getenv(RedisPasswordEnv),
			DB:       getEnvAsInt(RedisDBEnv, 0),
			TTL:      getEnvAsDuration(CacheTTLEnv, DefaultCacheTTL),
		},
		LogFile: os.Getenv(LogFileEnv),
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Sync         SyncConfig
	Overtime     OvertimeConfig
	Geofence     GeofenceConfig
	Attendance   AttendanceConfig
	Push         PushConfig
	Notification NotificationConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxConns      int
	MinConns      int
	RunMigrations bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Version        string
	AllowedOrigins []string
}

// SyncConfig controls replay of queued attendance operations.
// MaxAttempts of 0 means items are retried until they sync or are cleared.
type SyncConfig struct {
	MaxAttempts   int
	RetryInterval time.Duration
	PurgeAfter    time.Duration
}

// OvertimeConfig holds the overtime prompt schedule.
type OvertimeConfig struct {
	PromptHour      int
	PromptMinute    int
	ResponseTimeout time.Duration
	CheckInterval   time.Duration
}

// GeofenceConfig decides whether an out-of-radius office clock-in is rejected
// or accepted with an alert.
type GeofenceConfig struct {
	Enforce bool
}

type AttendanceConfig struct {
	StaleSessionAfter   time.Duration
	NightShiftStartHour int
	NightShiftEndHour   int
	DefaultTimezone     string
}

type PushConfig struct {
	Enabled bool
	URL     string
	APIKey  string
	AppID   string
	Timeout time.Duration
}

type NotificationConfig struct {
	Workers       int
	BatchSize     int
	FlushInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:          getEnv("DB_HOST", "localhost"),
		Port:          dbPort,
		User:          getEnv("DB_USER", "postgres"),
		Password:      getEnv("DB_PASSWORD", ""),
		Name:          getEnv("DB_NAME", "appraisal_compass"),
		SSLMode:       getEnv("DB_SSL_MODE", "disable"),
		MaxConns:      getEnvInt("DB_MAX_CONNS", 25),
		MinConns:      getEnvInt("DB_MIN_CONNS", 5),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	config.Sync = SyncConfig{
		MaxAttempts:   getEnvInt("SYNC_MAX_ATTEMPTS", 0),
		RetryInterval: getEnvDuration("SYNC_RETRY_INTERVAL", 5*time.Minute),
		PurgeAfter:    getEnvDuration("SYNC_PURGE_AFTER", 7*24*time.Hour),
	}

	config.Overtime = OvertimeConfig{
		PromptHour:      getEnvInt("OVERTIME_PROMPT_HOUR", 17),
		PromptMinute:    getEnvInt("OVERTIME_PROMPT_MINUTE", 0),
		ResponseTimeout: getEnvDuration("OVERTIME_RESPONSE_TIMEOUT", 15*time.Minute),
		CheckInterval:   getEnvDuration("OVERTIME_CHECK_INTERVAL", time.Minute),
	}

	config.Geofence = GeofenceConfig{
		Enforce: getEnvBool("GEOFENCE_ENFORCE", false),
	}

	config.Attendance = AttendanceConfig{
		StaleSessionAfter:   getEnvDuration("ATTENDANCE_STALE_AFTER", 16*time.Hour),
		NightShiftStartHour: getEnvInt("NIGHT_SHIFT_START_HOUR", 20),
		NightShiftEndHour:   getEnvInt("NIGHT_SHIFT_END_HOUR", 6),
		DefaultTimezone:     getEnv("DEFAULT_TIMEZONE", "Africa/Lagos"),
	}

	config.Push = PushConfig{
		Enabled: getEnvBool("PUSH_ENABLED", false),
		URL:     getEnv("PUSH_API_URL", "https://onesignal.com/api/v1/notifications"),
		APIKey:  getEnv("PUSH_API_KEY", ""),
		AppID:   getEnv("PUSH_APP_ID", ""),
		Timeout: getEnvDuration("PUSH_TIMEOUT", 10*time.Second),
	}

	config.Notification = NotificationConfig{
		Workers:       getEnvInt("NOTIFICATION_WORKERS", 3),
		BatchSize:     getEnvInt("NOTIFICATION_BATCH_SIZE", 100),
		FlushInterval: getEnvDuration("NOTIFICATION_FLUSH_INTERVAL", 500*time.Millisecond),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Sync.MaxAttempts < 0 {
		return fmt.Errorf("SYNC_MAX_ATTEMPTS must be zero or positive")
	}
	if c.Overtime.PromptHour < 0 || c.Overtime.PromptHour > 23 {
		return fmt.Errorf("OVERTIME_PROMPT_HOUR must be between 0 and 23")
	}
	if c.Overtime.PromptMinute < 0 || c.Overtime.PromptMinute > 59 {
		return fmt.Errorf("OVERTIME_PROMPT_MINUTE must be between 0 and 59")
	}
	if c.Overtime.ResponseTimeout <= 0 {
		return fmt.Errorf("OVERTIME_RESPONSE_TIMEOUT must be positive")
	}
	if c.Push.Enabled && (c.Push.APIKey == "" || c.Push.AppID == "") {
		return fmt.Errorf("PUSH_API_KEY and PUSH_APP_ID are required when PUSH_ENABLED is set")
	}
	if _, err := time.LoadLocation(c.Attendance.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE: %w", err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}

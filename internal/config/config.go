package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration
type Config struct {
	Port          string `toml:"port"`
	DBDriver      string `toml:"db_driver"`
	DBConn        string `toml:"db_conn"`
	LogLevel      string `toml:"log_level"`
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTL      string `toml:"token_ttl"`
	EncryptionKey string `toml:"encryption_key"`
	CBRURL        string `toml:"cbr_url"`
	ChartMonths   int    `toml:"chart_months"`

	Upload UploadConfig `toml:"upload"`
	SMTP   SMTPConfig   `toml:"smtp"`
	Jobs   JobsConfig   `toml:"jobs"`
}

// UploadConfig controls where collateral images are stored and how they are served.
type UploadConfig struct {
	Dir      string `toml:"dir"`
	BaseURL  string `toml:"base_url"`
	MaxBytes int64  `toml:"max_bytes"`
	MaxWidth int    `toml:"max_width"`
}

// SMTPConfig is used by the reminder mailer. An empty Host disables mail.
type SMTPConfig struct {
	Host        string `toml:"host"`
	Port        string `toml:"port"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	SenderEmail string `toml:"sender_email"`
}

// JobsConfig holds cron schedules for background jobs.
type JobsConfig struct {
	ReminderSchedule string `toml:"reminder_schedule"`
	RepairSchedule   string `toml:"repair_schedule"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Port:          "8080",
		DBDriver:      DriverPostgres,
		DBConn:        "host=localhost port=5436 user=test password=test dbname=loans sslmode=disable",
		LogLevel:      "INFO",
		JWTSecret:     "secret",
		TokenTTL:      "24h",
		EncryptionKey: "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6",
		CBRURL:        "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx",
		ChartMonths:   12,
		Upload: UploadConfig{
			Dir:      "public/uploads",
			BaseURL:  "/uploads",
			MaxBytes: 10 << 20,
			MaxWidth: 1600,
		},
		SMTP: SMTPConfig{
			Port: "587",
		},
		Jobs: JobsConfig{
			ReminderSchedule: "0 8 * * *",
			RepairSchedule:   "@hourly",
		},
	}
}

// NewConfig loads configuration: defaults, then the TOML file named by
// CONFIG_FILE (if any), then environment variables.
func NewConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBConn = getEnv("DB_CONN", cfg.DBConn)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = getEnv("TOKEN_TTL", cfg.TokenTTL)
	cfg.EncryptionKey = getEnv("ENCRYPTION_KEY", cfg.EncryptionKey)
	cfg.CBRURL = getEnv("CBR_URL", cfg.CBRURL)
	cfg.Upload.Dir = getEnv("UPLOAD_DIR", cfg.Upload.Dir)
	cfg.Upload.BaseURL = getEnv("UPLOAD_BASE_URL", cfg.Upload.BaseURL)
	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnv("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = getEnv("SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.SenderEmail = getEnv("SENDER_EMAIL", cfg.SMTP.SenderEmail)
	cfg.Jobs.ReminderSchedule = getEnv("REMINDER_SCHEDULE", cfg.Jobs.ReminderSchedule)
	cfg.Jobs.RepairSchedule = getEnv("REPAIR_SCHEDULE", cfg.Jobs.RepairSchedule)

	var err error
	if cfg.ChartMonths, err = getEnvInt("CHART_MONTHS", cfg.ChartMonths); err != nil {
		return nil, err
	}
	if cfg.Upload.MaxWidth, err = getEnvInt("UPLOAD_MAX_WIDTH", cfg.Upload.MaxWidth); err != nil {
		return nil, err
	}
	maxBytes, err := getEnvInt("UPLOAD_MAX_BYTES", int(cfg.Upload.MaxBytes))
	if err != nil {
		return nil, err
	}
	cfg.Upload.MaxBytes = int64(maxBytes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and formats.
func (c *Config) Validate() error {
	if c.DBConn == "" {
		return fmt.Errorf("DB_CONN is required")
	}
	if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := c.TokenLifetime(); err != nil {
		return err
	}
	if _, err := c.EncryptionKeyBytes(); err != nil {
		return err
	}
	if c.ChartMonths <= 0 {
		return fmt.Errorf("CHART_MONTHS must be positive, got %d", c.ChartMonths)
	}
	if c.Upload.MaxWidth <= 0 {
		return fmt.Errorf("UPLOAD_MAX_WIDTH must be positive, got %d", c.Upload.MaxWidth)
	}
	return nil
}

// TokenLifetime parses TokenTTL.
func (c *Config) TokenLifetime() (time.Duration, error) {
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid TOKEN_TTL %q: %w", c.TokenTTL, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("TOKEN_TTL must be positive, got %s", d)
	}
	return d, nil
}

// EncryptionKeyBytes decodes the hex ENCRYPTION_KEY into an AES key.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24, or 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

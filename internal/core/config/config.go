package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv         string
	AppHost        string
	LogLevel       string
	DatabaseURL    string
	MigrationsDir  string
	AutoMigrate    bool
	JWTSecret      string
	JWTTTL         time.Duration
	RequestTimeout time.Duration

	UploadDir      string
	UploadMaxBytes int64
	PublicBaseURL  string

	WhatsAppAPIURL   string
	WhatsAppAPIToken string
	WhatsAppSender   string

	RedisURL string
	CacheTTL time.Duration

	SheetsCredentialsFile string
	SheetsSpreadsheetID   string
}

func Load() *Config {
	return &Config{
		AppEnv:         getEnv("APP_ENV", "production"),
		AppHost:        getEnv("APP_HOST", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "./migrations"),
		AutoMigrate:    getEnv("AUTO_MIGRATE", "") == "1",
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTTTL:         time.Duration(getInt("JWT_TTL_HOURS", 120)) * time.Hour,
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),

		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		UploadMaxBytes: int64(getInt("UPLOAD_MAX_BYTES", 10<<20)),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "/files"),

		WhatsAppAPIURL:   getEnv("WHATSAPP_API_URL", ""),
		WhatsAppAPIToken: getEnv("WHATSAPP_API_TOKEN", ""),
		WhatsAppSender:   getEnv("WHATSAPP_SENDER", ""),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: getDuration("CACHE_TTL", 5*time.Minute),

		SheetsCredentialsFile: getEnv("GOOGLE_SHEETS_CREDENTIALS", ""),
		SheetsSpreadsheetID:   getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", ""),
	}
}

// Validate reports missing settings required by the HTTP server.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable is not set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is not set"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}

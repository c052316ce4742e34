package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/arashthr/markcentral/internal/validations"
)

type GeminiConfig struct {
	APIKey string
	Model  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StoreConfig struct {
	// Backend selects the key-value backend: "memory", "redis" or "postgres".
	Backend string
}

type LoggerConfig struct {
	LogLevel string
}

type AppConfig struct {
	Environment string
	PSQL        PostgresConfig
	Redis       RedisConfig
	Store       StoreConfig
	Gemini      GeminiConfig
	SMTP        SMTPConfig
	CSRF        struct {
		Key    string
		Secure bool
	}
	Server struct {
		Address string
	}
	Logging LoggerConfig
}

func LoadEnvConfig(envFiles ...string) (*AppConfig, error) {
	var cfg AppConfig
	err := godotenv.Load(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	cfg.Environment = validations.GetEnvOrDie("ENVIRONMENT")

	// Stores
	cfg.Store.Backend = validations.GetEnvWithDefault("STORE_BACKEND", "memory")
	cfg.PSQL = DefaultPostgresConfig()
	redisDb, err := strconv.Atoi(validations.GetEnvWithDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_DB: %w", err)
	}
	cfg.Redis = RedisConfig{
		Addr:     validations.GetEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDb,
	}

	// Gemini key is optional: without it the classify endpoint rejects
	// requests up front instead of failing at startup.
	cfg.Gemini = GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  validations.GetEnvWithDefault("GEMINI_MODEL", "gemini-2.5-flash"),
	}

	// SMTP is optional: without a host, verification and reset codes are
	// surfaced through the log instead of being emailed.
	if host := os.Getenv("SMTP_HOST"); host != "" {
		port, err := strconv.Atoi(validations.GetEnvWithDefault("SMTP_PORT", "587"))
		if err != nil {
			return nil, fmt.Errorf("parsing SMTP_PORT: %w", err)
		}
		cfg.SMTP = SMTPConfig{
			Host:     host,
			Port:     port,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			Sender:   os.Getenv("SMTP_SENDER"),
		}
	}

	// CSRF
	cfg.CSRF.Key = validations.GetEnvOrDie("CSRF_TOKEN")
	cfg.CSRF.Secure = validations.GetEnvOrDie("CSRF_SECURE") == "true"

	// Server
	cfg.Server.Address = validations.GetEnvOrDie("SERVER_ADDRESS")

	cfg.Logging = LoggerConfig{
		LogLevel: validations.GetEnvWithDefault("LOG_LEVEL", "info"),
	}

	return &cfg, nil
}

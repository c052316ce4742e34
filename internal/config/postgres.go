package config

import (
	"fmt"
	"strings"

	"github.com/arashthr/markcentral/internal/validations"
)

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DbName   string
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     validations.GetEnvWithDefault("POSTGRES_HOST", "localhost"),
		Port:     validations.GetEnvWithDefault("POSTGRES_PORT", "5432"),
		User:     validations.GetEnvWithDefault("POSTGRES_USER", "postgres"),
		Password: validations.GetEnvWithDefault("POSTGRES_PASS", "postgres"),
		DbName:   validations.GetEnvWithDefault("DB_NAME", "postgres"),
	}
}

func (cfg PostgresConfig) PgConnectionString(options ...string) string {
	options = append(options, "sslmode=disable")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DbName, strings.Join(options, "&"))
}

func (cfg PostgresConfig) String() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DbName)
}

// Package config loads runtime configuration from a config file and
// environment variables, with the environment taking precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/theforge/forge/pkg/utils"
)

type Config struct {
	ServerAddr string `mapstructure:"server_addr"`
	AppURL     string `mapstructure:"app_url"`

	DBHost     string `mapstructure:"db_host"`
	DBPort     int    `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	MailFrom     string `mapstructure:"mail_from"`
}

// LoadConfig reads forge.yaml from the working directory when present, then
// overlays FORGE_* environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("server_addr", ":8080")
	v.SetDefault("app_url", "http://localhost:8080")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_name", "forge")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("mail_from", "noreply@theforge.dev")

	v.SetConfigName("forge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to parse config")
	}
	return &cfg, nil
}

// DSN assembles the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

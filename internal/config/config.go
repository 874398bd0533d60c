// Package config loads runtime settings from the environment, with sane
// defaults for local development.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddress string
	PostgresConn  string

	RabbitMQURL   string
	EventExchange string

	GatewayBaseURL        string
	GatewayAPIKey         string
	GatewayTimeoutSeconds int

	ReleaseHoldHours     int
	ReleaseSweepSchedule string

	DefaultPlatformFeePercent float64
	Currency                  string
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("EVENT_EXCHANGE", "marketplace.events")
	v.SetDefault("GATEWAY_TIMEOUT_SECONDS", 10)
	v.SetDefault("RELEASE_HOLD_HOURS", 24)
	v.SetDefault("RELEASE_SWEEP_SCHEDULE", "*/10 * * * *")
	v.SetDefault("DEFAULT_PLATFORM_FEE_PERCENT", 15.0)
	v.SetDefault("CURRENCY", "usd")

	v.AutomaticEnv()

	cfg := &Config{
		ServerAddress:             v.GetString("SERVER_ADDRESS"),
		PostgresConn:              v.GetString("POSTGRES_CONN"),
		RabbitMQURL:               v.GetString("RABBITMQ_URL"),
		EventExchange:             v.GetString("EVENT_EXCHANGE"),
		GatewayBaseURL:            v.GetString("GATEWAY_BASE_URL"),
		GatewayAPIKey:             v.GetString("GATEWAY_API_KEY"),
		GatewayTimeoutSeconds:     v.GetInt("GATEWAY_TIMEOUT_SECONDS"),
		ReleaseHoldHours:          v.GetInt("RELEASE_HOLD_HOURS"),
		ReleaseSweepSchedule:      v.GetString("RELEASE_SWEEP_SCHEDULE"),
		DefaultPlatformFeePercent: v.GetFloat64("DEFAULT_PLATFORM_FEE_PERCENT"),
		Currency:                  v.GetString("CURRENCY"),
	}

	if cfg.PostgresConn == "" {
		return nil, fmt.Errorf("config: POSTGRES_CONN is required")
	}
	if cfg.DefaultPlatformFeePercent < 0 || cfg.DefaultPlatformFeePercent > 100 {
		return nil, fmt.Errorf("config: DEFAULT_PLATFORM_FEE_PERCENT must be between 0 and 100, got %v", cfg.DefaultPlatformFeePercent)
	}
	if cfg.ReleaseHoldHours < 0 {
		return nil, fmt.Errorf("config: RELEASE_HOLD_HOURS can't be negative, got %d", cfg.ReleaseHoldHours)
	}

	return cfg, nil
}

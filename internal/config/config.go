/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the voting-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                 string `mapstructure:"SERVER_PORT"`
	DatabaseURL                string `mapstructure:"DATABASE_URL"`
	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisKeyPrefix             string `mapstructure:"REDIS_KEY_PREFIX"`
	RabbitMQURL                string `mapstructure:"RABBITMQ_URL"`
	PaymentEventQueue          string `mapstructure:"PAYMENT_EVENT_QUEUE"`
	GatewayAPIBaseURL          string `mapstructure:"GATEWAY_API_BASE_URL"`
	GatewayAPIKey              string `mapstructure:"GATEWAY_API_KEY"`
	AuthJWKSURL                string `mapstructure:"AUTH_JWKS_URL"`
	VoteCastRateLimitPerMinute int    `mapstructure:"VOTE_CAST_RATE_LIMIT_PER_MINUTE"`
	ResultsCacheTTLSeconds     int    `mapstructure:"RESULTS_CACHE_TTL_SECONDS"`
	AmountToleranceMinorUnits  int64  `mapstructure:"AMOUNT_TOLERANCE_MINOR_UNITS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_KEY_PREFIX", "votely")
	viper.SetDefault("PAYMENT_EVENT_QUEUE", "voting_service.payment_updates")
	viper.SetDefault("VOTE_CAST_RATE_LIMIT_PER_MINUTE", 20)
	viper.SetDefault("RESULTS_CACHE_TTL_SECONDS", 30)
	viper.SetDefault("AMOUNT_TOLERANCE_MINOR_UNITS", 1)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "VOTING_REDIS_URL")
	_ = viper.BindEnv("REDIS_KEY_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PAYMENT_EVENT_QUEUE")
	_ = viper.BindEnv("GATEWAY_API_BASE_URL")
	_ = viper.BindEnv("GATEWAY_API_KEY")
	_ = viper.BindEnv("AUTH_JWKS_URL")
	_ = viper.BindEnv("VOTE_CAST_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RESULTS_CACHE_TTL_SECONDS")
	_ = viper.BindEnv("AMOUNT_TOLERANCE_MINOR_UNITS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisKeyPrefix = strings.TrimSpace(config.RedisKeyPrefix)
	if config.RedisKeyPrefix == "" {
		config.RedisKeyPrefix = "votely"
	}

	if config.VoteCastRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative vote cast rate limit configured; disabling\" limit=%d", config.VoteCastRateLimitPerMinute)
		config.VoteCastRateLimitPerMinute = 0
	}
	if config.ResultsCacheTTLSeconds <= 0 {
		config.ResultsCacheTTLSeconds = 30
	}
	if config.AmountToleranceMinorUnits < 0 {
		log.Printf("level=warn component=config msg=\"negative amount tolerance configured; coercing to default\" tolerance=%d", config.AmountToleranceMinorUnits)
		config.AmountToleranceMinorUnits = 1
	}

	return
}

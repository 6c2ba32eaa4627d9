package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "REDIS_KEY_PREFIX")
	unsetEnvWithCleanup(t, "VOTE_CAST_RATE_LIMIT_PER_MINUTE")
	unsetEnvWithCleanup(t, "RESULTS_CACHE_TTL_SECONDS")
	unsetEnvWithCleanup(t, "AMOUNT_TOLERANCE_MINOR_UNITS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.RedisKeyPrefix != "votely" {
		t.Fatalf("expected default redis prefix, got %q", cfg.RedisKeyPrefix)
	}
	if cfg.PaymentEventQueue != "voting_service.payment_updates" {
		t.Fatalf("expected default payment queue, got %q", cfg.PaymentEventQueue)
	}
	if cfg.VoteCastRateLimitPerMinute != 20 {
		t.Fatalf("expected default cast rate limit 20, got %d", cfg.VoteCastRateLimitPerMinute)
	}
	if cfg.ResultsCacheTTLSeconds != 30 {
		t.Fatalf("expected default results cache ttl 30, got %d", cfg.ResultsCacheTTLSeconds)
	}
	if cfg.AmountToleranceMinorUnits != 1 {
		t.Fatalf("expected default amount tolerance 1, got %d", cfg.AmountToleranceMinorUnits)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8081")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_NegativeToleranceCoercedToDefault(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "AMOUNT_TOLERANCE_MINOR_UNITS", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AmountToleranceMinorUnits != 1 {
		t.Fatalf("expected coerced tolerance 1, got %d", cfg.AmountToleranceMinorUnits)
	}
}

func TestLoadConfig_NegativeRateLimitDisablesLimiting(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "VOTE_CAST_RATE_LIMIT_PER_MINUTE", "-1")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.VoteCastRateLimitPerMinute != 0 {
		t.Fatalf("expected limiter disabled (0), got %d", cfg.VoteCastRateLimitPerMinute)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

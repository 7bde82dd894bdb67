package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Generation backend
	OpenAIAPIKey             string  `env:"OPENAI_API_KEY"`
	GenerationModel          string  `env:"GENERATION_MODEL" envDefault:"gpt-4o-mini"`
	GenerationTimeoutSeconds int     `env:"GENERATION_TIMEOUT_SECONDS" envDefault:"45"`
	GenerationMaxTokens      int     `env:"GENERATION_MAX_TOKENS" envDefault:"4096"`
	GenerationTemperature    float64 `env:"GENERATION_TEMPERATURE" envDefault:"0.7"`

	// How much of the current site is sent back as context on iteration.
	// 0 disables truncation. Tunable: sending everything improves quality
	// at a latency and token cost.
	IterationContextMaxChars int `env:"ITERATION_CONTEXT_MAX_CHARS" envDefault:"24000"`

	// Token accounts
	MonthlyAllowance int `env:"MONTHLY_TOKEN_ALLOWANCE" envDefault:"200"`
	MaxRollover      int `env:"MAX_TOKEN_ROLLOVER" envDefault:"400"`
}

func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.MonthlyAllowance <= 0 {
		return fmt.Errorf("MONTHLY_TOKEN_ALLOWANCE must be positive")
	}
	if c.MaxRollover < c.MonthlyAllowance {
		return fmt.Errorf("MAX_TOKEN_ROLLOVER must be at least MONTHLY_TOKEN_ALLOWANCE")
	}

	if isProduction {
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required in production")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	} else if c.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is empty: generation requests will fail against the real backend")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

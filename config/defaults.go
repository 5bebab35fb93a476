package config

import (
	"slices"
	"time"

	av "ndx.service/api/alpha_vantage"
	"ndx.service/api/wikipedia"
	"ndx.service/core"
)

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     Duration{10 * time.Second},
			WriteTimeout:    Duration{60 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
			AllowedOrigins:  slices.Clone(core.DefaultAllowedOrigins),
		},
		Reference: ReferenceConfig{
			URL:             wikipedia.PageUrlDefault,
			Timeout:         Duration{wikipedia.TimeoutDefault},
			TTL:             Duration{24 * time.Hour},
			RefreshSchedule: "@daily",
		},
		Prices: PricesConfig{
			BaseURL:           av.BaseUrlDefault,
			Timeout:           Duration{av.TimeoutDefault},
			RequestsPerMinute: 5,
			Concurrency:       core.DefaultFetchConcurrency,
			RefreshInterval:   Duration{core.DefaultRefreshInterval},
		},
		Engine: EngineConfig{
			WeightTolerance: core.DefaultWeightTolerance,
			WeightStep:      core.DefaultWeightStep,
			DefaultWeight:   0.5,
			DefaultStart:    "2020-01-01",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

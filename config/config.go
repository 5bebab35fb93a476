package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	ex "ndx.service/data/extensions"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Reference ReferenceConfig `toml:"reference"`
	Prices    PricesConfig    `toml:"prices"`
	Database  DatabaseConfig  `toml:"database"`
	Engine    EngineConfig    `toml:"engine"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

// ReferenceConfig points at the index membership page
type ReferenceConfig struct {
	URL             string   `toml:"url"`
	Timeout         Duration `toml:"timeout"`
	TTL             Duration `toml:"ttl"`
	RefreshSchedule string   `toml:"refresh_schedule"`
}

type PricesConfig struct {
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	Concurrency       int      `toml:"concurrency"`
	RefreshInterval   Duration `toml:"refresh_interval"`
}

// DatabaseConfig enables the Postgres price store when URL is set
type DatabaseConfig struct {
	URL string `toml:"url"`
}

type EngineConfig struct {
	WeightTolerance float64 `toml:"weight_tolerance"`
	WeightStep      float64 `toml:"weight_step"`
	DefaultWeight   float64 `toml:"default_weight"`
	DefaultStart    string  `toml:"default_start"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration reads "30s" style strings from toml
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DefaultStartDate is the parsed DefaultStart, validated at load time
func (e EngineConfig) DefaultStartDate() time.Time {
	t, _ := ex.ParseShort(e.DefaultStart)
	return t
}

// Load builds the configuration with priority defaults -> toml files -> env.
// envFile is loaded into the environment first when it exists, without replacing
// variables that are already set.
func Load(envFile string, paths ...string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("server.allowed_origins needs at least one origin"))
	}
	if c.Reference.URL == "" {
		errs = append(errs, errors.New("reference.url is required"))
	}
	if c.Prices.BaseURL == "" {
		errs = append(errs, errors.New("prices.base_url is required"))
	}
	if c.Prices.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("prices.concurrency must be at least 1, got %d", c.Prices.Concurrency))
	}
	if c.Engine.WeightTolerance <= 0 || c.Engine.WeightTolerance >= 1 {
		errs = append(errs, fmt.Errorf("engine.weight_tolerance must be in (0, 1), got %v", c.Engine.WeightTolerance))
	}
	if c.Engine.WeightStep <= 0 || c.Engine.WeightStep > 1 {
		errs = append(errs, fmt.Errorf("engine.weight_step must be in (0, 1], got %v", c.Engine.WeightStep))
	}
	if c.Engine.DefaultWeight < 0 || c.Engine.DefaultWeight > 1 {
		errs = append(errs, fmt.Errorf("engine.default_weight must be in [0, 1], got %v", c.Engine.DefaultWeight))
	}
	if _, err := ex.ParseShort(c.Engine.DefaultStart); err != nil {
		errs = append(errs, fmt.Errorf("engine.default_start: %w", err))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies NDX_* and the conventional provider variables
func applyEnvOverrides(config *Config) error {
	if host := os.Getenv("NDX_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("NDX_SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("NDX_SERVER_PORT: %w", err)
		}
		config.Server.Port = p
	}
	if origins := os.Getenv("NDX_CORS_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.Server.AllowedOrigins = append(config.Server.AllowedOrigins, o)
			}
		}
	}
	if url := os.Getenv("NDX_REFERENCE_URL"); url != "" {
		config.Reference.URL = url
	}
	if ttl := os.Getenv("NDX_REFERENCE_TTL"); ttl != "" {
		if err := config.Reference.TTL.UnmarshalText([]byte(ttl)); err != nil {
			return fmt.Errorf("NDX_REFERENCE_TTL: %w", err)
		}
	}
	if schedule := os.Getenv("NDX_REFERENCE_SCHEDULE"); schedule != "" {
		config.Reference.RefreshSchedule = schedule
	}
	if url := os.Getenv("NDX_PRICES_URL"); url != "" {
		config.Prices.BaseURL = url
	}
	if key := os.Getenv("ALPHAVANTAGE_API_KEY"); key != "" {
		config.Prices.APIKey = key
	}
	if rpm := os.Getenv("NDX_PRICES_RPM"); rpm != "" {
		v, err := strconv.Atoi(rpm)
		if err != nil {
			return fmt.Errorf("NDX_PRICES_RPM: %w", err)
		}
		config.Prices.RequestsPerMinute = v
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		config.Database.URL = dsn
	}
	if tol := os.Getenv("NDX_WEIGHT_TOLERANCE"); tol != "" {
		v, err := strconv.ParseFloat(tol, 64)
		if err != nil {
			return fmt.Errorf("NDX_WEIGHT_TOLERANCE: %w", err)
		}
		config.Engine.WeightTolerance = v
	}
	if level := os.Getenv("NDX_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("NDX_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	return nil
}

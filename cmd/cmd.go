package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
	"github.com/phuslu/log"

	"ndx.service/api"
	av "ndx.service/api/alpha_vantage"
	"ndx.service/api/wikipedia"
	"ndx.service/config"
	c "ndx.service/core"
	r "ndx.service/data/repos"
)

var (
	configPath = flag.String("config", "", "Path to a toml configuration file")
	envFile    = flag.String("env", ".env", "Path to a .env file loaded before the configuration")
)

// Register the subcommands.
func Register(commander *subcommands.Commander) {
	commander.Register(&serveCmd{}, "server")

	commander.Register(&sectorsCmd{}, "reference")
	commander.Register(&returnsCmd{}, "analysis")
}

// app holds everything a command needs, built once from the configuration
type app struct {
	cfg   *config.Config
	sc    *c.ServiceContext
	store *r.Postgres
}

// openApp loads the configuration, sets up logging and wires the providers. The Postgres
// price store is only opened when withStore is set and a database url is configured.
func openApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, err := config.Load(*envFile, *configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	config.SetupLogging(cfg.Logging)

	wiki, err := wikipedia.GetClient(cfg.Reference.URL, cfg.Reference.Timeout.Duration)
	if err != nil {
		return nil, fmt.Errorf("error creating reference client: %w", err)
	}

	avc, err := av.GetClient(cfg.Prices.BaseURL, cfg.Prices.APIKey, cfg.Prices.Timeout.Duration, api.PerMinute(cfg.Prices.RequestsPerMinute))
	if err != nil {
		return nil, fmt.Errorf("error creating price client: %w", err)
	}
	if cfg.Prices.APIKey == "" {
		log.Warn().Msg("no alpha vantage api key configured, price requests will be rejected")
	}

	a := &app{cfg: cfg}
	if withStore && cfg.Database.URL != "" {
		if a.store, err = r.GetPostgresConnection(ctx, cfg.Database.URL); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := a.store.Migrate(ctx); err != nil {
			a.store.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info().Msg("using postgres price store")
	}

	reference := c.NewReferenceCache(wiki, cfg.Reference.TTL.Duration)
	prices := c.NewPriceService(avc, a.store, cfg.Prices.Concurrency, cfg.Prices.RefreshInterval.Duration)
	a.sc = c.NewServiceContext(ctx, reference, prices, c.EngineSettings{
		WeightTolerance: cfg.Engine.WeightTolerance,
		WeightStep:      cfg.Engine.WeightStep,
		DefaultWeight:   cfg.Engine.DefaultWeight,
		DefaultStart:    cfg.Engine.DefaultStartDate(),
	})

	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// splitList splits a comma separated flag value, dropping blanks
func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}

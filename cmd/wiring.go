package main

import (
	"context"
	"fmt"

	"github.com/okian/qbduel/internal/adapters/repository"
	"github.com/okian/qbduel/internal/adapters/repository/postgres"
	app "github.com/okian/qbduel/internal/app"
	"github.com/okian/qbduel/internal/config"
	"github.com/okian/qbduel/internal/domain/matchmaking"
	"github.com/okian/qbduel/internal/domain/pairing"
	"github.com/okian/qbduel/internal/domain/rating"
	"github.com/okian/qbduel/pkg/logger"
)

// bootstrap loads configuration and initializes logging.
func bootstrap(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitWithOptions(loggerOptions(cfg)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, nil
}

func loggerOptions(cfg *config.Config) logger.Options {
	return logger.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.LogFormat == "json",
		File: logger.FileOptions{
			Path:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAgeDays: cfg.LogMaxAgeDays,
		},
	}
}

// openStore opens the configured backend. The postgres schema is applied on open.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func matchmakingConfig(cfg *config.Config) matchmaking.Config {
	return matchmaking.Config{
		RecencyWindow: cfg.RecencyWindow,
		Tolerance:     cfg.Tolerance,
		MaxRedraws:    cfg.MaxRedraws,
		Policy: pairing.Policy{
			Floor:    cfg.SampleFloor,
			Exponent: cfg.SampleExponent,
			RefMin:   cfg.RatingRefMin,
			RefMax:   cfg.RatingRefMax,
		},
	}
}

func ratingConfig(cfg *config.Config) rating.Config {
	return rating.Config{K: cfg.KFactor, MaxAttempts: cfg.MaxUpdateAttempts}
}

// newService builds the comparison service over store.
func newService(cfg *config.Config, store repository.Store) *app.Service {
	return app.New(
		app.WithLogger(logger.Get()),
		app.WithStore(store),
		app.WithMatchmakingConfig(matchmakingConfig(cfg)),
		app.WithRatingConfig(ratingConfig(cfg)),
		app.WithMaxStandingsLimit(cfg.MaxStandingsLimit),
	)
}

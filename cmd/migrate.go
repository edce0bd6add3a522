package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/okian/qbduel/internal/adapters/repository/postgres"
	"github.com/okian/qbduel/internal/config"
	"github.com/okian/qbduel/pkg/logger"
)

var errMigrateNeedsPostgres = errors.New("migrate requires store=postgres")

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			if cfg.Store != config.StorePostgres {
				return errMigrateNeedsPostgres
			}
			pg, err := postgres.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() { _ = pg.Close() }()
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
			logger.Get().Info(ctx, "schema applied")
			return nil
		},
	}
}

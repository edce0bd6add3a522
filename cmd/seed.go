package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	app "github.com/okian/qbduel/internal/app"
	"github.com/okian/qbduel/internal/domain/seeding"
	"github.com/okian/qbduel/pkg/logger"
)

type seedFlags struct {
	file        string
	minGames    int
	minAttempts int
}

func newSeedCmd() *cobra.Command {
	var f seedFlags
	defaults := seeding.DefaultThresholds()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace all seasons from a CSV of per-season stat lines",
		Long: `seed reads nflverse-style per-season quarterback stat lines, keeps the
qualifying seasons, computes passer rating and an initial rating for each and
replaces every season, rating, vote and history entry in the store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			svc := newService(cfg, store)
			if err := svc.Start(ctx); err != nil {
				_ = store.Close()
				return err
			}
			defer svc.Stop()

			in, err := os.Open(f.file)
			if err != nil {
				return fmt.Errorf("open %s: %w", f.file, err)
			}
			defer func() { _ = in.Close() }()

			_, err = runSeed(ctx, svc, in, seeding.Thresholds{MinGames: f.minGames, MinAttempts: f.minAttempts})
			return err
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "path to the stat line CSV")
	cmd.Flags().IntVar(&f.minGames, "min-games", defaults.MinGames, "minimum games played for a season to qualify")
	cmd.Flags().IntVar(&f.minAttempts, "min-attempts", defaults.MinAttempts, "minimum pass attempts for a season to qualify")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// runSeed parses r, filters by t and replaces the population held by svc.
func runSeed(ctx context.Context, svc *app.Service, r io.Reader, t seeding.Thresholds) (int, error) {
	lines, err := seeding.ReadStatLines(r)
	if err != nil {
		return 0, err
	}
	seasons := seeding.Prepare(lines, t)
	n, err := svc.Seed(ctx, seasons)
	if err != nil {
		return 0, err
	}
	logger.Get().Info(ctx, "seed complete",
		logger.Int("read", len(lines)),
		logger.Int("qualified", len(seasons)),
		logger.Int("stored", n),
	)
	return n, nil
}

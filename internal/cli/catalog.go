package cli

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"trivia-service/internal/infra/postgres"
	"trivia-service/internal/logging"
)

// NewCatalogCmd prints the configured subject catalog and can seed it into Postgres.
func NewCatalogCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the subject catalog, or seed it into Postgres with --seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			subjects, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range subjects {
				titles := make([]string, 0, len(s.Tiers))
				for _, t := range s.Tiers {
					pool := fmt.Sprintf("%d questions", len(t.Questions))
					if t.Generator != "" {
						pool = "generated: " + t.Generator
					}
					titles = append(titles, fmt.Sprintf("%d. %s (%s)", t.Number, t.Title, pool))
				}
				fmt.Fprintf(out, "%s %s\n  %s\n", s.Icon, s.Name, strings.Join(titles, "\n  "))
			}
			if !seed {
				return nil
			}

			logger := logging.New(cfg.Log)
			defer func() { _ = logger.Sync() }()
			if err := runMigrationsWithConfig(cmd.Context(), cfg, logger); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := postgres.NewCatalogLoader(pool).SeedSubjects(cmd.Context(), subjects); err != nil {
				return err
			}
			logger.Info("catalog seeded", zap.Int("subjects", len(subjects)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "upsert the catalog into postgres.url")
	return cmd
}

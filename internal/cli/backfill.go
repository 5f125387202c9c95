package cli

import (
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"musicquiz-service/internal/app"
	"musicquiz-service/internal/config"
	pgstore "musicquiz-service/internal/infra/postgres"
)

// NewBackfillCmd reconciles calculatedMaxScore across all persisted quizzes
// and answers. Safe to re-run; records already in sync are left untouched.
func NewBackfillCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Recompute calculatedMaxScore for all quizzes and answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			ctx := cmd.Context()
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := pgstore.NewStore(pool, cfg.Postgres.TxAttempts)
			report, err := app.NewMaxScoreBackfill(store, store).Run(ctx)
			if err != nil {
				return err
			}
			log.Printf("backfill done: quizzes %d/%d updated, answers %d/%d updated, %d skipped, %d errors",
				report.QuizzesUpdated, report.QuizzesProcessed,
				report.AnswersUpdated, report.AnswersProcessed,
				report.AnswersSkipped, report.Errors)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"regwatch/internal/app"
	"regwatch/internal/config"
	"regwatch/internal/infrastructure/storage"
	"regwatch/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "regwatch",
		Short:         "Regulatory intelligence engine for compliance monitoring",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd(), monitorCmd(), analyzeCmd(), migrateCmd(), seedCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the monitoring scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close(ctx)

			return application.Serve(ctx)
		},
	}
}

func monitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run one ingestion batch and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close(ctx)

			stats, err := application.RunOnce(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("processed=%d new=%d analyzed=%d relevant=%d\n",
				stats.Processed, stats.New, stats.Analyzed, stats.Relevant)
			return nil
		},
	}
}

func analyzeCmd() *cobra.Command {
	var (
		id      int64
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Re-run analysis for one stored regulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close(ctx)

			result, err := application.Reanalyze(ctx, id, refresh)
			if err != nil {
				return err
			}

			score := "n/a"
			if result.RelevanceScore != nil {
				score = fmt.Sprintf("%d", *result.RelevanceScore)
			}
			fmt.Printf("regulation %d analyzed, score=%s, action_items=%d\n",
				result.ID, score, len(result.ActionItems))
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "regulation id")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "clear cached model responses before analyzing")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level)

			db, err := storage.Connect(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			return storage.Migrate(db, cfg.Database.MigrationsPath, logger)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample regulations with analyses for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level)

			db, err := storage.Connect(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := storage.Migrate(db, cfg.Database.MigrationsPath, logger); err != nil {
				return err
			}

			count, err := seed(ctx, storage.NewPostgresRepository(db))
			if err != nil {
				return err
			}

			fmt.Printf("seeded %d regulations\n", count)
			return nil
		},
	}
}

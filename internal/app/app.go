package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"regwatch/internal/analysis"
	"regwatch/internal/config"
	"regwatch/internal/domain"
	"regwatch/internal/feed"
	"regwatch/internal/infrastructure/scheduler"
	"regwatch/internal/infrastructure/storage"
	"regwatch/internal/infrastructure/telegram"
	"regwatch/internal/llm"
	"regwatch/internal/logging"
	"regwatch/internal/ports"
	"regwatch/internal/server"
	"regwatch/internal/usecase"
)

// Application wires config to adapters, use cases and the HTTP surface.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sqlx.DB
	repo     *storage.PostgresRepository
	pipeline *usecase.Pipeline
	server   *server.Server
	sched    *usecase.Scheduler
	gemini   *llm.GeminiClient
}

// New connects the store, runs migrations and builds the full object
// graph.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Connect(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(db, cfg.Database.MigrationsPath, logging.Component(baseLogger, "storage")); err != nil {
		return nil, err
	}

	repo := storage.NewPostgresRepository(db)

	normalizer := feed.NewNormalizer(cfg.Monitor.Keywords)
	source := feed.NewRSSSource(nil, cfg.Feeds, normalizer, logging.Component(baseLogger, "feed"))

	var (
		analyzer *analysis.Analyzer
		gemini   *llm.GeminiClient
	)
	if cfg.Gemini.APIKey != "" {
		gemini, err = llm.NewGeminiClient(ctx, cfg.Gemini, logging.Component(baseLogger, "llm"))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		analyzer = analysis.NewAnalyzer(repo, gemini, logging.Component(baseLogger, "analysis"))
	} else {
		baseLogger.Warn("gemini api key not set, analysis stages disabled")
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:    source,
		Repo:      repo,
		Cache:     repo,
		Analyzer:  analyzer,
		Notifier:  notifier,
		Threshold: cfg.Monitor.RelevanceThreshold,
		Logger:    logging.Component(baseLogger, "pipeline"),
	})

	srv := server.New(server.Deps{
		Pipeline: pipeline,
		Repo:     repo,
		Health:   repo,
		Analyzer: analyzer,
		Company:  cfg.Company,
		Secret:   cfg.Server.CronSecret,
		Logger:   logging.Component(baseLogger, "http"),
	})

	driver := scheduler.NewIntervalScheduler(cfg.Monitor.Interval)
	sched := usecase.NewScheduler(driver, pipeline, logging.Component(baseLogger, "scheduler"))

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		db:       db,
		repo:     repo,
		pipeline: pipeline,
		server:   srv,
		sched:    sched,
		gemini:   gemini,
	}, nil
}

// Serve starts the scheduler and blocks on the HTTP listener.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("listening", "addr", a.cfg.Server.Addr)
	return a.server.Run(a.cfg.Server.Addr)
}

// RunOnce executes a single monitoring batch.
func (a *Application) RunOnce(ctx context.Context) (domain.IngestStats, error) {
	return a.pipeline.ProcessBatch(ctx)
}

// Reanalyze re-runs analysis for one regulation id.
func (a *Application) Reanalyze(ctx context.Context, id int64, refresh bool) (*domain.RegulationWithItems, error) {
	return a.pipeline.Reanalyze(ctx, id, refresh)
}

// DB exposes the connection for maintenance commands.
func (a *Application) DB() *sqlx.DB {
	return a.db
}

// Close releases held resources.
func (a *Application) Close(ctx context.Context) error {
	_ = a.sched.Stop(ctx)
	if a.gemini != nil {
		_ = a.gemini.Close()
	}
	return a.db.Close()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexanderramin/estibot/internal/assistant"
	"github.com/alexanderramin/estibot/internal/cli"
	"github.com/alexanderramin/estibot/internal/config"
	"github.com/alexanderramin/estibot/internal/conversation"
	"github.com/alexanderramin/estibot/internal/db"
	"github.com/alexanderramin/estibot/internal/dedupe"
	"github.com/alexanderramin/estibot/internal/llm"
	"github.com/alexanderramin/estibot/internal/metrics"
	"github.com/alexanderramin/estibot/internal/repository"
	"github.com/alexanderramin/estibot/internal/service"
	"github.com/alexanderramin/estibot/internal/session"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
)

// dedupeMaxEntries bounds the event-id cache independently of its TTL.
const dedupeMaxEntries = 10000

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open database
	database, err := db.OpenDB(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Telemetry: every use case is logged and counted
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	observer := service.MultiUseCaseObserver(service.NewLogUseCaseObserver(logger), collector)

	// Wire repositories and services
	estimateRepo := repository.NewSQLiteEstimateRepo(database)
	itemRepo := repository.NewSQLiteItemRepo(database)
	templateRepo := repository.NewSQLiteTemplateRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	users := service.NewUserService(uow, observer)
	estimates := service.NewEstimateService(estimateRepo, itemRepo, uow, observer)
	templates := service.NewTemplateService(templateRepo, uow, observer)

	drafts := session.New(cfg.SessionTTL)
	defer drafts.Close()
	seen := dedupe.New(cfg.DedupeTTL, dedupeMaxEntries)
	defer seen.Close()

	opts := []conversation.Option{
		conversation.WithDedupe(seen),
		conversation.WithRateLimit(cfg.RatePerMinute),
		conversation.WithGenerateTimeout(cfg.GenerateTimeout),
		conversation.WithObserver(observer),
		conversation.WithMetrics(collector),
		conversation.WithLogger(logger),
	}

	// The assistant is optional; without it generation and analysis are empty.
	if cfg.LLM.Enabled {
		var llmObserver llm.Observer = llm.NoopObserver{}
		if cfg.LLM.LogCalls {
			llmObserver = llm.MultiObserver{llm.NewLogObserver(logger)}
		}
		helper := assistant.New(llm.NewOllamaClient(cfg.LLM, llmObserver), cfg.LLM.MaxItems, logger)
		opts = append(opts, conversation.WithGenerator(helper), conversation.WithAnalyzer(helper))
	}

	engine := conversation.New(estimates, templates, drafts, opts...)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.SetupMetricsRoute(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go serveMetrics(srv, logger)
		defer shutdown(srv)
	}

	app := &cli.App{
		Users:            users,
		Estimates:        estimates,
		Templates:        templates,
		Engine:           engine,
		LocalUser:        cfg.LocalUser,
		AssistantEnabled: cfg.LLM.Enabled,
	}

	// Detect interactive terminal so the chat can offer select widgets.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

func serveMetrics(srv *http.Server, logger *slog.Logger) {
	logger.Info("metrics listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "error", err)
	}
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/stockreport/internal/api"
	"github.com/dgallion1/stockreport/internal/config"
	"github.com/dgallion1/stockreport/internal/generate"
	"github.com/dgallion1/stockreport/internal/report"
	"github.com/dgallion1/stockreport/internal/sessions"
	"github.com/dgallion1/stockreport/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Report store.
	var st store.Store
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		st = store.NewPostgres(db)
		log.Info("using postgres report store")
	} else {
		st = store.NewMemory()
		log.Warn("DATABASE_URL not set, using empty in-memory report store")
	}

	reg := sessions.NewRegistry(cfg.SessionTTL)
	go reg.Run(ctx, 5*time.Minute)

	deps := api.Deps{
		Reports:  report.NewService(st, log),
		Sessions: reg,
	}

	// Report generation is optional.
	var claude *generate.ClaudeClient
	if cfg.GenerationEnabled() {
		claude = generate.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		stats := generate.NewLLMStats(time.Hour)
		gen := generate.NewGenerator(claude, st, stats, log)
		deps.Jobs = generate.NewQueue(gen, log, cfg.GenerateWorkers, cfg.GenerateQueue, cfg.GenerateJobTTL)
		deps.Stats = stats
		deps.Jobs.Start(ctx)
	}

	srv := api.NewServer(deps, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.StreamTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if deps.Jobs != nil {
			deps.Jobs.Stop()
		}
		if claude != nil {
			claude.Close()
		}
		cancel()
	}()

	log.Info("starting stockreport", "port", cfg.Port, "generation", cfg.GenerationEnabled())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}

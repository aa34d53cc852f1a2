package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/longlife4everest/energy-ai-dashboard/internal/advisor"
	"github.com/longlife4everest/energy-ai-dashboard/internal/api"
	"github.com/longlife4everest/energy-ai-dashboard/internal/config"
	"github.com/longlife4everest/energy-ai-dashboard/internal/forecast"
	"github.com/longlife4everest/energy-ai-dashboard/internal/ingest"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
	"github.com/longlife4everest/energy-ai-dashboard/internal/store"
	"github.com/longlife4everest/energy-ai-dashboard/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	envFile := flag.String("env", ".env", "dotenv file loaded if present")
	addr := flag.String("addr", "", "listen address (overrides config)")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	if err := run(cfg, *frontendDir, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, frontendDir string, log *slog.Logger) error {
	points, source, err := loadSeries(cfg.Data, time.Now())
	if err != nil {
		return err
	}

	engine := forecast.New(cfg.Forecast(), store.NewArtifact(cfg.Model.Path), log)
	adv := advisor.New(engine, cfg.Scenarios, cfg.Model.Horizon, log)
	if _, err := adv.Restore(); err != nil {
		log.Warn("ignoring unreadable model artifact", "path", cfg.Model.Path, "err", err)
	}

	hub := ws.NewHub(log)
	svc := api.NewService(store.NewSeries(), adv, ws.NewBridge(hub, log), log)
	if _, err := svc.LoadSeries(points, source); err != nil {
		return fmt.Errorf("analyzing initial series: %w", err)
	}

	router := api.NewRouter(svc, ws.NewHandler(hub, svc, log), log)
	if _, err := os.Stat(frontendDir); err == nil {
		log.Info("serving frontend", "dir", frontendDir)
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(frontendDir)))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Wrap(router, os.Stdout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadSeries reads the configured CSV, or generates a synthetic series ending
// just before now when no path is set.
func loadSeries(cfg config.DataConfig, now time.Time) ([]model.SeriesPoint, string, error) {
	if cfg.Path == "" {
		start := ingest.SyntheticStart(now, cfg.SyntheticMonths)
		return ingest.Synthetic(cfg.SyntheticMonths, cfg.SyntheticSeed, start), "synthetic", nil
	}

	points, err := ingest.ReadFile(cfg.Path)
	if err != nil {
		return nil, "", err
	}
	return points, cfg.Path, nil
}

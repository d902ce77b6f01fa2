package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/AngelCh415/studio-insights/internal/config"
	"github.com/AngelCh415/studio-insights/internal/export"
	"github.com/AngelCh415/studio-insights/internal/httpx"
	"github.com/AngelCh415/studio-insights/internal/ingest"
	"github.com/AngelCh415/studio-insights/internal/logging"
	"github.com/AngelCh415/studio-insights/internal/reports"
	"github.com/AngelCh415/studio-insights/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("config error")
		os.Exit(1)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl := ingest.NewHTTPClient(cfg.Sources.Timeout)
	st := store.NewMemoryStore()
	loader := ingest.NewLoader(cl, st, cfg.Sources)
	svc := reports.NewService(st, cfg.Reports.ReferenceYear)
	pusher := export.NewPusher(cl, cfg.Sink)

	if cfg.Sources.LoadOnStart && len(loader.Datasets()) > 0 {
		go func() {
			if _, err := loader.Run(ctx); err != nil {
				logging.Warn().Err(err).Msg("initial load incomplete")
			}
		}()
	}

	if cfg.Sources.Schedule != "" {
		sched, err := ingest.NewScheduler(loader, cfg.Sources.Schedule, 2*cfg.Sources.Timeout*time.Duration(cfg.Sources.Retries+1))
		if err != nil {
			logging.Error().Err(err).Msg("config error")
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	r := httpx.NewRouter(httpx.Deps{
		Store:               st,
		Reports:             svc,
		Ingest:              loader,
		Push:                pusher,
		CORSOrigins:         cfg.Server.CORSOrigins,
		IngestRatePerMinute: cfg.Server.IngestRatePerMinute,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logging.Error().Err(err).Msg("shutdown error")
		}
	}()

	logging.Info().
		Int("port", cfg.Server.Port).
		Strs("datasets", loader.Datasets()).
		Bool("sink", pusher.Configured()).
		Msg("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}

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

	"golang.org/x/sync/errgroup"

	"magnav-sim/internal/api"
	"magnav-sim/internal/config"
	mlog "magnav-sim/internal/log"
	"magnav-sim/internal/sim"
)

var (
	port         = flag.Int("port", 8080, "Port to listen on")
	scenarioPath = flag.String("scenario", "", "Scenario JSON file (default: built-in patrol)")
	tickHz       = flag.Float64("tick-hz", 0, "Override the scenario tick rate")
	logDir       = flag.String("log-dir", "", "Directory for rotated JSON logs")
	logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	lg, err := mlog.New(mlog.Options{Dir: *logDir, Name: "server.slog", Level: *logLevel, Stderr: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Close()

	sc := config.Default()
	if *scenarioPath != "" {
		if sc, err = config.Load(*scenarioPath); err != nil {
			lg.Error("load scenario", slog.String("path", *scenarioPath), slog.Any("error", err))
			os.Exit(1)
		}
	}

	simEngine, err := sim.New(sim.Config{Scenario: sc, TickHz: *tickHz, Logger: lg.Logger})
	if err != nil {
		lg.Error("create engine", slog.Any("error", err))
		os.Exit(1)
	}

	server := api.NewServer(simEngine, lg.Logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := simEngine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("simulation: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		lg.Info("starting HTTP server", slog.Int("port", *port), slog.String("scenario", sc.Name))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		lg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		lg.Error("server stopped", slog.Any("error", err))
		lg.Close()
		os.Exit(1)
	}
	lg.Info("shutdown complete", slog.Duration("uptime", time.Since(lg.Start)))
}

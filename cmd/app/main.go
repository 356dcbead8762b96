package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/osse101/BrandishDuels_Go/internal/bootstrap"
	"github.com/osse101/BrandishDuels_Go/internal/config"
	"github.com/osse101/BrandishDuels_Go/internal/duel"
	"github.com/osse101/BrandishDuels_Go/internal/server"
	"github.com/osse101/BrandishDuels_Go/internal/sse"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Duel server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logFile, err := bootstrap.SetupLogger(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	warnings, err := config.ValidateEnvWithWarnings()
	if err != nil {
		slog.Warn("Environment check failed", "error", err)
	}
	for _, w := range warnings {
		slog.Warn("Environment warning", "warning", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := bootstrap.LoadCatalog(cfg)
	if err != nil {
		return err
	}

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}

	bus, publisher, err := bootstrap.InitializeEventSystem(cfg)
	if err != nil {
		storage.Close()
		return err
	}

	svc := duel.NewService(cat, storage.Duel, publisher, duel.Config{
		ChallengeTimeout:       cfg.ChallengeTimeout,
		TurnTimeout:            cfg.TurnTimeout,
		MaxConsecutiveTimeouts: cfg.MaxConsecutiveTimeouts,
		FinalizeTimeout:        cfg.FinalizeTimeout,
	})

	hub := sse.NewHub()
	hub.Start()
	defer hub.Stop()

	if err := bootstrap.RegisterEventHandlers(bootstrap.EventHandlerDependencies{
		EventBus: bus,
		SSEHub:   hub,
		Sessions: svc,
	}); err != nil {
		storage.Close()
		return err
	}

	srv := server.NewServer(server.Options{
		Port:           cfg.Port,
		APIKey:         cfg.APIKey,
		TrustedProxies: cfg.TrustedProxies,
		CORSOrigins:    cfg.CORSOrigins,
		Backend:        storage.Backend,
		Health:         storage.Health,
	}, svc, hub)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		bootstrap.GracefulShutdown(shutdownCtx, bootstrap.ShutdownComponents{
			Server:             srv,
			DuelService:        svc,
			ResilientPublisher: publisher,
			Storage:            storage,
		})
		return nil
	})

	return g.Wait()
}

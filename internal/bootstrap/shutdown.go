package bootstrap

import (
	"context"
	"log/slog"

	"github.com/osse101/BrandishDuels_Go/internal/duel"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/server"
)

// ShutdownComponents holds all components that need graceful shutdown.
type ShutdownComponents struct {
	Server             *server.Server
	DuelService        duel.Service
	ResilientPublisher *event.ResilientPublisher
	Storage            *Storage
}

// GracefulShutdown stops the application in dependency order:
//  1. HTTP server (stop accepting new requests, close SSE streams)
//  2. Duel service (stop arbiters, let in-flight finalization write its results)
//  3. Event publisher (flush pending retries to the dead-letter file)
//  4. Storage
//
// Errors during shutdown are logged but do not stop the shutdown sequence.
func GracefulShutdown(ctx context.Context, components ShutdownComponents) {
	if components.Server != nil {
		slog.Info(LogMsgShuttingDownServer)
		if err := components.Server.Stop(ctx); err != nil {
			slog.Error(LogMsgServerForcedShutdown, "error", err)
		}
	}

	if components.DuelService != nil {
		slog.Info(LogMsgShuttingDownDuels)
		if err := components.DuelService.Shutdown(ctx); err != nil {
			slog.Error(LogMsgDuelShutdownFailed, "error", err)
		}
	}

	if components.ResilientPublisher != nil {
		slog.Info(LogMsgShuttingDownEventPublisher)
		if err := components.ResilientPublisher.Shutdown(ctx); err != nil {
			slog.Error(LogMsgResilientPublisherFailed, "error", err)
		}
	}

	if components.Storage != nil {
		components.Storage.Close()
	}

	slog.Info(LogMsgServerStopped)
}

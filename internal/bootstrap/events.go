package bootstrap

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/osse101/BrandishDuels_Go/internal/config"
	"github.com/osse101/BrandishDuels_Go/internal/event"
)

// InitializeEventSystem builds the in-process duel event bus and the retrying publisher the
// duel service writes through. Events that exhaust their retries land in the dead-letter file.
func InitializeEventSystem(cfg *config.Config) (*event.MemoryBus, *event.ResilientPublisher, error) {
	retries := cmp.Or(cfg.EventMaxRetries, EventDefaultMaxRetries)
	delay := cmp.Or(cfg.EventRetryDelay, EventDefaultRetryDelay)
	deadLetter := cmp.Or(cfg.EventDeadLetterPath, EventDefaultDeadLetterPath)

	if err := os.MkdirAll(filepath.Dir(deadLetter), DirPermission); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", LogMsgFailedCreateDeadLetterDir, err)
	}

	bus := event.NewMemoryBus()
	publisher, err := event.NewResilientPublisher(bus, retries, delay, deadLetter)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", LogMsgFailedCreateResilientPublisher, err)
	}

	slog.Info(LogMsgEventSystemInitialized,
		"duel_event_types", len(event.DuelTypes),
		"max_retries", retries,
		"retry_delay", delay,
		"deadletter_path", deadLetter)
	return bus, publisher, nil
}

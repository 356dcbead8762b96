package event

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

// DeadLetterSchemaVersion is the current version of the dead-letter log format
const DeadLetterSchemaVersion = "1.0"

// DeadLetterWriter appends events that could not be delivered to a rotating JSON-lines file
type DeadLetterWriter struct {
	out io.WriteCloser
	mu  sync.Mutex
	now func() time.Time
}

// DeadLetterEntry represents an event that failed to publish after all retries
type DeadLetterEntry struct {
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	Event         Event     `json:"event"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error,omitempty"`
}

// NewDeadLetterWriter creates a DeadLetterWriter at path, creating its directory if needed
func NewDeadLetterWriter(path string) (*DeadLetterWriter, error) {
	if path == "" {
		return nil, errors.New("dead letter path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dead letter directory: %w", err)
	}
	return &DeadLetterWriter{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    DeadLetterMaxSizeMB,
			MaxBackups: DeadLetterMaxBackups,
			MaxAge:     DeadLetterMaxAgeDays,
		},
		now: time.Now,
	}, nil
}

// Write appends a failed event to the dead-letter file
func (dlw *DeadLetterWriter) Write(event Event, attempts int, lastError error) error {
	entry := DeadLetterEntry{
		SchemaVersion: DeadLetterSchemaVersion,
		Event:         event,
		Attempts:      attempts,
	}
	if lastError != nil {
		entry.LastError = lastError.Error()
	}

	logger.Warn("event_dead_lettered",
		"event_type", event.Type,
		"attempts", attempts,
		"error", entry.LastError)

	dlw.mu.Lock()
	defer dlw.mu.Unlock()

	entry.Timestamp = dlw.now()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter entry: %w", err)
	}
	_, err = dlw.out.Write(append(data, '\n'))
	return err
}

// Close closes the dead-letter file
func (dlw *DeadLetterWriter) Close() error {
	dlw.mu.Lock()
	defer dlw.mu.Unlock()
	return dlw.out.Close()
}

// ReadDeadLetters loads every entry of a dead-letter file. Payloads come back as generic JSON;
// use DecodePayload to recover the typed struct.
func ReadDeadLetters(path string) ([]DeadLetterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []DeadLetterEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e DeadLetterEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("dead letter line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

package discord

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/sse"
)

// SSEEvent is one event read from the API stream. Payload stays raw until a handler decodes it.
type SSEEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// SSEEventHandler handles a specific event type
type SSEEventHandler func(ctx context.Context, evt SSEEvent) error

// SSEClient keeps a reconnecting subscription to the API's event stream
type SSEClient struct {
	baseURL    string
	apiKey     string
	eventTypes []string
	httpClient *http.Client
	clock      clockwork.Clock

	mu        sync.RWMutex
	handlers  map[string][]SSEEventHandler
	connected bool

	shutdown chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSSEClient creates a client for the given duel event types. An empty list subscribes to everything.
func NewSSEClient(baseURL, apiKey string, eventTypes []event.Type) *SSEClient {
	types := make([]string, len(eventTypes))
	for i, t := range eventTypes {
		types[i] = string(t)
	}
	return &SSEClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		eventTypes: types,
		httpClient: &http.Client{}, // streams stay open; no client timeout
		clock:      clockwork.NewRealClock(),
		handlers:   make(map[string][]SSEEventHandler),
		shutdown:   make(chan struct{}),
	}
}

// OnEvent registers a handler for a specific event type
func (c *SSEClient) OnEvent(eventType event.Type, handler SSEEventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[string(eventType)] = append(c.handlers[string(eventType)], handler)
}

// Start begins the connection loop in the background
func (c *SSEClient) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.connectLoop(ctx)
}

// Stop ends the connection loop and waits for it to exit
func (c *SSEClient) Stop() {
	c.stopOnce.Do(func() { close(c.shutdown) })
	c.wg.Wait()
}

// IsConnected reports whether the stream is currently open
func (c *SSEClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *SSEClient) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *SSEClient) connectLoop(ctx context.Context) {
	defer c.wg.Done()

	// the request context must end on Stop as well as on ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	backoff := sseInitialBackoff
	failures := 0
	for {
		if ctx.Err() != nil {
			slog.Info(sseLogMsgClientStopped)
			return
		}

		opened, err := c.connect(ctx)
		c.setConnected(false)
		if ctx.Err() != nil {
			slog.Info(sseLogMsgClientStopped)
			return
		}
		if opened {
			backoff = sseInitialBackoff
			failures = 0
		}
		failures++
		slog.Warn(sseLogMsgConnectionFailed, "error", err, "backoff", backoff, "consecutive_failures", failures)

		select {
		case <-c.clock.After(backoff):
			backoff = min(time.Duration(float64(backoff)*sseBackoffMultiplier), sseMaxBackoff)
		case <-ctx.Done():
			slog.Info(sseLogMsgClientStopped)
			return
		}
	}
}

func (c *SSEClient) streamURL() string {
	u := c.baseURL + "/api/v1/events"
	if len(c.eventTypes) > 0 {
		u += "?" + sse.QueryParamTypes + "=" + url.QueryEscape(strings.Join(c.eventTypes, ","))
	}
	return u
}

// connect opens one stream and reads it until it ends. opened reports whether the stream was established.
func (c *SSEClient) connect(ctx context.Context) (opened bool, err error) {
	target := c.streamURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.setConnected(true)
	slog.Info(sseLogMsgClientConnected, "url", target)

	return true, c.readEvents(ctx, resp.Body)
}

func (c *SSEClient) readEvents(ctx context.Context, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, sseBufferSize), sseBufferSize)

	var id, eventType string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				c.dispatchEvent(ctx, id, eventType, strings.Join(data, "\n"))
			}
			id, eventType, data = "", "", nil
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			id = value
		case "event":
			eventType = value
		case "data":
			data = append(data, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading stream: %w", err)
	}
	return fmt.Errorf("stream closed")
}

func (c *SSEClient) dispatchEvent(ctx context.Context, id, eventType, data string) {
	if eventType == sse.EventTypeKeepalive || eventType == sse.EventTypeConnected {
		return
	}

	var evt SSEEvent
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		slog.Warn(sseLogMsgParseError, "error", err, "event_type", eventType)
		return
	}
	if eventType != "" {
		evt.Type = eventType
	}
	if id != "" {
		evt.ID = id
	}

	c.mu.RLock()
	handlers := c.handlers[evt.Type]
	c.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, evt); err != nil {
			slog.Error(sseLogMsgHandlerError, "event_type", evt.Type, "event_id", evt.ID, "error", err)
		}
	}
}

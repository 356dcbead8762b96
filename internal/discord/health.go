package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "duels",
		Subsystem: "discord",
		Name:      "commands_total",
		Help:      "Slash commands received, by command",
	},
	[]string{"command"},
)

// CommandStats counts handled commands
type CommandStats struct {
	count    atomic.Int64
	lastNano atomic.Int64
}

// Record notes one handled command
func (c *CommandStats) Record(command string) {
	c.count.Add(1)
	c.lastNano.Store(time.Now().UnixNano())
	commandsTotal.WithLabelValues(command).Inc()
}

// Count returns the number of commands handled
func (c *CommandStats) Count() int64 {
	return c.count.Load()
}

// Last returns when the most recent command arrived, or the zero time
func (c *CommandStats) Last() time.Time {
	n := c.lastNano.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// HealthStatus represents the bot's health status
type HealthStatus struct {
	Status           string     `json:"status"`
	Uptime           string     `json:"uptime"`
	Connected        bool       `json:"connected"`
	EventsConnected  bool       `json:"events_connected"`
	APIReachable     bool       `json:"api_reachable"`
	CommandsReceived int64      `json:"commands_received"`
	LastCommandTime  *time.Time `json:"last_command_time,omitempty"`
}

// HandleHealth reports gateway, event stream and API reachability
func (h *HTTPServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	b := h.bot
	health := HealthStatus{
		Status:           "healthy",
		Uptime:           time.Since(b.startedAt).Round(time.Second).String(),
		Connected:        b.Session != nil && b.Session.DataReady,
		EventsConnected:  b.Events != nil && b.Events.IsConnected(),
		APIReachable:     b.Client != nil && b.Client.Health(ctx) == nil,
		CommandsReceived: b.Registry.Stats.Count(),
	}
	if last := b.Registry.Stats.Last(); !last.IsZero() {
		health.LastCommandTime = &last
	}

	status := http.StatusOK
	if !health.Connected || !health.APIReachable {
		health.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(health)
}

package discord

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServer serves the bot's health, metrics and announcement endpoints
type HTTPServer struct {
	server *http.Server
	bot    *Bot
	apiKey string
}

// NewHTTPServer creates the internal server. Announcements require apiKey in X-API-Key.
func NewHTTPServer(port string, bot *Bot, apiKey string) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		bot:    bot,
		apiKey: apiKey,
	}

	mux.HandleFunc("GET /healthz", srv.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /admin/announce", srv.handleAnnounce)
	return srv
}

// Start serves in the background
func (s *HTTPServer) Start() {
	go func() {
		slog.Info("Starting Discord internal HTTP server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Discord internal HTTP server failed", "error", err)
		}
	}()
}

// Stop shuts the server down
func (s *HTTPServer) Stop(ctx context.Context) {
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Error("Discord internal HTTP server shutdown failed", "error", err)
	}
}

// AnnounceRequest is posted to the notification channel as an embed
type AnnounceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

func (s *HTTPServer) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-API-Key")), []byte(s.apiKey)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req AnnounceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Color == 0 {
		req.Color = ColorSuccess
	}

	embed := createEmbed(req.Title, req.Description, req.Color, "System Update")
	embed.Timestamp = time.Now().Format(time.RFC3339)

	if err := s.bot.Notifier.Send(r.Context(), &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		slog.Error("Failed to send announcement", "error", err)
		http.Error(w, "Failed to send to Discord", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

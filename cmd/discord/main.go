package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/discord"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

// Default values for optional configuration
const (
	DefaultHTTPPort    = "8082"
	DefaultAPIURL      = "http://localhost:8080"
	DefaultServiceName = "brandish-duels-discord"
)

func main() {
	_ = godotenv.Load()

	logger.InitLogger(logger.NewConfig(
		os.Getenv("LOG_LEVEL"),
		os.Getenv("LOG_FORMAT"),
		DefaultServiceName,
		os.Getenv("VERSION"),
		os.Getenv("ENVIRONMENT"),
		false,
	))

	cfg := loadConfig()

	cat, err := loadCatalog()
	if err != nil {
		slog.Error("Failed to load game catalog", "error", err)
		os.Exit(1)
	}

	bot, err := discord.New(cfg, cat)
	if err != nil {
		slog.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}
	if cfg.NotificationChannel != "" {
		slog.Info("Duel notifications enabled", "channel_id", cfg.NotificationChannel)
	}

	httpServer := discord.NewHTTPServer(cfg.HTTPPort, bot, cfg.APIKey)
	httpServer.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Stop(ctx)
	}()

	// a failed sync is not fatal: previously registered commands keep working
	if err := bot.RegisterCommands(cfg.ForceCommandUpdate); err != nil {
		slog.Error("Failed to register commands", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil {
		slog.Error("Bot failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the bot configuration from the environment; New validates it
func loadConfig() discord.Config {
	cfg := discord.Config{
		Token:               os.Getenv("DISCORD_TOKEN"),
		AppID:               os.Getenv("DISCORD_APP_ID"),
		GuildID:             os.Getenv("DISCORD_GUILD_ID"),
		APIURL:              getEnv("API_URL", DefaultAPIURL),
		APIKey:              os.Getenv("API_KEY"),
		NotificationChannel: os.Getenv("DISCORD_NOTIFICATION_CHANNEL_ID"),
		HTTPPort:            getEnv("DISCORD_HTTP_PORT", DefaultHTTPPort),
		ForceCommandUpdate:  os.Getenv("DISCORD_FORCE_COMMAND_UPDATE") == "true",
	}
	if raw := os.Getenv("DISCORD_LADDER_DIGEST_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			slog.Warn("Ignoring invalid DISCORD_LADDER_DIGEST_INTERVAL", "value", raw, "error", err)
		} else {
			cfg.LadderDigestInterval = interval
		}
	}
	slog.Info("Configured API URL", "url", cfg.APIURL)
	return cfg
}

// loadCatalog uses DUEL_CATALOG_PATH when set so names match a customized server
func loadCatalog() (*catalog.Catalog, error) {
	if path := os.Getenv("DUEL_CATALOG_PATH"); path != "" {
		return catalog.Load(path)
	}
	return catalog.Default()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

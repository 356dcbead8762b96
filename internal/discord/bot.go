package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/scheduler"
	"github.com/osse101/BrandishDuels_Go/internal/worker"
)

// Config holds the bot configuration
type Config struct {
	Token               string `validate:"required"`
	AppID               string `validate:"required"`
	GuildID             string
	APIURL              string `validate:"required,url"`
	APIKey              string `validate:"required"`
	NotificationChannel string
	HTTPPort            string `validate:"omitempty,numeric"`
	ForceCommandUpdate  bool
	// LadderDigestInterval posts the ladder to the notification channel periodically. Zero disables it.
	LadderDigestInterval time.Duration `validate:"omitempty,min=1m"`
}

// Validate checks required settings
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid bot configuration: %w", err)
	}
	return nil
}

// Bot is the Discord front end for duels
type Bot struct {
	Session  *discordgo.Session
	Client   *APIClient
	AppID    string
	GuildID  string
	Registry *CommandRegistry
	Notifier *DuelNotifier
	Events   *SSEClient

	pool        *worker.Pool
	scheduler   *scheduler.Scheduler
	digestEvery time.Duration
	startedAt   time.Time
}

// New creates a bot with every duel command registered and notifications wired to the event stream
func New(cfg Config, cat *catalog.Catalog) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	pool := worker.NewPool(notifyWorkers, notifyQueueSize, notifySendTimeout)
	b := &Bot{
		Session:     s,
		Client:      NewAPIClient(cfg.APIURL, cfg.APIKey),
		AppID:       cfg.AppID,
		GuildID:     cfg.GuildID,
		Registry:    NewCommandRegistry(),
		Notifier:    NewDuelNotifier(s, cfg.NotificationChannel, pool, cat),
		Events:      NewSSEClient(cfg.APIURL, cfg.APIKey, event.DuelTypes),
		pool:        pool,
		scheduler:   scheduler.New(pool, nil),
		digestEvery: cfg.LadderDigestInterval,
		startedAt:   time.Now(),
	}
	RegisterDuelCommands(b.Registry, cat)
	b.Notifier.RegisterHandlers(b.Events)
	return b, nil
}

// Start opens the gateway session and begins streaming events
func (b *Bot) Start(ctx context.Context) error {
	b.Session.AddHandler(b.ready)
	b.Session.AddHandler(b.interactionCreate)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	b.pool.Start()
	b.Events.Start(ctx)
	if b.digestEvery > 0 && b.Notifier.channelID != "" {
		b.scheduler.Schedule("ladder-digest", b.digestEvery, b.Notifier.LadderDigest(b.Client, leaderboardDefaultSize))
		slog.Info(LogMsgDigestScheduled, "interval", b.digestEvery)
	}
	return nil
}

// Stop closes the event stream, drains queued notifications and closes the session
func (b *Bot) Stop() {
	b.Events.Stop()
	b.scheduler.Stop()
	b.pool.Stop()
	if err := b.Session.Close(); err != nil {
		slog.Warn("Failed to close Discord session", "error", err)
	}
}

// Run runs the bot until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	slog.Info("Discord bot is now running")
	<-ctx.Done()
	return nil
}

func (b *Bot) ready(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info(LogMsgBotReady, "user", r.User.Username, "guilds", len(r.Guilds))
}

func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.Registry.Handle(s, i, b.Client)
}

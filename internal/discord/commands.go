package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/osse101/BrandishDuels_Go/internal/handler"
)

// CommandHandler handles a slash command or its autocomplete request
type CommandHandler func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient)

// CommandRegistry holds the registered commands
type CommandRegistry struct {
	Commands     map[string]*discordgo.ApplicationCommand
	Handlers     map[string]CommandHandler
	Autocomplete map[string]CommandHandler
	Stats        *CommandStats
}

// NewCommandRegistry creates a new registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		Commands:     make(map[string]*discordgo.ApplicationCommand),
		Handlers:     make(map[string]CommandHandler),
		Autocomplete: make(map[string]CommandHandler),
		Stats:        &CommandStats{},
	}
}

// Register adds a command to the registry
func (r *CommandRegistry) Register(cmd *discordgo.ApplicationCommand, handler CommandHandler) {
	r.Commands[cmd.Name] = cmd
	r.Handlers[cmd.Name] = handler
}

// RegisterAutocomplete routes autocomplete requests for a command
func (r *CommandRegistry) RegisterAutocomplete(name string, handler CommandHandler) {
	r.Autocomplete[name] = handler
}

// Handle dispatches an interaction to its command or autocomplete handler
func (r *CommandRegistry) Handle(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		h, ok := r.Handlers[name]
		if !ok {
			slog.Warn(LogMsgUnknownCommand, "command", name)
			return
		}
		r.Stats.Record(name)
		slog.Debug(LogMsgCommandReceived, "command", name, "user_id", getInteractionUser(i).ID)
		h(s, i, client)
	case discordgo.InteractionApplicationCommandAutocomplete:
		if h, ok := r.Autocomplete[i.ApplicationCommandData().Name]; ok {
			h(s, i, client)
		}
	}
}

// RegisterCommands syncs the registry with Discord. Unchanged command sets are left alone to avoid rate limits.
func (b *Bot) RegisterCommands(forceUpdate bool) error {
	desired := make([]*discordgo.ApplicationCommand, 0, len(b.Registry.Commands))
	for _, cmd := range b.Registry.Commands {
		desired = append(desired, cmd)
	}

	if !forceUpdate {
		existing, err := b.Session.ApplicationCommands(b.AppID, b.GuildID)
		if err != nil {
			return fmt.Errorf("failed to fetch existing commands: %w", err)
		}
		if commandsEqual(existing, desired) {
			slog.Info(LogMsgCommandsUpToDate, "count", len(existing))
			return nil
		}
	}

	if _, err := b.Session.ApplicationCommandBulkOverwrite(b.AppID, b.GuildID, desired); err != nil {
		return fmt.Errorf("failed to update commands: %w", err)
	}
	slog.Info(LogMsgCommandsSynced, "count", len(desired), "forced", forceUpdate)
	return nil
}

func commandsEqual(existing, desired []*discordgo.ApplicationCommand) bool {
	if len(existing) != len(desired) {
		return false
	}
	byName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		byName[cmd.Name] = cmd
	}
	for _, want := range desired {
		have, ok := byName[want.Name]
		if !ok || !commandEqual(have, want) {
			return false
		}
	}
	return true
}

func commandEqual(a, b *discordgo.ApplicationCommand) bool {
	if a.Name != b.Name || a.Description != b.Description {
		return false
	}
	if (a.DefaultMemberPermissions == nil) != (b.DefaultMemberPermissions == nil) {
		return false
	}
	if a.DefaultMemberPermissions != nil && *a.DefaultMemberPermissions != *b.DefaultMemberPermissions {
		return false
	}
	return optionsEqual(a.Options, b.Options)
}

func optionsEqual(a, b []*discordgo.ApplicationCommandOption) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !optionEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func optionEqual(a, b *discordgo.ApplicationCommandOption) bool {
	if a.Type != b.Type || a.Name != b.Name || a.Description != b.Description ||
		a.Required != b.Required || a.Autocomplete != b.Autocomplete {
		return false
	}
	if (a.MinValue == nil) != (b.MinValue == nil) || (a.MinValue != nil && *a.MinValue != *b.MinValue) {
		return false
	}
	if a.MaxValue != b.MaxValue {
		return false
	}
	if len(a.Choices) != len(b.Choices) {
		return false
	}
	for i := range a.Choices {
		// values come back from Discord as JSON, so compare their printed form
		if a.Choices[i].Name != b.Choices[i].Name || fmt.Sprint(a.Choices[i].Value) != fmt.Sprint(b.Choices[i].Value) {
			return false
		}
	}
	return optionsEqual(a.Options, b.Options)
}

// deferResponse acknowledges an interaction so the handler may take longer than three seconds.
// Returns false if the deferral failed and the handler should stop.
func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		slog.Error(LogMsgRespondFailed, "error", err)
		return false
	}
	return true
}

// respondError replaces the deferred response with a plain message
func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &message,
	}); err != nil {
		slog.Error(LogMsgEditFailed, "error", err)
	}
}

// respondAPIError logs a failed API call and shows the user a readable reason
func respondAPIError(s *discordgo.Session, i *discordgo.InteractionCreate, command string, err error) {
	slog.Warn(LogMsgCommandFailed, "command", command, "error", err)
	respondError(s, i, formatFriendlyError(err))
}

// formatFriendlyError turns an API failure into a message users can act on
func formatFriendlyError(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return MsgAPIUnavailable
		}
		return MsgGenericError
	}
	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		return MsgAPIUnavailable
	case apiErr.Message == handler.ErrMsgBuildNotFoundError:
		return MsgNoBuild
	case apiErr.Message != "":
		return apiErr.Message
	}
	return MsgGenericError
}

// sendEmbed replaces the deferred response with a single embed
func sendEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	}); err != nil {
		slog.Error(LogMsgEditFailed, "error", err)
	}
}

func createEmbed(title, description string, color int, footer string) *discordgo.MessageEmbed {
	if footer == "" {
		footer = FooterDuels
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
}

// getInteractionUser returns the invoking user in both guild and DM contexts
func getInteractionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	if i.User != nil {
		return i.User
	}
	return &discordgo.User{}
}

// optionMap indexes the top-level command options by name
func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

// focusedOption returns the option the user is typing into during autocomplete
func focusedOption(i *discordgo.InteractionCreate) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range i.ApplicationCommandData().Options {
		if o.Focused {
			return o
		}
	}
	return nil
}

// respondChoices answers an autocomplete request, capped at Discord's limit
func respondChoices(s *discordgo.Session, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	if len(choices) > maxAutocompleteChoices {
		choices = choices[:maxAutocompleteChoices]
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}); err != nil {
		slog.Error(LogMsgRespondFailed, "error", err)
	}
}

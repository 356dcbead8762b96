package discord

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/handler"
)

// Command names
const (
	CmdChallenge    = "duel-challenge"
	CmdAccept       = "duel-accept"
	CmdDecline      = "duel-decline"
	CmdCancel       = "duel-cancel"
	CmdAttack       = "duel-attack"
	CmdDefend       = "duel-defend"
	CmdSkill        = "duel-skill"
	CmdForfeit      = "duel-forfeit"
	CmdStatus       = "duel-status"
	CmdBuild        = "duel-build"
	CmdRank         = "duel-rank"
	CmdLeaderboard  = "duel-leaderboard"
	CmdAchievements = "duel-achievements"
	CmdPing         = "ping"
)

// RegisterDuelCommands adds every duel command to the registry
func RegisterDuelCommands(r *CommandRegistry, cat *catalog.Catalog) {
	r.Register(ChallengeCommand())
	r.Register(RespondCommand(true))
	r.Register(RespondCommand(false))
	r.Register(CancelCommand())
	r.Register(ActionCommand(CmdAttack, "Strike your opponent with a basic attack", domain.ActionBasicAttack, cat))
	r.Register(ActionCommand(CmdDefend, "Raise your guard against the next hit", domain.ActionDefend, cat))
	r.Register(ActionCommand(CmdSkill, "Use one of your active skills", domain.ActionSkill, cat))
	r.RegisterAutocomplete(CmdSkill, SkillAutocomplete(cat))
	r.Register(ForfeitCommand())
	r.Register(StatusCommand())
	r.Register(BuildCommand(cat))
	r.Register(RankCommand())
	r.Register(LeaderboardCommand())
	r.Register(AchievementsCommand(cat))
	r.Register(PingCommand())
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// activeEngagement returns the user's engagement when it is of the wanted kind
func activeEngagement(ctx context.Context, client *APIClient, userID string, kind domain.EngagementKind) (*domain.Engagement, error) {
	e, err := client.GetActive(ctx, userID)
	if err != nil || e == nil || e.Kind != kind {
		return nil, err
	}
	return e, nil
}

// ChallengeCommand issues a duel challenge
func ChallengeCommand() (*discordgo.ApplicationCommand, CommandHandler) {
	cmd := &discordgo.ApplicationCommand{
		Name:        CmdChallenge,
		Description: "Challenge another player to a duel",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "opponent",
				Description: "Who to challenge",
				Required:    true,
			},
		},
	}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		user := getInteractionUser(i)
		opponent := optionMap(i)["opponent"].UserValue(nil)

		resp, err := client.CreateChallenge(ctx, user.ID, opponent.ID)
		if err != nil {
			respondAPIError(s, i, CmdChallenge, err)
			return
		}
		desc := fmt.Sprintf("%s challenged %s!\nThe challenge expires %s.",
			mention(user.ID), mention(opponent.ID), relativeTime(resp.Challenge.ExpiresAt))
		sendEmbed(s, i, createEmbed("⚔️ Challenge Sent", desc, ColorPrimary, ""))
	}

	return cmd, handler
}

// RespondCommand accepts or declines the challenge waiting on the user
func RespondCommand(accept bool) (*discordgo.ApplicationCommand, CommandHandler) {
	name, desc := CmdAccept, "Accept the duel challenge waiting for you"
	if !accept {
		name, desc = CmdDecline, "Decline the duel challenge waiting for you"
	}
	cmd := &discordgo.ApplicationCommand{Name: name, Description: desc}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		user := getInteractionUser(i)
		e, err := activeEngagement(ctx, client, user.ID, domain.EngagementChallenge)
		if err != nil {
			respondAPIError(s, i, name, err)
			return
		}
		if e == nil {
			respondError(s, i, MsgNoPendingChallenge)
			return
		}
		c, err := client.GetChallenge(ctx, e.ID)
		if err != nil {
			respondAPIError(s, i, name, err)
			return
		}
		if c.OpponentID != user.ID {
			respondError(s, i, MsgNoPendingChallenge+" Use /"+CmdCancel+" to withdraw your own.")
			return
		}

		resp, err := client.RespondChallenge(ctx, e.ID, user.ID, accept)
		if err != nil {
			respondAPIError(s, i, name, err)
			return
		}
		if !accept || resp.Match == nil {
			msg := fmt.Sprintf("%s declined %s's challenge.", mention(user.ID), mention(c.ChallengerID))
			sendEmbed(s, i, createEmbed("🚫 Challenge Declined", msg, ColorWarning, ""))
			return
		}
		sendEmbed(s, i, createEmbed("⚔️ The Duel Begins", formatSnapshot(resp.Match), ColorPrimary, ""))
	}

	return cmd, handler
}

// CancelCommand withdraws the user's open challenge
func CancelCommand() (*discordgo.ApplicationCommand, CommandHandler) {
	cmd := &discordgo.ApplicationCommand{Name: CmdCancel, Description: "Withdraw the challenge you sent"}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		user := getInteractionUser(i)
		e, err := activeEngagement(ctx, client, user.ID, domain.EngagementChallenge)
		if err != nil {
			respondAPIError(s, i, CmdCancel, err)
			return
		}
		if e == nil {
			respondError(s, i, MsgNoOwnChallenge)
			return
		}
		resp, err := client.CancelChallenge(ctx, e.ID, user.ID)
		if err != nil {
			respondAPIError(s, i, CmdCancel, err)
			return
		}
		msg := fmt.Sprintf("%s withdrew the challenge to %s.", mention(user.ID), mention(resp.Challenge.OpponentID))
		sendEmbed(s, i, createEmbed("↩️ Challenge Cancelled", msg, ColorWarning, ""))
	}

	return cmd, handler
}

// ActionCommand plays one turn of the user's running match
func ActionCommand(name, description string, kind domain.ActionKind, cat *catalog.Catalog) (*discordgo.ApplicationCommand, CommandHandler) {
	cmd := &discordgo.ApplicationCommand{Name: name, Description: description}
	if kind == domain.ActionSkill {
		cmd.Options = []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionString,
				Name:         "skill",
				Description:  "The skill to use",
				Required:     true,
				Autocomplete: true,
			},
		}
	}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		var skillID string
		if kind == domain.ActionSkill {
			skillID = optionMap(i)["skill"].StringValue()
		}

		user := getInteractionUser(i)
		e, err := activeEngagement(ctx, client, user.ID, domain.EngagementMatch)
		if err != nil {
			respondAPIError(s, i, name, err)
			return
		}
		if e == nil {
			respondError(s, i, MsgNotInMatch)
			return
		}
		snap, err := client.GetMatch(ctx, e.ID)
		if err != nil {
			respondAPIError(s, i, name, err)
			return
		}
		outcome, err := client.SubmitAction(ctx, e.ID, user.ID, kind, skillID)
		if err != nil {
			respondAPIError(s, i, name, err)
			return
		}

		color := ColorPrimary
		if outcome.Finished {
			color = ColorSuccess
		}
		title := fmt.Sprintf("Turn %d", snap.Turn)
		sendEmbed(s, i, createEmbed(title, formatOutcome(cat, snap, outcome), color, ""))
	}

	return cmd, handler
}

// SkillAutocomplete suggests the active skills in the user's build
func SkillAutocomplete(cat *catalog.Catalog) CommandHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		ctx, cancel := context.WithTimeout(context.Background(), apiRequestTimeout)
		defer cancel()

		typed := ""
		if o := focusedOption(i); o != nil {
			typed = strings.ToLower(o.StringValue())
		}

		choices := []*discordgo.ApplicationCommandOptionChoice{}
		build, err := client.GetBuild(ctx, getInteractionUser(i).ID)
		if err == nil && build != nil {
			choices = skillChoices(cat, build.Skills, typed)
		}
		respondChoices(s, i, choices)
	}
}

func skillChoices(cat *catalog.Catalog, skills []string, typed string) []*discordgo.ApplicationCommandOptionChoice {
	choices := []*discordgo.ApplicationCommandOptionChoice{}
	for _, id := range skills {
		def, ok := cat.Skill(id)
		if !ok || def.Active == nil {
			continue
		}
		if typed != "" && !strings.Contains(strings.ToLower(def.Name), typed) && !strings.Contains(id, typed) {
			continue
		}
		label := def.Name
		if def.Active.Cooldown > 0 {
			label = fmt.Sprintf("%s (cooldown %d)", def.Name, def.Active.Cooldown)
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: label, Value: id})
	}
	return choices
}

// ForfeitCommand concedes the user's running match
func ForfeitCommand() (*discordgo.ApplicationCommand, CommandHandler) {
	cmd := &discordgo.ApplicationCommand{Name: CmdForfeit, Description: "Concede your current duel"}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		user := getInteractionUser(i)
		e, err := activeEngagement(ctx, client, user.ID, domain.EngagementMatch)
		if err != nil {
			respondAPIError(s, i, CmdForfeit, err)
			return
		}
		if e == nil {
			respondError(s, i, MsgNotInMatch)
			return
		}
		snap, err := client.GetMatch(ctx, e.ID)
		if err != nil {
			respondAPIError(s, i, CmdForfeit, err)
			return
		}
		result, err := client.Forfeit(ctx, e.ID, user.ID)
		if err != nil {
			respondAPIError(s, i, CmdForfeit, err)
			return
		}
		sendEmbed(s, i, createEmbed("🏳️ Forfeit", formatResult(snap.Participants, result), ColorDanger, ""))
	}

	return cmd, handler
}

// StatusCommand shows the user's pending challenge or running match
func StatusCommand() (*discordgo.ApplicationCommand, CommandHandler) {
	cmd := &discordgo.ApplicationCommand{Name: CmdStatus, Description: "Show your current duel"}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		user := getInteractionUser(i)
		e, err := client.GetActive(ctx, user.ID)
		if err != nil {
			respondAPIError(s, i, CmdStatus, err)
			return
		}
		if e == nil {
			respondError(s, i, MsgNotEngaged)
			return
		}

		switch e.Kind {
		case domain.EngagementChallenge:
			c, err := client.GetChallenge(ctx, e.ID)
			if err != nil {
				respondAPIError(s, i, CmdStatus, err)
				return
			}
			desc := fmt.Sprintf("%s challenged %s.\nExpires %s.", mention(c.ChallengerID), mention(c.OpponentID), relativeTime(c.ExpiresAt))
			sendEmbed(s, i, createEmbed("⏳ Pending Challenge", desc, ColorPrimary, ""))
		default:
			snap, err := client.GetMatch(ctx, e.ID)
			if err != nil {
				respondAPIError(s, i, CmdStatus, err)
				return
			}
			sendEmbed(s, i, createEmbed("⚔️ Duel in Progress", formatSnapshot(snap), ColorPrimary, ""))
		}
	}

	return cmd, handler
}

// BuildCommand saves the user's hero build
func BuildCommand(cat *catalog.Catalog) (*discordgo.ApplicationCommand, CommandHandler) {
	elements := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(domain.Elements))
	for _, e := range domain.Elements {
		elements = append(elements, &discordgo.ApplicationCommandOptionChoice{Name: titleCase(string(e)), Value: string(e)})
	}
	rarities := []*discordgo.ApplicationCommandOptionChoice{}
	for _, r := range []domain.Rarity{domain.RarityRare, domain.RarityEpic, domain.RarityLegendary} {
		rarities = append(rarities, &discordgo.ApplicationCommandOptionChoice{Name: titleCase(string(r)), Value: string(r)})
	}
	minStars := 1.0

	cmd := &discordgo.ApplicationCommand{
		Name:        CmdBuild,
		Description: "Set up your duel hero",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "element", Description: "Elemental affinity", Required: true, Choices: elements},
			{Type: discordgo.ApplicationCommandOptionString, Name: "rarity", Description: "Hero rarity", Required: true, Choices: rarities},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "stars", Description: "Star level", Required: true, MinValue: &minStars, MaxValue: 6},
			{Type: discordgo.ApplicationCommandOptionString, Name: "skills", Description: "Unlocked skill ids, comma separated"},
		},
	}

	save := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		opts := optionMap(i)
		req := handler.SaveBuildRequest{
			Element: opts["element"].StringValue(),
			Rarity:  opts["rarity"].StringValue(),
			Stars:   int(opts["stars"].IntValue()),
			Skills:  []string{},
		}
		if o, ok := opts["skills"]; ok {
			for _, id := range strings.Split(o.StringValue(), ",") {
				if id = strings.TrimSpace(id); id != "" {
					req.Skills = append(req.Skills, id)
				}
			}
		}

		resp, err := client.SaveBuild(ctx, getInteractionUser(i).ID, req)
		if err != nil {
			respondAPIError(s, i, CmdBuild, err)
			return
		}
		sendEmbed(s, i, buildEmbed(cat, resp))
	}

	return cmd, save
}

func buildEmbed(cat *catalog.Catalog, resp *handler.BuildResponse) *discordgo.MessageEmbed {
	b := resp.Build
	embed := createEmbed("🛡️ Hero Saved",
		fmt.Sprintf("%s · %s · %s", formatElement(b.Element), titleCase(string(b.Rarity)), strings.Repeat("★", b.Stars)),
		ColorSuccess, "")

	if st := resp.Stats; st != nil {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "ATK", Value: fmt.Sprint(st.ATK), Inline: true},
			&discordgo.MessageEmbedField{Name: "DEF", Value: fmt.Sprint(st.DEF), Inline: true},
			&discordgo.MessageEmbedField{Name: "HP", Value: fmt.Sprint(st.HP), Inline: true},
			&discordgo.MessageEmbedField{Name: "Speed", Value: fmt.Sprint(st.Speed), Inline: true},
			&discordgo.MessageEmbedField{Name: "Crit", Value: fmt.Sprintf("%.0f%%", st.Modifiers.CritChance*100), Inline: true},
			&discordgo.MessageEmbedField{Name: "Evasion", Value: fmt.Sprintf("%.0f%%", st.Modifiers.EvasionChance*100), Inline: true},
		)
	}
	if len(b.Skills) > 0 {
		names := make([]string, len(b.Skills))
		for idx, id := range b.Skills {
			names[idx] = skillName(cat, id)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Skills",
			Value: truncate(strings.Join(names, ", "), maxEmbedFieldLength),
		})
	}
	return embed
}

// RankCommand shows a player's ladder record
func RankCommand() (*discordgo.ApplicationCommand, CommandHandler) {
	cmd := &discordgo.ApplicationCommand{
		Name:        CmdRank,
		Description: "Show a player's duel rating",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "player", Description: "Whose rank to show (default: you)"},
		},
	}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		userID := getInteractionUser(i).ID
		if o, ok := optionMap(i)["player"]; ok {
			userID = o.UserValue(nil).ID
		}

		rec, err := client.GetRating(ctx, userID)
		if err != nil {
			respondAPIError(s, i, CmdRank, err)
			return
		}
		sendEmbed(s, i, rankEmbed(rec))
	}

	return cmd, handler
}

func rankEmbed(rec *domain.RatingRecord) *discordgo.MessageEmbed {
	if rec.GamesPlayed == 0 {
		return createEmbed("📊 Duel Rank", mention(rec.UserID)+"\n"+MsgNoRating, ColorPrimary, "")
	}
	embed := createEmbed("📊 Duel Rank", mention(rec.UserID), ColorPrimary, "")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Rating", Value: formatRating(rec.Rating), Inline: true},
		{Name: "Tier", Value: formatTier(rec.Tier), Inline: true},
		{Name: "Peak", Value: formatRating(rec.PeakRating), Inline: true},
		{Name: "Record", Value: fmt.Sprintf("%dW %dL %dD", rec.Wins, rec.Losses, rec.Draws), Inline: true},
		{Name: "Win Rate", Value: fmt.Sprintf("%.0f%%", rec.WinRate()*100), Inline: true},
		{Name: "Streak", Value: fmt.Sprintf("%d (best %d)", rec.CurrentStreak, rec.BestStreak), Inline: true},
		{Name: "Recent", Value: formatRecent(rec.Recent, 5)},
	}
	return embed
}

// LeaderboardCommand shows the top of the ladder, plus the caller's rank when they are not listed
func LeaderboardCommand() (*discordgo.ApplicationCommand, CommandHandler) {
	minSize := 1.0
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(domain.LeaderboardCategories))
	for _, c := range domain.LeaderboardCategories {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: categoryLabels[c], Value: string(c)})
	}
	cmd := &discordgo.ApplicationCommand{
		Name:        CmdLeaderboard,
		Description: "Show the duel ladder",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "category",
				Description: "What to rank by (default: rating)",
				Choices:     choices,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "size",
				Description: fmt.Sprintf("How many players to show (default: %d)", leaderboardDefaultSize),
				MinValue:    &minSize,
				MaxValue:    leaderboardMaxSize,
			},
		},
	}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		opts := optionMap(i)
		category := domain.LeaderboardRating
		if o, ok := opts["category"]; ok {
			category = domain.LeaderboardCategory(o.StringValue())
		}
		size := leaderboardDefaultSize
		if o, ok := opts["size"]; ok {
			size = int(o.IntValue())
		}

		entries, err := client.GetLeaderboard(ctx, category, size)
		if err != nil {
			respondAPIError(s, i, CmdLeaderboard, err)
			return
		}
		if len(entries) == 0 {
			respondError(s, i, MsgEmptyLeaderboard)
			return
		}

		embed := createEmbed(leaderboardTitle(category), formatLeaderboard(entries, category), ColorGold, FooterLeaderboard)
		callerID := getInteractionUser(i).ID
		if !slices.ContainsFunc(entries, func(e domain.LeaderboardEntry) bool { return e.UserID == callerID }) {
			rank, err := client.GetLeaderboardRank(ctx, callerID, category)
			if err != nil {
				slog.Warn(LogMsgRankLookupFailed, "user_id", callerID, "error", err)
			} else if rank.Rank > 0 {
				embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
					Name:  "Your Rank",
					Value: fmt.Sprintf("**#%d**", rank.Rank),
				})
			}
		}
		sendEmbed(s, i, embed)
	}

	return cmd, handler
}

// AchievementsCommand lists achievement progress for a player
func AchievementsCommand(cat *catalog.Catalog) (*discordgo.ApplicationCommand, CommandHandler) {
	cmd := &discordgo.ApplicationCommand{
		Name:        CmdAchievements,
		Description: "Show duel achievements",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "player", Description: "Whose achievements to show (default: you)"},
		},
	}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()

		userID := getInteractionUser(i).ID
		if o, ok := optionMap(i)["player"]; ok {
			userID = o.UserValue(nil).ID
		}

		rec, err := client.GetAchievements(ctx, userID)
		if err != nil {
			respondAPIError(s, i, CmdAchievements, err)
			return
		}
		sendEmbed(s, i, createEmbed("🏅 Achievements", mention(userID)+"\n\n"+formatAchievements(cat, rec), ColorGold, ""))
	}

	return cmd, handler
}

func formatAchievements(cat *catalog.Catalog, rec *domain.AchievementRecord) string {
	var b strings.Builder
	unlocked := 0
	for _, def := range cat.Achievements() {
		p := rec.Achievements[def.ID]
		if p.Unlocked {
			unlocked++
			fmt.Fprintf(&b, "✅ **%s**\n", def.Name)
			continue
		}
		if p.Target > 0 {
			fmt.Fprintf(&b, "🔒 %s (%d/%d)\n", def.Name, p.Progress, p.Target)
		} else {
			fmt.Fprintf(&b, "🔒 %s\n", def.Name)
		}
	}
	fmt.Fprintf(&b, "\n%d of %d unlocked", unlocked, len(cat.Achievements()))
	return b.String()
}

// PingCommand checks that the bot and the duel API respond
func PingCommand() (*discordgo.ApplicationCommand, CommandHandler) {
	cmd := &discordgo.ApplicationCommand{Name: CmdPing, Description: "Check whether the bot is alive"}

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, client *APIClient) {
		if !deferResponse(s, i) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), apiRequestTimeout)
		defer cancel()

		if err := client.Health(ctx); err != nil {
			respondError(s, i, MsgPong+" "+MsgAPIUnavailable)
			return
		}
		respondError(s, i, MsgPong)
	}

	return cmd, handler
}

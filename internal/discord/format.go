package discord

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/event"
)

var elementEmoji = map[domain.Element]string{
	domain.ElementFire:  "🔥",
	domain.ElementWater: "💧",
	domain.ElementEarth: "🪨",
	domain.ElementAir:   "🌪️",
}

var tierEmoji = map[domain.Tier]string{
	domain.TierBronze:      "🥉",
	domain.TierSilver:      "🥈",
	domain.TierGold:        "🥇",
	domain.TierPlatinum:    "💠",
	domain.TierDiamond:     "💎",
	domain.TierMaster:      "👑",
	domain.TierGrandmaster: "🏆",
}

// titleCase turns identifiers like "wind_slash" into "Wind Slash".
// Casers carry state, so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

// relativeTime renders a Discord timestamp that clients show as "in 30 seconds"
func relativeTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func formatElement(e domain.Element) string {
	return strings.TrimSpace(elementEmoji[e] + " " + titleCase(string(e)))
}

func formatTier(t domain.Tier) string {
	return strings.TrimSpace(tierEmoji[t] + " " + titleCase(string(t)))
}

func formatRating(r float64) string {
	return message.NewPrinter(language.English).Sprintf("%d", int(math.Round(r)))
}

func formatRatingDelta(before, after float64) string {
	d := after - before
	if d >= 0 {
		return fmt.Sprintf("+%.0f", d)
	}
	return fmt.Sprintf("%.0f", d)
}

func hpBar(hp, maxHP int) string {
	if maxHP <= 0 {
		return strings.Repeat("░", hpBarWidth)
	}
	filled := hp * hpBarWidth / maxHP
	if hp > 0 && filled == 0 {
		filled = 1
	}
	filled = min(max0(filled), hpBarWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", hpBarWidth-filled)
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// skillName resolves a skill's display name, falling back to its id
func skillName(cat *catalog.Catalog, id string) string {
	if cat != nil {
		if def, ok := cat.Skill(id); ok {
			return def.Name
		}
	}
	return titleCase(id)
}

func actionName(cat *catalog.Catalog, a *domain.Action) string {
	if a == nil {
		return "nothing"
	}
	if a.Kind == domain.ActionSkill {
		return skillName(cat, a.SkillID)
	}
	return titleCase(string(a.Kind))
}

// formatEntry describes one log line from the perspective of the acting side
func formatEntry(cat *catalog.Catalog, participants [2]string, e domain.ActionLogEntry) string {
	actor := mention(participants[e.Side])
	target := mention(participants[e.Side.Other()])

	switch e.Event {
	case domain.LogEventStatusTick:
		if e.Healed > 0 {
			return fmt.Sprintf("%s regenerates %d HP from %s", actor, e.Healed, e.Effect)
		}
		return fmt.Sprintf("%s takes %d %s damage", actor, e.Damage, e.Effect)
	case domain.LogEventRegen:
		return fmt.Sprintf("%s regenerates %d HP", actor, e.Healed)
	case domain.LogEventForfeit:
		return fmt.Sprintf("%s forfeits", actor)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s uses **%s**", actor, actionName(cat, e.Action))
	if e.Auto {
		b.WriteString(" (auto)")
	}
	switch {
	case e.Evaded:
		fmt.Fprintf(&b, ", but %s evades", target)
	case e.Damage > 0:
		fmt.Fprintf(&b, " for **%d** damage", e.Damage)
		if e.Critical {
			b.WriteString(" 💥 critical")
		}
		if e.Guarded {
			b.WriteString(" 🛡️ guarded")
		}
	case e.Action != nil && e.Action.Kind == domain.ActionDefend:
		b.WriteString(" and raises a guard")
	}
	if e.Healed > 0 {
		fmt.Fprintf(&b, ", healing %d HP", e.Healed)
	}
	if e.Effect != "" && e.Event == domain.LogEventAction {
		fmt.Fprintf(&b, ", applying %s", e.Effect)
	}
	return b.String()
}

// formatHPLines renders both fighters' HP bars
func formatHPLines(participants [2]string, elements [2]domain.Element, hp, maxHP [2]int) string {
	var b strings.Builder
	for side := range participants {
		fmt.Fprintf(&b, "%s %s `%s` %d/%d\n",
			elementEmoji[elements[side]], mention(participants[side]), hpBar(hp[side], maxHP[side]), max0(hp[side]), maxHP[side])
	}
	return strings.TrimRight(b.String(), "\n")
}

func snapshotMaxHP(snap *domain.MatchSnapshot) [2]int {
	return [2]int{snap.Stats[0].HP, snap.Stats[1].HP}
}

// formatSnapshot summarizes a match for /duel-status and accept responses
func formatSnapshot(snap *domain.MatchSnapshot) string {
	var b strings.Builder
	b.WriteString(formatHPLines(snap.Participants, snap.Elements, snap.HP, snapshotMaxHP(snap)))
	b.WriteString("\n\n")
	if snap.Result != nil {
		b.WriteString(formatResult(snap.Participants, snap.Result))
		return b.String()
	}
	fmt.Fprintf(&b, "Turn %d/%d · %s to act", snap.Turn, snap.MaxTurns, mention(snap.Participants[snap.Active]))
	if snap.Deadline != nil {
		fmt.Fprintf(&b, " %s", relativeTime(*snap.Deadline))
	}
	return b.String()
}

// formatOutcome describes the turn an action resolved
func formatOutcome(cat *catalog.Catalog, snap *domain.MatchSnapshot, out *domain.TurnOutcome) string {
	var b strings.Builder
	for _, e := range out.Entries {
		b.WriteString(formatEntry(cat, snap.Participants, e))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(formatHPLines(snap.Participants, snap.Elements, out.HP, snapshotMaxHP(snap)))
	b.WriteString("\n\n")
	if out.Finished && out.Result != nil {
		b.WriteString(formatResult(snap.Participants, out.Result))
	} else {
		fmt.Fprintf(&b, "%s, your move!", mention(snap.Participants[out.Next]))
	}
	return b.String()
}

func formatReason(r domain.EndReason) string {
	switch r {
	case domain.EndReasonKnockout:
		return "by knockout"
	case domain.EndReasonTurnLimit:
		return "on HP at the turn limit"
	case domain.EndReasonForfeit:
		return "by forfeit"
	case domain.EndReasonTimeoutForfeit:
		return "after repeated timeouts"
	}
	return string(r)
}

// formatResult announces the winner of a finished match
func formatResult(participants [2]string, r *domain.MatchResult) string {
	if r.Draw {
		return fmt.Sprintf("🤝 **Draw** after %d turns", r.Turns)
	}
	return fmt.Sprintf("🏆 %s wins %s after %d turns", mention(participants[r.Winner]), formatReason(r.Reason), r.Turns)
}

// formatCompleted renders the match completed notification body
func formatCompleted(p event.MatchCompletedPayloadV1) string {
	participants := [2]string{p.ChallengerID, p.OpponentID}
	result := &domain.MatchResult{Draw: p.Draw, Reason: p.Reason, Turns: p.Turns}
	if p.WinnerID == p.OpponentID {
		result.Winner = domain.SideOpponent
	}

	var b strings.Builder
	b.WriteString(formatResult(participants, result))
	for _, rc := range p.RatingChanges {
		fmt.Fprintf(&b, "\n%s %s → %s (%s) %s",
			mention(rc.UserID), formatRating(rc.Before), formatRating(rc.After), formatRatingDelta(rc.Before, rc.After), formatTier(rc.Tier))
	}
	return b.String()
}

// formatRecent lists the latest match summaries, newest first
func formatRecent(recent []domain.MatchSummary, limit int) string {
	if len(recent) == 0 {
		return "No matches yet"
	}
	var b strings.Builder
	for i := len(recent) - 1; i >= 0 && len(recent)-i <= limit; i-- {
		m := recent[i]
		icon := "➖"
		switch m.Outcome {
		case domain.OutcomeWin:
			icon = "✅"
		case domain.OutcomeLoss:
			icon = "❌"
		}
		fmt.Fprintf(&b, "%s vs %s %s (%s)\n", icon, mention(m.OpponentID), formatElement(m.OpponentElement), formatRatingDelta(m.RatingBefore, m.RatingAfter))
	}
	return truncate(strings.TrimRight(b.String(), "\n"), maxEmbedFieldLength)
}

var categoryLabels = map[domain.LeaderboardCategory]string{
	domain.LeaderboardRating:  "Rating",
	domain.LeaderboardWins:    "Wins",
	domain.LeaderboardWinRate: "Win Rate",
	domain.LeaderboardStreak:  "Best Streak",
}

func leaderboardTitle(category domain.LeaderboardCategory) string {
	if category == "" || category == domain.LeaderboardRating {
		return "🏆 Duel Ladder"
	}
	return "🏆 Duel Ladder · " + categoryLabels[category]
}

// formatLeaderboard renders one ladder row per line, leading with the ranked statistic
func formatLeaderboard(entries []domain.LeaderboardEntry, category domain.LeaderboardCategory) string {
	var b strings.Builder
	for _, e := range entries {
		medal := fmt.Sprintf("`#%d`", e.Rank)
		switch e.Rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}
		fmt.Fprintf(&b, "%s %s %s\n", medal, mention(e.UserID), formatLadderValue(e, category))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatLadderValue(e domain.LeaderboardEntry, category domain.LeaderboardCategory) string {
	switch category {
	case domain.LeaderboardWins:
		return fmt.Sprintf("**%d** wins · %s", e.Wins, formatRating(e.Rating))
	case domain.LeaderboardWinRate:
		return fmt.Sprintf("**%.1f%%** (%d duels)", e.WinRate*100, e.GamesPlayed)
	case domain.LeaderboardStreak:
		return fmt.Sprintf("**%d** streak", e.BestStreak)
	default:
		return fmt.Sprintf("**%s** %s · %dW %dL %dD", formatRating(e.Rating), formatTier(e.Tier), e.Wins, e.Losses, e.Draws)
	}
}

func formatRewards(rewards []event.RewardV1) string {
	if len(rewards) == 0 {
		return ""
	}
	parts := make([]string, len(rewards))
	p := message.NewPrinter(language.English)
	for i, r := range rewards {
		parts[i] = p.Sprintf("%d %s", r.Amount, titleCase(r.Resource))
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

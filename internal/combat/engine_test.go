package combat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/BrandishDuels_Go/internal/catalog"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// fixedRNG replays values in order and then repeats the last one
type fixedRNG struct {
	vals []float64
	i    int
}

func (r *fixedRNG) Float64() float64 {
	if len(r.vals) == 0 {
		return 0.99
	}
	v := r.vals[r.i]
	if r.i < len(r.vals)-1 {
		r.i++
	}
	return v
}

// noLuck never evades and never crits
func noLuck() *fixedRNG { return &fixedRNG{vals: []float64{0.99}} }

func fighter(el domain.Element, atk, def, hp, speed int, skills ...string) Combatant {
	return Combatant{
		UserID:  string(el) + "-player",
		Element: el,
		Stats:   domain.ResolvedStats{ATK: atk, DEF: def, HP: hp, Speed: speed},
		Rating:  domain.DefaultRating,
		Skills:  skills,
	}
}

func newTestEngine(a, b Combatant, rng RNG) *Engine {
	return NewEngine(uuid.New(), catalog.MustDefault(), a, b, rng)
}

func act(kind domain.ActionKind) domain.Action {
	return domain.Action{ID: uuid.NewString(), Kind: kind}
}

func skill(id string) domain.Action {
	return domain.Action{ID: uuid.NewString(), Kind: domain.ActionSkill, SkillID: id}
}

func TestElementMultiplier(t *testing.T) {
	cfg := catalog.MustDefault().Combat()
	tests := []struct {
		attacker, defender domain.Element
		want               float64
	}{
		{domain.ElementFire, domain.ElementAir, 1.5},
		{domain.ElementAir, domain.ElementEarth, 1.5},
		{domain.ElementEarth, domain.ElementWater, 1.5},
		{domain.ElementWater, domain.ElementFire, 1.5},
		{domain.ElementFire, domain.ElementWater, 0.75},
		{domain.ElementAir, domain.ElementFire, 0.75},
		{domain.ElementFire, domain.ElementEarth, 1.0},
		{domain.ElementWater, domain.ElementWater, 1.0},
	}
	for _, tt := range tests {
		t.Run(string(tt.attacker)+"_vs_"+string(tt.defender), func(t *testing.T) {
			assert.InDelta(t, tt.want, ElementMultiplier(cfg, tt.attacker, tt.defender), 1e-9)
		})
	}
}

func TestRawDamage(t *testing.T) {
	cfg := catalog.MustDefault().Combat()
	assert.Equal(t, 55, RawDamage(100, 20, ElementMultiplier(cfg, domain.ElementFire, domain.ElementWater)))
	assert.Equal(t, 1, RawDamage(10, 500, 1.0), "floor of one")
}

func TestBasicAttack_FireIntoWater(t *testing.T) {
	e := newTestEngine(
		fighter(domain.ElementFire, 100, 20, 1000, 20),
		fighter(domain.ElementWater, 100, 20, 1000, 10),
		noLuck(),
	)
	require.Equal(t, domain.SideChallenger, e.Active())

	e.BeginTurn()
	entries, err := e.Apply(domain.SideChallenger, act(domain.ActionBasicAttack), false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 55, entries[0].Damage)
	assert.Equal(t, [2]int{1000, 945}, e.HP())
	assert.Equal(t, domain.SideOpponent, e.Active())
	assert.Equal(t, PhaseTurnStart, e.Phase())
}

func TestEvasionNegatesHit(t *testing.T) {
	e := newTestEngine(
		fighter(domain.ElementFire, 100, 20, 1000, 20),
		fighter(domain.ElementFire, 100, 20, 1000, 10),
		&fixedRNG{vals: []float64{0.01, 0.99}},
	)
	e.BeginTurn()
	entries, err := e.Apply(domain.SideChallenger, act(domain.ActionBasicAttack), false)
	require.NoError(t, err)
	assert.True(t, entries[0].Evaded)
	assert.Zero(t, entries[0].Damage)
	assert.Equal(t, [2]int{1000, 1000}, e.HP())
}

func TestCriticalDoublesDamage(t *testing.T) {
	// order is decided by speed so the first roll is evasion, the second is crit
	e := newTestEngine(
		fighter(domain.ElementFire, 100, 20, 1000, 20),
		fighter(domain.ElementFire, 100, 20, 1000, 10),
		&fixedRNG{vals: []float64{0.99, 0.01, 0.99}},
	)
	e.BeginTurn()
	entries, err := e.Apply(domain.SideChallenger, act(domain.ActionBasicAttack), false)
	require.NoError(t, err)
	assert.True(t, entries[0].Critical)
	assert.Equal(t, 160, entries[0].Damage)
}

func TestDefendHalvesUntilNextTurn(t *testing.T) {
	e := newTestEngine(
		fighter(domain.ElementFire, 100, 20, 1000, 20),
		fighter(domain.ElementFire, 100, 20, 1000, 10),
		noLuck(),
	)

	e.BeginTurn()
	_, err := e.Apply(domain.SideChallenger, act(domain.ActionDefend), false)
	require.NoError(t, err)

	e.BeginTurn()
	entries, err := e.Apply(domain.SideOpponent, act(domain.ActionBasicAttack), false)
	require.NoError(t, err)
	assert.True(t, entries[0].Guarded)
	assert.Equal(t, 40, entries[0].Damage)

	e.BeginTurn()
	_, err = e.Apply(domain.SideChallenger, act(domain.ActionBasicAttack), false)
	require.NoError(t, err)

	e.BeginTurn()
	entries, err = e.Apply(domain.SideOpponent, act(domain.ActionBasicAttack), false)
	require.NoError(t, err)
	assert.False(t, entries[0].Guarded)
	assert.Equal(t, 80, entries[0].Damage)
}

func TestKnockout(t *testing.T) {
	e := newTestEngine(
		fighter(domain.ElementFire, 100, 20, 1000, 20),
		fighter(domain.ElementWater, 100, 20, 50, 10),
		noLuck(),
	)
	e.BeginTurn()
	_, err := e.Apply(domain.SideChallenger, act(domain.ActionBasicAttack), false)
	require.NoError(t, err)

	require.True(t, e.Finished())
	res := e.Result()
	require.NotNil(t, res)
	assert.Equal(t, domain.EndReasonKnockout, res.Reason)
	assert.True(t, res.Won(domain.SideChallenger))
	assert.Equal(t, [2]int{1000, 0}, e.HP())
	assert.Equal(t, 50, res.DamageDealt[domain.SideChallenger], "damage is capped at remaining hp")
	assert.InDelta(t, 100.0, res.FinalHPPercent[domain.SideChallenger], 1e-9)
	assert.InDelta(t, 100.0, res.Margin, 1e-9)
}

func TestTurnLimit(t *testing.T) {
	t.Run("exact tie is a draw", func(t *testing.T) {
		e := newTestEngine(
			fighter(domain.ElementFire, 100, 20, 10000, 20),
			fighter(domain.ElementFire, 100, 20, 10000, 10),
			noLuck(),
		)
		res := Simulate(e, NewScriptedSource(nil, nil))
		require.NotNil(t, res)
		assert.Equal(t, 30, res.Turns)
		assert.Equal(t, domain.EndReasonTurnLimit, res.Reason)
		assert.True(t, res.Draw)
		assert.InDelta(t, 0.5, res.Score(domain.SideChallenger), 1e-9)
	})

	t.Run("higher hp percent wins", func(t *testing.T) {
		e := newTestEngine(
			fighter(domain.ElementFire, 120, 20, 10000, 20),
			fighter(domain.ElementFire, 100, 20, 10000, 10),
			noLuck(),
		)
		res := Simulate(e, NewScriptedSource(nil, nil))
		require.NotNil(t, res)
		assert.Equal(t, 30, res.Turns)
		assert.Equal(t, domain.EndReasonTurnLimit, res.Reason)
		assert.False(t, res.Draw)
		assert.Equal(t, domain.SideChallenger, res.Winner)
		assert.Greater(t, res.Margin, 0.0)
	})

	t.Run("percent not raw hp decides", func(t *testing.T) {
		// opponent ends with more hp in absolute terms but a lower share of its max
		e := newTestEngine(
			fighter(domain.ElementFire, 1000, 20, 2000, 20),
			fighter(domain.ElementFire, 50, 20, 20000, 10),
			noLuck(),
		)
		res := Simulate(e, NewScriptedSource(nil, nil))
		require.NotNil(t, res)
		assert.Equal(t, domain.EndReasonTurnLimit, res.Reason)
		assert.Equal(t, [2]int{2000 - 15*30, 20000 - 15*980}, e.HP())
		assert.Equal(t, domain.SideChallenger, res.Winner)
	})
}

func TestIllegalActionsLeaveStateUnchanged(t *testing.T) {
	e := newTestEngine(
		fighter(domain.ElementFire, 100, 20, 1000, 20, "flame_strike", "fire_wall"),
		fighter(domain.ElementWater, 100, 20, 1000, 10),
		noLuck(),
	)

	_, err := e.Apply(domain.SideChallenger, act(domain.ActionBasicAttack), false)
	assert.ErrorIs(t, err, domain.ErrIllegalAction, "turn not started")

	e.BeginTurn()

	tests := []struct {
		name   string
		side   domain.Side
		action domain.Action
		errMsg string
	}{
		{"out of turn", domain.SideOpponent, act(domain.ActionBasicAttack), domain.ErrMsgNotYourTurn},
		{"unknown skill", domain.SideChallenger, skill("moonbeam"), "unknown skill"},
		{"locked skill", domain.SideChallenger, skill("blazing_fury"), domain.ErrMsgSkillLocked},
		{"passive skill", domain.SideChallenger, skill("fire_wall"), domain.ErrMsgSkillNotActive},
		{"unknown kind", domain.SideChallenger, act("dance"), "unknown action kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Apply(tt.side, tt.action, false)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrIllegalAction)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, 0, e.Turns())
			assert.Equal(t, PhaseActionPending, e.Phase())
			assert.Equal(t, domain.SideChallenger, e.Active())
			assert.Equal(t, [2]int{1000, 1000}, e.HP())
		})
	}
}

func TestSkillBurnAndCooldown(t *testing.T) {
	e := newTestEngine(
		fighter(domain.ElementFire, 100, 20, 1000, 20, "flame_strike"),
		fighter(domain.ElementFire, 100, 20, 1000, 10),
		noLuck(),
	)

	e.BeginTurn()
	entries, err := e.Apply(domain.SideChallenger, skill("flame_strike"), false)
	require.NoError(t, err)
	assert.Equal(t, 110, entries[0].Damage)
	assert.Equal(t, domain.EffectBurn, entries[0].Effect)
	assert.Equal(t, 2, e.Cooldowns(domain.SideChallenger)["flame_strike"])

	ticks := e.BeginTurn()
	require.Len(t, ticks, 1)
	assert.Equal(t, domain.LogEventStatusTick, ticks[0].Event)
	assert.Equal(t, 40, ticks[0].Damage)
	assert.Equal(t, 850, e.HP()[domain.SideOpponent])
	_, err = e.Apply(domain.SideOpponent, act(domain.ActionDefend), false)
	require.NoError(t, err)

	for _, wantCooldown := range []bool{true, true, false} {
		e.BeginTurn()
		_, err = e.Apply(domain.SideChallenger, skill("flame_strike"), false)
		if wantCooldown {
			require.ErrorIs(t, err, domain.ErrIllegalAction)
			assert.Contains(t, err.Error(), domain.ErrMsgSkillCooldown)
			_, err = e.Apply(domain.SideChallenger, act(domain.ActionDefend), false)
		}
		require.NoError(t, err)
		e.BeginTurn()
		_, err = e.Apply(domain.SideOpponent, act(domain.ActionDefend), false)
		require.NoError(t, err)
	}

	res := e.Result()
	assert.Nil(t, res)
	// 110 hit, two burn ticks, a guarded second strike, and the refreshed burn's first tick
	assert.Equal(t, 110+40+40+55+40, e.dealt[domain.SideChallenger])
}

func TestWeakenReducesAttack(t *testing.T) {
	e := newTestEngine(
		fighter(domain.ElementWater, 100, 20, 5000, 20, "tidal_strike", "healing_rain", "tsunami"),
		fighter(domain.ElementWater, 100, 20, 5000, 10),
		noLuck(),
	)
	e.BeginTurn()
	_, err := e.Apply(domain.SideChallenger, skill("tsunami"), false)
	require.NoError(t, err)

	e.BeginTurn()
	entries, err := e.Apply(domain.SideOpponent, act(domain.ActionBasicAttack), false)
	require.NoError(t, err)
	// 100 ATK weakened by 20% = 80 - 20 DEF
	assert.Equal(t, 60, entries[0].Damage)
	assert.Equal(t, 2-1, e.ActiveEffects(domain.SideOpponent)[domain.EffectWeaken])
}

func TestForfeit(t *testing.T) {
	e := newTestEngine(
		fighter(domain.ElementFire, 100, 20, 1000, 20),
		fighter(domain.ElementWater, 100, 20, 1000, 10),
		noLuck(),
	)
	e.BeginTurn()
	res := e.Forfeit(domain.SideChallenger, domain.EndReasonForfeit)
	require.NotNil(t, res)
	assert.False(t, res.Draw)
	assert.Equal(t, domain.SideOpponent, res.Winner)
	assert.Equal(t, domain.EndReasonForfeit, res.Reason)

	again := e.Forfeit(domain.SideOpponent, domain.EndReasonForfeit)
	assert.Same(t, res, again)

	_, err := e.Apply(domain.SideChallenger, act(domain.ActionBasicAttack), false)
	assert.ErrorIs(t, err, domain.ErrIllegalAction)
}

func TestDetermineOrder(t *testing.T) {
	fast := fighter(domain.ElementAir, 100, 20, 1000, 120)
	slow := fighter(domain.ElementAir, 100, 20, 1000, 100)
	high := slow
	high.Rating = 1300

	tests := []struct {
		name string
		a, b Combatant
		rng  RNG
		want domain.Side
	}{
		{"faster challenger", fast, slow, noLuck(), domain.SideChallenger},
		{"faster opponent", slow, fast, noLuck(), domain.SideOpponent},
		{"rating breaks speed tie", slow, high, noLuck(), domain.SideOpponent},
		{"coin flip heads", slow, slow, &fixedRNG{vals: []float64{0.2}}, domain.SideChallenger},
		{"coin flip tails", slow, slow, &fixedRNG{vals: []float64{0.8}}, domain.SideOpponent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := DetermineOrder(tt.a, tt.b, tt.rng)
			assert.Equal(t, tt.want, order[0])
			assert.Equal(t, tt.want.Other(), order[1])
		})
	}
}

func TestSimulate_SeededIsDeterministic(t *testing.T) {
	cat := catalog.MustDefault()
	a := fighter(domain.ElementFire, 175, 56, 630, 100, "flame_strike")
	b := fighter(domain.ElementEarth, 158, 77, 682, 100, "stone_skin", "earthquake")
	script := func() *ScriptedSource {
		return NewScriptedSource(
			[]domain.Action{skill("flame_strike")},
			[]domain.Action{skill("earthquake"), act(domain.ActionDefend)},
		)
	}

	id := uuid.New()
	first := Simulate(NewEngine(id, cat, a, b, NewRNG(42)), script())
	second := Simulate(NewEngine(id, cat, a, b, NewRNG(42)), script())
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Winner, second.Winner)
	assert.Equal(t, first.Turns, second.Turns)
	assert.Equal(t, first.DamageDealt, second.DamageDealt)
	assert.LessOrEqual(t, first.Turns, cat.Combat().MaxTurns)
}

func TestForfeitNeverDraws(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		e := newTestEngine(
			fighter(domain.ElementFire, 100, 20, 1000, 10),
			fighter(domain.ElementFire, 100, 20, 1000, 10),
			NewRNG(seed),
		)
		e.BeginTurn()
		res := e.Forfeit(e.Active(), domain.EndReasonForfeit)
		assert.False(t, res.Draw)
		assert.Equal(t, e.Order()[1], res.Winner)
	}
}

package duel

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/osse101/BrandishDuels_Go/internal/combat"
	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/event"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

type submitReply struct {
	outcome *domain.TurnOutcome
	err     error
}

type submission struct {
	userID string
	action domain.Action
	reply  chan submitReply
}

type forfeitRequest struct {
	userID string
	reply  chan submitReply
}

// arbiter drives one match. The engine is only touched from the run goroutine;
// everyone else talks to it through the command channels and reads snapshots.
type arbiter struct {
	id          uuid.UUID
	challengeID uuid.UUID
	players     [2]string
	combatants  [2]combat.Combatant
	engine      *combat.Engine
	maxTurns    int
	startedAt   time.Time

	clock       clockwork.Clock
	turnTimeout time.Duration
	maxTimeouts int
	bus         event.Bus

	submits  chan submission
	forfeits chan forfeitRequest
	ended    chan struct{}
	done     chan struct{}
	snapshot atomic.Pointer[domain.MatchSnapshot]

	seen     map[string]bool
	timeouts [2]int
	onEnd    func(ctx context.Context, a *arbiter, result domain.MatchResult)
}

type arbiterConfig struct {
	clock       clockwork.Clock
	turnTimeout time.Duration
	maxTimeouts int
	maxTurns    int
	bus         event.Bus
	onEnd       func(ctx context.Context, a *arbiter, result domain.MatchResult)
}

func newArbiter(challengeID uuid.UUID, engine *combat.Engine, combatants [2]combat.Combatant, cfg arbiterConfig) *arbiter {
	a := &arbiter{
		id:          engine.ID(),
		challengeID: challengeID,
		players:     [2]string{combatants[0].UserID, combatants[1].UserID},
		combatants:  combatants,
		engine:      engine,
		maxTurns:    cfg.maxTurns,
		startedAt:   cfg.clock.Now(),
		clock:       cfg.clock,
		turnTimeout: cfg.turnTimeout,
		maxTimeouts: cfg.maxTimeouts,
		bus:         cfg.bus,
		submits:     make(chan submission),
		forfeits:    make(chan forfeitRequest),
		ended:       make(chan struct{}),
		done:        make(chan struct{}),
		seen:        make(map[string]bool),
		onEnd:       cfg.onEnd,
	}
	a.storeSnapshot(nil)
	return a
}

// Snapshot returns the latest published state of the match
func (a *arbiter) Snapshot() domain.MatchSnapshot {
	return *a.snapshot.Load()
}

// run plays the match to completion. A cancelled ctx aborts the match without recording it.
func (a *arbiter) run(ctx context.Context) {
	defer close(a.done)
	ctx = logger.WithMatchID(ctx, a.id.String())
	log := logger.FromContext(ctx)
	log.Info(LogMsgMatchStarted, "challenger", a.players[0], "opponent", a.players[1], "first", a.engine.Active())

	for {
		a.engine.BeginTurn()
		if a.engine.Finished() {
			break
		}

		side := a.engine.Active()
		deadline := a.clock.Now().Add(a.turnTimeout)
		timer := a.clock.NewTimer(a.turnTimeout)
		a.storeSnapshot(&deadline)
		a.publish(ctx, event.NewTurnPromptEvent(event.TurnPromptPayloadV1{
			MatchID:  a.id,
			UserID:   a.players[side],
			Side:     side,
			Turn:     a.engine.Turns() + 1,
			HP:       a.engine.HP(),
			MaxHP:    [2]int{a.combatants[0].Stats.HP, a.combatants[1].Stats.HP},
			Deadline: deadline,
		}))

		ok := a.await(ctx, side, timer)
		timer.Stop()
		if !ok {
			close(a.ended)
			log.Warn(LogMsgMatchAborted, "turn", a.engine.Turns())
			return
		}
	}

	close(a.ended)
	a.storeSnapshot(nil)
	result := *a.engine.Result()
	log.Info(LogMsgMatchEnded, "reason", result.Reason, "draw", result.Draw, "winner", a.players[result.Winner], "turns", result.Turns)
	if a.onEnd != nil {
		a.onEnd(ctx, a, result)
	}
}

// await serves commands until the active side's turn is resolved. Rejected
// submissions keep the turn open and the deadline unchanged.
func (a *arbiter) await(ctx context.Context, side domain.Side, timer clockwork.Timer) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case sub := <-a.submits:
			outcome, err := a.apply(sub.userID, sub.action)
			sub.reply <- submitReply{outcome: outcome, err: err}
			if err == nil {
				return true
			}

		case req := <-a.forfeits:
			loser, ok := a.sideOf(req.userID)
			if !ok {
				req.reply <- submitReply{err: fmt.Errorf("%w: %s", domain.ErrNotParticipant, req.userID)}
				continue
			}
			a.engine.Forfeit(loser, domain.EndReasonForfeit)
			req.reply <- submitReply{outcome: a.outcome(nil)}
			return true

		case <-timer.Chan():
			a.timeout(ctx, side)
			return true
		}
	}
}

func (a *arbiter) apply(userID string, action domain.Action) (*domain.TurnOutcome, error) {
	side, ok := a.sideOf(userID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotParticipant, userID)
	}
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if a.seen[action.ID] {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrIllegalAction, domain.ErrMsgDuplicateID, action.ID)
	}

	entries, err := a.engine.Apply(side, action, false)
	if err != nil {
		return nil, err
	}
	a.seen[action.ID] = true
	a.timeouts[side] = 0

	// Status ticks of the next turn belong to this outcome so a knockout by burn is reported here.
	entries = append(entries, a.engine.BeginTurn()...)
	return a.outcome(entries), nil
}

func (a *arbiter) timeout(ctx context.Context, side domain.Side) {
	log := logger.FromContext(ctx)
	a.timeouts[side]++
	user := a.players[side]

	if a.timeouts[side] >= a.maxTimeouts {
		log.Warn(LogMsgTimeoutForfeit, "user_id", user, "consecutive", a.timeouts[side])
		a.engine.Forfeit(side, domain.EndReasonTimeoutForfeit)
		a.publish(ctx, event.NewTurnTimeoutEvent(a.id, user, a.timeouts[side], true))
		return
	}

	log.Info(LogMsgTurnTimeout, "user_id", user, "consecutive", a.timeouts[side])
	auto := domain.Action{ID: uuid.NewString(), Kind: domain.ActionBasicAttack}
	if _, err := a.engine.Apply(side, auto, true); err != nil {
		// Basic attacks are always legal for the active side; reaching here is a bug.
		log.Error("Auto action rejected", "error", err)
		a.engine.Forfeit(side, domain.EndReasonTimeoutForfeit)
	}
	a.seen[auto.ID] = true
	a.publish(ctx, event.NewTurnTimeoutEvent(a.id, user, a.timeouts[side], false))
}

// submit hands an action to the run goroutine and waits for its verdict
func (a *arbiter) submit(ctx context.Context, userID string, action domain.Action) (*domain.TurnOutcome, error) {
	reply := make(chan submitReply, 1)
	select {
	case a.submits <- submission{userID: userID, action: action, reply: reply}:
	case <-a.ended:
		return nil, fmt.Errorf("%w: %s", domain.ErrIllegalAction, domain.ErrMsgMatchFinished)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r := <-reply
	return r.outcome, r.err
}

// forfeit ends the match in favour of userID's opponent
func (a *arbiter) forfeit(ctx context.Context, userID string) (*domain.TurnOutcome, error) {
	reply := make(chan submitReply, 1)
	select {
	case a.forfeits <- forfeitRequest{userID: userID, reply: reply}:
	case <-a.ended:
		return nil, fmt.Errorf("%w: %s", domain.ErrIllegalAction, domain.ErrMsgMatchFinished)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r := <-reply
	return r.outcome, r.err
}

func (a *arbiter) sideOf(userID string) (domain.Side, bool) {
	for i, p := range a.players {
		if p == userID {
			return domain.Side(i), true
		}
	}
	return 0, false
}

func (a *arbiter) outcome(entries []domain.ActionLogEntry) *domain.TurnOutcome {
	a.storeSnapshot(nil)
	out := &domain.TurnOutcome{
		MatchID:  a.id,
		Entries:  entries,
		HP:       a.engine.HP(),
		Next:     a.engine.Active(),
		Finished: a.engine.Finished(),
	}
	if res := a.engine.Result(); res != nil {
		r := *res
		out.Result = &r
	}
	return out
}

func (a *arbiter) storeSnapshot(deadline *time.Time) {
	state := domain.MatchStateAwaitingAction
	if !a.engine.Finished() && deadline == nil {
		state = domain.MatchStateResolving
	}
	var result *domain.MatchResult
	if res := a.engine.Result(); res != nil {
		r := *res
		result = &r
		state = domain.MatchStateCompleted
		if r.Reason.Forfeited() {
			state = domain.MatchStateForfeited
		}
	}

	setup := a.setup()
	a.snapshot.Store(&domain.MatchSnapshot{
		ID:           a.id,
		ChallengeID:  a.challengeID,
		Participants: a.players,
		Elements:     setup.Elements,
		Stats:        setup.Stats,
		HP:           a.engine.HP(),
		Turn:         a.engine.Turns(),
		MaxTurns:     setup.MaxTurns,
		Order:        a.engine.Order(),
		Active:       a.engine.Active(),
		State:        state,
		Deadline:     deadline,
		Cooldowns:    [2]map[string]int{a.engine.Cooldowns(domain.SideChallenger), a.engine.Cooldowns(domain.SideOpponent)},
		Log:          a.engine.Log(),
		Result:       result,
		StartedAt:    a.startedAt,
	})
}

func (a *arbiter) publish(ctx context.Context, evt event.Event) {
	if a.bus == nil {
		return
	}
	if err := a.bus.Publish(ctx, evt); err != nil {
		logger.FromContext(ctx).Warn(LogMsgPublishFailed, "event_type", evt.Type, "error", err)
	}
}

// setup is the part of the match fixed at start
func (a *arbiter) setup() domain.MatchSetup {
	return domain.MatchSetup{
		Elements: [2]domain.Element{a.combatants[0].Element, a.combatants[1].Element},
		Stats:    [2]domain.ResolvedStats{a.combatants[0].Stats, a.combatants[1].Stats},
		MaxTurns: a.maxTurns,
	}
}

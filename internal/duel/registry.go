package duel

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

type pendingChallenge struct {
	challenge domain.Challenge
	timer     clockwork.Timer
	accepting bool
}

// Registry is the in-memory index of who is doing what: every user has at most one
// active entry, either a pending challenge or a running match. Resolved challenges
// stay readable for a while so late responses can be told the challenge expired.
type Registry struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	challenges map[uuid.UUID]*pendingChallenge
	matches    map[uuid.UUID]*arbiter
	byUser     map[string]domain.Engagement
	history    *expirable.LRU[uuid.UUID, domain.Challenge]
}

// NewRegistry creates an empty registry
func NewRegistry(clock clockwork.Clock, historySize int, historyTTL time.Duration) *Registry {
	return &Registry{
		clock:      clock,
		challenges: make(map[uuid.UUID]*pendingChallenge),
		matches:    make(map[uuid.UUID]*arbiter),
		byUser:     make(map[string]domain.Engagement),
		history:    expirable.NewLRU[uuid.UUID, domain.Challenge](historySize, nil, historyTTL),
	}
}

// Reserve registers a pending challenge for both parties and arms its expiry timer.
// onExpire runs on the clock's goroutine once the challenge deadline passes.
func (r *Registry) Reserve(c domain.Challenge, onExpire func(id uuid.UUID)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range []string{c.ChallengerID, c.OpponentID} {
		if e, ok := r.byUser[user]; ok {
			return fmt.Errorf("%w: %s has an active %s", domain.ErrAlreadyEngaged, user, e.Kind)
		}
	}

	p := &pendingChallenge{challenge: c}
	r.challenges[c.ID] = p
	for _, user := range []string{c.ChallengerID, c.OpponentID} {
		r.byUser[user] = domain.Engagement{UserID: user, Kind: domain.EngagementChallenge, ID: c.ID}
	}
	p.timer = r.clock.AfterFunc(c.ExpiresAt.Sub(r.clock.Now()), func() { onExpire(c.ID) })
	return nil
}

// Expire moves a still-pending challenge to Expired. It does nothing once acceptance has begun.
func (r *Registry) Expire(id uuid.UUID) (domain.Challenge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.challenges[id]
	if !ok || p.accepting {
		return domain.Challenge{}, false
	}
	return r.resolveLocked(p, domain.ChallengeStateExpired), true
}

// Resolve ends a pending challenge as Declined or Cancelled. Only the opponent may
// decline and only the challenger may cancel.
func (r *Registry) Resolve(id uuid.UUID, actor string, state domain.ChallengeState) (domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.pendingLocked(id)
	if err != nil {
		return domain.Challenge{}, err
	}

	allowed := p.challenge.OpponentID
	if state == domain.ChallengeStateCancelled {
		allowed = p.challenge.ChallengerID
	}
	if actor != allowed {
		return domain.Challenge{}, fmt.Errorf("%w: %s cannot mark challenge %s", domain.ErrNotParticipant, actor, state)
	}
	return r.resolveLocked(p, state), nil
}

// BeginAccept claims a pending challenge for acceptance by its opponent. The expiry
// timer is disarmed; the caller must follow up with Promote or AbortAccept.
func (r *Registry) BeginAccept(id uuid.UUID, actor string) (domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.pendingLocked(id)
	if err != nil {
		return domain.Challenge{}, err
	}
	if actor != p.challenge.OpponentID {
		return domain.Challenge{}, fmt.Errorf("%w: only the challenged user can accept", domain.ErrNotParticipant)
	}
	p.timer.Stop()
	p.accepting = true
	return p.challenge, nil
}

// AbortAccept cancels a challenge whose acceptance failed
func (r *Registry) AbortAccept(id uuid.UUID) (domain.Challenge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.challenges[id]
	if !ok {
		return domain.Challenge{}, false
	}
	return r.resolveLocked(p, domain.ChallengeStateCancelled), true
}

// Promote turns an accepted challenge into a running match owned by a
func (r *Registry) Promote(id uuid.UUID, a *arbiter) (domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.challenges[id]
	if !ok || !p.accepting {
		return domain.Challenge{}, fmt.Errorf("%w: %s", domain.ErrChallengeNotFound, id)
	}
	matchID := a.id
	p.challenge.MatchID = &matchID
	c := r.resolveLocked(p, domain.ChallengeStateAccepted)

	r.matches[a.id] = a
	for _, user := range a.players {
		r.byUser[user] = domain.Engagement{UserID: user, Kind: domain.EngagementMatch, ID: a.id}
	}
	return c, nil
}

// Challenge returns a pending or recently resolved challenge
func (r *Registry) Challenge(id uuid.UUID) (domain.Challenge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.challenges[id]; ok {
		return p.challenge, true
	}
	return r.history.Get(id)
}

// Match returns the arbiter of a running match
func (r *Registry) Match(id uuid.UUID) (*arbiter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.matches[id]
	return a, ok
}

// ReleaseMatch removes a finished match and frees its players
func (r *Registry) ReleaseMatch(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.matches[id]
	if !ok {
		return
	}
	delete(r.matches, id)
	for _, user := range a.players {
		if e, ok := r.byUser[user]; ok && e.ID == id {
			delete(r.byUser, user)
		}
	}
}

// Active returns the user's current engagement, if any
func (r *Registry) Active(userID string) (domain.Engagement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byUser[userID]
	return e, ok
}

// Counts returns the number of pending challenges and running matches
func (r *Registry) Counts() (challenges, matches int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.challenges), len(r.matches)
}

// Close disarms every pending challenge timer
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.challenges {
		p.timer.Stop()
	}
}

func (r *Registry) pendingLocked(id uuid.UUID) (*pendingChallenge, error) {
	if p, ok := r.challenges[id]; ok {
		if p.accepting {
			return nil, fmt.Errorf("%w: challenge %s is already being accepted", domain.ErrChallengeNotFound, id)
		}
		return p, nil
	}
	if c, ok := r.history.Get(id); ok && c.State == domain.ChallengeStateExpired {
		return nil, fmt.Errorf("%w: %s", domain.ErrChallengeExpired, id)
	}
	if c, ok := r.history.Get(id); ok {
		return nil, fmt.Errorf("%w: challenge %s is already %s", domain.ErrChallengeNotFound, id, c.State)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrChallengeNotFound, id)
}

func (r *Registry) resolveLocked(p *pendingChallenge, state domain.ChallengeState) domain.Challenge {
	p.timer.Stop()
	now := r.clock.Now()
	p.challenge.State = state
	p.challenge.ResolvedAt = &now

	delete(r.challenges, p.challenge.ID)
	for _, user := range []string{p.challenge.ChallengerID, p.challenge.OpponentID} {
		if e, ok := r.byUser[user]; ok && e.ID == p.challenge.ID {
			delete(r.byUser, user)
		}
	}
	r.history.Add(p.challenge.ID, p.challenge)
	return p.challenge
}

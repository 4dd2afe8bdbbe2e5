package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/notify"
	"fitrpg-bot/internal/pkg/apperr"
)

// Engine errors
var (
	ErrNoTokens = apperr.Validation("no_tokens", "you need 1 token to join; log a workout to earn tokens")
)

// huntJoinTokenCost is charged on a fresh hunt join.
const huntJoinTokenCost = 1

// Status is a display snapshot of a channel's live encounter.
type Status struct {
	Kind      encounter.Kind
	Hunt      *encounter.Hunt
	Raid      *encounter.Raid
	Remaining time.Duration
}

// StartHunt opens a hunt for a party of partySize in channelID.
func (e *Engine) StartHunt(ctx context.Context, channelID, initiatorID int64, partySize int, theme string) (encounter.Hunt, error) {
	e.mu.Lock()
	h, err := e.hunts.Start(channelID, partySize, theme, initiatorID)
	if err == nil {
		e.writer.MarkDirty()
	}
	e.mu.Unlock()
	if err != nil {
		return encounter.Hunt{}, err
	}

	log.Info().
		Str("encounter_id", h.ID).
		Int64("channel_id", channelID).
		Int64("user_id", initiatorID).
		Str("mode", string(h.Mode)).
		Str("theme", h.Theme).
		Msg("Hunt started")

	e.dispatch(ctx, []notify.Event{notify.EncounterCreated{
		Kind:        encounter.KindHunt,
		EncounterID: h.ID,
		ChannelID:   channelID,
		Theme:       h.Theme,
		Unit:        h.Unit,
		Mode:        h.Mode,
		Objective:   h.Target,
		Capacity:    h.Capacity,
		Deadline:    h.Deadline,
		InitiatorID: initiatorID,
	}})
	return h, nil
}

// JoinHunt adds userID to the channel's hunt, charging one token on a fresh
// join. Joining again is a no-op that reports joined=false.
func (e *Engine) JoinHunt(_ context.Context, channelID, userID int64) (joined bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	p, _ := e.peekLocked(userID)

	fresh, err := e.hunts.CanJoin(channelID, userID)
	if err != nil || !fresh {
		return false, err
	}
	if wait := p.CooldownRemaining(model.ActionHuntJoin, e.cooldowns.HuntJoin, now); wait > 0 {
		return false, apperr.Cooldown(string(model.ActionHuntJoin), wait)
	}
	if p.Tokens < huntJoinTokenCost {
		return false, ErrNoTokens
	}

	joined, err = e.hunts.Join(channelID, userID)
	if err != nil || !joined {
		return false, err
	}
	p.Tokens -= huntJoinTokenCost
	p.Touch(model.ActionHuntJoin, now)
	e.players[userID] = p
	e.writer.MarkDirty()

	log.Info().Int64("channel_id", channelID).Int64("user_id", userID).Msg("Hunt joined")
	return true, nil
}

// LeaveHunt removes userID from the channel's hunt. The last member leaving
// abandons it.
func (e *Engine) LeaveHunt(ctx context.Context, channelID, userID int64) error {
	e.mu.Lock()
	s, err := e.hunts.Leave(channelID, userID)
	var events []notify.Event
	if err == nil {
		if s != nil {
			events = e.settleLocked(s)
		}
		e.writer.MarkDirty()
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.dispatch(ctx, events)
	return nil
}

// CancelHunt aborts the channel's hunt without rewards.
func (e *Engine) CancelHunt(ctx context.Context, channelID int64) error {
	return e.cancel(ctx, e.hunts.Cancel, channelID)
}

// StartRaid opens a raid in channelID.
func (e *Engine) StartRaid(ctx context.Context, channelID int64, spec encounter.RaidSpec) (encounter.Raid, error) {
	e.mu.Lock()
	r, err := e.raids.Start(channelID, spec)
	if err == nil {
		e.writer.MarkDirty()
	}
	e.mu.Unlock()
	if err != nil {
		return encounter.Raid{}, err
	}

	log.Info().
		Str("encounter_id", r.ID).
		Int64("channel_id", channelID).
		Int64("user_id", spec.InitiatorID).
		Str("boss", r.BossName).
		Float64("hp", r.MaxHP).
		Msg("Raid started")

	e.dispatch(ctx, []notify.Event{notify.EncounterCreated{
		Kind:        encounter.KindRaid,
		EncounterID: r.ID,
		ChannelID:   channelID,
		Theme:       r.Theme,
		Unit:        r.Unit,
		BossName:    r.BossName,
		Objective:   r.MaxHP,
		Deadline:    r.Deadline,
		InitiatorID: spec.InitiatorID,
	}})
	return r, nil
}

// CancelRaid aborts the channel's raid without rewards.
func (e *Engine) CancelRaid(ctx context.Context, channelID int64) error {
	return e.cancel(ctx, e.raids.Cancel, channelID)
}

func (e *Engine) cancel(ctx context.Context, cancel func(int64) (*encounter.Settlement, error), channelID int64) error {
	e.mu.Lock()
	s, err := cancel(channelID)
	var events []notify.Event
	if err == nil {
		events = e.settleLocked(s)
		e.writer.MarkDirty()
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.dispatch(ctx, events)
	return nil
}

// EncounterStatus returns the channel's live encounter of kind.
func (e *Engine) EncounterStatus(channelID int64, kind encounter.Kind) (*Status, error) {
	now := e.now()
	switch kind {
	case encounter.KindHunt:
		h, ok := e.hunts.Status(channelID)
		if !ok {
			return nil, encounter.ErrNoActiveHunt
		}
		return &Status{Kind: kind, Hunt: &h, Remaining: h.Remaining(now)}, nil
	case encounter.KindRaid:
		r, ok := e.raids.Status(channelID)
		if !ok {
			return nil, encounter.ErrNoActiveRaid
		}
		return &Status{Kind: kind, Raid: &r, Remaining: r.Remaining(now)}, nil
	}
	return nil, encounter.ErrUnknownKind
}

// ExpireDue resolves every encounter whose deadline has passed and returns
// how many were resolved.
func (e *Engine) ExpireDue(ctx context.Context) int {
	e.mu.Lock()
	var events []notify.Event
	resolved := 0
	for _, ch := range e.hunts.Due() {
		if s := e.hunts.Expire(ch); s != nil {
			events = append(events, e.settleLocked(s)...)
			resolved++
		}
	}
	for _, ch := range e.raids.Due() {
		if s := e.raids.Expire(ch); s != nil {
			events = append(events, e.settleLocked(s)...)
			resolved++
		}
	}
	if resolved > 0 {
		e.writer.MarkDirty()
	}
	e.mu.Unlock()

	e.dispatch(ctx, events)
	return resolved
}

// RunExpiry sweeps expired encounters every interval until ctx is done.
func (e *Engine) RunExpiry(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := e.ExpireDue(ctx); n > 0 {
				log.Debug().Int("resolved", n).Msg("Expiry sweep")
			}
		}
	}
}

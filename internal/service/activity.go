package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/notify"
	"fitrpg-bot/internal/pkg/apperr"
	"fitrpg-bot/internal/progression"
)

// tokensPerLog is the hunt entry currency earned by every accepted log.
const tokensPerLog = 1

// Report is one logged workout.
type Report struct {
	UserID    int64
	ChannelID int64
	Activity  string
	Amount    float64
	// At is the time of the report; zero means now.
	At time.Time
}

// ActivityResult describes what a report granted. On rejection only
// ErrorKind (and RetryIn for cooldowns) is set.
type ActivityResult struct {
	Activity       string
	Unit           string
	Amount         float64
	XPGained       float64
	CurrencyGained int64
	TokenGained    int64
	LevelBefore    int
	LevelAfter     int
	Streak         int

	Hunt *encounter.Contribution // set when the report counted toward a hunt
	Raid *encounter.Damage       // set when the report damaged a raid boss
	// RaidCooldown is the wait before the user's next hit counts, when a
	// matching raid skipped this report.
	RaidCooldown time.Duration

	ErrorKind apperr.Kind
	RetryIn   time.Duration
}

// ReportActivity applies a logged workout: XP, currency and a token for the
// player, then hunt progress and raid damage in the report's channel.
func (e *Engine) ReportActivity(ctx context.Context, r Report) (*ActivityResult, error) {
	res, events, err := e.reportActivity(r)
	if err != nil {
		log.Debug().Err(err).
			Int64("user_id", r.UserID).
			Str("activity", r.Activity).
			Msg("Activity rejected")
		return &ActivityResult{
			Activity:  r.Activity,
			Amount:    r.Amount,
			ErrorKind: apperr.KindOf(err),
			RetryIn:   apperr.RemainingOf(err),
		}, err
	}
	e.dispatch(ctx, events)
	return res, nil
}

func (e *Engine) reportActivity(r Report) (*ActivityResult, []notify.Event, error) {
	now := r.At
	if now.IsZero() {
		now = e.now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, known := e.peekLocked(r.UserID)
	if wait := p.CooldownRemaining(model.ActionLog, e.cooldowns.Log, now); wait > 0 {
		return nil, nil, apperr.Cooldown(string(model.ActionLog), wait)
	}

	level := progression.LevelFromXP(p.XP)
	gain, err := progression.ActivityXP(r.Activity, r.Amount, level, e.equippedBonuses(p), p.Buffs)
	if err != nil {
		return nil, nil, err
	}
	if !known {
		e.players[r.UserID] = p
	}

	a, _ := progression.LookupActivity(r.Activity)
	res := &ActivityResult{
		Activity:       r.Activity,
		Unit:           a.Unit,
		Amount:         r.Amount,
		XPGained:       gain.XP,
		CurrencyGained: gain.Currency,
		TokenGained:    tokensPerLog,
		LevelBefore:    level,
	}

	var events []notify.Event
	for _, b := range gain.ConsumedBuffs {
		p.ConsumeBuff(b)
	}
	p.Currency += gain.Currency
	p.Tokens += tokensPerLog
	p.Touch(model.ActionLog, now)
	p.MarkActive(now)
	if lu := grantXPLocked(p, r.UserID, r.ChannelID, gain.XP); lu != nil {
		events = append(events, *lu)
	}

	if c, s := e.hunts.ApplyContribution(r.ChannelID, r.UserID, r.Activity, r.Amount); c.Applied {
		res.Hunt = &c
		events = append(events, notify.ProgressUpdate{
			Kind:        encounter.KindHunt,
			EncounterID: c.HuntID,
			ChannelID:   r.ChannelID,
			UserID:      r.UserID,
			Amount:      r.Amount,
			Progress:    c.Total,
			Objective:   c.Target,
			UserTotal:   c.UserTotal,
		})
		if s != nil {
			events = append(events, e.settleLocked(s)...)
		}
	}

	if raid, ok := e.raids.Status(r.ChannelID); ok && raid.Theme == r.Activity {
		if wait := p.CooldownRemaining(model.ActionRaidHit, e.cooldowns.RaidHit, now); wait > 0 {
			res.RaidCooldown = wait
		} else if d, s := e.raids.ApplyDamage(r.ChannelID, r.UserID, r.Activity, r.Amount); d.Applied {
			p.Touch(model.ActionRaidHit, now)
			res.Raid = &d
			events = append(events, notify.ProgressUpdate{
				Kind:        encounter.KindRaid,
				EncounterID: d.RaidID,
				ChannelID:   r.ChannelID,
				UserID:      r.UserID,
				Amount:      d.Dealt,
				Progress:    d.MaxHP - d.HP,
				Objective:   d.MaxHP,
				UserTotal:   d.UserTotal,
			})
			if s != nil {
				events = append(events, e.settleLocked(s)...)
			}
		}
	}

	res.LevelAfter = progression.LevelFromXP(p.XP)
	res.Streak = p.Streak
	e.writer.MarkDirty()

	log.Info().
		Int64("user_id", r.UserID).
		Int64("channel_id", r.ChannelID).
		Str("activity", r.Activity).
		Float64("amount", r.Amount).
		Float64("xp", gain.XP).
		Msg("Activity logged")

	return res, events, nil
}

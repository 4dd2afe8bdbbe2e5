// Package service provides the Engine: every inbound operation of the bot runs
// here as one locked mutation over the shared player and encounter state.
package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"fitrpg-bot/internal/catalog"
	"fitrpg-bot/internal/config"
	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/notify"
	"fitrpg-bot/internal/progression"
	"fitrpg-bot/internal/reward"
	"fitrpg-bot/internal/store"
)

// Cooldowns holds the per-action cooldowns. Zero disables a cooldown.
type Cooldowns struct {
	Log      time.Duration
	RaidHit  time.Duration
	HuntJoin time.Duration
}

// Options configures an Engine. Zero fields take defaults.
type Options struct {
	Hunt       encounter.HuntConfig
	Raid       encounter.RaidConfig
	Cooldowns  Cooldowns
	Catalog    *catalog.Catalog
	RandSource rand.Source
	Notifier   notify.Notifier
	Gateway    store.Gateway
	FlushDelay time.Duration
	Now        func() time.Time
}

// OptionsFromConfig maps the loaded configuration onto engine options.
// Notifier and Gateway are left for the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Hunt: encounter.HuntConfig{
			Duration: time.Duration(cfg.Hunt.DurationMinutes) * time.Minute,
			Bands: map[encounter.Mode]reward.Band{
				encounter.ModeSolo:  cfg.Rewards.Hunt.Solo,
				encounter.ModeTrio:  cfg.Rewards.Hunt.Trio,
				encounter.ModeParty: cfg.Rewards.Hunt.Party,
			},
			Consolation: reward.Consolation(cfg.Rewards.Hunt.ConsolationMin, cfg.Rewards.Hunt.ConsolationMax),
		},
		Raid: encounter.RaidConfig{
			DefaultDuration: time.Duration(cfg.Raid.DefaultDurationHours) * time.Hour,
			Victory:         cfg.Rewards.Raid.Band,
			Consolation:     reward.Consolation(cfg.Rewards.Raid.ConsolationMin, cfg.Rewards.Raid.ConsolationMax),
		},
		Cooldowns: Cooldowns{
			Log:      cfg.Cooldowns.Log(),
			RaidHit:  cfg.Cooldowns.RaidHit(),
			HuntJoin: cfg.Cooldowns.HuntJoin(),
		},
		FlushDelay: cfg.Storage.FlushDelay,
	}
	if seed := cfg.Engine.Seed; seed != 0 {
		opts.RandSource = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
	return opts
}

// Engine owns players, live encounters and the item catalog.
type Engine struct {
	mu        sync.Mutex
	players   map[int64]*model.Player
	catalog   *catalog.Catalog
	overrides []catalog.Item // persisted catalog replacement, empty for the default

	hunts   *encounter.HuntEngine
	raids   *encounter.RaidEngine
	rewards *reward.Resolver

	cooldowns Cooldowns
	notifier  notify.Notifier
	gateway   store.Gateway
	writer    *store.Writer
	now       func() time.Time
}

// NewEngine creates a new Engine instance.
func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop
	}
	if opts.Gateway == nil {
		opts.Gateway = store.NewMemoryGateway()
	}
	if opts.Hunt.Bands == nil {
		def := encounter.DefaultHuntConfig()
		opts.Hunt.Bands, opts.Hunt.Consolation = def.Bands, def.Consolation
	}
	if opts.Raid.Victory == (reward.Band{}) {
		def := encounter.DefaultRaidConfig()
		opts.Raid.Victory, opts.Raid.Consolation = def.Victory, def.Consolation
	}

	e := &Engine{
		players:   make(map[int64]*model.Player),
		catalog:   opts.Catalog,
		hunts:     encounter.NewHuntEngine(opts.Hunt, opts.Now),
		raids:     encounter.NewRaidEngine(opts.Raid, opts.Now),
		rewards:   reward.NewResolver(opts.Catalog, opts.RandSource),
		cooldowns: opts.Cooldowns,
		notifier:  opts.Notifier,
		gateway:   opts.Gateway,
		now:       opts.Now,
	}
	e.writer = store.NewWriter(opts.Gateway, e.Snapshot, opts.FlushDelay)
	return e
}

// RunPersistence runs the write-behind flusher until ctx is done.
func (e *Engine) RunPersistence(ctx context.Context) error {
	return e.writer.Run(ctx)
}

// Flush saves pending changes synchronously.
func (e *Engine) Flush(ctx context.Context) error {
	return e.writer.Flush(ctx)
}

// Catalog returns the active item catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog
}

// playerLocked returns the player record, creating it on first interaction.
// Must be called with e.mu held.
func (e *Engine) playerLocked(userID int64) *model.Player {
	p, ok := e.players[userID]
	if !ok {
		p = model.NewPlayer()
		e.players[userID] = p
	}
	return p
}

// peekLocked returns the stored record of userID, or a blank record that is
// not stored yet. Operations that may reject store it on success.
// Must be called with e.mu held.
func (e *Engine) peekLocked(userID int64) (*model.Player, bool) {
	if p, ok := e.players[userID]; ok {
		return p, true
	}
	return model.NewPlayer(), false
}

// equippedBonuses returns the passive bonuses of p's equipped items.
func (e *Engine) equippedBonuses(p *model.Player) []catalog.Bonus {
	var out []catalog.Bonus
	for _, slot := range model.Slots {
		name := p.Equipped[slot]
		if name == "" {
			continue
		}
		it, ok := e.catalog.Get(name)
		if !ok {
			continue
		}
		if b, ok := it.PassiveBonus(); ok {
			out = append(out, b)
		}
	}
	return out
}

// grantXPLocked adds xp and returns a LevelUp event when the level changed.
func grantXPLocked(p *model.Player, userID, channelID int64, xp float64) *notify.LevelUp {
	before := progression.LevelFromXP(p.XP)
	p.XP += xp
	after := progression.LevelFromXP(p.XP)
	if after <= before {
		return nil
	}
	return &notify.LevelUp{
		UserID:    userID,
		ChannelID: channelID,
		From:      before,
		To:        after,
		Title:     progression.LevelTitle(after),
		MaxTier:   progression.MaxTierUnlocked(after),
	}
}

// settleLocked pays out a settlement and returns the events describing it.
// Must be called with e.mu held.
func (e *Engine) settleLocked(s *encounter.Settlement) []notify.Event {
	resolved := notify.Resolved{
		Kind:             s.Kind,
		EncounterID:      s.EncounterID,
		ChannelID:        s.ChannelID,
		Theme:            s.Theme,
		Unit:             s.Unit,
		Outcome:          s.Outcome,
		Mode:             s.Mode,
		BossName:         s.BossName,
		Progress:         s.Progress,
		Objective:        s.Objective,
		DepletedFraction: s.DepletedFraction,
	}

	var extra []notify.Event
	pays := s.Pays()
	for _, part := range s.Participants {
		payout := notify.Payout{UserID: part.UserID, Contribution: part.Contribution}
		if pays {
			p := e.playerLocked(part.UserID)
			guaranteed := p.HasBuff(model.BuffGuaranteedLoot)

			r := e.rewards.Roll(s.Band, p.XP, reward.Options{GuaranteedGear: guaranteed})
			if guaranteed && r.GearRolled {
				p.ConsumeBuff(model.BuffGuaranteedLoot)
			}

			payout.XP, payout.Currency = r.XP, r.Currency
			p.Currency += r.Currency
			if lu := grantXPLocked(p, part.UserID, s.ChannelID, float64(r.XP)); lu != nil {
				extra = append(extra, *lu)
			}
			if r.Item != nil {
				p.Inventory = append(p.Inventory, r.Item.Name)
				payout.Item, payout.ItemTier = r.Item.Name, r.Item.EffectiveTier()
				extra = append(extra, notify.ItemAcquired{
					UserID:    part.UserID,
					ChannelID: s.ChannelID,
					Item:      r.Item.Name,
					Tier:      r.Item.EffectiveTier(),
					Source:    s.Kind,
				})
			}
		}
		resolved.Payouts = append(resolved.Payouts, payout)
	}

	log.Info().
		Str("kind", string(s.Kind)).
		Str("encounter_id", s.EncounterID).
		Int64("channel_id", s.ChannelID).
		Str("outcome", string(s.Outcome)).
		Bool("won", s.Outcome.Won()).
		Int("participants", len(s.Participants)).
		Msg("Encounter resolved")

	return append([]notify.Event{resolved}, extra...)
}

// dispatch delivers events after the mutation step. Failures are logged and
// never undo the mutation.
func (e *Engine) dispatch(ctx context.Context, events []notify.Event) {
	for _, ev := range events {
		if err := e.notifier.Notify(ctx, ev); err != nil {
			log.Warn().Err(err).
				Int64("channel_id", ev.Channel()).
				Str("event", eventName(ev)).
				Msg("Failed to deliver notification")
		}
	}
}

func eventName(ev notify.Event) string {
	switch ev.(type) {
	case notify.EncounterCreated:
		return "encounter_created"
	case notify.ProgressUpdate:
		return "progress_update"
	case notify.Resolved:
		return "resolved"
	case notify.LevelUp:
		return "level_up"
	case notify.ItemAcquired:
		return "item_acquired"
	}
	return "unknown"
}

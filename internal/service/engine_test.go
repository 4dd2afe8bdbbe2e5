package service

import (
	"context"
	"errors"
	"maps"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/notify"
	"fitrpg-bot/internal/pkg/apperr"
	"fitrpg-bot/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

const (
	channel int64 = -1001
	alice   int64 = 101
	bob     int64 = 202
	carol   int64 = 303
)

type harness struct {
	engine *Engine
	clock  *fakeClock
	events *notify.Recorder
	gw     *store.MemoryGateway
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		clock:  newFakeClock(),
		events: &notify.Recorder{},
		gw:     store.NewMemoryGateway(),
	}
	opts := Options{
		RandSource: rand.NewPCG(7, 11),
		Notifier:   h.events,
		Gateway:    h.gw,
		Now:        h.clock.Now,
	}
	for _, m := range mutate {
		m(&opts)
	}
	h.engine = NewEngine(opts)
	return h
}

func (h *harness) log(t *testing.T, user int64, activity string, amount float64) *ActivityResult {
	t.Helper()
	res, err := h.engine.ReportActivity(context.Background(), Report{
		UserID: user, ChannelID: channel, Activity: activity, Amount: amount,
	})
	require.NoError(t, err)
	return res
}

// player returns a deep copy of the user's record.
func (h *harness) player(user int64) model.Player {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	p := *model.NewPlayer()
	if stored, ok := h.engine.players[user]; ok {
		p = *stored
	}
	p.Inventory = append([]string{}, p.Inventory...)
	p.Equipped = maps.Clone(p.Equipped)
	p.Cooldowns = maps.Clone(p.Cooldowns)
	p.Buffs = maps.Clone(p.Buffs)
	return p
}

func (h *harness) setPlayer(user int64, fn func(p *model.Player)) {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	fn(h.engine.playerLocked(user))
}

func eventsOf[T notify.Event](evs []notify.Event) []T {
	var out []T
	for _, ev := range evs {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestReportActivityGrants(t *testing.T) {
	h := newHarness(t)

	res := h.log(t, alice, "pushups", 100)

	assert.Equal(t, 66.0, res.XPGained)
	assert.Equal(t, int64(22), res.CurrencyGained)
	assert.Equal(t, int64(1), res.TokenGained)
	assert.Equal(t, "reps", res.Unit)
	assert.Empty(t, res.ErrorKind)
	assert.Nil(t, res.Hunt)
	assert.Nil(t, res.Raid)

	p := h.player(alice)
	assert.Equal(t, 66.0, p.XP)
	assert.Equal(t, int64(22), p.Currency)
	assert.Equal(t, int64(1), p.Tokens)
	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, "2024-03-01", p.LastActiveDate)
}

func TestReportActivityLevelUp(t *testing.T) {
	h := newHarness(t)

	res := h.log(t, alice, "run_miles", 3) // 3 * 40 * 1.2 = 144

	assert.Equal(t, 0, res.LevelBefore)
	assert.Equal(t, 1, res.LevelAfter)
	ups := eventsOf[notify.LevelUp](h.events.Events())
	require.Len(t, ups, 1)
	assert.Equal(t, 0, ups[0].From)
	assert.Equal(t, 1, ups[0].To)
	assert.Equal(t, channel, ups[0].ChannelID)
	assert.Equal(t, 1, ups[0].MaxTier)
}

func TestReportActivityRejectionsLeaveStateUntouched(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Cooldowns.Log = 10 * time.Second })
	ctx := context.Background()

	h.log(t, alice, "pushups", 10)
	before := h.player(alice)

	res, err := h.engine.ReportActivity(ctx, Report{UserID: alice, ChannelID: channel, Activity: "pushups", Amount: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrCooldown))
	assert.Equal(t, apperr.KindCooldown, res.ErrorKind)
	assert.Equal(t, 10*time.Second, res.RetryIn)
	assert.Equal(t, before, h.player(alice))

	h.clock.Advance(10 * time.Second)

	res, err = h.engine.ReportActivity(ctx, Report{UserID: alice, ChannelID: channel, Activity: "yoga", Amount: 10})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, res.ErrorKind)

	_, err = h.engine.ReportActivity(ctx, Report{UserID: alice, ChannelID: channel, Activity: "pushups", Amount: 0})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Equal(t, before, h.player(alice), "rejected reports do not touch the record")

	h.log(t, alice, "pushups", 10)
	assert.Equal(t, int64(2), h.player(alice).Tokens)
}

func TestRejectedReportFromNewPlayerStoresNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.StartHunt(ctx, channel, alice, 3, "pushups")
	require.NoError(t, err)
	eventsBefore := len(h.events.Events())
	before, err := h.engine.Snapshot()
	require.NoError(t, err)

	_, err = h.engine.ReportActivity(ctx, Report{UserID: 999, ChannelID: channel, Activity: "yoga", Amount: 10})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = h.engine.ReportActivity(ctx, Report{UserID: 999, ChannelID: channel, Activity: "pushups", Amount: -5})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = h.engine.JoinHunt(ctx, channel, 999)
	require.ErrorIs(t, err, ErrNoTokens)
	_, err = h.engine.Buy(ctx, 999, "Wooden Club")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	_, _, err = h.engine.Equip(ctx, 999, "Wooden Club")
	require.ErrorIs(t, err, ErrNotOwned)

	after, err := h.engine.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Empty(t, h.engine.Leaderboard(10))
	assert.Len(t, h.events.Events(), eventsBefore)
}

func TestReportActivityConsumesBuffs(t *testing.T) {
	h := newHarness(t)
	h.setPlayer(alice, func(p *model.Player) {
		p.AddBuff(model.BuffDoubleXP)
		p.AddBuff(model.BuffGuaranteedLoot)
	})

	res := h.log(t, alice, "pushups", 100)

	assert.Equal(t, 132.0, res.XPGained)
	p := h.player(alice)
	assert.False(t, p.HasBuff(model.BuffDoubleXP))
	assert.True(t, p.HasBuff(model.BuffGuaranteedLoot), "loot buff is kept for encounters")
}

func TestReportActivityEquippedBonus(t *testing.T) {
	h := newHarness(t)
	h.setPlayer(alice, func(p *model.Player) {
		p.Inventory = append(p.Inventory, "Pocket Slime")
		p.Equipped[model.SlotPet] = "Pocket Slime"
	})

	res := h.log(t, alice, "pushups", 100) // 66 * 1.02 = 67.32

	assert.Equal(t, 67.0, res.XPGained)
}

func TestNotifierFailureDoesNotRollBack(t *testing.T) {
	h := newHarness(t)
	h.events.Err = errors.New("telegram down")
	ctx := context.Background()

	_, err := h.engine.StartHunt(ctx, channel, alice, 1, "pushups")
	require.NoError(t, err)
	h.setPlayer(alice, func(p *model.Player) { p.Tokens = 1 })
	_, err = h.engine.JoinHunt(ctx, channel, alice)
	require.NoError(t, err)

	res := h.log(t, alice, "pushups", 100)

	require.NotNil(t, res.Hunt)
	assert.True(t, res.Hunt.Applied)
	_, err = h.engine.EncounterStatus(channel, encounter.KindHunt)
	assert.ErrorIs(t, err, encounter.ErrNoActiveHunt)

	resolved := eventsOf[notify.Resolved](h.events.Events())
	require.Len(t, resolved, 1, "delivery was attempted once")
	require.Len(t, resolved[0].Payouts, 1)
	p := h.player(alice)
	assert.Equal(t, 66.0+float64(resolved[0].Payouts[0].XP), p.XP)
	assert.Equal(t, 22+resolved[0].Payouts[0].Currency, p.Currency)
}

func TestFlushPersistsThroughGateway(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.log(t, alice, "squats", 40)
	require.NoError(t, h.engine.Flush(ctx))
	assert.Equal(t, 1, h.gw.Saves())

	require.NoError(t, h.engine.Flush(ctx))
	assert.Equal(t, 1, h.gw.Saves(), "clean engine does not save")

	reloaded := NewEngine(Options{Gateway: h.gw, Now: h.clock.Now})
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, h.engine.Profile(alice), reloaded.Profile(alice))
}

func TestLoadWithoutStateStartsFresh(t *testing.T) {
	e := NewEngine(Options{Gateway: store.NewMemoryGateway()})
	require.NoError(t, e.Load(context.Background()))
	assert.Empty(t, e.Leaderboard(10))
}

func TestLoadIsLenient(t *testing.T) {
	gw := store.NewMemoryGateway()
	blob := `{
		"users": {
			"101": {"xp": 500, "coins": 40, "tokens": 2, "inventory": ["Wooden Club"], "equipped": {"weapon": "Wooden Club"}, "lastLog": 1700000000000},
			"202": {"xp": "lots"},
			"oops": {"xp": 1}
		},
		"hunts": {"-1001": {"mode": "solo", "exercise": "pushups", "target": 100, "total": 20, "maxParty": 1,
			"deadline": "2024-03-01T13:00:00Z", "participants": {"101": {"contribution": 20}}}},
		"raids": {
			"-1001": {"exercise": "squats", "hp": 5, "hpMax": 10, "deadline": 1709298000000,
				"startedBy": "555", "participants": {"101": 5, "202": 2.5}, "done": false},
			"-1002": {"exercise": "squats", "hp": 0, "hpMax": 10, "deadline": 1709298000000, "participants": {}, "done": true}
		},
		"shop": {"items": [
			{"name": "Twig", "type": "weapon", "tier": 1, "atk": 1, "price": 5},
			{"name": "Mystery", "type": "spell", "price": 1}
		]},
		"artMap": {"x": "y"}
	}`
	require.NoError(t, gw.Save(context.Background(), []byte(blob)))

	clk := newFakeClock()
	e := NewEngine(Options{Gateway: gw, Now: clk.Now})
	require.NoError(t, e.Load(context.Background()))

	prof := e.Profile(101)
	assert.Equal(t, 500.0, prof.XP)
	assert.Equal(t, int64(2), prof.Tokens)
	assert.Equal(t, 0, prof.Attack, "Wooden Club is not in the override catalog")

	assert.Len(t, e.Leaderboard(10), 1, "malformed players are skipped")

	st, err := e.EncounterStatus(channel, encounter.KindHunt)
	require.NoError(t, err)
	assert.Equal(t, 20.0, st.Hunt.Total)
	assert.Equal(t, int64(101), st.Hunt.Participants[101].UserID)
	assert.NotEmpty(t, st.Hunt.ID)

	st, err = e.EncounterStatus(channel, encounter.KindRaid)
	require.NoError(t, err)
	assert.Equal(t, 5.0, st.Raid.HP)
	assert.Equal(t, int64(555), st.Raid.InitiatorID)
	assert.True(t, st.Raid.Deadline.Equal(time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)))
	require.Len(t, st.Raid.Participants, 2)
	assert.Equal(t, 5.0, st.Raid.Participants[101].Contribution)
	assert.Equal(t, int64(202), st.Raid.Participants[202].UserID)
	assert.Equal(t, 2.5, st.Raid.Participants[202].Contribution)

	_, err = e.EncounterStatus(-1002, encounter.KindRaid)
	assert.ErrorIs(t, err, encounter.ErrNoActiveRaid, "finished legacy raids are not revived")

	page := e.Shop(1)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Twig", page.Items[0].Name)
}

func TestLoadRejectsGarbage(t *testing.T) {
	gw := store.NewMemoryGateway()
	require.NoError(t, gw.Save(context.Background(), []byte("not json")))

	e := NewEngine(Options{Gateway: gw})
	assert.Error(t, e.Load(context.Background()))
}

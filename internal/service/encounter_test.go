package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitrpg-bot/internal/catalog"
	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/notify"
	"fitrpg-bot/internal/pkg/apperr"
)

func TestJoinHuntChargesTokenOnFreshJoin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.JoinHunt(ctx, channel, alice)
	assert.ErrorIs(t, err, encounter.ErrNoActiveHunt)

	_, err = h.engine.StartHunt(ctx, channel, alice, 3, "squats")
	require.NoError(t, err)

	_, err = h.engine.JoinHunt(ctx, channel, alice)
	assert.ErrorIs(t, err, ErrNoTokens)

	h.log(t, alice, "situps", 10)
	h.log(t, alice, "situps", 10)
	require.Equal(t, int64(2), h.player(alice).Tokens)

	joined, err := h.engine.JoinHunt(ctx, channel, alice)
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Equal(t, int64(1), h.player(alice).Tokens)

	joined, err = h.engine.JoinHunt(ctx, channel, alice)
	require.NoError(t, err)
	assert.False(t, joined)
	assert.Equal(t, int64(1), h.player(alice).Tokens, "re-join is free")
}

func TestJoinHuntCooldown(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Cooldowns.HuntJoin = 30 * time.Second })
	ctx := context.Background()
	h.setPlayer(alice, func(p *model.Player) { p.Tokens = 5 })

	_, err := h.engine.StartHunt(ctx, channel, alice, 2, "pushups")
	require.NoError(t, err)
	_, err = h.engine.JoinHunt(ctx, channel, alice)
	require.NoError(t, err)
	require.NoError(t, h.engine.LeaveHunt(ctx, channel, alice))

	// leaving the only seat abandons the hunt
	_, err = h.engine.EncounterStatus(channel, encounter.KindHunt)
	require.ErrorIs(t, err, encounter.ErrNoActiveHunt)
	resolved := eventsOf[notify.Resolved](h.events.Events())
	require.Len(t, resolved, 1)
	assert.Equal(t, encounter.OutcomeAbandoned, resolved[0].Outcome)
	require.Len(t, resolved[0].Payouts, 1)
	assert.Equal(t, notify.Payout{UserID: alice}, resolved[0].Payouts[0])

	_, err = h.engine.StartHunt(ctx, channel, bob, 2, "pushups")
	require.NoError(t, err)
	_, err = h.engine.JoinHunt(ctx, channel, alice)
	assert.True(t, apperr.IsKind(err, apperr.KindCooldown))
	assert.Equal(t, int64(4), h.player(alice).Tokens)

	h.clock.Advance(30 * time.Second)
	joined, err := h.engine.JoinHunt(ctx, channel, alice)
	require.NoError(t, err)
	assert.True(t, joined)
}

func TestJoinHuntPartyFull(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, u := range []int64{alice, bob} {
		h.setPlayer(u, func(p *model.Player) { p.Tokens = 1 })
	}

	_, err := h.engine.StartHunt(ctx, channel, alice, 1, "pushups")
	require.NoError(t, err)
	_, err = h.engine.JoinHunt(ctx, channel, alice)
	require.NoError(t, err)

	_, err = h.engine.JoinHunt(ctx, channel, bob)
	assert.ErrorIs(t, err, encounter.ErrPartyFull)
	assert.Equal(t, int64(1), h.player(bob).Tokens)
}

func TestHuntSuccessPaysEveryParticipant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	hunt, err := h.engine.StartHunt(ctx, channel, alice, 3, "pushups")
	require.NoError(t, err)
	assert.Equal(t, encounter.ModeTrio, hunt.Mode)
	assert.Equal(t, 500.0, hunt.Target)

	for _, u := range []int64{alice, bob, carol} {
		h.setPlayer(u, func(p *model.Player) { p.Tokens = 1 })
		_, err := h.engine.JoinHunt(ctx, channel, u)
		require.NoError(t, err)
	}

	r1 := h.log(t, alice, "pushups", 200)
	require.NotNil(t, r1.Hunt)
	assert.Equal(t, 200.0, r1.Hunt.Total)
	h.log(t, bob, "squats", 300) // wrong theme
	h.log(t, bob, "pushups", 150)
	r3 := h.log(t, carol, "pushups", 150)
	require.NotNil(t, r3.Hunt)
	assert.Equal(t, 500.0, r3.Hunt.Total)

	evs := h.events.Events()
	created := eventsOf[notify.EncounterCreated](evs)
	require.Len(t, created, 1)
	assert.Equal(t, hunt.ID, created[0].EncounterID)
	assert.Len(t, eventsOf[notify.ProgressUpdate](evs), 3)

	resolved := eventsOf[notify.Resolved](evs)
	require.Len(t, resolved, 1)
	res := resolved[0]
	assert.Equal(t, encounter.OutcomeSuccess, res.Outcome)
	require.Len(t, res.Payouts, 3)

	wantContrib := map[int64]float64{alice: 200, bob: 150, carol: 150}
	band := encounter.DefaultHuntConfig().Bands[encounter.ModeTrio]
	for _, pay := range res.Payouts {
		assert.Equal(t, wantContrib[pay.UserID], pay.Contribution)
		assert.GreaterOrEqual(t, pay.XP, band.XPMin)
		assert.LessOrEqual(t, pay.XP, band.XPMax)
		assert.GreaterOrEqual(t, pay.Currency, band.CurrencyMin)
		assert.LessOrEqual(t, pay.Currency, band.CurrencyMax)
		if pay.Item != "" {
			assert.Contains(t, h.player(pay.UserID).Inventory, pay.Item)
		}
	}

	_, err = h.engine.EncounterStatus(channel, encounter.KindHunt)
	assert.ErrorIs(t, err, encounter.ErrNoActiveHunt)

	// further matching logs count for nothing
	r4 := h.log(t, alice, "pushups", 10)
	assert.Nil(t, r4.Hunt)
}

func TestHuntExpiryPaysConsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setPlayer(alice, func(p *model.Player) { p.Tokens = 1 })

	_, err := h.engine.StartHunt(ctx, channel, alice, 1, "burpees")
	require.NoError(t, err)
	_, err = h.engine.JoinHunt(ctx, channel, alice)
	require.NoError(t, err)
	h.log(t, alice, "burpees", 10)
	xpBefore := h.player(alice).XP
	coinsBefore := h.player(alice).Currency

	assert.Zero(t, h.engine.ExpireDue(ctx), "nothing is due yet")
	h.clock.Advance(time.Hour)
	assert.Equal(t, 1, h.engine.ExpireDue(ctx))
	assert.Zero(t, h.engine.ExpireDue(ctx), "resolution happens once")

	resolved := eventsOf[notify.Resolved](h.events.Events())
	require.Len(t, resolved, 1)
	assert.Equal(t, encounter.OutcomeFailure, resolved[0].Outcome)
	require.Len(t, resolved[0].Payouts, 1)
	pay := resolved[0].Payouts[0]
	assert.Zero(t, pay.XP)
	assert.Empty(t, pay.Item)
	assert.GreaterOrEqual(t, pay.Currency, int64(30))
	assert.LessOrEqual(t, pay.Currency, int64(70))

	p := h.player(alice)
	assert.Equal(t, xpBefore, p.XP)
	assert.Equal(t, coinsBefore+pay.Currency, p.Currency)
}

func TestCancelHuntPaysNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.engine.CancelHunt(ctx, channel), encounter.ErrNoActiveHunt)

	_, err := h.engine.StartHunt(ctx, channel, alice, 5, "pullups")
	require.NoError(t, err)
	require.NoError(t, h.engine.CancelHunt(ctx, channel))

	resolved := eventsOf[notify.Resolved](h.events.Events())
	require.Len(t, resolved, 1)
	assert.Equal(t, encounter.OutcomeCancelled, resolved[0].Outcome)
	assert.Empty(t, resolved[0].Payouts)
}

func TestRaidHitCooldownSkipsDamageOnly(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Cooldowns.RaidHit = 8 * time.Second })
	ctx := context.Background()

	_, err := h.engine.StartRaid(ctx, channel, encounter.RaidSpec{Theme: "pushups", HP: 100, InitiatorID: alice})
	require.NoError(t, err)

	r1 := h.log(t, bob, "pushups", 30)
	require.NotNil(t, r1.Raid)
	assert.Equal(t, 70.0, r1.Raid.HP)

	r2 := h.log(t, bob, "pushups", 30)
	assert.Nil(t, r2.Raid)
	assert.Equal(t, 8*time.Second, r2.RaidCooldown)
	assert.Positive(t, r2.XPGained, "the log itself still counts")

	r3 := h.log(t, bob, "squats", 30)
	assert.Zero(t, r3.RaidCooldown, "other exercises do not touch the raid")

	h.clock.Advance(8 * time.Second)
	r4 := h.log(t, bob, "pushups", 30)
	require.NotNil(t, r4.Raid)
	assert.Equal(t, 40.0, r4.Raid.HP)
	assert.Equal(t, 60.0, r4.Raid.UserTotal)

	st, err := h.engine.EncounterStatus(channel, encounter.KindRaid)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, st.Raid.DepletedFraction(), 1e-9)
	assert.Equal(t, 24*time.Hour-8*time.Second, st.Remaining)
}

func TestRaidVictoryHonoursGuaranteedLoot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.setPlayer(alice, func(p *model.Player) { p.Currency = 500 })
	_, err := h.engine.Buy(ctx, alice, "treasure map")
	require.NoError(t, err)
	_, err = h.engine.UseItem(ctx, alice, "Treasure Map")
	require.NoError(t, err)
	require.True(t, h.player(alice).HasBuff(model.BuffGuaranteedLoot))

	_, err = h.engine.StartRaid(ctx, channel, encounter.RaidSpec{Theme: "plank", HP: 60})
	require.NoError(t, err)
	res := h.log(t, alice, "plank", 90)
	require.NotNil(t, res.Raid)
	assert.Equal(t, 60.0, res.Raid.Dealt, "damage is clamped to the remaining HP")

	evs := h.events.Events()
	resolved := eventsOf[notify.Resolved](evs)
	require.Len(t, resolved, 1)
	assert.Equal(t, encounter.OutcomeVictory, resolved[0].Outcome)
	assert.Equal(t, 1.0, resolved[0].DepletedFraction)
	require.Len(t, resolved[0].Payouts, 1)
	pay := resolved[0].Payouts[0]
	require.NotEmpty(t, pay.Item)
	assert.Equal(t, 1, pay.ItemTier, "a new player only rolls tier 1 gear")

	acquired := eventsOf[notify.ItemAcquired](evs)
	require.Len(t, acquired, 1)
	assert.Equal(t, pay.Item, acquired[0].Item)
	assert.Equal(t, encounter.KindRaid, acquired[0].Source)

	p := h.player(alice)
	assert.False(t, p.HasBuff(model.BuffGuaranteedLoot))
	assert.Contains(t, p.Inventory, pay.Item)
	it, ok := h.engine.Catalog().Get(pay.Item)
	require.True(t, ok)
	assert.True(t, it.IsGear())
}

func TestRaidTimeUpKeepsGuaranteedLoot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setPlayer(alice, func(p *model.Player) { p.AddBuff(model.BuffGuaranteedLoot) })

	_, err := h.engine.StartRaid(ctx, channel, encounter.RaidSpec{Theme: "squats", HP: 100, Duration: time.Hour})
	require.NoError(t, err)
	h.log(t, alice, "squats", 25)

	h.clock.Advance(time.Hour)
	require.Equal(t, 1, h.engine.ExpireDue(ctx))

	resolved := eventsOf[notify.Resolved](h.events.Events())
	require.Len(t, resolved, 1)
	assert.Equal(t, encounter.OutcomeTimeUp, resolved[0].Outcome)
	assert.InDelta(t, 0.25, resolved[0].DepletedFraction, 1e-9)
	require.Len(t, resolved[0].Payouts, 1)
	assert.Zero(t, resolved[0].Payouts[0].XP)
	assert.Empty(t, resolved[0].Payouts[0].Item)
	assert.True(t, h.player(alice).HasBuff(model.BuffGuaranteedLoot), "consolation has no gear roll")
}

func TestCancelRaid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.StartRaid(ctx, channel, encounter.RaidSpec{Theme: "pushups"})
	require.NoError(t, err)
	_, err = h.engine.StartRaid(ctx, channel, encounter.RaidSpec{Theme: "pushups"})
	assert.ErrorIs(t, err, encounter.ErrRaidActive)

	require.NoError(t, h.engine.CancelRaid(ctx, channel))
	assert.ErrorIs(t, h.engine.CancelRaid(ctx, channel), encounter.ErrNoActiveRaid)
}

func TestCancelRaidListsContributors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.StartRaid(ctx, channel, encounter.RaidSpec{Theme: "squats", HP: 1000})
	require.NoError(t, err)
	h.log(t, alice, "squats", 30)
	h.log(t, bob, "squats", 20)
	coins := h.player(alice).Currency

	require.NoError(t, h.engine.CancelRaid(ctx, channel))

	resolved := eventsOf[notify.Resolved](h.events.Events())
	require.Len(t, resolved, 1)
	assert.Equal(t, encounter.OutcomeCancelled, resolved[0].Outcome)
	assert.Equal(t, []notify.Payout{
		{UserID: alice, Contribution: 30},
		{UserID: bob, Contribution: 20},
	}, resolved[0].Payouts)
	assert.Equal(t, coins, h.player(alice).Currency, "cancellation pays nothing")
}

func TestLeaveHuntAfterDeadlineKeepsConsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setPlayer(alice, func(p *model.Player) { p.Tokens = 1 })

	_, err := h.engine.StartHunt(ctx, channel, alice, 1, "pushups")
	require.NoError(t, err)
	_, err = h.engine.JoinHunt(ctx, channel, alice)
	require.NoError(t, err)
	coins := h.player(alice).Currency

	h.clock.Advance(61 * time.Minute)
	assert.ErrorIs(t, h.engine.LeaveHunt(ctx, channel, alice), encounter.ErrHuntClosed)
	assert.Empty(t, eventsOf[notify.Resolved](h.events.Events()))

	require.Equal(t, 1, h.engine.ExpireDue(ctx))
	resolved := eventsOf[notify.Resolved](h.events.Events())
	require.Len(t, resolved, 1)
	assert.Equal(t, encounter.OutcomeFailure, resolved[0].Outcome)
	require.Len(t, resolved[0].Payouts, 1)
	pay := resolved[0].Payouts[0]
	assert.GreaterOrEqual(t, pay.Currency, int64(30))
	assert.LessOrEqual(t, pay.Currency, int64(70))
	assert.Equal(t, coins+pay.Currency, h.player(alice).Currency)
}

func TestEncounterStatusUnknownKind(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.EncounterStatus(channel, encounter.Kind("duel"))
	assert.ErrorIs(t, err, encounter.ErrUnknownKind)
}

// TestConcurrentResolutionHappensOnce races threshold-crossing logs against
// expiry sweeps; exactly one Resolved event may come out.
func TestConcurrentResolutionHappensOnce(t *testing.T) {
	for round := 0; round < 20; round++ {
		h := newHarness(t)
		ctx := context.Background()

		_, err := h.engine.StartRaid(ctx, channel, encounter.RaidSpec{Theme: "pushups", HP: 50, Duration: time.Minute})
		require.NoError(t, err)
		h.clock.Advance(59 * time.Second)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func(u int64) {
				defer wg.Done()
				_, _ = h.engine.ReportActivity(ctx, Report{UserID: u, ChannelID: channel, Activity: "pushups", Amount: 10})
			}(int64(i + 1))
			go func() {
				defer wg.Done()
				h.clock.Advance(200 * time.Millisecond)
				h.engine.ExpireDue(ctx)
			}()
		}
		wg.Wait()
		h.clock.Advance(time.Minute)
		h.engine.ExpireDue(ctx)

		assert.Len(t, eventsOf[notify.Resolved](h.events.Events()), 1)
	}
}

func TestBuyTierGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setPlayer(alice, func(p *model.Player) { p.Currency = 10_000 })

	_, err := h.engine.Buy(ctx, alice, "Iron Sword")
	assert.ErrorIs(t, err, catalog.ErrTierLocked)
	assert.Equal(t, int64(10_000), h.player(alice).Currency)

	_, err = h.engine.Buy(ctx, alice, "Excalibur")
	assert.ErrorIs(t, err, catalog.ErrItemNotFound)

	it, err := h.engine.Buy(ctx, alice, "wooden club")
	require.NoError(t, err)
	assert.Equal(t, "Wooden Club", it.Name)
	p := h.player(alice)
	assert.Equal(t, int64(10_000-120), p.Currency)
	assert.Equal(t, []string{"Wooden Club"}, p.Inventory)
}

func TestBuyInsufficientFunds(t *testing.T) {
	h := newHarness(t)
	h.setPlayer(alice, func(p *model.Player) { p.Currency = 50 })

	_, err := h.engine.Buy(context.Background(), alice, "Health Potion")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, h.player(alice).Inventory)
}

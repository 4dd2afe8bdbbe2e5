package encounter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRaidStartDefaults(t *testing.T) {
	clk := newFakeClock()
	e := NewRaidEngine(DefaultRaidConfig(), clk.Now)

	r, err := e.Start(channel, RaidSpec{Theme: "plank", InitiatorID: 9})
	require.NoError(t, err)
	assert.Equal(t, "Timebound Phantom", r.BossName)
	assert.Equal(t, 36000.0, r.HP)
	assert.Equal(t, r.HP, r.MaxHP)
	assert.Equal(t, "seconds", r.Unit)
	assert.Equal(t, clk.Now().Add(24*time.Hour), r.Deadline)

	_, err = e.Start(channel, RaidSpec{Theme: "pushups"})
	assert.ErrorIs(t, err, ErrRaidActive)

	r2, err := e.Start(channel+1, RaidSpec{Theme: "dips", HP: 300, Duration: 2 * time.Hour, BossName: " Gate Keeper "})
	require.NoError(t, err)
	assert.Equal(t, "Gate Keeper", r2.BossName)
	assert.Equal(t, 300.0, r2.MaxHP)
	assert.Equal(t, clk.Now().Add(2*time.Hour), r2.Deadline)

	assert.Equal(t, "Ancient Sovereign", BossName("dips"))
	assert.Equal(t, 800.0, BossHP("run_miles"))

	_, err = e.Start(channel+2, RaidSpec{Theme: "pushups", HP: -1})
	assert.ErrorIs(t, err, ErrInvalidHP)
	_, err = e.Start(channel+2, RaidSpec{Theme: "yodel"})
	assert.ErrorIs(t, err, ErrUnsupportedTheme)
}

// The worked example: hp 500, three contributors deal 200/150/150.
func TestRaidVictoryExample(t *testing.T) {
	clk := newFakeClock()
	e := NewRaidEngine(DefaultRaidConfig(), clk.Now)
	_, err := e.Start(channel, RaidSpec{Theme: "pushups", HP: 500})
	require.NoError(t, err)

	d, s := e.ApplyDamage(channel, 1, "pushups", 200)
	assert.True(t, d.Applied)
	assert.Equal(t, 300.0, d.HP)
	assert.Nil(t, s)

	clk.Advance(time.Minute)
	_, s = e.ApplyDamage(channel, 2, "pushups", 150)
	assert.Nil(t, s)
	clk.Advance(time.Minute)
	d, s = e.ApplyDamage(channel, 3, "pushups", 150)
	assert.Equal(t, 0.0, d.HP)
	require.NotNil(t, s)

	assert.Equal(t, OutcomeVictory, s.Outcome)
	assert.Equal(t, DefaultRaidConfig().Victory, s.Band)
	assert.Equal(t, 1.0, s.DepletedFraction)
	require.Len(t, s.Participants, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{s.Participants[0].UserID, s.Participants[1].UserID, s.Participants[2].UserID})
	assert.Equal(t, 200.0, s.Participants[0].Contribution)

	clk.Advance(48 * time.Hour)
	assert.Nil(t, e.Expire(channel))
}

func TestRaidThemeMismatchAndClamp(t *testing.T) {
	e := NewRaidEngine(DefaultRaidConfig(), newFakeClock().Now)
	_, err := e.Start(channel, RaidSpec{Theme: "pullups", HP: 50})
	require.NoError(t, err)

	d, s := e.ApplyDamage(channel, 1, "pushups", 40)
	assert.False(t, d.Applied)
	assert.Nil(t, s)

	d, s = e.ApplyDamage(channel, 1, "pullups", 80)
	assert.True(t, d.Applied)
	assert.Equal(t, 50.0, d.Dealt)
	assert.Equal(t, 0.0, d.HP)
	require.NotNil(t, s)
	assert.Equal(t, 50.0, s.Participants[0].Contribution)
}

func TestRaidTimeUp(t *testing.T) {
	clk := newFakeClock()
	e := NewRaidEngine(DefaultRaidConfig(), clk.Now)
	_, err := e.Start(channel, RaidSpec{Theme: "squats", HP: 1000, Duration: time.Hour})
	require.NoError(t, err)
	e.ApplyDamage(channel, 1, "squats", 250)

	clk.Advance(time.Hour)
	d, _ := e.ApplyDamage(channel, 2, "squats", 250)
	assert.False(t, d.Applied, "damage after the deadline is ignored")

	assert.Equal(t, []int64{channel}, e.Due())
	s := e.Expire(channel)
	require.NotNil(t, s)
	assert.Equal(t, OutcomeTimeUp, s.Outcome)
	assert.InDelta(t, 0.25, s.DepletedFraction, 1e-9)
	assert.Equal(t, DefaultRaidConfig().Consolation, s.Band)
	assert.Len(t, s.Participants, 1)
	assert.True(t, s.Pays())
}

func TestRaidCancel(t *testing.T) {
	e := NewRaidEngine(DefaultRaidConfig(), newFakeClock().Now)
	_, err := e.Cancel(channel)
	assert.ErrorIs(t, err, ErrNoActiveRaid)

	_, err = e.Start(channel, RaidSpec{Theme: "burpees"})
	require.NoError(t, err)
	e.ApplyDamage(channel, 1, "burpees", 10)

	s, err := e.Cancel(channel)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, s.Outcome)
	assert.False(t, s.Pays())
	_, ok := e.Status(channel)
	assert.False(t, ok)
}

// TestRaidHPClampProperty tests that boss HP stays within [0, max].
// *For any* sequence of hits, HP never leaves [0, MaxHP] and the sum of
// recorded contributions equals the HP removed.
func TestRaidHPClampProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := NewRaidEngine(DefaultRaidConfig(), newFakeClock().Now)
		maxHP := float64(rapid.IntRange(1, 2000).Draw(t, "hp"))
		if _, err := e.Start(channel, RaidSpec{Theme: "pushups", HP: maxHP}); err != nil {
			t.Fatal(err)
		}

		n := rapid.IntRange(1, 50).Draw(t, "n")
		for i := 0; i < n; i++ {
			u := rapid.Int64Range(1, 8).Draw(t, "user")
			amt := float64(rapid.IntRange(1, 400).Draw(t, "amount"))
			d, s := e.ApplyDamage(channel, u, "pushups", amt)
			if d.Applied && (d.HP < 0 || d.HP > maxHP) {
				t.Fatalf("hp %v outside [0,%v]", d.HP, maxHP)
			}
			if s != nil {
				var sum float64
				for _, p := range s.Participants {
					sum += p.Contribution
				}
				if sum != maxHP {
					t.Fatalf("contributions %v != max hp %v at victory", sum, maxHP)
				}
				return
			}
		}
		r, ok := e.Status(channel)
		if !ok {
			t.Fatal("raid vanished without a settlement")
		}
		var sum float64
		for _, p := range r.Participants {
			sum += p.Contribution
		}
		if sum != r.MaxHP-r.HP {
			t.Fatalf("contributions %v != damage %v", sum, r.MaxHP-r.HP)
		}
	})
}

// TestRaidResolveOnceProperty tests exactly-once resolution.
// *For any* order of the killing blow, an expiry tick and a cancel, exactly one
// of them yields a settlement.
func TestRaidResolveOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clk := newFakeClock()
		e := NewRaidEngine(DefaultRaidConfig(), clk.Now)
		if _, err := e.Start(channel, RaidSpec{Theme: "pushups", HP: 10, Duration: time.Minute}); err != nil {
			t.Fatal(err)
		}
		e.ApplyDamage(channel, 1, "pushups", 5)

		ops := rapid.Permutation([]string{"hit", "expire", "cancel"}).Draw(t, "ops")
		settled := 0
		for _, op := range ops {
			var s *Settlement
			switch op {
			case "hit":
				_, s = e.ApplyDamage(channel, 2, "pushups", 5)
			case "expire":
				clk.Advance(time.Minute)
				s = e.Expire(channel)
			case "cancel":
				s, _ = e.Cancel(channel)
			}
			if s != nil {
				settled++
			}
		}
		if settled != 1 {
			t.Fatalf("%d settlements for ops %v", settled, ops)
		}
	})
}

// Package reward rolls randomized encounter payouts.
package reward

import (
	"math/rand/v2"
	"sync"
	"time"

	"fitrpg-bot/internal/catalog"
	"fitrpg-bot/internal/progression"
)

// Band is an inclusive payout range plus a gear-drop probability.
type Band struct {
	XPMin       int64   `mapstructure:"xp_min" json:"xpMin"`
	XPMax       int64   `mapstructure:"xp_max" json:"xpMax"`
	CurrencyMin int64   `mapstructure:"currency_min" json:"currencyMin"`
	CurrencyMax int64   `mapstructure:"currency_max" json:"currencyMax"`
	GearChance  float64 `mapstructure:"gear_chance" json:"gearChance"`
}

// Consolation returns a currency-only band.
func Consolation(lo, hi int64) Band {
	return Band{CurrencyMin: lo, CurrencyMax: hi}
}

// Reward is one participant's payout.
type Reward struct {
	XP       int64
	Currency int64
	Item     *catalog.Item // nil when no gear dropped
	// GearRolled reports that a gear trial was attempted.
	GearRolled bool
}

// Options tweak a single roll.
type Options struct {
	// GuaranteedGear raises the gear chance to 1 when the band has a gear roll.
	GuaranteedGear bool
}

// Resolver draws rewards from a seeded source. Safe for concurrent use.
type Resolver struct {
	catalog *catalog.Catalog
	mu      sync.Mutex
	rng     *rand.Rand
}

// NewResolver creates a resolver over cat. A nil src seeds from the clock.
func NewResolver(cat *catalog.Catalog, src rand.Source) *Resolver {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>17|1)
	}
	return &Resolver{catalog: cat, rng: rand.New(src)}
}

// SetCatalog swaps the loot catalog, e.g. after loading overrides.
func (r *Resolver) SetCatalog(cat *catalog.Catalog) {
	r.mu.Lock()
	r.catalog = cat
	r.mu.Unlock()
}

// Roll draws XP, currency and an optional tier-gated gear item independently.
// xp is the recipient's XP before the payout; gear is gated on the level
// reached once the rolled XP is added.
func (r *Resolver) Roll(band Band, xp float64, opts ...Options) Reward {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rw := Reward{
		XP:       r.between(band.XPMin, band.XPMax),
		Currency: r.between(band.CurrencyMin, band.CurrencyMax),
	}

	chance := band.GearChance
	if chance <= 0 {
		return rw
	}
	if o.GuaranteedGear {
		chance = 1
	}
	rw.GearRolled = true
	if r.rng.Float64() >= chance {
		return rw
	}

	level := progression.LevelFromXP(xp + float64(rw.XP))
	pool := r.catalog.ItemsAtOrBelowTier(progression.MaxTierUnlocked(level), catalog.TypeWeapon, catalog.TypeArmor)
	if len(pool) == 0 {
		return rw
	}
	it := pool[r.rng.IntN(len(pool))]
	rw.Item = &it
	return rw
}

// between returns a uniform draw from [lo, hi]. A reversed range is swapped.
func (r *Resolver) between(lo, hi int64) int64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo
	}
	return lo + r.rng.Int64N(hi-lo+1)
}

// Package model defines the per-player data model of the progression engine.
package model

import "time"

// Slot is an equipment slot.
type Slot string

// Equipment slots.
const (
	SlotWeapon   Slot = "weapon"
	SlotArmor    Slot = "armor"
	SlotTrinket  Slot = "trinket"
	SlotPet      Slot = "pet"
	SlotMount    Slot = "mount"
	SlotCosmetic Slot = "cosmetic"
)

// Slots lists every equipment slot in display order.
var Slots = []Slot{SlotWeapon, SlotArmor, SlotTrinket, SlotPet, SlotMount, SlotCosmetic}

// Action names a cooldown-gated player action.
type Action string

// Cooldown-gated actions.
const (
	ActionLog      Action = "log"
	ActionHuntJoin Action = "hunt_join"
	ActionRaidHit  Action = "raid_hit"
)

// Buff names a transient one-shot effect held by a player.
type Buff string

// Buffs granted by consumables.
const (
	BuffDoubleXP       Buff = "double_xp"       // next log XP doubled
	BuffEnergy         Buff = "energy"          // next log XP +10%
	BuffGuaranteedLoot Buff = "guaranteed_loot" // next encounter gear roll always drops
)

// DateLayout is the calendar-date format of LastActiveDate.
const DateLayout = "2006-01-02"

// Player is the mutable per-user record. Level is always derived from XP.
type Player struct {
	XP             float64              `json:"xp"`
	Currency       int64                `json:"coins"`
	Tokens         int64                `json:"tokens"`
	Inventory      []string             `json:"inventory"`
	Equipped       map[Slot]string      `json:"equipped"`
	Cooldowns      map[Action]time.Time `json:"cooldowns"`
	Streak         int                  `json:"streak"`
	LastActiveDate string               `json:"lastActiveISO,omitempty"`
	Buffs          map[Buff]int         `json:"buffs,omitempty"`
}

// NewPlayer returns a zero-state player.
func NewPlayer() *Player {
	p := &Player{}
	p.Normalize()
	return p
}

// Normalize fills nil collections, e.g. after decoding a legacy record.
func (p *Player) Normalize() {
	if p.Inventory == nil {
		p.Inventory = []string{}
	}
	if p.Equipped == nil {
		p.Equipped = make(map[Slot]string, len(Slots))
	}
	if p.Cooldowns == nil {
		p.Cooldowns = make(map[Action]time.Time)
	}
	if p.Buffs == nil {
		p.Buffs = make(map[Buff]int)
	}
	if p.XP < 0 {
		p.XP = 0
	}
	if p.Currency < 0 {
		p.Currency = 0
	}
	if p.Tokens < 0 {
		p.Tokens = 0
	}
}

// HasBuff reports whether the player holds at least one charge of b.
func (p Player) HasBuff(b Buff) bool {
	return p.Buffs[b] > 0
}

// AddBuff adds one charge of b.
func (p *Player) AddBuff(b Buff) {
	p.Buffs[b]++
}

// ConsumeBuff removes one charge of b. Returns false if none was held.
func (p *Player) ConsumeBuff(b Buff) bool {
	if p.Buffs[b] <= 0 {
		return false
	}
	p.Buffs[b]--
	if p.Buffs[b] == 0 {
		delete(p.Buffs, b)
	}
	return true
}

// Owns reports whether the inventory contains item name.
func (p *Player) Owns(name string) bool {
	for _, n := range p.Inventory {
		if n == name {
			return true
		}
	}
	return false
}

// RemoveItem removes one copy of name from the inventory.
func (p *Player) RemoveItem(name string) bool {
	for i, n := range p.Inventory {
		if n == name {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// CooldownRemaining returns how long until action may be performed again.
func (p *Player) CooldownRemaining(action Action, cooldown time.Duration, now time.Time) time.Duration {
	last, ok := p.Cooldowns[action]
	if !ok || cooldown <= 0 {
		return 0
	}
	remaining := cooldown - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Touch records a performed action.
func (p *Player) Touch(action Action, now time.Time) {
	p.Cooldowns[action] = now
}

// MarkActive updates the daily streak for activity on now's calendar date.
func (p *Player) MarkActive(now time.Time) {
	today := now.Format(DateLayout)
	switch p.LastActiveDate {
	case today:
		return
	case now.AddDate(0, 0, -1).Format(DateLayout):
		p.Streak++
	default:
		p.Streak = 1
	}
	p.LastActiveDate = today
}

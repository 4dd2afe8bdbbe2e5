// Package catalog provides the static equipment and consumable table.
// Items are immutable after load; tier gating for both purchase and loot goes
// through Eligible so the two acquisition paths can never disagree.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"fitrpg-bot/internal/model"
)

// ItemType represents the type of a catalog item
type ItemType string

// Item types
const (
	TypeWeapon     ItemType = "weapon"
	TypeArmor      ItemType = "armor"
	TypeTrinket    ItemType = "trinket"
	TypeConsumable ItemType = "consumable"
	TypePet        ItemType = "pet"
	TypeMount      ItemType = "mount"
)

// GearTypes are the item types that drop from encounters.
var GearTypes = []ItemType{TypeWeapon, TypeArmor}

// Bonus is a passive effect granted by an equipped trinket, pet or mount.
type Bonus struct {
	Text string
	// XPPercent is added to activity XP when Activity matches (empty matches all).
	XPPercent float64
	Activity  string
}

// Matches reports whether the bonus applies to an activity type.
func (b Bonus) Matches(activity string) bool {
	return b.XPPercent > 0 && (b.Activity == "" || b.Activity == activity)
}

// Kind is the type-specific part of an item. Exactly one of Weapon, Armor,
// Trinket, Consumable, Pet or Mount.
type Kind interface {
	Type() ItemType
}

type Weapon struct{ Attack int }
type Armor struct{ Defense int }
type Trinket struct{ Bonus Bonus }
type Pet struct{ Bonus Bonus }
type Mount struct{ Bonus Bonus }

// Consumable grants Buff to the player when used. An empty Buff is flavor only.
type Consumable struct {
	Effect string
	Buff   model.Buff
}

func (Weapon) Type() ItemType     { return TypeWeapon }
func (Armor) Type() ItemType      { return TypeArmor }
func (Trinket) Type() ItemType    { return TypeTrinket }
func (Pet) Type() ItemType        { return TypePet }
func (Mount) Type() ItemType      { return TypeMount }
func (Consumable) Type() ItemType { return TypeConsumable }

// Item is a catalog entry.
type Item struct {
	Name  string
	Tier  int // 0 means untiered
	Price int64
	Kind  Kind
}

// Type returns the item's type.
func (i Item) Type() ItemType {
	if i.Kind == nil {
		return ""
	}
	return i.Kind.Type()
}

// IsGear reports whether the item is a weapon or armor piece.
func (i Item) IsGear() bool {
	t := i.Type()
	return t == TypeWeapon || t == TypeArmor
}

// EffectiveTier treats untiered gear as tier 1.
func (i Item) EffectiveTier() int {
	if i.Tier <= 0 && i.IsGear() {
		return 1
	}
	return i.Tier
}

// PassiveBonus returns the bonus of trinkets, pets and mounts.
func (i Item) PassiveBonus() (Bonus, bool) {
	switch k := i.Kind.(type) {
	case Trinket:
		return k.Bonus, true
	case Pet:
		return k.Bonus, true
	case Mount:
		return k.Bonus, true
	}
	return Bonus{}, false
}

// StatLine returns the short stat description used in listings.
func (i Item) StatLine() string {
	switch k := i.Kind.(type) {
	case Weapon:
		return fmt.Sprintf("ATK %d", k.Attack)
	case Armor:
		return fmt.Sprintf("DEF %d", k.Defense)
	case Trinket:
		return k.Bonus.Text
	case Pet:
		return k.Bonus.Text
	case Mount:
		return k.Bonus.Text
	case Consumable:
		return k.Effect
	}
	return ""
}

// itemJSON is the flat shape used in persisted state, compatible with legacy blobs.
type itemJSON struct {
	Name      string     `json:"name"`
	Type      ItemType   `json:"type"`
	Tier      int        `json:"tier,omitempty"`
	Atk       int        `json:"atk,omitempty"`
	Def       int        `json:"def,omitempty"`
	Bonus     string     `json:"bonus,omitempty"`
	XPPercent float64    `json:"xpPercent,omitempty"`
	Activity  string     `json:"activity,omitempty"`
	Effect    string     `json:"effect,omitempty"`
	Buff      model.Buff `json:"buff,omitempty"`
	Price     int64      `json:"price"`
}

// MarshalJSON implements json.Marshaler.
func (i Item) MarshalJSON() ([]byte, error) {
	out := itemJSON{Name: i.Name, Type: i.Type(), Tier: i.Tier, Price: i.Price}
	switch k := i.Kind.(type) {
	case Weapon:
		out.Atk = k.Attack
	case Armor:
		out.Def = k.Defense
	case Trinket:
		out.Bonus, out.XPPercent, out.Activity = k.Bonus.Text, k.Bonus.XPPercent, k.Bonus.Activity
	case Pet:
		out.Bonus, out.XPPercent, out.Activity = k.Bonus.Text, k.Bonus.XPPercent, k.Bonus.Activity
	case Mount:
		out.Bonus, out.XPPercent, out.Activity = k.Bonus.Text, k.Bonus.XPPercent, k.Bonus.Activity
	case Consumable:
		out.Effect, out.Buff = k.Effect, k.Buff
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Item) UnmarshalJSON(data []byte) error {
	var in itemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	i.Name, i.Tier, i.Price = in.Name, in.Tier, in.Price
	bonus := Bonus{Text: in.Bonus, XPPercent: in.XPPercent, Activity: in.Activity}
	switch ItemType(strings.ToLower(string(in.Type))) {
	case TypeWeapon:
		i.Kind = Weapon{Attack: in.Atk}
	case TypeArmor:
		i.Kind = Armor{Defense: in.Def}
	case TypeTrinket:
		i.Kind = Trinket{Bonus: bonus}
	case TypePet:
		i.Kind = Pet{Bonus: bonus}
	case TypeMount:
		i.Kind = Mount{Bonus: bonus}
	case TypeConsumable:
		i.Kind = Consumable{Effect: in.Effect, Buff: in.Buff}
	default:
		return fmt.Errorf("unknown item type %q for %q", in.Type, in.Name)
	}
	return nil
}

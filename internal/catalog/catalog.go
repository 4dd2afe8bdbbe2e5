package catalog

import (
	"strings"

	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/pkg/apperr"
)

// Catalog errors
var (
	ErrItemNotFound = apperr.NotFound("item_not_found", "item not found")
	ErrTierLocked   = apperr.Validation("tier_locked", "item tier is above your unlocked tier")
)

// Catalog is a read-only item table preserving display order.
type Catalog struct {
	items  []Item
	byName map[string]int // lower-cased name -> index
}

// New builds a catalog from items. Later duplicates of a name are ignored.
func New(items []Item) *Catalog {
	c := &Catalog{
		items:  make([]Item, 0, len(items)),
		byName: make(map[string]int, len(items)),
	}
	for _, it := range items {
		key := strings.ToLower(it.Name)
		if _, dup := c.byName[key]; dup || it.Kind == nil {
			continue
		}
		c.byName[key] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}

// Get looks up an item by name, case-insensitively.
func (c *Catalog) Get(name string) (Item, bool) {
	idx, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// All returns every item in display order. The slice is a copy.
func (c *Catalog) All() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// ItemsOfType returns the items of type t in display order.
func (c *Catalog) ItemsOfType(t ItemType) []Item {
	var out []Item
	for _, it := range c.items {
		if it.Type() == t {
			out = append(out, it)
		}
	}
	return out
}

// ItemsAtOrBelowTier returns the items of the given types that a player with
// maxTier unlocked may hold. With no types every type is considered.
func (c *Catalog) ItemsAtOrBelowTier(maxTier int, types ...ItemType) []Item {
	var out []Item
	for _, it := range c.items {
		if len(types) > 0 && !containsType(types, it.Type()) {
			continue
		}
		if Eligible(it, maxTier) {
			out = append(out, it)
		}
	}
	return out
}

// Eligible is the tier gate shared by purchase and loot.
func Eligible(it Item, maxTier int) bool {
	return it.EffectiveTier() <= maxTier
}

func containsType(types []ItemType, t ItemType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// SlotFor returns the equipment slot an item occupies, if it is equippable.
func SlotFor(it Item) (model.Slot, bool) {
	switch it.Kind.(type) {
	case Weapon:
		return model.SlotWeapon, true
	case Armor:
		return model.SlotArmor, true
	case Trinket:
		return model.SlotTrinket, true
	case Pet:
		return model.SlotPet, true
	case Mount:
		return model.SlotMount, true
	}
	return "", false
}

// Page returns a 1-based page of items and the clamped page number and page count.
func (c *Catalog) Page(page, perPage int) ([]Item, int, int) {
	if perPage <= 0 {
		perPage = 8
	}
	total := (len(c.items) + perPage - 1) / perPage
	if total < 1 {
		total = 1
	}
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > len(c.items) {
		end = len(c.items)
	}
	out := make([]Item, end-start)
	copy(out, c.items[start:end])
	return out, page, total
}

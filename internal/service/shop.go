package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"fitrpg-bot/internal/catalog"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/pkg/apperr"
	"fitrpg-bot/internal/progression"
)

// Shop service errors
var (
	ErrInsufficientFunds = apperr.Validation("insufficient_funds", "not enough coins")
	ErrNotOwned          = apperr.NotFound("item_not_owned", "you do not own that item")
	ErrNotEquippable     = apperr.Validation("not_equippable", "that item cannot be equipped")
	ErrNotUsable         = apperr.Validation("not_usable", "that item cannot be used")
)

// ShopPageSize is the number of items per shop page.
const ShopPageSize = 8

// ShopPage is one page of the catalog listing.
type ShopPage struct {
	Items []catalog.Item
	Page  int
	Pages int
}

// Shop returns a 1-based page of the catalog. Out of range pages are clamped.
func (e *Engine) Shop(page int) ShopPage {
	items, page, pages := e.Catalog().Page(page, ShopPageSize)
	return ShopPage{Items: items, Page: page, Pages: pages}
}

// Buy purchases one copy of name for userID. The item must be within the
// player's unlocked tier and affordable.
func (e *Engine) Buy(_ context.Context, userID int64, name string) (catalog.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.catalog.Get(name)
	if !ok {
		return catalog.Item{}, catalog.ErrItemNotFound
	}
	p, _ := e.peekLocked(userID)
	if !catalog.Eligible(it, progression.MaxTierUnlocked(progression.LevelFromXP(p.XP))) {
		return catalog.Item{}, catalog.ErrTierLocked
	}
	if p.Currency < it.Price {
		return catalog.Item{}, ErrInsufficientFunds
	}

	p.Currency -= it.Price
	p.Inventory = append(p.Inventory, it.Name)
	e.players[userID] = p
	e.writer.MarkDirty()

	log.Info().Int64("user_id", userID).Str("item", it.Name).Int64("price", it.Price).Msg("Item purchased")
	return it, nil
}

// Equip puts an owned item into its slot, replacing what was there.
func (e *Engine) Equip(_ context.Context, userID int64, name string) (model.Slot, catalog.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.catalog.Get(name)
	if !ok {
		return "", catalog.Item{}, catalog.ErrItemNotFound
	}
	p, _ := e.peekLocked(userID)
	if !p.Owns(it.Name) {
		return "", catalog.Item{}, ErrNotOwned
	}
	slot, ok := catalog.SlotFor(it)
	if !ok {
		return "", catalog.Item{}, ErrNotEquippable
	}

	p.Equipped[slot] = it.Name
	e.writer.MarkDirty()
	return slot, it, nil
}

// UseItem consumes an owned consumable and grants its buff, if any.
func (e *Engine) UseItem(_ context.Context, userID int64, name string) (catalog.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.catalog.Get(name)
	if !ok {
		return catalog.Item{}, catalog.ErrItemNotFound
	}
	c, ok := it.Kind.(catalog.Consumable)
	if !ok {
		return catalog.Item{}, ErrNotUsable
	}
	p, _ := e.peekLocked(userID)
	if !p.RemoveItem(it.Name) {
		return catalog.Item{}, ErrNotOwned
	}
	if c.Buff != "" {
		p.AddBuff(c.Buff)
	}
	e.writer.MarkDirty()
	return it, nil
}

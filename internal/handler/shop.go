package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/catalog"
	"fitrpg-bot/internal/pkg/lock"
	"fitrpg-bot/internal/service"
	"fitrpg-bot/internal/shop"
)

// ShopHandler handles shop, inventory and equipment commands.
type ShopHandler struct {
	engine   *service.Engine
	userLock *lock.UserLock
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(engine *service.Engine, userLock *lock.UserLock) *ShopHandler {
	return &ShopHandler{
		engine:   engine,
		userLock: userLock,
	}
}

// HandleShop handles the /shop command.
// Format: /shop [page]
func (h *ShopHandler) HandleShop(c tele.Context) error {
	page := 1
	if args := c.Args(); len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			page = n
		}
	}
	listing := h.engine.Shop(page)
	return c.Reply(FormatShopPage(listing), shop.BuildPager(listing.Page, listing.Pages))
}

// HandleShopCallback turns shop pages from the inline pager.
func (h *ShopHandler) HandleShopCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	page, ok := shop.TargetPage(cb.Data)
	if !ok {
		return c.Respond()
	}
	listing := h.engine.Shop(page)
	if err := c.Edit(FormatShopPage(listing), shop.BuildPager(listing.Page, listing.Pages)); err != nil {
		log.Debug().Err(err).Int("page", listing.Page).Msg("Failed to edit shop page")
	}
	return c.Respond()
}

// HandleBuy handles the /buy command.
// Format: /buy <item name>
func (h *ShopHandler) HandleBuy(c tele.Context) error {
	name := itemArg(c)
	if name == "" {
		return c.Reply("Usage: /buy <item name>")
	}
	return withUserLock(c, h.userLock, func(ctx context.Context, sender *tele.User) error {
		it, err := h.engine.Buy(ctx, sender.ID, name)
		if err != nil {
			return replyError(c, err)
		}
		balance := h.engine.Profile(sender.ID).Currency
		msg := fmt.Sprintf("🛍️ Bought %s", it.Name)
		if it.Tier > 0 {
			msg += fmt.Sprintf(" (T%d)", it.Tier)
		}
		msg += fmt.Sprintf(" for %s coins.\n💰 Balance: %s", humanize.Comma(it.Price), humanize.Comma(balance))
		if _, equippable := catalog.SlotFor(it); equippable {
			msg += "\nEquip it with /equip " + it.Name
		} else if it.Type() == catalog.TypeConsumable {
			msg += "\nUse it with /use " + it.Name
		}
		return c.Reply(msg)
	})
}

// HandleEquip handles the /equip command.
// Format: /equip <item name>
func (h *ShopHandler) HandleEquip(c tele.Context) error {
	name := itemArg(c)
	if name == "" {
		return c.Reply("Usage: /equip <item name>")
	}
	return withUserLock(c, h.userLock, func(ctx context.Context, sender *tele.User) error {
		slot, it, err := h.engine.Equip(ctx, sender.ID, name)
		if err != nil {
			return replyError(c, err)
		}
		msg := fmt.Sprintf("🛡️ Equipped %s in your %s slot.", it.Name, slot)
		if stat := it.StatLine(); stat != "" {
			msg += " " + stat
		}
		return c.Reply(msg)
	})
}

// HandleUse handles the /use command.
// Format: /use <item name>
func (h *ShopHandler) HandleUse(c tele.Context) error {
	name := itemArg(c)
	if name == "" {
		return c.Reply("Usage: /use <item name>")
	}
	return withUserLock(c, h.userLock, func(ctx context.Context, sender *tele.User) error {
		it, err := h.engine.UseItem(ctx, sender.ID, name)
		if err != nil {
			return replyError(c, err)
		}
		return c.Reply(fmt.Sprintf("🧪 Used %s: %s", it.Name, it.StatLine()))
	})
}

package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/pkg/lock"
	"fitrpg-bot/internal/service"
)

// EncounterHandler handles hunt and raid commands open to every player.
// Creation and resolution are announced by the notifier.
type EncounterHandler struct {
	engine   *service.Engine
	userLock *lock.UserLock
}

// NewEncounterHandler creates a new EncounterHandler.
func NewEncounterHandler(engine *service.Engine, userLock *lock.UserLock) *EncounterHandler {
	return &EncounterHandler{
		engine:   engine,
		userLock: userLock,
	}
}

const huntUsage = "Usage: /hunt <solo|trio|party|1-5> <exercise>"

// HandleHunt handles the /hunt command.
// Format: /hunt <mode|party size> <exercise>
func (h *EncounterHandler) HandleHunt(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Reply(huntUsage)
	}
	size, ok := parsePartySize(args[0])
	if !ok {
		return c.Reply("❌ Unknown party mode.\n" + huntUsage)
	}
	theme := normalizeActivity(args[1])

	return withUserLock(c, h.userLock, func(ctx context.Context, sender *tele.User) error {
		if _, err := h.engine.StartHunt(ctx, c.Chat().ID, sender.ID, size, theme); err != nil {
			return replyError(c, err)
		}
		return nil
	})
}

// HandleHuntJoin handles the /hunt_join command. A fresh join costs one token.
func (h *EncounterHandler) HandleHuntJoin(c tele.Context) error {
	return withUserLock(c, h.userLock, func(ctx context.Context, sender *tele.User) error {
		joined, err := h.engine.JoinHunt(ctx, c.Chat().ID, sender.ID)
		if err != nil {
			return replyError(c, err)
		}
		if !joined {
			return c.Reply("You are already in this hunt.")
		}
		return c.Reply(fmt.Sprintf("✅ %s joined the hunt (-1 token). Log the hunt exercise here to contribute.", displayName(sender)))
	})
}

// HandleHuntLeave handles the /hunt_leave command.
func (h *EncounterHandler) HandleHuntLeave(c tele.Context) error {
	return withUserLock(c, h.userLock, func(ctx context.Context, sender *tele.User) error {
		if err := h.engine.LeaveHunt(ctx, c.Chat().ID, sender.ID); err != nil {
			return replyError(c, err)
		}
		return c.Reply(fmt.Sprintf("👋 %s left the hunt.", displayName(sender)))
	})
}

// HandleHuntStatus handles the /hunt_status command.
func (h *EncounterHandler) HandleHuntStatus(c tele.Context) error {
	return h.status(c, encounter.KindHunt)
}

// HandleRaidStatus handles the /raid_status command.
func (h *EncounterHandler) HandleRaidStatus(c tele.Context) error {
	return h.status(c, encounter.KindRaid)
}

func (h *EncounterHandler) status(c tele.Context, kind encounter.Kind) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	st, err := h.engine.EncounterStatus(chat.ID, kind)
	if err != nil {
		return replyError(c, err)
	}
	if st.Hunt != nil {
		return c.Reply(FormatHuntStatus(st.Hunt, st.Remaining), tele.ModeHTML)
	}
	return c.Reply(FormatRaidStatus(st.Raid, st.Remaining), tele.ModeHTML)
}

// parsePartySize accepts a mode name or a party size.
func parsePartySize(arg string) (int, bool) {
	if mode, ok := encounter.ParseMode(strings.ToLower(arg)); ok {
		return mode.Capacity(), true
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > encounter.ModeParty.Capacity() {
		return 0, false
	}
	return n, true
}

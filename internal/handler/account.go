package handler

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/service"
)

const helpText = "📖 FitRPG\n" +
	"━━━━━━━━━━━━━━━\n" +
	"Quick log: /p <reps>, /plank <seconds>, /run <miles>\n" +
	"General log: /log <type> <amount>\n" +
	"Profile: /profile · Leaderboard: /top\n" +
	"Shop: /shop [page], /buy <item>, /equip <item>, /use <item>\n" +
	"Hunts: /hunt <solo|trio|party|size> <exercise> → /hunt_join → log that exercise here\n" +
	"       /hunt_status, /hunt_leave\n" +
	"Raids: /raid_status, then log the raid exercise here to attack\n" +
	"Admin: /raid_start <exercise> [hp] [hours] [name], /raid_cancel, /hunt_cancel"

// AccountHandler handles profile and help commands.
type AccountHandler struct {
	engine *service.Engine
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(engine *service.Engine) *AccountHandler {
	return &AccountHandler{engine: engine}
}

// HandleStart handles the /start and /help commands.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	return c.Reply(fmt.Sprintf("👋 Welcome %s!\n\n%s", displayName(sender), helpText))
}

// HandleProfile handles the /profile command.
// Viewing a profile never creates a player record.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	return c.Reply(FormatProfile(displayName(sender), h.engine.Profile(sender.ID)))
}

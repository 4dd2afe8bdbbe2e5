package handler

import (
	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/service"
)

// leaderboardSize is the number of players shown by /top.
const leaderboardSize = 10

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	engine *service.Engine
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(engine *service.Engine) *RankingHandler {
	return &RankingHandler{engine: engine}
}

// HandleTop handles the /top command.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	return c.Reply(FormatLeaderboard(h.engine.Leaderboard(leaderboardSize)), tele.ModeHTML)
}

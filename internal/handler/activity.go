package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/pkg/lock"
	"fitrpg-bot/internal/progression"
	"fitrpg-bot/internal/service"
)

// ActivityHandler handles workout logging commands.
type ActivityHandler struct {
	engine   *service.Engine
	userLock *lock.UserLock
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(engine *service.Engine, userLock *lock.UserLock) *ActivityHandler {
	return &ActivityHandler{
		engine:   engine,
		userLock: userLock,
	}
}

// HandleLog handles the /log command.
// Format: /log <type> <amount>
func (h *ActivityHandler) HandleLog(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Reply(logUsage())
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return c.Reply("❌ Amount must be a positive number.\n\n" + logUsage())
	}
	return h.report(c, normalizeActivity(args[0]), amount)
}

// HandlePushups handles the /p quick log.
func (h *ActivityHandler) HandlePushups(c tele.Context) error {
	return h.quick(c, "pushups", "/p <reps>")
}

// HandlePlank handles the /plank quick log.
func (h *ActivityHandler) HandlePlank(c tele.Context) error {
	return h.quick(c, "plank", "/plank <seconds>")
}

// HandleRun handles the /run quick log.
func (h *ActivityHandler) HandleRun(c tele.Context) error {
	return h.quick(c, "run_miles", "/run <miles>")
}

func (h *ActivityHandler) quick(c tele.Context, activity, usage string) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: " + usage)
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return c.Reply("❌ Amount must be a positive number. Usage: " + usage)
	}
	return h.report(c, activity, amount)
}

func (h *ActivityHandler) report(c tele.Context, activity string, amount float64) error {
	return withUserLock(c, h.userLock, func(ctx context.Context, sender *tele.User) error {
		res, err := h.engine.ReportActivity(ctx, service.Report{
			UserID:    sender.ID,
			ChannelID: c.Chat().ID,
			Activity:  activity,
			Amount:    amount,
		})
		if err != nil {
			return replyError(c, err)
		}

		label := activity
		if a, ok := progression.LookupActivity(activity); ok {
			label = a.Label
		}
		log.Debug().
			Int64("user_id", sender.ID).
			Str("activity", activity).
			Float64("xp", res.XPGained).
			Msg("Workout logged")
		return c.Reply(FormatLogReply(label, res))
	})
}

// parseAmount accepts positive finite numbers.
func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if !(v > 0) || v > 1e9 {
		return 0, fmt.Errorf("amount out of range: %v", v)
	}
	return v, nil
}

func logUsage() string {
	var keys []string
	for _, a := range progression.Activities() {
		keys = append(keys, a.Key)
	}
	return "Usage: /log <type> <amount>\nTypes: " + strings.Join(keys, ", ")
}

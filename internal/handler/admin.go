package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/pkg/lock"
	"fitrpg-bot/internal/service"
)

const (
	raidUsage = "Usage: /raid_start <exercise> [hp] [hours] [boss name]"
	adminBusy = "⏳ Another admin command is running in this chat."

	// adminLockTimeout bounds the wait for another admin command in the same chat.
	adminLockTimeout = 5 * time.Second
)

// AdminHandler handles encounter administration. Access is checked by the
// admin middleware; commands in one chat run one at a time.
type AdminHandler struct {
	engine      *service.Engine
	channelLock *lock.ChannelLock
	lockTimeout time.Duration
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(engine *service.Engine, channelLock *lock.ChannelLock) *AdminHandler {
	return &AdminHandler{
		engine:      engine,
		channelLock: channelLock,
		lockTimeout: adminLockTimeout,
	}
}

// withChannelLock runs fn while holding the chat's admin lock.
func (h *AdminHandler) withChannelLock(c tele.Context, chatID int64, fn func(ctx context.Context) error) error {
	ctx := context.Background()
	err := h.channelLock.WithLockTimeout(ctx, chatID, h.lockTimeout, func() error {
		return fn(ctx)
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return c.Reply(adminBusy)
	}
	return err
}

// HandleRaidStart handles the /raid_start command.
// Format: /raid_start <exercise> [hp] [hours] [boss name]
func (h *AdminHandler) HandleRaidStart(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	spec, err := parseRaidSpec(c.Args())
	if err != nil {
		return c.Reply("❌ " + err.Error() + "\n" + raidUsage)
	}
	spec.InitiatorID = sender.ID

	return h.withChannelLock(c, chat.ID, func(ctx context.Context) error {
		r, err := h.engine.StartRaid(ctx, chat.ID, spec)
		if err != nil {
			return replyError(c, err)
		}
		log.Info().
			Int64("admin_id", sender.ID).
			Int64("channel_id", chat.ID).
			Str("encounter_id", r.ID).
			Msg("Admin started raid")
		return nil
	})
}

// HandleRaidCancel handles the /raid_cancel command.
func (h *AdminHandler) HandleRaidCancel(c tele.Context) error {
	return h.cancel(c, encounter.KindRaid)
}

// HandleHuntCancel handles the /hunt_cancel command.
func (h *AdminHandler) HandleHuntCancel(c tele.Context) error {
	return h.cancel(c, encounter.KindHunt)
}

func (h *AdminHandler) cancel(c tele.Context, kind encounter.Kind) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	return h.withChannelLock(c, chat.ID, func(ctx context.Context) error {
		var err error
		if kind == encounter.KindHunt {
			err = h.engine.CancelHunt(ctx, chat.ID)
		} else {
			err = h.engine.CancelRaid(ctx, chat.ID)
		}
		if err != nil {
			return replyError(c, err)
		}
		log.Info().
			Int64("admin_id", sender.ID).
			Int64("channel_id", chat.ID).
			Str("kind", string(kind)).
			Msg("Admin cancelled encounter")
		return nil
	})
}

type argError string

func (e argError) Error() string { return string(e) }

// parseRaidSpec reads /raid_start arguments. A hp or hours of 0 keeps the default.
func parseRaidSpec(args []string) (encounter.RaidSpec, error) {
	if len(args) < 1 {
		return encounter.RaidSpec{}, argError("Exercise is required.")
	}
	spec := encounter.RaidSpec{Theme: normalizeActivity(args[0])}
	rest := args[1:]

	if len(rest) > 0 {
		hp, err := strconv.ParseFloat(rest[0], 64)
		if err != nil || hp < 0 {
			return encounter.RaidSpec{}, argError("HP must be a non-negative number.")
		}
		spec.HP = hp
		rest = rest[1:]
	}
	if len(rest) > 0 {
		hours, err := strconv.Atoi(rest[0])
		if err != nil || hours < 0 {
			return encounter.RaidSpec{}, argError("Hours must be a non-negative whole number.")
		}
		spec.Duration = time.Duration(hours) * time.Hour
		rest = rest[1:]
	}
	spec.BossName = strings.TrimSpace(strings.Join(rest, " "))
	return spec, nil
}

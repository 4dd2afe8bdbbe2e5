// Package handler provides Telegram bot command handlers. Handlers translate
// chat commands into engine operations and render the result; channel-wide
// announcements are left to the notifier.
package handler

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/pkg/apperr"
	"fitrpg-bot/internal/pkg/lock"
)

const busyReply = "⏳ Still working on your previous command."

// withUserLock runs fn while holding the sender's lock. A second command from
// the same user while one is in flight is rejected instead of queued.
func withUserLock(c tele.Context, locks *lock.UserLock, fn func(ctx context.Context, sender *tele.User) error) error {
	sender := c.Sender()
	if sender == nil || c.Chat() == nil {
		return nil
	}
	if !locks.TryLock(sender.ID) {
		return c.Reply(busyReply)
	}
	defer locks.Unlock(sender.ID)
	return fn(context.Background(), sender)
}

// replyError answers an engine rejection. Unclassified errors are logged.
func replyError(c tele.Context, err error) error {
	if apperr.KindOf(err) == "" {
		ev := log.Error().Err(err).Str("command", c.Text())
		if sender := c.Sender(); sender != nil {
			ev = ev.Int64("user_id", sender.ID)
		}
		ev.Msg("Command failed")
	}
	return c.Reply(ErrorText(err))
}

// displayName returns the name used to address a user.
func displayName(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return "adventurer"
}

// itemArg returns the command arguments joined back into an item name.
func itemArg(c tele.Context) string {
	return strings.TrimSpace(strings.Join(c.Args(), " "))
}

// activityAliases maps chat shorthand to activity keys.
var activityAliases = map[string]string{
	"pushup":        "pushups",
	"situp":         "situps",
	"squat":         "squats",
	"pullup":        "pullups",
	"burpee":        "burpees",
	"plank_seconds": "plank",
	"miles":         "run_miles",
}

// normalizeActivity lowercases key and resolves aliases.
func normalizeActivity(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if alias, ok := activityAliases[key]; ok {
		return alias
	}
	return key
}

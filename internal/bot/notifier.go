package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/handler"
	"fitrpg-bot/internal/notify"
	"fitrpg-bot/internal/progression"
)

// Sender is the part of *tele.Bot the notifier needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier posts engine events to the channel they belong to.
// Progress updates and item grants are already covered by command replies and
// resolution summaries, so they are not posted.
type TelegramNotifier struct {
	sender Sender
	now    func() time.Time
}

var _ notify.Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier creates a notifier that sends through sender.
func NewTelegramNotifier(sender Sender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, now: time.Now}
}

// Notify renders ev and sends it to its channel.
func (n *TelegramNotifier) Notify(_ context.Context, ev notify.Event) error {
	if ev.Channel() == 0 {
		return nil
	}
	text, ok := n.Render(ev)
	if !ok {
		return nil
	}
	if _, err := n.sender.Send(&tele.Chat{ID: ev.Channel()}, text, tele.ModeHTML); err != nil {
		return fmt.Errorf("failed to send %T to chat %d: %w", ev, ev.Channel(), err)
	}
	return nil
}

// Render returns the HTML message for ev, or false when ev is not posted.
func (n *TelegramNotifier) Render(ev notify.Event) (string, bool) {
	switch e := ev.(type) {
	case notify.EncounterCreated:
		return n.renderCreated(e), true
	case notify.Resolved:
		return renderResolved(e), true
	case notify.LevelUp:
		return renderLevelUp(e), true
	}
	return "", false
}

func (n *TelegramNotifier) renderCreated(e notify.EncounterCreated) string {
	left := handler.Wait(e.Deadline.Sub(n.now()))
	label := activityLabel(e.Theme)
	if e.Kind == encounter.KindRaid {
		return fmt.Sprintf("🐉 <b>%s</b> appears with %s HP!\nLog %s in this chat to attack. The raid ends in %s.",
			html.EscapeString(e.BossName), humanize.Comma(int64(e.Objective)), label, left)
	}
	return fmt.Sprintf("🏹 A <b>%s</b> hunt begins: %s %s of %s within %s.\nParty of up to %d. Join with /hunt_join (costs 1 token).",
		e.Mode, handler.Amount(e.Objective), e.Unit, label, left, e.Capacity)
}

func renderResolved(e notify.Resolved) string {
	var b strings.Builder
	name := "hunt"
	if e.Kind == encounter.KindRaid {
		name = "raid against <b>" + html.EscapeString(e.BossName) + "</b>"
	}

	switch e.Outcome {
	case encounter.OutcomeSuccess:
		fmt.Fprintf(&b, "🎉 Hunt complete! %s/%s %s", handler.Amount(e.Progress), handler.Amount(e.Objective), e.Unit)
	case encounter.OutcomeFailure:
		fmt.Fprintf(&b, "⌛ The hunt ran out of time at %s/%s %s. Consolation paid:", handler.Amount(e.Progress), handler.Amount(e.Objective), e.Unit)
	case encounter.OutcomeVictory:
		fmt.Fprintf(&b, "🏆 <b>%s</b> has fallen!", html.EscapeString(e.BossName))
	case encounter.OutcomeTimeUp:
		fmt.Fprintf(&b, "⌛ <b>%s</b> escaped with %d%% of its HP gone. Consolation paid:",
			html.EscapeString(e.BossName), int(e.DepletedFraction*100+0.5))
	case encounter.OutcomeCancelled:
		fmt.Fprintf(&b, "🛑 The %s was cancelled.", name)
	case encounter.OutcomeAbandoned:
		b.WriteString("👋 Everyone left, the hunt was abandoned.")
	default:
		fmt.Fprintf(&b, "The %s ended (%s).", name, e.Outcome)
	}

	for _, p := range e.Payouts {
		fmt.Fprintf(&b, "\n• %s (%s)", handler.Mention(p.UserID), handler.Amount(p.Contribution))
		var parts []string
		if p.XP > 0 {
			parts = append(parts, "+"+humanize.Comma(p.XP)+" XP")
		}
		if p.Currency > 0 {
			parts = append(parts, "+"+humanize.Comma(p.Currency)+" coins")
		}
		if p.Item != "" {
			parts = append(parts, fmt.Sprintf("🎁 %s (T%d)", html.EscapeString(p.Item), p.ItemTier))
		}
		if len(parts) > 0 {
			b.WriteString(": " + strings.Join(parts, ", "))
		}
	}
	return b.String()
}

func renderLevelUp(e notify.LevelUp) string {
	msg := fmt.Sprintf("⬆️ %s reached level <b>%d</b>", handler.Mention(e.UserID), e.To)
	if e.Title != "" {
		msg += " · " + html.EscapeString(e.Title)
	}
	if progression.MaxTierUnlocked(e.From) < e.MaxTier {
		msg += fmt.Sprintf("\n🔓 Tier T%d gear unlocked!", e.MaxTier)
	}
	return msg
}

func activityLabel(theme string) string {
	if a, ok := progression.LookupActivity(theme); ok {
		return a.Label
	}
	return theme
}

package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/notify"
)

type sent struct {
	chatID int64
	text   string
	opts   []interface{}
}

type fakeSender struct {
	sent []sent
	err  error
}

func (s *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	chat := to.(*tele.Chat)
	s.sent = append(s.sent, sent{chatID: chat.ID, text: what.(string), opts: opts})
	return &tele.Message{}, nil
}

func newTestNotifier(s Sender) *TelegramNotifier {
	n := NewTelegramNotifier(s)
	n.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return n
}

func TestTelegramNotifierPostsHuntCreation(t *testing.T) {
	s := &fakeSender{}
	n := newTestNotifier(s)

	err := n.Notify(context.Background(), notify.EncounterCreated{
		Kind:      encounter.KindHunt,
		ChannelID: -1001,
		Theme:     "pushups",
		Unit:      "reps",
		Mode:      encounter.ModeTrio,
		Objective: 500,
		Capacity:  3,
		Deadline:  time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, s.sent, 1)
	assert.Equal(t, int64(-1001), s.sent[0].chatID)
	assert.Contains(t, s.sent[0].text, "trio")
	assert.Contains(t, s.sent[0].text, "500 reps of Pushups")
	assert.Contains(t, s.sent[0].text, "1 hour")
	assert.Contains(t, s.sent[0].opts, tele.ModeHTML)
}

func TestTelegramNotifierEscapesBossName(t *testing.T) {
	n := newTestNotifier(&fakeSender{})

	text, ok := n.Render(notify.EncounterCreated{
		Kind:      encounter.KindRaid,
		ChannelID: -1,
		Theme:     "squats",
		BossName:  "<Leg Day>",
		Objective: 12000,
		Deadline:  time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
	})
	require.True(t, ok)
	assert.Contains(t, text, "&lt;Leg Day&gt;")
	assert.Contains(t, text, "12,000 HP")
}

func TestTelegramNotifierRendersPayouts(t *testing.T) {
	n := newTestNotifier(&fakeSender{})

	text, ok := n.Render(notify.Resolved{
		Kind:      encounter.KindHunt,
		ChannelID: -1,
		Unit:      "reps",
		Outcome:   encounter.OutcomeSuccess,
		Progress:  520,
		Objective: 500,
		Payouts: []notify.Payout{
			{UserID: 101, Contribution: 300, XP: 1200, Currency: 250, Item: "Iron Sword", ItemTier: 2},
			{UserID: 202, Contribution: 220, XP: 300, Currency: 210},
		},
	})
	require.True(t, ok)
	assert.Contains(t, text, "520/500 reps")
	assert.Contains(t, text, "+1,200 XP")
	assert.Contains(t, text, "Iron Sword (T2)")
	assert.Contains(t, text, "tg://user?id=202")
}

func TestTelegramNotifierListsUnpaidParticipants(t *testing.T) {
	n := newTestNotifier(&fakeSender{})

	text, ok := n.Render(notify.Resolved{
		Kind:      encounter.KindRaid,
		ChannelID: -1,
		BossName:  "Colossus",
		Outcome:   encounter.OutcomeCancelled,
		Payouts: []notify.Payout{
			{UserID: 101, Contribution: 30},
			{UserID: 202, Contribution: 20.5},
		},
	})
	require.True(t, ok)
	assert.Contains(t, text, "cancelled")
	assert.Contains(t, text, "tg://user?id=101\">player 101</a> (30)")
	assert.Contains(t, text, "tg://user?id=202\">player 202</a> (20.5)")
	assert.NotContains(t, text, "XP")
	assert.NotContains(t, text, "coins")
	assert.NotContains(t, text, ": ")
}

func TestTelegramNotifierSkipsQuietEvents(t *testing.T) {
	s := &fakeSender{}
	n := newTestNotifier(s)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, notify.ProgressUpdate{ChannelID: -1}))
	require.NoError(t, n.Notify(ctx, notify.ItemAcquired{ChannelID: -1, Item: "Iron Sword"}))
	require.NoError(t, n.Notify(ctx, notify.LevelUp{UserID: 1, To: 3}), "no channel, nothing to send")
	assert.Empty(t, s.sent)
}

func TestTelegramNotifierLevelUpTierUnlock(t *testing.T) {
	n := newTestNotifier(&fakeSender{})

	text, _ := n.Render(notify.LevelUp{UserID: 1, ChannelID: -1, From: 39, To: 40, Title: "Legend", MaxTier: 2})
	assert.Contains(t, text, "Tier T2 gear unlocked")

	text, _ = n.Render(notify.LevelUp{UserID: 1, ChannelID: -1, From: 40, To: 41, Title: "Legend", MaxTier: 2})
	assert.NotContains(t, text, "unlocked")
}

func TestTelegramNotifierWrapsSendErrors(t *testing.T) {
	down := errors.New("telegram down")
	n := newTestNotifier(&fakeSender{err: down})

	err := n.Notify(context.Background(), notify.LevelUp{UserID: 1, ChannelID: -1, From: 1, To: 2, MaxTier: 1})
	assert.ErrorIs(t, err, down)
}

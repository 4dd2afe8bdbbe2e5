// Package notify carries structured engine events to outbound collaborators.
// The engine never renders text; notifiers decide how events are presented.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fitrpg-bot/internal/encounter"
)

// Event is one outbound notification.
type Event interface {
	// Channel is the chat the event belongs to, 0 when it has none.
	Channel() int64
	event()
}

// EncounterCreated announces a new hunt or raid.
type EncounterCreated struct {
	Kind        encounter.Kind
	EncounterID string
	ChannelID   int64
	Theme       string
	Unit        string
	Mode        encounter.Mode // hunts
	BossName    string         // raids
	Objective   float64        // hunt target or boss HP
	Capacity    int            // hunts
	Deadline    time.Time
	InitiatorID int64
}

// ProgressUpdate reports an accepted contribution.
type ProgressUpdate struct {
	Kind        encounter.Kind
	EncounterID string
	ChannelID   int64
	UserID      int64
	Amount      float64
	Progress    float64 // hunt total or damage dealt so far
	Objective   float64
	UserTotal   float64
}

// Payout is one participant's applied reward.
type Payout struct {
	UserID       int64
	Contribution float64
	XP           int64
	Currency     int64
	Item         string // empty when no gear dropped
	ItemTier     int
}

// Resolved summarises a finished encounter and the rewards already applied.
type Resolved struct {
	Kind             encounter.Kind
	EncounterID      string
	ChannelID        int64
	Theme            string
	Unit             string
	Outcome          encounter.Outcome
	Mode             encounter.Mode
	BossName         string
	Progress         float64
	Objective        float64
	DepletedFraction float64
	Payouts          []Payout
}

// LevelUp announces a player reaching a new level.
type LevelUp struct {
	UserID    int64
	ChannelID int64
	From      int
	To        int
	Title     string
	MaxTier   int
}

// ItemAcquired announces an item granted outside a purchase.
type ItemAcquired struct {
	UserID    int64
	ChannelID int64
	Item      string
	Tier      int
	Source    encounter.Kind
}

func (e EncounterCreated) Channel() int64 { return e.ChannelID }
func (e ProgressUpdate) Channel() int64   { return e.ChannelID }
func (e Resolved) Channel() int64         { return e.ChannelID }
func (e LevelUp) Channel() int64          { return e.ChannelID }
func (e ItemAcquired) Channel() int64     { return e.ChannelID }

func (EncounterCreated) event() {}
func (ProgressUpdate) event()   {}
func (Resolved) event()         {}
func (LevelUp) event()          {}
func (ItemAcquired) event()     {}

// Notifier delivers events. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Nop discards every event.
var Nop Notifier = NotifierFunc(func(context.Context, Event) error { return nil })

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

// Notify delivers ev to all notifiers, even when one fails.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes events to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier on the global logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.Logger}
}

// NewLogNotifierWith creates a notifier on logger.
func NewLogNotifierWith(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs ev at info level, progress updates at debug.
func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	switch e := ev.(type) {
	case EncounterCreated:
		n.logger.Info().
			Str("kind", string(e.Kind)).
			Str("encounter_id", e.EncounterID).
			Int64("channel_id", e.ChannelID).
			Str("theme", e.Theme).
			Float64("objective", e.Objective).
			Time("deadline", e.Deadline).
			Msg("Encounter created")
	case ProgressUpdate:
		n.logger.Debug().
			Str("kind", string(e.Kind)).
			Str("encounter_id", e.EncounterID).
			Int64("channel_id", e.ChannelID).
			Int64("user_id", e.UserID).
			Float64("amount", e.Amount).
			Float64("progress", e.Progress).
			Float64("objective", e.Objective).
			Msg("Encounter progress")
	case Resolved:
		n.logger.Info().
			Str("kind", string(e.Kind)).
			Str("encounter_id", e.EncounterID).
			Int64("channel_id", e.ChannelID).
			Str("outcome", string(e.Outcome)).
			Int("participants", len(e.Payouts)).
			Float64("progress", e.Progress).
			Float64("objective", e.Objective).
			Msg("Encounter resolved")
	case LevelUp:
		n.logger.Info().
			Int64("user_id", e.UserID).
			Int("from", e.From).
			Int("to", e.To).
			Str("title", e.Title).
			Msg("Level up")
	case ItemAcquired:
		n.logger.Info().
			Int64("user_id", e.UserID).
			Str("item", e.Item).
			Int("tier", e.Tier).
			Str("source", string(e.Source)).
			Msg("Item acquired")
	default:
		n.logger.Warn().Type("event", ev).Msg("Unknown event")
	}
	return nil
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from every Notify call after recording.
	Err error
}

// Notify records ev.
func (r *Recorder) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Package encounter implements the channel-scoped group encounters: cooperative
// hunts and boss raids. Each kind allows one live encounter per channel and
// resolves exactly once into a Settlement that the caller pays out.
package encounter

import (
	"sort"
	"sync/atomic"
	"time"

	"fitrpg-bot/internal/pkg/apperr"
	"fitrpg-bot/internal/progression"
	"fitrpg-bot/internal/reward"
)

// Kind is the encounter kind.
type Kind string

const (
	KindHunt Kind = "hunt"
	KindRaid Kind = "raid"
)

// State is the lifecycle state of an encounter.
type State string

const (
	StateActive   State = "active"
	StateResolved State = "resolved"
)

// Outcome is how an encounter ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"   // hunt target reached
	OutcomeFailure   Outcome = "failure"   // hunt deadline passed
	OutcomeVictory   Outcome = "victory"   // raid boss depleted
	OutcomeTimeUp    Outcome = "time_up"   // raid deadline passed
	OutcomeCancelled Outcome = "cancelled" // administrative abort
	OutcomeAbandoned Outcome = "abandoned" // last hunt member left
)

// Won reports whether the outcome cleared the objective.
func (o Outcome) Won() bool {
	return o == OutcomeSuccess || o == OutcomeVictory
}

// Encounter errors
var (
	ErrUnknownKind      = apperr.Validation("unknown_encounter_kind", "unknown encounter kind")
	ErrUnsupportedTheme = apperr.Validation("unsupported_theme", "unsupported encounter exercise")
	ErrInvalidPartySize = apperr.Validation("invalid_party_size", "party size must be between 1 and 5")
	ErrInvalidHP        = apperr.Validation("invalid_hp", "boss hp must be positive")
	ErrInvalidDuration  = apperr.Validation("invalid_duration", "duration must be positive")

	ErrHuntActive   = apperr.Conflict("hunt_active", "a hunt is already active here")
	ErrRaidActive   = apperr.Conflict("raid_active", "a raid is already active here")
	ErrPartyFull    = apperr.Conflict("party_full", "the hunt party is full")
	ErrHuntClosed   = apperr.Conflict("hunt_closed", "the hunt has already ended")
	ErrNoActiveHunt = apperr.NotFound("no_active_hunt", "no active hunt in this channel")
	ErrNoActiveRaid = apperr.NotFound("no_active_raid", "no active raid in this channel")
	ErrNotInHunt    = apperr.NotFound("not_in_hunt", "you are not in this hunt")
)

// Participant is a member of an encounter and their cumulative contribution.
type Participant struct {
	UserID       int64     `json:"userId"`
	JoinedAt     time.Time `json:"joinedAt"`
	Contribution float64   `json:"contribution"`
}

// Settlement is the result of a resolution. Every participant is owed one
// roll of Band; a zero Band pays nothing.
type Settlement struct {
	Kind         Kind
	EncounterID  string
	ChannelID    int64
	Theme        string
	Unit         string
	Outcome      Outcome
	Mode         Mode   // hunts only
	BossName     string // raids only
	Participants []Participant
	Band         reward.Band
	Progress     float64 // hunt total or raid damage dealt
	Objective    float64 // hunt target or raid max HP
	// DepletedFraction is the share of boss HP removed, raids only.
	DepletedFraction float64
	ResolvedAt       time.Time
}

// Pays reports whether the settlement grants anything.
func (s *Settlement) Pays() bool {
	if len(s.Participants) == 0 {
		return false
	}
	return s.Band != (reward.Band{})
}

// terminal is the exactly-once resolution guard of a live encounter.
type terminal struct {
	done atomic.Bool
}

// claim flips the guard. Only the first caller gets true.
func (t *terminal) claim() bool {
	return t.done.CompareAndSwap(false, true)
}

// ThemeUnit returns the display unit for an exercise theme.
func ThemeUnit(theme string) string {
	a, _ := progression.LookupActivity(theme)
	return a.Unit
}

func validTheme(theme string) bool {
	_, ok := progression.LookupActivity(theme)
	return ok
}

func cloneParticipants(in map[int64]*Participant) map[int64]*Participant {
	out := make(map[int64]*Participant, len(in))
	for id, p := range in {
		if p == nil {
			continue
		}
		cp := *p
		out[id] = &cp
	}
	return out
}

// ordered returns participants by join time, then user id.
func ordered(in map[int64]*Participant) []Participant {
	out := make([]Participant, 0, len(in))
	for _, p := range in {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

package encounter

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitrpg-bot/internal/reward"
)

type boss struct {
	name string
	hp   float64
}

var bosses = map[string]boss{
	"pushups":   {"Titan of Iron", 20000},
	"squats":    {"Colossus of Stone", 28000},
	"situps":    {"Serpent of Cores", 24000},
	"pullups":   {"Spire Warden", 6000},
	"burpees":   {"Storm Harrier", 12000},
	"plank":     {"Timebound Phantom", 36000},
	"run_miles": {"Roadbreaker Behemoth", 800},
}

var defaultBoss = boss{"Ancient Sovereign", 20000}

// BossName returns the default boss for a theme.
func BossName(theme string) string {
	if b, ok := bosses[theme]; ok {
		return b.name
	}
	return defaultBoss.name
}

// BossHP returns the default boss HP for a theme.
func BossHP(theme string) float64 {
	if b, ok := bosses[theme]; ok {
		return b.hp
	}
	return defaultBoss.hp
}

// Raid is an admin-started boss encounter any channel member can damage.
type Raid struct {
	ID           string                 `json:"id"`
	ChannelID    int64                  `json:"channelId"`
	Theme        string                 `json:"exercise"`
	Unit         string                 `json:"unit"`
	BossName     string                 `json:"bossName"`
	HP           float64                `json:"hp"`
	MaxHP        float64                `json:"hpMax"`
	InitiatorID  int64                  `json:"startedBy"`
	StartedAt    time.Time              `json:"startedAt"`
	Deadline     time.Time              `json:"deadline"`
	Participants map[int64]*Participant `json:"participants"`
	State        State                  `json:"state"`
}

func (r *Raid) clone() Raid {
	cp := *r
	cp.Participants = cloneParticipants(r.Participants)
	return cp
}

// DepletedFraction returns the share of HP removed, in [0, 1].
func (r *Raid) DepletedFraction() float64 {
	if r.MaxHP <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, 1-r.HP/r.MaxHP))
}

// Remaining returns the time left before the deadline at now.
func (r *Raid) Remaining(now time.Time) time.Duration {
	if d := r.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Members returns the contributors by first-damage order.
func (r *Raid) Members() []Participant {
	return ordered(r.Participants)
}

// RaidConfig holds raid timing and payout policy.
type RaidConfig struct {
	DefaultDuration time.Duration
	Victory         reward.Band
	Consolation     reward.Band
}

// DefaultRaidConfig returns the stock raid policy.
func DefaultRaidConfig() RaidConfig {
	return RaidConfig{
		DefaultDuration: 24 * time.Hour,
		Victory:         reward.Band{XPMin: 800, XPMax: 1600, CurrencyMin: 600, CurrencyMax: 1200, GearChance: 0.25},
		Consolation:     reward.Consolation(120, 260),
	}
}

// RaidSpec describes a raid to start. Zero fields take theme defaults.
type RaidSpec struct {
	Theme       string
	HP          float64
	Duration    time.Duration
	BossName    string
	InitiatorID int64
}

// Damage is the result of feeding activity into a raid.
type Damage struct {
	Applied   bool
	RaidID    string
	Dealt     float64 // amount removed from HP after clamping
	HP        float64
	MaxHP     float64
	UserTotal float64
}

type liveRaid struct {
	Raid
	terminal terminal
}

// RaidEngine owns the live raids, one per channel.
type RaidEngine struct {
	mu    sync.Mutex
	raids map[int64]*liveRaid // channelID -> raid
	cfg   RaidConfig
	now   func() time.Time
}

// NewRaidEngine creates a new RaidEngine instance.
func NewRaidEngine(cfg RaidConfig, now func() time.Time) *RaidEngine {
	if now == nil {
		now = time.Now
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = DefaultRaidConfig().DefaultDuration
	}
	return &RaidEngine{
		raids: make(map[int64]*liveRaid),
		cfg:   cfg,
		now:   now,
	}
}

// Start opens a raid in channelID.
func (e *RaidEngine) Start(channelID int64, spec RaidSpec) (Raid, error) {
	if !validTheme(spec.Theme) {
		return Raid{}, ErrUnsupportedTheme
	}
	if spec.HP < 0 || math.IsNaN(spec.HP) || math.IsInf(spec.HP, 0) {
		return Raid{}, ErrInvalidHP
	}
	if spec.Duration < 0 {
		return Raid{}, ErrInvalidDuration
	}
	hp := spec.HP
	if hp == 0 {
		hp = BossHP(spec.Theme)
	}
	duration := spec.Duration
	if duration == 0 {
		duration = e.cfg.DefaultDuration
	}
	name := strings.TrimSpace(spec.BossName)
	if name == "" {
		name = BossName(spec.Theme)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.raids[channelID]; exists {
		return Raid{}, ErrRaidActive
	}

	now := e.now()
	lr := &liveRaid{Raid: Raid{
		ID:           uuid.NewString(),
		ChannelID:    channelID,
		Theme:        spec.Theme,
		Unit:         ThemeUnit(spec.Theme),
		BossName:     name,
		HP:           hp,
		MaxHP:        hp,
		InitiatorID:  spec.InitiatorID,
		StartedAt:    now,
		Deadline:     now.Add(duration),
		Participants: make(map[int64]*Participant),
		State:        StateActive,
	}}
	e.raids[channelID] = lr
	return lr.clone(), nil
}

// ApplyDamage feeds amount of theme activity from userID into the raid.
// Any user may deal damage; the first hit registers them as a participant.
// Depleting the boss resolves the raid as a victory.
func (e *RaidEngine) ApplyDamage(channelID, userID int64, theme string, amount float64) (Damage, *Settlement) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lr, ok := e.raids[channelID]
	if !ok || amount <= 0 || lr.terminal.done.Load() {
		return Damage{}, nil
	}
	now := e.now()
	if theme != lr.Theme || !now.Before(lr.Deadline) || lr.HP <= 0 {
		return Damage{RaidID: lr.ID, HP: lr.HP, MaxHP: lr.MaxHP}, nil
	}

	dealt := math.Min(amount, lr.HP)
	lr.HP -= dealt
	p, seen := lr.Participants[userID]
	if !seen {
		p = &Participant{UserID: userID, JoinedAt: now}
		lr.Participants[userID] = p
	}
	p.Contribution += dealt

	d := Damage{Applied: true, RaidID: lr.ID, Dealt: dealt, HP: lr.HP, MaxHP: lr.MaxHP, UserTotal: p.Contribution}
	if lr.HP > 0 {
		return d, nil
	}
	s, _ := e.resolveLocked(lr, OutcomeVictory)
	return d, s
}

// Expire resolves the channel's raid as timed out once its deadline has passed.
func (e *RaidEngine) Expire(channelID int64) *Settlement {
	e.mu.Lock()
	defer e.mu.Unlock()

	lr, ok := e.raids[channelID]
	if !ok || e.now().Before(lr.Deadline) {
		return nil
	}
	outcome := OutcomeTimeUp
	if lr.HP <= 0 {
		outcome = OutcomeVictory
	}
	s, _ := e.resolveLocked(lr, outcome)
	return s
}

// Cancel aborts the channel's raid without rewards.
func (e *RaidEngine) Cancel(channelID int64) (*Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lr, ok := e.raids[channelID]
	if !ok {
		return nil, ErrNoActiveRaid
	}
	s, ok := e.resolveLocked(lr, OutcomeCancelled)
	if !ok {
		return nil, ErrNoActiveRaid
	}
	return s, nil
}

// Due returns the channels whose raid deadline has passed.
func (e *RaidEngine) Due() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var out []int64
	for ch, lr := range e.raids {
		if !now.Before(lr.Deadline) {
			out = append(out, ch)
		}
	}
	return out
}

// Status returns a copy of the channel's live raid.
func (e *RaidEngine) Status(channelID int64) (Raid, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lr, ok := e.raids[channelID]
	if !ok {
		return Raid{}, false
	}
	return lr.clone(), true
}

// Snapshot returns copies of every live raid.
func (e *RaidEngine) Snapshot() []Raid {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Raid, 0, len(e.raids))
	for _, lr := range e.raids {
		out = append(out, lr.clone())
	}
	return out
}

// Restore replaces the live set with raids, skipping resolved or malformed entries.
func (e *RaidEngine) Restore(raids []Raid) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.raids = make(map[int64]*liveRaid, len(raids))
	for _, r := range raids {
		if r.State == StateResolved || r.MaxHP <= 0 {
			continue
		}
		if _, dup := e.raids[r.ChannelID]; dup {
			continue
		}
		lr := &liveRaid{Raid: r.clone()}
		if lr.Participants == nil {
			lr.Participants = make(map[int64]*Participant)
		}
		for id, p := range lr.Participants {
			p.UserID = id
		}
		lr.HP = math.Max(0, math.Min(lr.HP, lr.MaxHP))
		if lr.ID == "" {
			lr.ID = uuid.NewString()
		}
		lr.State = StateActive
		e.raids[r.ChannelID] = lr
	}
}

// resolveLocked claims the raid's terminal guard and removes it from the live set.
// Must be called with e.mu held.
func (e *RaidEngine) resolveLocked(lr *liveRaid, outcome Outcome) (*Settlement, bool) {
	if !lr.terminal.claim() {
		return nil, false
	}
	lr.State = StateResolved
	if cur, ok := e.raids[lr.ChannelID]; ok && cur == lr {
		delete(e.raids, lr.ChannelID)
	}

	s := &Settlement{
		Kind:             KindRaid,
		EncounterID:      lr.ID,
		ChannelID:        lr.ChannelID,
		Theme:            lr.Theme,
		Unit:             lr.Unit,
		Outcome:          outcome,
		BossName:         lr.BossName,
		Participants:     ordered(lr.Participants),
		Progress:         lr.MaxHP - lr.HP,
		Objective:        lr.MaxHP,
		DepletedFraction: lr.DepletedFraction(),
		ResolvedAt:       e.now(),
	}
	switch outcome {
	case OutcomeVictory:
		s.Band = e.cfg.Victory
	case OutcomeTimeUp:
		s.Band = e.cfg.Consolation
	}
	return s, true
}

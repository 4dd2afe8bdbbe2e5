package encounter

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"fitrpg-bot/internal/reward"
)

// Mode is a hunt party mode.
type Mode string

const (
	ModeSolo  Mode = "solo"
	ModeTrio  Mode = "trio"
	ModeParty Mode = "party"
)

// Capacity returns the maximum party size of the mode.
func (m Mode) Capacity() int {
	switch m {
	case ModeSolo:
		return 1
	case ModeTrio:
		return 3
	case ModeParty:
		return 5
	}
	return 0
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, bool) {
	m := Mode(s)
	return m, m.Capacity() > 0
}

// ModeForSize returns the mode whose target and reward band apply to a party of size n.
func ModeForSize(n int) (Mode, error) {
	switch {
	case n == 1:
		return ModeSolo, nil
	case n >= 2 && n <= 3:
		return ModeTrio, nil
	case n >= 4 && n <= 5:
		return ModeParty, nil
	}
	return "", ErrInvalidPartySize
}

// huntTargets holds solo/trio/party targets per exercise theme.
var huntTargets = map[string][3]float64{
	"pushups":   {100, 500, 800},
	"squats":    {150, 700, 1100},
	"situps":    {120, 600, 900},
	"pullups":   {25, 80, 130},
	"burpees":   {50, 220, 360},
	"plank":     {180, 600, 900},
	"run_miles": {2, 5, 8},
}

var defaultHuntTarget = [3]float64{100, 500, 800}

// TargetFor returns the hunt target for a theme and mode.
func TargetFor(theme string, mode Mode) float64 {
	t, ok := huntTargets[theme]
	if !ok {
		t = defaultHuntTarget
	}
	switch mode {
	case ModeSolo:
		return t[0]
	case ModeParty:
		return t[2]
	}
	return t[1]
}

// Hunt is a cooperative, join-gated accumulation encounter.
type Hunt struct {
	ID           string                 `json:"id"`
	ChannelID    int64                  `json:"channelId"`
	Mode         Mode                   `json:"mode"`
	Theme        string                 `json:"exercise"`
	Unit         string                 `json:"unit"`
	Target       float64                `json:"target"`
	Total        float64                `json:"total"`
	Capacity     int                    `json:"maxParty"`
	InitiatorID  int64                  `json:"startedBy"`
	StartedAt    time.Time              `json:"startedAt"`
	Deadline     time.Time              `json:"deadline"`
	Participants map[int64]*Participant `json:"participants"`
	State        State                  `json:"state"`
}

func (h *Hunt) clone() Hunt {
	cp := *h
	cp.Participants = cloneParticipants(h.Participants)
	return cp
}

// Remaining returns the time left before the deadline at now.
func (h *Hunt) Remaining(now time.Time) time.Duration {
	if d := h.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Members returns the participants by join order.
func (h *Hunt) Members() []Participant {
	return ordered(h.Participants)
}

// HuntConfig holds hunt timing and payout policy.
type HuntConfig struct {
	Duration    time.Duration
	Bands       map[Mode]reward.Band
	Consolation reward.Band
}

// DefaultHuntConfig returns the stock hunt policy.
func DefaultHuntConfig() HuntConfig {
	return HuntConfig{
		Duration: 60 * time.Minute,
		Bands: map[Mode]reward.Band{
			ModeSolo:  {XPMin: 150, XPMax: 240, CurrencyMin: 120, CurrencyMax: 220, GearChance: 0.18},
			ModeTrio:  {XPMin: 260, XPMax: 420, CurrencyMin: 220, CurrencyMax: 380, GearChance: 0.28},
			ModeParty: {XPMin: 380, XPMax: 640, CurrencyMin: 360, CurrencyMax: 600, GearChance: 0.38},
		},
		Consolation: reward.Consolation(30, 70),
	}
}

// Contribution is the result of feeding activity into a hunt.
type Contribution struct {
	Applied   bool
	HuntID    string
	Total     float64
	Target    float64
	UserTotal float64
}

type liveHunt struct {
	Hunt
	terminal terminal
}

// HuntEngine owns the live hunts, one per channel.
type HuntEngine struct {
	mu    sync.Mutex
	hunts map[int64]*liveHunt // channelID -> hunt
	cfg   HuntConfig
	now   func() time.Time
}

// NewHuntEngine creates a new HuntEngine instance.
func NewHuntEngine(cfg HuntConfig, now func() time.Time) *HuntEngine {
	if now == nil {
		now = time.Now
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultHuntConfig().Duration
	}
	return &HuntEngine{
		hunts: make(map[int64]*liveHunt),
		cfg:   cfg,
		now:   now,
	}
}

// Start opens a hunt for a party of partySize in channelID.
func (e *HuntEngine) Start(channelID int64, partySize int, theme string, initiatorID int64) (Hunt, error) {
	mode, err := ModeForSize(partySize)
	if err != nil {
		return Hunt{}, err
	}
	if !validTheme(theme) {
		return Hunt{}, ErrUnsupportedTheme
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.hunts[channelID]; exists {
		return Hunt{}, ErrHuntActive
	}

	now := e.now()
	lh := &liveHunt{Hunt: Hunt{
		ID:           uuid.NewString(),
		ChannelID:    channelID,
		Mode:         mode,
		Theme:        theme,
		Unit:         ThemeUnit(theme),
		Target:       TargetFor(theme, mode),
		Capacity:     partySize,
		InitiatorID:  initiatorID,
		StartedAt:    now,
		Deadline:     now.Add(e.cfg.Duration),
		Participants: make(map[int64]*Participant),
		State:        StateActive,
	}}
	e.hunts[channelID] = lh
	return lh.clone(), nil
}

// Join adds userID to the channel's hunt. joined is false when the user was
// already a member; the caller charges the entry token only when joined is true.
func (e *HuntEngine) Join(channelID, userID int64) (joined bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lh, ok := e.hunts[channelID]
	if !ok {
		return false, ErrNoActiveHunt
	}
	now := e.now()
	if lh.terminal.done.Load() || !now.Before(lh.Deadline) {
		return false, ErrHuntClosed
	}
	if _, already := lh.Participants[userID]; already {
		return false, nil
	}
	if len(lh.Participants) >= lh.Capacity {
		return false, ErrPartyFull
	}
	lh.Participants[userID] = &Participant{UserID: userID, JoinedAt: now}
	return true, nil
}

// CanJoin reports whether Join would add userID, without mutating anything.
func (e *HuntEngine) CanJoin(channelID, userID int64) (fresh bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lh, ok := e.hunts[channelID]
	if !ok {
		return false, ErrNoActiveHunt
	}
	if lh.terminal.done.Load() || !e.now().Before(lh.Deadline) {
		return false, ErrHuntClosed
	}
	if _, already := lh.Participants[userID]; already {
		return false, nil
	}
	if len(lh.Participants) >= lh.Capacity {
		return false, ErrPartyFull
	}
	return true, nil
}

// Leave removes userID from the hunt. The hunt total keeps their contribution.
// When the last member leaves the hunt is abandoned and its settlement, listing
// that member, is returned. Past the deadline the hunt is left to Expire.
func (e *HuntEngine) Leave(channelID, userID int64) (*Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lh, ok := e.hunts[channelID]
	if !ok {
		return nil, ErrNoActiveHunt
	}
	if lh.terminal.done.Load() || !e.now().Before(lh.Deadline) {
		return nil, ErrHuntClosed
	}
	leaver, member := lh.Participants[userID]
	if !member {
		return nil, ErrNotInHunt
	}
	delete(lh.Participants, userID)
	if len(lh.Participants) > 0 {
		return nil, nil
	}
	s, ok := e.resolveLocked(lh, OutcomeAbandoned)
	if !ok {
		return nil, ErrHuntClosed
	}
	s.Participants = []Participant{*leaver}
	return s, nil
}

// Cancel aborts the channel's hunt without rewards.
func (e *HuntEngine) Cancel(channelID int64) (*Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lh, ok := e.hunts[channelID]
	if !ok {
		return nil, ErrNoActiveHunt
	}
	s, ok := e.resolveLocked(lh, OutcomeCancelled)
	if !ok {
		return nil, ErrNoActiveHunt
	}
	return s, nil
}

// ApplyContribution feeds amount of theme activity from userID into the hunt.
// It is a no-op unless the hunt is active, the user joined, the theme matches
// and the deadline has not passed. Reaching the target resolves the hunt.
func (e *HuntEngine) ApplyContribution(channelID, userID int64, theme string, amount float64) (Contribution, *Settlement) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lh, ok := e.hunts[channelID]
	if !ok || amount <= 0 || lh.terminal.done.Load() {
		return Contribution{}, nil
	}
	p, member := lh.Participants[userID]
	if !member || theme != lh.Theme || !e.now().Before(lh.Deadline) {
		return Contribution{HuntID: lh.ID, Total: lh.Total, Target: lh.Target}, nil
	}

	lh.Total += amount
	p.Contribution += amount
	c := Contribution{Applied: true, HuntID: lh.ID, Total: lh.Total, Target: lh.Target, UserTotal: p.Contribution}
	if lh.Total < lh.Target {
		return c, nil
	}
	s, _ := e.resolveLocked(lh, OutcomeSuccess)
	return c, s
}

// Expire resolves the channel's hunt as failed once its deadline has passed.
func (e *HuntEngine) Expire(channelID int64) *Settlement {
	e.mu.Lock()
	defer e.mu.Unlock()

	lh, ok := e.hunts[channelID]
	if !ok || e.now().Before(lh.Deadline) {
		return nil
	}
	outcome := OutcomeFailure
	if lh.Total >= lh.Target {
		outcome = OutcomeSuccess
	}
	s, _ := e.resolveLocked(lh, outcome)
	return s
}

// Due returns the channels whose hunt deadline has passed.
func (e *HuntEngine) Due() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var out []int64
	for ch, lh := range e.hunts {
		if !now.Before(lh.Deadline) {
			out = append(out, ch)
		}
	}
	return out
}

// Status returns a copy of the channel's live hunt.
func (e *HuntEngine) Status(channelID int64) (Hunt, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lh, ok := e.hunts[channelID]
	if !ok {
		return Hunt{}, false
	}
	return lh.clone(), true
}

// Snapshot returns copies of every live hunt.
func (e *HuntEngine) Snapshot() []Hunt {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Hunt, 0, len(e.hunts))
	for _, lh := range e.hunts {
		out = append(out, lh.clone())
	}
	return out
}

// Restore replaces the live set with hunts, skipping resolved or malformed entries.
func (e *HuntEngine) Restore(hunts []Hunt) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hunts = make(map[int64]*liveHunt, len(hunts))
	for _, h := range hunts {
		if h.State == StateResolved || h.Target <= 0 || h.Capacity <= 0 {
			continue
		}
		if _, dup := e.hunts[h.ChannelID]; dup {
			continue
		}
		lh := &liveHunt{Hunt: h.clone()}
		if lh.Participants == nil {
			lh.Participants = make(map[int64]*Participant)
		}
		for id, p := range lh.Participants {
			p.UserID = id
		}
		if lh.ID == "" {
			lh.ID = uuid.NewString()
		}
		lh.State = StateActive
		e.hunts[h.ChannelID] = lh
	}
}

// resolveLocked claims the hunt's terminal guard and removes it from the live set.
// Must be called with e.mu held.
func (e *HuntEngine) resolveLocked(lh *liveHunt, outcome Outcome) (*Settlement, bool) {
	if !lh.terminal.claim() {
		return nil, false
	}
	lh.State = StateResolved
	if cur, ok := e.hunts[lh.ChannelID]; ok && cur == lh {
		delete(e.hunts, lh.ChannelID)
	}

	s := &Settlement{
		Kind:         KindHunt,
		EncounterID:  lh.ID,
		ChannelID:    lh.ChannelID,
		Theme:        lh.Theme,
		Unit:         lh.Unit,
		Outcome:      outcome,
		Mode:         lh.Mode,
		Participants: ordered(lh.Participants),
		Progress:     lh.Total,
		Objective:    lh.Target,
		ResolvedAt:   e.now(),
	}
	switch outcome {
	case OutcomeSuccess:
		s.Band = e.cfg.Bands[lh.Mode]
	case OutcomeFailure:
		s.Band = e.cfg.Consolation
	}
	return s, true
}

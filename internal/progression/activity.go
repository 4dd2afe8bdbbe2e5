package progression

import (
	"math"
	"sort"

	"fitrpg-bot/internal/catalog"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/pkg/apperr"
)

// Activity errors
var (
	ErrUnsupportedActivity = apperr.Validation("unsupported_activity", "unsupported activity")
	ErrNonPositiveAmount   = apperr.Validation("non_positive_amount", "amount must be positive")
)

// Activity is a loggable exercise type.
type Activity struct {
	Key   string
	Label string
	Unit  string
	Rate  float64 // XP per unit
}

var activities = map[string]Activity{
	"pushups":         {Key: "pushups", Label: "Pushups", Unit: "reps", Rate: 0.55},
	"situps":          {Key: "situps", Label: "Sit-ups", Unit: "reps", Rate: 0.45},
	"squats":          {Key: "squats", Label: "Bodyweight Squats", Unit: "reps", Rate: 0.45},
	"pullups":         {Key: "pullups", Label: "Pull-ups", Unit: "reps", Rate: 2.2},
	"burpees":         {Key: "burpees", Label: "Burpees", Unit: "reps", Rate: 1.2},
	"dips":            {Key: "dips", Label: "Dips", Unit: "reps", Rate: 1.6},
	"plank":           {Key: "plank", Label: "Plank (seconds)", Unit: "seconds", Rate: 0.22},
	"run_miles":       {Key: "run_miles", Label: "Run Distance", Unit: "miles", Rate: 40},
	"run":             {Key: "run", Label: "Run (minutes)", Unit: "minutes", Rate: 0.35},
	"cycle_miles":     {Key: "cycle_miles", Label: "Cycling", Unit: "miles", Rate: 14},
	"row_minutes":     {Key: "row_minutes", Label: "Rowing", Unit: "minutes", Rate: 0.45},
	"swim_laps":       {Key: "swim_laps", Label: "Swimming", Unit: "laps", Rate: 20},
	"bench":           {Key: "bench", Label: "Bench Press", Unit: "reps", Rate: 1.2},
	"legpress":        {Key: "legpress", Label: "Leg Press", Unit: "reps", Rate: 1.2},
	"deadlift":        {Key: "deadlift", Label: "Deadlift", Unit: "reps", Rate: 1.4},
	"squat_barbell":   {Key: "squat_barbell", Label: "Barbell Squat", Unit: "reps", Rate: 1.4},
	"ohp":             {Key: "ohp", Label: "Overhead Press", Unit: "reps", Rate: 1.1},
	"strengthsession": {Key: "strengthsession", Label: "Strength Session", Unit: "sessions", Rate: 40},
}

// LookupActivity returns the activity for a type key.
func LookupActivity(key string) (Activity, bool) {
	a, ok := activities[key]
	return a, ok
}

// Activities returns every activity sorted by key.
func Activities() []Activity {
	out := make([]Activity, 0, len(activities))
	for _, a := range activities {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Gain is the result of an activity XP computation.
type Gain struct {
	XP            float64
	Currency      int64
	ConsumedBuffs []model.Buff
}

// beginnerMultiplier boosts early levels.
func beginnerMultiplier(level int) float64 {
	switch {
	case level < 5:
		return 1.2
	case level < 20:
		return 1.1
	}
	return 1
}

// ActivityXP computes XP and currency for logging amount of activity.
// The caller applies the gain and clears Gain.ConsumedBuffs on the player.
func ActivityXP(activity string, amount float64, level int, bonuses []catalog.Bonus, buffs map[model.Buff]int) (Gain, error) {
	a, ok := activities[activity]
	if !ok {
		return Gain{}, ErrUnsupportedActivity
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Gain{}, ErrNonPositiveAmount
	}

	xp := amount * a.Rate * beginnerMultiplier(level)

	var pct float64
	for _, b := range bonuses {
		if b.Matches(activity) {
			pct += b.XPPercent
		}
	}
	xp *= 1 + pct/100

	var consumed []model.Buff
	if buffs[model.BuffDoubleXP] > 0 {
		xp *= 2
		consumed = append(consumed, model.BuffDoubleXP)
	}
	if buffs[model.BuffEnergy] > 0 {
		xp *= 1.1
		consumed = append(consumed, model.BuffEnergy)
	}

	xp = math.Round(xp)
	return Gain{XP: xp, Currency: CurrencyForXP(xp), ConsumedBuffs: consumed}, nil
}

// CurrencyForXP returns the currency paid alongside an XP award.
func CurrencyForXP(xp float64) int64 {
	c := int64(math.Floor(xp / 3))
	if c < 1 {
		return 1
	}
	return c
}

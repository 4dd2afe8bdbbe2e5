package service

import (
	"math"
	"sort"

	"fitrpg-bot/internal/catalog"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/progression"
)

// Profile is a read-only view of a player.
type Profile struct {
	UserID    int64
	XP        float64
	Progress  progression.Progress
	Title     string
	MaxTier   int
	Currency  int64
	Tokens    int64
	Streak    int
	Equipped  map[model.Slot]string
	Inventory []string
	Buffs     map[model.Buff]int
	Attack    int
	Defense   int
	Power     int
}

// Profile returns userID's profile. Unknown users get a zero-state view.
func (e *Engine) Profile(userID int64) Profile {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.players[userID]
	if !ok {
		p = model.NewPlayer()
	}
	prog := progression.ProgressOf(p.XP)
	out := Profile{
		UserID:    userID,
		XP:        p.XP,
		Progress:  prog,
		Title:     progression.LevelTitle(prog.Level),
		MaxTier:   progression.MaxTierUnlocked(prog.Level),
		Currency:  p.Currency,
		Tokens:    p.Tokens,
		Streak:    p.Streak,
		Equipped:  make(map[model.Slot]string, len(p.Equipped)),
		Inventory: append([]string(nil), p.Inventory...),
		Buffs:     make(map[model.Buff]int, len(p.Buffs)),
	}
	for k, v := range p.Equipped {
		out.Equipped[k] = v
	}
	for k, v := range p.Buffs {
		out.Buffs[k] = v
	}
	if it, ok := e.catalog.Get(p.Equipped[model.SlotWeapon]); ok {
		if w, ok := it.Kind.(catalog.Weapon); ok {
			out.Attack = w.Attack
		}
	}
	if it, ok := e.catalog.Get(p.Equipped[model.SlotArmor]); ok {
		if a, ok := it.Kind.(catalog.Armor); ok {
			out.Defense = a.Defense
		}
	}
	out.Power = powerRating(prog.Level, out.Attack, out.Defense,
		p.Equipped[model.SlotPet] != "", p.Equipped[model.SlotMount] != "")
	return out
}

// powerRating is the display combat score shown on profiles.
func powerRating(level, attack, defense int, pet, mount bool) int {
	score := 12 + float64(level)*2.2 + float64(attack)*2.2 + float64(defense)*1.6
	if pet {
		score += 2
	}
	if mount {
		score += 3
	}
	return int(math.Max(10, math.Floor(score)))
}

// Standing is one leaderboard row.
type Standing struct {
	Rank   int
	UserID int64
	XP     float64
	Level  int
	Title  string
}

// Leaderboard returns the top players by XP. Ties rank by user id.
func (e *Engine) Leaderboard(limit int) []Standing {
	if limit <= 0 {
		limit = 10
	}

	e.mu.Lock()
	rows := make([]Standing, 0, len(e.players))
	for id, p := range e.players {
		if p.XP <= 0 {
			continue
		}
		rows = append(rows, Standing{UserID: id, XP: p.XP})
	}
	e.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].XP != rows[j].XP {
			return rows[i].XP > rows[j].XP
		}
		return rows[i].UserID < rows[j].UserID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].Level = progression.LevelFromXP(rows[i].XP)
		rows[i].Title = progression.LevelTitle(rows[i].Level)
	}
	return rows
}

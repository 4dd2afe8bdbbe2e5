// Package progression implements the XP, level and tier economy.
// Every function here is pure: level is derived from cumulative XP only.
package progression

import (
	"math"
	"sort"
)

// MaxLevel is the level cap.
const MaxLevel = 1000

// XPForLevel returns the XP needed to go from level-1 to level.
// The curve is strictly increasing and super-linear.
func XPForLevel(level int) float64 {
	if level <= 1 {
		return 100
	}
	return math.Floor(60*math.Pow(float64(level), 1.15) + 40)
}

// TotalXPForLevel returns the cumulative XP needed to reach level.
func TotalXPForLevel(level int) float64 {
	if level > MaxLevel {
		level = MaxLevel
	}
	var total float64
	for i := 1; i <= level; i++ {
		total += XPForLevel(i)
	}
	return total
}

// LevelFromXP greedily consumes per-level increments starting at level 0.
func LevelFromXP(xp float64) int {
	level := 0
	var acc float64
	for level < MaxLevel {
		need := XPForLevel(level + 1)
		if acc+need > xp {
			break
		}
		acc += need
		level++
	}
	return level
}

// Progress describes a player's position inside their current level.
type Progress struct {
	Level   int
	IntoXP  float64 // XP earned since reaching Level
	NeedXP  float64 // XP span of the next level (0 at the cap)
	Percent float64 // 0..1
}

// ProgressOf returns the level progress for cumulative xp.
func ProgressOf(xp float64) Progress {
	lvl := LevelFromXP(xp)
	p := Progress{Level: lvl, IntoXP: xp - TotalXPForLevel(lvl)}
	if lvl >= MaxLevel {
		p.Percent = 1
		return p
	}
	p.NeedXP = XPForLevel(lvl + 1)
	p.Percent = math.Max(0, math.Min(1, p.IntoXP/p.NeedXP))
	return p
}

// tierGates maps minimum level to unlocked tier, highest first.
var tierGates = []struct {
	level int
	tier  int
}{
	{900, 10},
	{750, 9},
	{600, 8},
	{450, 7},
	{325, 6},
	{225, 5},
	{150, 4},
	{90, 3},
	{40, 2},
}

// MaxTier is the highest equipment tier.
const MaxTier = 10

// MaxTierUnlocked returns the highest equipment tier a player at level may hold.
func MaxTierUnlocked(level int) int {
	for _, g := range tierGates {
		if level >= g.level {
			return g.tier
		}
	}
	return 1
}

// levelTitles are the rank names announced on level-up.
var levelTitles = []struct {
	level int
	title string
}{
	{1, "Novice"},
	{5, "Apprentice"},
	{10, "Warrior"},
	{20, "Champion"},
	{40, "Legend"},
	{90, "Mythic"},
	{150, "Ascendant"},
	{225, "Paragon"},
	{325, "Eternal"},
	{450, "Transcendent"},
	{600, "Celestial"},
	{750, "Apex"},
	{900, "Omnilegend"},
}

// LevelTitle returns the rank name for level, or "" below level 1.
func LevelTitle(level int) string {
	i := sort.Search(len(levelTitles), func(i int) bool { return levelTitles[i].level > level })
	if i == 0 {
		return ""
	}
	return levelTitles[i-1].title
}

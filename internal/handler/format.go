package handler

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"fitrpg-bot/internal/catalog"
	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/pkg/apperr"
	"fitrpg-bot/internal/progression"
	"fitrpg-bot/internal/service"
)

const (
	// progressBarWidth is the cell count of profile and encounter bars.
	progressBarWidth = 20
	// inventoryPreview is the number of inventory entries listed on a profile.
	inventoryPreview = 10
	divider          = "━━━━━━━━━━━━━━━"
)

// Mention renders a clickable user reference for HTML replies.
func Mention(userID int64) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">player %d</a>`, userID, userID)
}

// ProgressBar renders fraction (0..1) as a fixed-width bar.
func ProgressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Amount renders an activity amount without trailing zeros.
func Amount(v float64) string {
	return humanize.FtoaWithDigits(v, 2)
}

// Wait renders a remaining duration such as "42 seconds".
func Wait(d time.Duration) string {
	if d < time.Second {
		return "a moment"
	}
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", ""))
}

// ErrorText renders an engine rejection for a chat reply.
func ErrorText(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindCooldown:
		return fmt.Sprintf("⏳ Slow down! Try again in %s.", Wait(apperr.RemainingOf(err)))
	case apperr.KindValidation, apperr.KindConflict, apperr.KindNotFound:
		return "❌ " + capitalize(err.Error()) + "."
	}
	return "❌ Something went wrong, please try again later."
}

// FormatLogReply renders the reply to an accepted workout.
func FormatLogReply(label string, res *service.ActivityResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Logged %s %s %s\n", Amount(res.Amount), res.Unit, label)
	fmt.Fprintf(&b, "+%s XP • +%s coins • +%d token",
		humanize.Comma(int64(res.XPGained)), humanize.Comma(res.CurrencyGained), res.TokenGained)
	if res.Streak > 1 {
		fmt.Fprintf(&b, "\n🔥 %d day streak", res.Streak)
	}
	if h := res.Hunt; h != nil && h.Applied {
		fmt.Fprintf(&b, "\n🏹 Hunt %s/%s (you: %s)", Amount(h.Total), Amount(h.Target), Amount(h.UserTotal))
	}
	if r := res.Raid; r != nil && r.Applied {
		fmt.Fprintf(&b, "\n⚔️ Dealt %s damage • Boss HP %s/%s", Amount(r.Dealt), Amount(r.HP), Amount(r.MaxHP))
	}
	if res.RaidCooldown > 0 {
		fmt.Fprintf(&b, "\n⏳ Raid hit on cooldown, next hit counts in %s", Wait(res.RaidCooldown))
	}
	return b.String()
}

func slotName(p service.Profile, slot model.Slot) string {
	if name := p.Equipped[slot]; name != "" {
		return name
	}
	return "—"
}

// FormatProfile renders a player's profile card.
func FormatProfile(name string, p service.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧑‍🚀 %s\n%s\n", name, divider)

	lvl := fmt.Sprintf("Level %d", p.Progress.Level)
	if p.Title != "" {
		lvl += " · " + p.Title
	}
	fmt.Fprintf(&b, "%s · Tier T%d · Power %d\n", lvl, p.MaxTier, p.Power)
	if p.Progress.NeedXP > 0 {
		fmt.Fprintf(&b, "XP %s/%s  %d%%  %s\n",
			humanize.Comma(int64(p.Progress.IntoXP)), humanize.Comma(int64(p.Progress.NeedXP)),
			int(p.Progress.Percent*100+0.5), ProgressBar(p.Progress.Percent, progressBarWidth))
	} else {
		fmt.Fprintf(&b, "XP %s (max level)\n", humanize.Comma(int64(p.XP)))
	}
	fmt.Fprintf(&b, "💰 Coins %s • 🎟️ Tokens %d • 🔥 Streak %d\n", humanize.Comma(p.Currency), p.Tokens, p.Streak)
	fmt.Fprintf(&b, "ATK %d • DEF %d\n", p.Attack, p.Defense)
	fmt.Fprintf(&b, "Weapon: %s • Armor: %s • Trinket: %s\n",
		slotName(p, model.SlotWeapon), slotName(p, model.SlotArmor), slotName(p, model.SlotTrinket))
	fmt.Fprintf(&b, "Pet: %s • Mount: %s\n", slotName(p, model.SlotPet), slotName(p, model.SlotMount))

	inv := "—"
	if len(p.Inventory) > 0 {
		shown := p.Inventory
		if len(shown) > inventoryPreview {
			shown = shown[:inventoryPreview]
		}
		inv = strings.Join(shown, ", ")
		if len(p.Inventory) > inventoryPreview {
			inv += "…"
		}
	}
	fmt.Fprintf(&b, "Inventory: %s", inv)

	if len(p.Buffs) > 0 {
		var buffs []string
		for _, buff := range []model.Buff{model.BuffDoubleXP, model.BuffEnergy, model.BuffGuaranteedLoot} {
			if n := p.Buffs[buff]; n > 0 {
				buffs = append(buffs, fmt.Sprintf("%s×%d", buff, n))
			}
		}
		if len(buffs) > 0 {
			fmt.Fprintf(&b, "\nBuffs: %s", strings.Join(buffs, ", "))
		}
	}
	return b.String()
}

// FormatShopPage renders one page of the catalog.
func FormatShopPage(page service.ShopPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏪 Shop · page %d/%d\n%s\n", page.Page, page.Pages, divider)
	for _, it := range page.Items {
		b.WriteString(formatShopItem(it))
		b.WriteByte('\n')
	}
	b.WriteString(divider + "\nBuy with /buy <item name>")
	return b.String()
}

func formatShopItem(it catalog.Item) string {
	line := "• " + it.Name
	if it.Tier > 0 {
		line += fmt.Sprintf(" (T%d)", it.Tier)
	}
	line += fmt.Sprintf(" · %s coins", humanize.Comma(it.Price))
	if stat := it.StatLine(); stat != "" {
		line += " · " + stat
	}
	return line
}

// FormatLeaderboard renders the XP leaderboard as HTML.
func FormatLeaderboard(rows []service.Standing) string {
	var b strings.Builder
	b.WriteString("🏆 Leaderboard\n" + divider + "\n")
	if len(rows) == 0 {
		b.WriteString("No workouts logged yet.")
		return b.String()
	}
	medals := []string{"🥇", "🥈", "🥉"}
	for i, row := range rows {
		rank := humanize.Ordinal(row.Rank)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&b, "%s %s · Lv %d %s · %s XP\n",
			rank, Mention(row.UserID), row.Level, html.EscapeString(row.Title), humanize.Comma(int64(row.XP)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatHuntStatus renders a live hunt as HTML.
func FormatHuntStatus(h *encounter.Hunt, remaining time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏹 %s hunt · %s\n%s\n", capitalize(string(h.Mode)), themeLabel(h.Theme), divider)
	fmt.Fprintf(&b, "%s/%s %s  %s\n", Amount(h.Total), Amount(h.Target), h.Unit, ProgressBar(h.Total/h.Target, progressBarWidth))
	fmt.Fprintf(&b, "Party %d/%d · ⏱️ %s left\n", len(h.Participants), h.Capacity, Wait(remaining))
	for _, m := range h.Members() {
		fmt.Fprintf(&b, "• %s: %s\n", Mention(m.UserID), Amount(m.Contribution))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatRaidStatus renders a live raid as HTML.
func FormatRaidStatus(r *encounter.Raid, remaining time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🐉 %s · log %s to attack\n%s\n", html.EscapeString(r.BossName), themeLabel(r.Theme), divider)
	fmt.Fprintf(&b, "HP %s/%s  %s\n", Amount(r.HP), Amount(r.MaxHP), ProgressBar(r.HP/r.MaxHP, progressBarWidth))
	fmt.Fprintf(&b, "⏱️ %s left · %d attackers\n", Wait(remaining), len(r.Participants))
	for _, m := range r.Members() {
		fmt.Fprintf(&b, "• %s: %s dmg\n", Mention(m.UserID), Amount(m.Contribution))
	}
	return strings.TrimRight(b.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// themeLabel returns the display label of an activity key.
func themeLabel(theme string) string {
	if a, ok := progression.LookupActivity(theme); ok {
		return a.Label
	}
	return theme
}

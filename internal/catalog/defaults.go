package catalog

import "fitrpg-bot/internal/model"

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(DefaultItems())
}

// DefaultItems returns the built-in item list in display order.
func DefaultItems() []Item {
	weapons := []Item{
		{Name: "Wooden Club", Tier: 1, Price: 120, Kind: Weapon{Attack: 2}},
		{Name: "Bronze Dagger", Tier: 1, Price: 180, Kind: Weapon{Attack: 3}},
		{Name: "Iron Sword", Tier: 2, Price: 420, Kind: Weapon{Attack: 6}},
		{Name: "Steel Saber", Tier: 2, Price: 650, Kind: Weapon{Attack: 8}},
		{Name: "Runed Blade", Tier: 3, Price: 1200, Kind: Weapon{Attack: 12}},
		{Name: "Sunforged Spear", Tier: 4, Price: 2000, Kind: Weapon{Attack: 18}},
		{Name: "Dragonbone Axe", Tier: 5, Price: 3100, Kind: Weapon{Attack: 26}},
		{Name: "Celestial Halberd", Tier: 6, Price: 4500, Kind: Weapon{Attack: 35}},
		{Name: "Starpiercer Lance", Tier: 7, Price: 6400, Kind: Weapon{Attack: 46}},
		{Name: "Voidreaver Scythe", Tier: 8, Price: 8800, Kind: Weapon{Attack: 58}},
		{Name: "Aurora Greatsword", Tier: 9, Price: 12000, Kind: Weapon{Attack: 72}},
		{Name: "Transcendent Blade", Tier: 10, Price: 16000, Kind: Weapon{Attack: 90}},
	}
	armors := []Item{
		{Name: "Padded Vest", Tier: 1, Price: 110, Kind: Armor{Defense: 2}},
		{Name: "Leather Coat", Tier: 1, Price: 170, Kind: Armor{Defense: 3}},
		{Name: "Chainmail", Tier: 2, Price: 420, Kind: Armor{Defense: 6}},
		{Name: "Scale Plate", Tier: 2, Price: 650, Kind: Armor{Defense: 8}},
		{Name: "Runed Aegis", Tier: 3, Price: 1200, Kind: Armor{Defense: 12}},
		{Name: "Sunforged Plate", Tier: 4, Price: 2000, Kind: Armor{Defense: 18}},
		{Name: "Dragonhide Mail", Tier: 5, Price: 3100, Kind: Armor{Defense: 26}},
		{Name: "Celestial Carapace", Tier: 6, Price: 4500, Kind: Armor{Defense: 35}},
		{Name: "Aegis of Dawn", Tier: 7, Price: 6300, Kind: Armor{Defense: 46}},
		{Name: "Eclipse Barrier", Tier: 8, Price: 8700, Kind: Armor{Defense: 58}},
		{Name: "Mythril Bastion", Tier: 9, Price: 11800, Kind: Armor{Defense: 72}},
		{Name: "Omega Bulwark", Tier: 10, Price: 15800, Kind: Armor{Defense: 90}},
	}
	trinkets := []Item{
		{Name: "Lucky Charm", Tier: 2, Price: 800, Kind: Trinket{Bonus{Text: "+2% coins"}}},
		{Name: "Runner's Band", Tier: 2, Price: 1000, Kind: Trinket{Bonus{Text: "+3% run XP", XPPercent: 3, Activity: "run_miles"}}},
		{Name: "Focus Bead", Tier: 3, Price: 1800, Kind: Trinket{Bonus{Text: "+3% all XP", XPPercent: 3}}},
		{Name: "Philosopher's Sigil", Tier: 5, Price: 3200, Kind: Trinket{Bonus{Text: "+4% all XP", XPPercent: 4}}},
		{Name: "King's Crest", Tier: 6, Price: 4200, Kind: Trinket{Bonus{Text: "+6% coins"}}},
		{Name: "Eternal Compass", Tier: 7, Price: 5600, Kind: Trinket{Bonus{Text: "+8% adventure loot"}}},
		{Name: "Fateweaver Charm", Tier: 8, Price: 7200, Kind: Trinket{Bonus{Text: "+10% hunt loot"}}},
		{Name: "Celestial Relic", Tier: 9, Price: 9200, Kind: Trinket{Bonus{Text: "+12% all XP", XPPercent: 12}}},
		{Name: "Omniscient Eye", Tier: 10, Price: 12000, Kind: Trinket{Bonus{Text: "+14% all XP", XPPercent: 14}}},
	}
	consumables := []Item{
		{Name: "Health Potion", Price: 100, Kind: Consumable{Effect: "Restore stamina (flavor)"}},
		{Name: "Energy Drink", Price: 160, Kind: Consumable{Effect: "+10% XP for next log", Buff: model.BuffEnergy}},
		{Name: "Battle Horn", Price: 400, Kind: Consumable{Effect: "Double XP for next log", Buff: model.BuffDoubleXP}},
		{Name: "Treasure Map", Price: 500, Kind: Consumable{Effect: "Guarantee gear on next cleared encounter", Buff: model.BuffGuaranteedLoot}},
	}
	pets := []Item{
		{Name: "Pocket Slime", Tier: 2, Price: 900, Kind: Pet{Bonus{Text: "+2% XP from logs", XPPercent: 2}}},
		{Name: "Trail Hawk", Tier: 3, Price: 1200, Kind: Pet{Bonus{Text: "+3% run XP", XPPercent: 3, Activity: "run_miles"}}},
	}
	mounts := []Item{
		{Name: "Sprint Goat", Tier: 3, Price: 1500, Kind: Mount{Bonus{Text: "+5% hunt token chance"}}},
		{Name: "Shadow Steed", Tier: 4, Price: 2200, Kind: Mount{Bonus{Text: "+5 Power in hunts"}}},
	}

	items := make([]Item, 0, 41)
	for _, group := range [][]Item{weapons, armors, trinkets, consumables, pets, mounts} {
		items = append(items, group...)
	}
	return items
}

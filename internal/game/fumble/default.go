package fumble

// Sub-table names referenced by the default main table.
const (
	SubArmorTrouble  = "armor_trouble"
	SubMountTrouble  = "mount_trouble"
	SubWeaponTrouble = "weapon_trouble"
)

// DefaultTable returns the standard fumble table.
//
// Postcondition: the returned table passes Validate.
func DefaultTable() *Table {
	return &Table{
		Die: "1d20",
		Entries: []Entry{
			{Min: 1, Max: 2, ID: "armor_trouble", SubTable: SubArmorTrouble},
			{Min: 3, Max: 4, ID: "battlefield_damaged", Title: "Battlefield Damaged", Text: "Something nearby is broken (e.g., furniture, equipment)."},
			{Min: 5, Max: 5, ID: "battlefield_shifts", Title: "Battlefield Shifts", Text: "Combatants are moved 1d6 squares randomly without provoking attacks of opportunity."},
			{Min: 6, Max: 6, ID: "close_quarters", Title: "Close Quarters", Text: "Combatants Grappled!"},
			{Min: 7, Max: 7, ID: "item_damaged", Title: "Item Damaged", Text: "A random item is damaged. Roll a saving throw to see if it breaks."},
			{Min: 8, Max: 8, ID: "item_dropped", Title: "Item Dropped", Text: "An item is dropped, spilled, or cut free."},
			{Min: 9, Max: 11, ID: "knock_down", Title: "Knock Down", Text: "{actor} is knocked to the ground. Save vs. paralyzation or fall."},
			{Min: 12, Max: 12, ID: "lucky_break", Title: "Lucky Break", Text: "The target gains +4 AC and saving throws for one round."},
			{Min: 13, Max: 13, ID: "lucky_opening", Title: "Lucky Opening", Text: "The target gains +4 to their next attack roll."},
			{Min: 14, Max: 15, ID: "mount_trouble", SubTable: SubMountTrouble},
			{Min: 16, Max: 16, ID: "reinforcements", Title: "Reinforcements", Text: "Allies of the DM's choice arrive."},
			{Min: 17, Max: 17, ID: "retreat", Title: "Retreat", Text: "{actor} is driven back."},
			{Min: 18, Max: 18, ID: "slip", Title: "Slip", Text: "{actor} falls and spends the round on their back."},
			{Min: 19, Max: 20, ID: "weapon_trouble", SubTable: SubWeaponTrouble},
		},
		SubTables: map[string]*SubTable{
			SubArmorTrouble: {
				Title: "Armor Trouble",
				Die:   "1d6",
				Entries: []Entry{
					{Min: 1, Max: 2, ID: "helm_lost", Title: "Helm lost", Text: "The victim's head is exposed."},
					{Min: 3, Max: 5, ID: "shield_lost", Title: "Shield lost"},
					{Min: 6, Max: 6, ID: "plate_lost", Title: "Plate/Padding lost", Text: "+2 to AC (plate armor only)."},
				},
			},
			SubMountTrouble: {
				Title: "Mount Trouble",
				Die:   "1d6",
				Entries: []Entry{
					{Min: 1, Max: 3, ID: "mount_bolts", Title: "Mount bolts", Text: "It sprints for 1d10 rounds in a random direction, or until the rider rolls a successful riding proficiency check."},
					{Min: 4, Max: 5, ID: "mount_rears", Title: "Mount rears", Text: "The rider must roll a successful riding proficiency check or fall off the mount."},
					{Min: 6, Max: 6, ID: "mount_falls", Title: "Mount falls", Text: "The thrown rider must roll a successful saving throw vs. paralyzation or be stunned for 1d6 rounds."},
				},
			},
			SubWeaponTrouble: {
				Title: "Weapon Trouble",
				Die:   "1d6",
				Entries: []Entry{
					{Min: 1, Max: 2, ID: "disarmed", Title: "Disarmed", Text: "{actor} drops their weapon unless they succeed on a saving throw vs. paralyzation."},
					{Min: 3, Max: 5, ID: "hard_parry", Title: "Hard parry", Text: "The weapon may break unless it passes a successful item saving throw vs. crushing blow."},
					{Min: 6, Max: 6, ID: "weapon_stuck", Title: "Weapon stuck", Text: "If {actor} killed an opponent last round, the weapon is stuck in the foe's body. {actor} must take one round to pull it free."},
				},
			},
		},
	}
}

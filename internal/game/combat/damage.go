package combat

// DamageFor picks the damage of an attack tier from a per-tier damage array.
// Tiers past the end of the array use the last entry; an empty array deals nothing.
func DamageFor(damage []int, tier int) int {
	if len(damage) == 0 {
		return 0
	}
	if tier < 0 {
		tier = 0
	}
	if tier >= len(damage) {
		tier = len(damage) - 1
	}
	return damage[tier]
}

// PlayerTier maps a streak of consecutive correct answers to an attack tier.
// The first correct answer is a basic attack, the second a special attack and so on.
func PlayerTier(streak, tiers int) int {
	if streak <= 1 || tiers <= 1 {
		return 0
	}
	if streak > tiers {
		return tiers - 1
	}
	return streak - 1
}

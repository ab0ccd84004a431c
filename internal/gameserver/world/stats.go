package world

// TraitModifiers is the static table mapping a trait id to the stat
// modifiers it grants. Populated from world content; a trait with no
// entry here contributes nothing.
var TraitModifiers = map[string][]Effect{}

// FinalStats computes spec.md §4.6's pure resolution:
//
//	final_stats(character) = base_stats + Σ stat_modifiers from traits
//	                         + Σ stat_modifiers from equipped items
//
// The result must be recomputable by clients from broadcast state, so it
// touches nothing but c's own fields and the static TraitModifiers table.
func FinalStats(c *Character) Stats {
	final := make(Stats, len(c.BaseStats))
	for k, v := range c.BaseStats {
		final[k] = v
	}

	for _, trait := range c.Traits {
		for _, eff := range TraitModifiers[trait] {
			if eff.Kind == EffectStatModifier {
				final[eff.Stat] += eff.Value
			}
		}
	}

	for _, item := range c.Equipment {
		for _, eff := range item.Effects {
			if eff.Kind == EffectStatModifier {
				final[eff.Stat] += eff.Value
			}
		}
	}

	return final
}

// ArmorClass sums every armor_class effect from equipped items and trait
// modifiers, the same inputs FinalStats draws from.
func ArmorClass(c *Character) int {
	total := 0
	for _, trait := range c.Traits {
		for _, eff := range TraitModifiers[trait] {
			if eff.Kind == EffectArmorClass {
				total += eff.Value
			}
		}
	}
	for _, item := range c.Equipment {
		for _, eff := range item.Effects {
			if eff.Kind == EffectArmorClass {
				total += eff.Value
			}
		}
	}
	return total
}

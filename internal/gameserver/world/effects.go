package world

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// ParseDiceExpr parses an "NdM±K" or plain-integer heal expression (spec.md
// §4.6 USE_ITEM: "heal: parse NdM±K or integer") and returns the rolled
// value. rng must be non-nil; callers share one *rand.Rand per server so
// rolls are deterministic under a fixed seed for testing.
func ParseDiceExpr(expr string, rng *rand.Rand) (int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("world: empty dice expression")
	}

	if n, err := strconv.Atoi(expr); err == nil {
		return n, nil
	}

	dIdx := strings.IndexByte(expr, 'd')
	if dIdx < 0 {
		return 0, fmt.Errorf("world: invalid dice expression %q", expr)
	}

	countStr := expr[:dIdx]
	rest := expr[dIdx+1:]

	modSign := 0
	modIdx := -1
	for i, r := range rest {
		if r == '+' || r == '-' {
			modIdx = i
			if r == '+' {
				modSign = 1
			} else {
				modSign = -1
			}
			break
		}
	}

	sidesStr := rest
	modStr := ""
	if modIdx >= 0 {
		sidesStr = rest[:modIdx]
		modStr = rest[modIdx+1:]
	}

	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 {
		return 0, fmt.Errorf("world: invalid dice count in %q", expr)
	}
	sides, err := strconv.Atoi(sidesStr)
	if err != nil || sides <= 0 {
		return 0, fmt.Errorf("world: invalid dice sides in %q", expr)
	}

	modifier := 0
	if modStr != "" {
		m, err := strconv.Atoi(modStr)
		if err != nil {
			return 0, fmt.Errorf("world: invalid dice modifier in %q", expr)
		}
		modifier = modSign * m
	}

	total := 0
	for i := 0; i < count; i++ {
		total += rng.Intn(sides) + 1
	}
	return total + modifier, nil
}

// ApplyOnUseEffects applies every on_use effect of item to c (spec.md
// §4.6 USE_ITEM), returning the number of effects successfully applied.
// heal clamps CurrentHP to [0, MaxHP].
func ApplyOnUseEffects(c *Character, effects []Effect, rng *rand.Rand) int {
	applied := 0
	for _, eff := range effects {
		if !eff.OnUse {
			continue
		}
		switch eff.Kind {
		case EffectHeal:
			var amount int
			var err error
			if eff.Dice != "" {
				amount, err = ParseDiceExpr(eff.Dice, rng)
			} else {
				amount = eff.Value
			}
			if err != nil {
				continue
			}
			c.CurrentHP += amount
			if c.CurrentHP > c.MaxHP {
				c.CurrentHP = c.MaxHP
			}
			if c.CurrentHP < 0 {
				c.CurrentHP = 0
			}
			applied++
		case EffectFlagModifier:
			switch eff.Action {
			case FlagActionAdd:
				c.AddFlag(eff.Flag)
				applied++
			case FlagActionRemove:
				c.RemoveFlag(eff.Flag)
				applied++
			}
		}
	}
	return applied
}

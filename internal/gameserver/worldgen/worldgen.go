// Package worldgen is the pure-function world generator spec.md treats as
// a Non-goal internally (noise maps, history simulation, name generation
// are not specified in detail) — only its signature and determinism under
// a fixed seed matter: the same seed must always produce the same world.
package worldgen

import (
	"fmt"
	"math/rand"

	"github.com/pocketomega/rpg-assistant/internal/gameserver/world"
)

var biomeNames = []string{"plains", "forest", "desert", "tundra", "swamp", "hills", "mountain", "ocean", "lake"}

var techLevels = []string{"bronze age", "iron age", "medieval", "renaissance"}
var magicLevels = []string{"none", "low", "moderate", "high"}

var factionAdjectives = []string{"Iron", "Silver", "Crimson", "Azure", "Gilded", "Ashen"}
var factionNouns = []string{"Concord", "Dominion", "Wardens", "Compact", "League", "Throne"}
var factionTypes = []string{"kingdom", "merchant guild", "religious order", "tribal confederation"}

var poiAdjectives = []string{"Elder", "Whispering", "Sunken", "Last", "Forgotten", "Stonemoor"}
var poiNouns = []string{"Hold", "Vale", "Crossing", "Hollow", "Watch", "Reach"}

// GenerateWorld produces a fresh WorldState for a new world, deterministic
// under seed: the same (seed, width, height) always yields the same world.
func GenerateWorld(worldName string, seed int64, width, height int) *world.State {
	rng := rand.New(rand.NewSource(seed))

	biomeMap := make([][]string, height)
	for y := 0; y < height; y++ {
		biomeMap[y] = make([]string, width)
		for x := 0; x < width; x++ {
			biomeMap[y][x] = biomeNames[rng.Intn(len(biomeNames))]
		}
	}

	factions := generateFactions(rng, 3)
	pois := generatePOIs(rng, biomeMap, width, height, factions, 5)

	return &world.State{
		WorldName:        worldName,
		Seed:             seed,
		MapWidth:         width,
		MapHeight:        height,
		Year:             rng.Intn(900) + 100,
		TechLevel:        techLevels[rng.Intn(len(techLevels))],
		MagicLevel:       magicLevels[rng.Intn(len(magicLevels))],
		BiomeMap:         biomeMap,
		PointsOfInterest: pois,
		Factions:         factions,
		HistoryLog:       []string{fmt.Sprintf("The world of %s is founded.", worldName)},
		Weather:          "clear",
	}
}

func generateFactions(rng *rand.Rand, n int) []*world.Faction {
	factions := make([]*world.Faction, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s %s", factionAdjectives[rng.Intn(len(factionAdjectives))], factionNouns[rng.Intn(len(factionNouns))])
		factions[i] = &world.Faction{
			ID:          fmt.Sprintf("faction_%d", i+1),
			Name:        name,
			Type:        factionTypes[rng.Intn(len(factionTypes))],
			Description: fmt.Sprintf("The %s holds sway over its claimed territory.", name),
			Relations:   map[string]int{},
		}
	}
	for _, f := range factions {
		for _, other := range factions {
			if f.ID == other.ID {
				continue
			}
			f.Relations[other.ID] = rng.Intn(41) - 20 // [-20, 20]
		}
	}
	return factions
}

func generatePOIs(rng *rand.Rand, biomeMap [][]string, width, height int, factions []*world.Faction, n int) []*world.POI {
	pois := make([]*world.POI, 0, n+1)

	capitalX, capitalY := findPassableTile(rng, biomeMap, width, height)
	pois = append(pois, &world.POI{
		ID:                   "poi_capital",
		Name:                 "Crownhaven",
		Type:                 world.POITypeCapital,
		X:                    capitalX,
		Y:                    capitalY,
		ControllingFactionID: factions[0].ID,
	})

	poiTypes := []string{world.POITypeTown, world.POITypeRuin, world.POITypeDungeon, world.POITypeNaturalWonder}
	for i := 0; i < n; i++ {
		x, y := findPassableTile(rng, biomeMap, width, height)
		name := fmt.Sprintf("%s %s", poiAdjectives[rng.Intn(len(poiAdjectives))], poiNouns[rng.Intn(len(poiNouns))])
		pois = append(pois, &world.POI{
			ID:   fmt.Sprintf("poi_%d", i+1),
			Name: name,
			Type: poiTypes[rng.Intn(len(poiTypes))],
			X:    x,
			Y:    y,
		})
	}
	return pois
}

func findPassableTile(rng *rand.Rand, biomeMap [][]string, width, height int) (int, int) {
	for attempt := 0; attempt < 200; attempt++ {
		x := rng.Intn(width)
		y := rng.Intn(height)
		if world.IsPassable(biomeMap[y][x]) {
			return x, y
		}
	}
	return width / 2, height / 2
}

var poiDescriptionsByType = map[string][]string{
	world.POITypeCapital: {
		"%s, seat of power, rises above the surrounding land with walls worn by centuries.",
		"%s anchors the realm: broad avenues, a standing garrison, banners on every wall.",
	},
	world.POITypeTown: {
		"%s is a modest settlement of traders and farmers, its streets busy at all hours.",
		"%s gets by on river trade and a weekly market that draws folk from neighboring villages.",
	},
	world.POITypeRuin: {
		"The ruins of %s hint at a grander age now long collapsed into rubble and moss.",
		"%s stands half-swallowed by the land, its purpose lost to whoever built it.",
	},
	world.POITypeDungeon: {
		"%s descends into darkness; the air smells of damp stone and older things.",
		"Few who enter %s speak of what they found, and fewer still go back.",
	},
	world.POITypeNaturalWonder: {
		"%s is a sight travelers cross the land to see, untouched by any settlement.",
		"%s needs no garrison and no name carved in stone; it has simply always been here.",
	},
}

// GeneratePOIDescription is invoked exactly once, the first time any
// character enters a POI whose description is still empty (spec.md §4.6).
// It is a pure function of the POI's own fields plus rng, so a replayed
// seed reproduces the same flavor text.
func GeneratePOIDescription(poi *world.POI, rng *rand.Rand) string {
	templates, ok := poiDescriptionsByType[poi.Type]
	if !ok || len(templates) == 0 {
		return fmt.Sprintf("%s awaits exploration.", poi.Name)
	}
	return fmt.Sprintf(templates[rng.Intn(len(templates))], poi.Name)
}

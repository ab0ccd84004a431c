package world

// BiomeInfo describes a biome's static, authoritative properties.
type BiomeInfo struct {
	Color    string
	Passable bool
}

// Biomes is the static biome table (spec.md §3: "a name keyed into a
// static table {color, passable?}. Passability is authoritative for
// movement validation."). Unknown biome names are treated as impassable
// by IsPassable — a generator or save file can never accidentally make an
// unrecognized tile walkable.
var Biomes = map[string]BiomeInfo{
	"plains":    {Color: "#9acd32", Passable: true},
	"forest":    {Color: "#228b22", Passable: true},
	"desert":    {Color: "#edc9af", Passable: true},
	"tundra":    {Color: "#e0ffff", Passable: true},
	"swamp":     {Color: "#556b2f", Passable: true},
	"hills":     {Color: "#bdb76b", Passable: true},
	"mountain":  {Color: "#808080", Passable: false},
	"ocean":     {Color: "#1e90ff", Passable: false},
	"lake":      {Color: "#4682b4", Passable: false},
	"volcano":   {Color: "#8b0000", Passable: false},
	"chasm":     {Color: "#1a1a1a", Passable: false},
}

// IsPassable reports whether biomeName permits movement. An unrecognized
// name is treated as impassable.
func IsPassable(biomeName string) bool {
	info, ok := Biomes[biomeName]
	return ok && info.Passable
}

// InBounds reports whether (x,y) lies within the world's map dimensions.
func (s *State) InBounds(x, y int) bool {
	return x >= 0 && x < s.MapWidth && y >= 0 && y < s.MapHeight
}

// BiomeAt returns the biome name at (x,y), or "" if out of bounds.
func (s *State) BiomeAt(x, y int) string {
	if !s.InBounds(x, y) {
		return ""
	}
	return s.BiomeMap[y][x]
}

// IsPassableAt reports whether (x,y) is both in bounds and passable.
func (s *State) IsPassableAt(x, y int) bool {
	return s.InBounds(x, y) && IsPassable(s.BiomeAt(x, y))
}

// POIByID returns the POI with the given id, or nil if not found.
func (s *State) POIByID(id string) *POI {
	for _, p := range s.PointsOfInterest {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// CapitalPOI returns the first POI of type capital, or nil if none exists.
func (s *State) CapitalPOI() *POI {
	for _, p := range s.PointsOfInterest {
		if p.Type == POITypeCapital {
			return p
		}
	}
	return nil
}

package world

// FogRevealSize is the side length of the square window revealed around a
// character's position on every successful move (spec.md §4.7).
const FogRevealSize = 6

// revealOffsets returns the offset range [-floor(n/2), floor(n/2)-1] for an
// even window size n, per spec.md §4.7's exact offset rule.
func revealOffsets(n int) (lo, hi int) {
	lo = -(n / 2)
	hi = n/2 - 1
	return lo, hi
}

// RevealAround adds every in-bounds cell of the FogRevealSize x
// FogRevealSize window centered (as evenly as possible) on (x,y) to
// discovered. discovered is mutated in place and must be non-nil.
func RevealAround(discovered map[[2]int]struct{}, s *State, x, y int) {
	loX, hiX := revealOffsets(FogRevealSize)
	loY, hiY := revealOffsets(FogRevealSize)

	for dy := loY; dy <= hiY; dy++ {
		for dx := loX; dx <= hiX; dx++ {
			cx, cy := x+dx, y+dy
			if s.InBounds(cx, cy) {
				discovered[[2]int{cx, cy}] = struct{}{}
			}
		}
	}
}

package session

import (
	"time"

	"github.com/pocketomega/rpg-assistant/internal/gameserver/command"
)

// relationStep bounds how far one tick nudges a faction relation toward
// equilibrium (0), so drift stays gradual across many ticks rather than
// swinging wildly on any single one.
const relationStep = 2

var weatherCycle = []string{"clear", "overcast", "rain", "storm", "fog"}

// RunSimulationTick starts the optional simulation goroutine (spec.md §2:
// "periodic world-wide update (weather/NPC drift) applied under the same
// lock"). It runs until Manager.Shutdown closes the shutdown channel.
func (m *Manager) RunSimulationTick(period time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-m.shutdown:
				return
			case <-ticker.C:
				m.tick()
			}
		}
	}()
}

func (m *Manager) tick() {
	m.mu.Lock()
	for _, f := range m.world.Factions {
		for otherID, relation := range f.Relations {
			f.Relations[otherID] = stepTowardZero(relation, m.rng.Intn(relationStep+1))
		}
	}
	m.world.Weather = weatherCycle[m.rng.Intn(len(weatherCycle))]
	snapshot := command.WorldStateUpdate{World: m.world, Players: m.playerSnapshotLocked()}
	m.mu.Unlock()

	m.broadcast(snapshot)
}

func stepTowardZero(value, step int) int {
	switch {
	case value > 0:
		next := value - step
		if next < 0 {
			return 0
		}
		return next
	case value < 0:
		next := value + step
		if next > 0 {
			return 0
		}
		return next
	default:
		return 0
	}
}

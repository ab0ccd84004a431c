// Command gameserver runs the authoritative multiplayer RPG world
// process (spec.md §4.5-§4.9): it loads or generates the world, accepts
// client connections, and serializes every state mutation behind a
// single lock.
package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pocketomega/rpg-assistant/internal/gameserver/persist"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/session"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/world"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/worldgen"
)

func main() {
	addr := envOr("GAME_SERVER_ADDR", "127.0.0.1:9191")
	worldName := envOr("GAME_WORLD_NAME", "eldoria")
	saveRoot := envOr("GAME_SAVE_DIR", ".")

	seed := envInt64("GAME_WORLD_SEED", 1)
	mapWidth := envInt("GAME_MAP_WIDTH", 64)
	mapHeight := envInt("GAME_MAP_HEIGHT", 64)
	simTickMinutes := envInt("SIM_TICK_MINUTES", 5)

	store := persist.NewStore(saveRoot)

	st, err := store.LoadOrGenerate(worldName, func() (*world.State, error) {
		log.Printf("gameserver: no saved world %q, generating a new one (seed=%d)", worldName, seed)
		return worldgen.GenerateWorld(worldName, seed, mapWidth, mapHeight), nil
	})
	if err != nil {
		log.Fatalf("gameserver: load or generate world %q: %v", worldName, err)
	}
	log.Printf("gameserver: world %q ready (year %d, %dx%d, %d POIs, %d factions)",
		st.WorldName, st.Year, st.MapWidth, st.MapHeight, len(st.PointsOfInterest), len(st.Factions))

	mgr := session.NewManager(st, store, seed)
	if simTickMinutes > 0 {
		mgr.RunSimulationTick(time.Duration(simTickMinutes) * time.Minute)
	}

	// Shutdown ordering (spec.md §5): a first interrupt runs the graceful
	// sequence (stop accepting, persist, close sockets); a second forces
	// an immediate exit in case a client socket is wedged.
	go func() {
		sigCh := make(chan os.Signal, 2)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("gameserver: received signal %v, shutting down gracefully...", sig)

		done := make(chan struct{})
		go func() {
			mgr.Shutdown()
			close(done)
		}()

		select {
		case <-done:
			log.Println("gameserver: shutdown complete")
			os.Exit(0)
		case <-sigCh:
			log.Println("gameserver: second signal received, forcing exit")
			os.Exit(1)
		}
	}()

	if err := mgr.Serve(addr); err != nil {
		log.Fatalf("gameserver: serve: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

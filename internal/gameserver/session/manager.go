// Package session owns the game server's connection lifecycle (spec.md
// §4.5): accepting clients, the login handshake, the per-connection
// command loop, and the single lock that serializes every mutation to
// WorldState and the in-memory Character table.
package session

import (
	"log"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/rpg-assistant/internal/gameserver/persist"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/wire"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/world"
)

// acceptTimeout bounds each Accept() call so the accept loop can observe
// a shutdown request promptly (spec.md §4.5 step 1 / §5).
const acceptTimeout = 1 * time.Second

// PlayerSession is the server-side session record (spec.md §3
// PlayerSession): player_id, save_id, the in-memory character, and the
// socket. Character is owned by the Manager for the session's lifetime.
type PlayerSession struct {
	PlayerID  uuid.UUID
	SaveID    string
	Character *world.Character

	conn    net.Conn
	writeMu sync.Mutex
}

func (s *PlayerSession) send(msgType string, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return wire.WriteFrame(s.conn, msgType, v)
}

// Manager holds the single lock guarding WorldState, the session table,
// and every in-memory Character (spec.md §5: "a single reentrant mutex
// protects the WorldState, the session table, and every Character
// currently in memory"). Handlers in this package never call another
// locking method while already holding mu — there is no re-entrant
// support, only the discipline of a single acquire/release per operation.
type Manager struct {
	mu       sync.Mutex
	world    *world.State
	sessions map[uuid.UUID]*PlayerSession
	rng      *rand.Rand

	store    *persist.Store
	listener net.Listener
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewManager constructs a Manager over an already-loaded world. rngSeed
// seeds the shared *rand.Rand that dice rolls, world-gen flavor text, and
// the simulation tick all draw from, so a fixed seed reproduces a whole
// playthrough's randomness.
func NewManager(st *world.State, store *persist.Store, rngSeed int64) *Manager {
	return &Manager{
		world:    st,
		sessions: make(map[uuid.UUID]*PlayerSession),
		rng:      rand.New(rand.NewSource(rngSeed)),
		store:    store,
		shutdown: make(chan struct{}),
	}
}

// Serve binds addr and runs the accept loop until Shutdown is called or
// the listener fails. It blocks the calling goroutine.
func (m *Manager) Serve(addr string) error {
	if err := m.Listen(addr); err != nil {
		return err
	}
	return m.AcceptLoop()
}

// Listen binds addr without starting the accept loop, so a caller (tests,
// mainly) can read back the bound address — useful with addr ":0".
func (m *Manager) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.listener = ln
	log.Printf("gameserver: listening on %s", addr)
	return nil
}

// Addr returns the bound listener's address, or nil if Listen hasn't run.
func (m *Manager) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// AcceptLoop runs the blocking accept loop over an already-bound
// listener (see Listen) until Shutdown is called.
func (m *Manager) AcceptLoop() error {
	ln := m.listener
	for {
		select {
		case <-m.shutdown:
			return nil
		default:
		}

		if tcpLn, ok := ln.(*net.TCPListener); ok {
			tcpLn.SetDeadline(time.Now().Add(acceptTimeout))
		}
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-m.shutdown:
				return nil
			default:
				log.Printf("gameserver: accept error: %v", err)
				continue
			}
		}

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.handleConn(conn)
		}()
	}
}

// Shutdown implements spec.md §5's shutdown ordering: stop accepting,
// acquire the lock, persist every character and the world, close every
// client socket, return. A caller invokes this once per interrupt; a
// second signal is the caller's job to turn into a forced exit.
func (m *Manager) Shutdown() {
	close(m.shutdown)
	if m.listener != nil {
		m.listener.Close()
	}

	m.mu.Lock()
	for _, sess := range m.sessions {
		if err := m.store.SaveCharacter(sess.Character); err != nil {
			log.Printf("gameserver: save character %s on shutdown: %v", sess.SaveID, err)
		}
	}
	if err := m.store.SaveWorldState(m.world); err != nil {
		log.Printf("gameserver: save world state on shutdown: %v", err)
	}
	conns := make([]net.Conn, 0, len(m.sessions))
	for _, sess := range m.sessions {
		conns = append(conns, sess.conn)
	}
	m.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	m.wg.Wait()
}

// SessionCount reports the number of currently connected players.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

package session

import (
	"errors"
	"io"
	"log"
	"net"

	"github.com/google/uuid"

	"github.com/pocketomega/rpg-assistant/internal/gameserver/command"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/wire"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/world"
)

// handleConn runs spec.md §4.5 steps 3-8 for one accepted connection: the
// login handshake, registration, the initial snapshot, the command loop,
// and cleanup. It never returns an error; all failures are logged and end
// in the connection being closed.
func (m *Manager) handleConn(conn net.Conn) {
	defer conn.Close()

	sess, ok := m.login(conn)
	if !ok {
		return
	}

	if err := m.sendInitialWorldState(sess); err != nil {
		log.Printf("gameserver: session %s: send initial state: %v", sess.PlayerID, err)
		m.unregister(sess)
		return
	}

	m.commandLoop(sess)
	m.unregister(sess)
}

// login implements step 3-5: read exactly one LOGIN message, load the
// character, relocate it if necessary, and register the session.
func (m *Manager) login(conn net.Conn) (*PlayerSession, bool) {
	env, err := wire.ReadFrame(conn)
	if err != nil {
		log.Printf("gameserver: login read failed: %v", err)
		return nil, false
	}
	if env.Type != wire.TypeLogin {
		wire.WriteFrame(conn, wire.TypeError, "expected LOGIN as the first message")
		return nil, false
	}

	var login command.LoginPayload
	if err := env.Unmarshal(&login); err != nil || login.CharacterID == "" {
		wire.WriteFrame(conn, wire.TypeError, "malformed LOGIN payload")
		return nil, false
	}

	character, err := m.store.LoadCharacter(login.CharacterID)
	if err != nil {
		wire.WriteFrame(conn, wire.TypeError, "character not found")
		return nil, false
	}

	m.mu.Lock()
	m.relocateIfInvalid(character)
	sess := &PlayerSession{
		PlayerID:  uuid.New(),
		SaveID:    login.CharacterID,
		Character: character,
		conn:      conn,
	}
	m.sessions[sess.PlayerID] = sess
	m.mu.Unlock()

	return sess, true
}

// relocateIfInvalid implements spec.md §4.5 step 4's relocation rule.
// Callers must hold m.mu.
func (m *Manager) relocateIfInvalid(c *world.Character) {
	if m.world.IsPassableAt(c.X, c.Y) {
		return
	}
	if capital := m.world.CapitalPOI(); capital != nil {
		c.X, c.Y = capital.X, capital.Y
		return
	}
	c.X, c.Y = m.world.MapWidth/2, m.world.MapHeight/2
}

func (m *Manager) sendInitialWorldState(sess *PlayerSession) error {
	m.mu.Lock()
	snapshot := command.InitialWorldState{
		World:             m.world,
		PlayerCharacterID: sess.PlayerID.String(),
		Players:           m.playerSnapshotLocked(),
	}
	m.mu.Unlock()
	return sess.send(wire.TypeInitialWorldState, snapshot)
}

// commandLoop implements spec.md §4.5 step 7: dispatch every incoming
// message under the world lock, exiting cleanly on I/O error or EOF.
func (m *Manager) commandLoop(sess *PlayerSession) {
	for {
		env, err := wire.ReadFrame(sess.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("gameserver: session %s: read error: %v", sess.PlayerID, err)
			}
			return
		}
		m.dispatch(sess, env)
	}
}

// dispatch routes one envelope to its handler, then broadcasts the
// resulting snapshot outside the lock (spec.md §4.6/§4.8). Handler
// validation errors are reported to the originating client only.
func (m *Manager) dispatch(sess *PlayerSession, env wire.Envelope) {
	switch env.Type {
	case wire.TypePlayerMove:
		withCommand(m, sess, env, func(p command.PlayerMovePayload) error {
			if err := command.HandleMove(m.world, sess.Character, p); err != nil {
				return err
			}
			world.RevealAround(sess.Character.DiscoveredCells, m.world, sess.Character.X, sess.Character.Y)
			world.AdvanceQuests(sess.Character)
			return nil
		})
	case wire.TypeEquipItem:
		withCommand(m, sess, env, func(p command.EquipItemPayload) error {
			return command.HandleEquip(sess.Character, p)
		})
	case wire.TypeUnequipItem:
		withCommand(m, sess, env, func(p command.UnequipItemPayload) error {
			return command.HandleUnequip(sess.Character, p)
		})
	case wire.TypeUseItem:
		withCommand(m, sess, env, func(p command.UseItemPayload) error {
			if err := command.HandleUseItem(sess.Character, p, m.rng); err != nil {
				return err
			}
			world.AdvanceQuests(sess.Character)
			return nil
		})
	case wire.TypeDiscardItem:
		withCommand(m, sess, env, func(p command.DiscardItemPayload) error {
			return command.HandleDiscard(sess.Character, p)
		})
	case wire.TypePlayerEnteredPOI:
		withCommand(m, sess, env, func(p command.PlayerEnteredPOIPayload) error {
			return command.HandleEnteredPOI(m.world, sess.Character, p, m.rng)
		})
	case wire.TypeChatMessage:
		m.relayChat(sess, env)
	default:
		sess.send(wire.TypeError, "unknown message type: "+env.Type)
	}
}

// withCommand unmarshals env.Data into a T, runs apply under the world
// lock, and broadcasts the resulting snapshot outside it (spec.md §4.6:
// "acquire the world lock, validate, mutate, release; then
// broadcast_world_state() is invoked without the lock held"). On a
// malformed payload or a validation error from apply, it reports ERROR to
// sess instead of mutating or broadcasting anything.
func withCommand[T any](m *Manager, sess *PlayerSession, env wire.Envelope, apply func(T) error) {
	var payload T
	if err := env.Unmarshal(&payload); err != nil {
		sess.send(wire.TypeError, "malformed "+env.Type+" payload")
		return
	}

	m.mu.Lock()
	err := apply(payload)
	var snapshot command.WorldStateUpdate
	if err == nil {
		snapshot = command.WorldStateUpdate{World: m.world, Players: m.playerSnapshotLocked()}
	}
	m.mu.Unlock()

	if err != nil {
		sess.send(wire.TypeError, err.Error())
		return
	}
	m.broadcast(snapshot)
}

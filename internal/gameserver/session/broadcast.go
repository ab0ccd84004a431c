package session

import (
	"log"

	"github.com/pocketomega/rpg-assistant/internal/gameserver/command"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/wire"
	"github.com/pocketomega/rpg-assistant/internal/gameserver/world"
)

// playerSnapshotLocked builds the {player_id -> character} map spec.md
// §4.8 embeds in every broadcast. Callers must hold m.mu.
func (m *Manager) playerSnapshotLocked() map[string]*world.Character {
	players := make(map[string]*world.Character, len(m.sessions))
	for id, sess := range m.sessions {
		players[id.String()] = sess.Character
	}
	return players
}

// broadcast sends snapshot as WORLD_STATE_UPDATE to every session's
// socket, without the lock held (spec.md §4.8). A session whose send
// fails is scheduled for cleanup rather than torn down inline, since
// unregister() takes the lock this call must not be holding.
func (m *Manager) broadcast(snapshot command.WorldStateUpdate) {
	m.mu.Lock()
	recipients := make([]*PlayerSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		recipients = append(recipients, sess)
	}
	m.mu.Unlock()

	for _, sess := range recipients {
		if err := sess.send(wire.TypeWorldStateUpdate, snapshot); err != nil {
			log.Printf("gameserver: broadcast to session %s failed, closing: %v", sess.PlayerID, err)
			sess.conn.Close()
		}
	}
}

// relayChat forwards CHAT_MESSAGE verbatim to every session (spec.md
// §4.6: "no mutation; forward to all sessions verbatim").
func (m *Manager) relayChat(sess *PlayerSession, env wire.Envelope) {
	var chat command.ChatMessagePayload
	if err := env.Unmarshal(&chat); err != nil {
		sess.send(wire.TypeError, "malformed CHAT_MESSAGE payload")
		return
	}

	m.mu.Lock()
	recipients := make([]*PlayerSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		recipients = append(recipients, s)
	}
	m.mu.Unlock()

	for _, s := range recipients {
		if err := s.send(wire.TypeChatMessage, chat); err != nil {
			log.Printf("gameserver: chat relay to session %s failed, closing: %v", s.PlayerID, err)
			s.conn.Close()
		}
	}
}

// unregister implements spec.md §4.5 step 8: persist the character,
// remove it from the session table, then broadcast so remaining clients
// observe the disconnection.
func (m *Manager) unregister(sess *PlayerSession) {
	m.mu.Lock()
	delete(m.sessions, sess.PlayerID)
	if err := m.store.SaveCharacter(sess.Character); err != nil {
		log.Printf("gameserver: save character %s on disconnect: %v", sess.SaveID, err)
	}
	snapshot := command.WorldStateUpdate{World: m.world, Players: m.playerSnapshotLocked()}
	m.mu.Unlock()

	m.broadcast(snapshot)
}

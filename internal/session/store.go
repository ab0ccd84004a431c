package session

import (
	"strings"
	"sync"
	"time"
)

// minCleanupInterval is the smallest allowed TTL to prevent degenerate ticker intervals.
const minCleanupInterval = time.Millisecond

// summaryDigestRunes bounds how much of a trimmed turn's user message is
// folded into Summary, and summaryMaxRunes bounds the accumulated summary
// itself so a very long-running session can't grow it without limit.
const (
	summaryDigestRunes = 120
	summaryMaxRunes    = 4000
)

// Turn represents one complete exchange (user question + assistant answer).
type Turn struct {
	UserMsg   string
	Assistant string // final answer, excluding intermediate reasoning steps
	IsAgent   bool   // true = Agent mode response
}

// Session holds all state for a single browser tab session.
type Session struct {
	ID       string
	History  []Turn
	Summary  string // carried-forward digest of turns AppendTurn has already trimmed away
	LastUsed time.Time
}

// Store is a thread-safe in-memory session registry with TTL eviction.
// NOT designed for multi-replica deployments; matches this project's
// single-process orchestrator.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration // inactivity TTL, e.g. 30 minutes
	maxTurns int           // max turns retained per session, e.g. 10
	done     chan struct{} // closed by Close() to stop the cleanup goroutine
}

// NewStore creates a new Store with the given TTL and maxTurns limit.
// A background goroutine is started to periodically evict expired sessions.
// Call Close() when the store is no longer needed to stop the goroutine.
func NewStore(ttl time.Duration, maxTurns int) *Store {
	if ttl < minCleanupInterval {
		ttl = minCleanupInterval
	}
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		maxTurns: maxTurns,
		done:     make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// AppendTurn adds a completed exchange to the session, enforcing maxTurns.
// If the session does not yet exist it is created automatically, so callers
// do not need to call GetOrCreate separately before the first AppendTurn.
func (s *Store) AppendTurn(id string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		// Auto-create on first write so the initial turn is never silently dropped.
		sess = &Session{ID: id, LastUsed: time.Now()}
		s.sessions[id] = sess
	}
	sess.History = append(sess.History, turn)
	// Trim oldest turns to stay within maxTurns, folding each one into the
	// running summary so its gist survives even after the turn itself is
	// dropped from history. GetSessionContext hands both back to the caller,
	// which is how ToMessages reconstructs long-running context.
	if len(sess.History) > s.maxTurns {
		dropped := sess.History[:len(sess.History)-s.maxTurns]
		sess.Summary = appendDigest(sess.Summary, dropped)
		sess.History = sess.History[len(sess.History)-s.maxTurns:]
	}
	sess.LastUsed = time.Now()
}

// appendDigest folds each dropped turn's user message into summary as a
// one-line digest, then trims the result to summaryMaxRunes by dropping the
// oldest lines first (the newest trimmed turns are the most likely to still
// be relevant to the conversation in progress).
func appendDigest(summary string, dropped []Turn) string {
	var sb strings.Builder
	sb.WriteString(summary)
	for _, t := range dropped {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(truncateRunes(t.UserMsg, summaryDigestRunes))
	}
	result := sb.String()

	runes := []rune(result)
	if len(runes) <= summaryMaxRunes {
		return result
	}
	overflow := len(runes) - summaryMaxRunes
	trimmed := string(runes[overflow:])
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed
}

// truncateRunes returns s truncated to at most max runes, appending "..." if cut.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// GetSessionContext atomically returns both the retained turn history and
// the rolling summary of whatever AppendTurn has already trimmed away.
// Prefer this over separate GetHistory + GetSummary calls to avoid TOCTOU issues.
func (s *Store) GetSessionContext(id string) ([]Turn, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ""
	}
	result := make([]Turn, len(sess.History))
	copy(result, sess.History)
	return result, sess.Summary
}

// GetHistory returns just the turn history for id, or nil if unknown.
// Prefer GetSessionContext when the summary is also needed, to avoid a
// second lock acquisition racing a concurrent AppendTurn.
func (s *Store) GetHistory(id string) []Turn {
	turns, _ := s.GetSessionContext(id)
	return turns
}

// Delete explicitly removes a session (e.g., user clicks "Clear Chat").
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (s *Store) Close() {
	select {
	case <-s.done:
		// already closed
	default:
		close(s.done)
	}
}

// cleanupLoop periodically removes sessions that have exceeded the TTL.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			cutoff := time.Now().Add(-s.ttl)
			for id, sess := range s.sessions {
				if sess.LastUsed.Before(cutoff) {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Package wire implements the game server's length-prefixed JSON framing
// (spec.md §4.1): every message on the TCP channel is
// u32_be(len) ∥ utf8_json(payload).
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameLen guards against a corrupt or hostile length prefix causing an
// unbounded allocation.
const maxFrameLen = 16 << 20 // 16MiB

// Envelope is the wire message shape: {type, data}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Message types (spec.md §4.1).
const (
	TypeLogin             = "LOGIN"
	TypeInitialWorldState = "INITIAL_WORLD_STATE"
	TypeWorldStateUpdate  = "WORLD_STATE_UPDATE"
	TypePlayerMove        = "PLAYER_MOVE"
	TypeChatMessage       = "CHAT_MESSAGE"
	TypeError             = "ERROR"
	TypeEquipItem         = "EQUIP_ITEM"
	TypeUnequipItem       = "UNEQUIP_ITEM"
	TypeUseItem           = "USE_ITEM"
	TypeDiscardItem       = "DISCARD_ITEM"
	TypePlayerEnteredPOI  = "PLAYER_ENTERED_POI"
)

// ReadFrame reads exactly one length-prefixed frame from r and decodes it
// as an Envelope. A partial read returning zero bytes before any data is
// read (io.EOF on the length prefix) is reported as io.EOF so callers can
// treat it as a clean disconnect; any other read error or JSON parse
// failure is fatal for the connection per spec.md §4.1.
func ReadFrame(r io.Reader) (Envelope, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Envelope{}, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > maxFrameLen {
		return Envelope{}, fmt.Errorf("wire: frame length %d exceeds max %d", length, maxFrameLen)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Envelope{}, fmt.Errorf("wire: short read of %d-byte payload: %w", length, err)
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("wire: invalid JSON payload: %w", err)
	}
	return env, nil
}

// WriteFrame encodes v as the Envelope's data and writes the length-prefixed
// frame to w in one call.
func WriteFrame(w io.Writer, msgType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: marshal %s payload: %w", msgType, err)
	}
	env := Envelope{Type: msgType, Data: data}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("wire: marshal envelope: %w", err)
	}
	if len(payload) > maxFrameLen {
		return fmt.Errorf("wire: outgoing %s frame %d bytes exceeds max %d", msgType, len(payload), maxFrameLen)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// Unmarshal decodes an Envelope's Data into v.
func (e Envelope) Unmarshal(v any) error {
	return json.Unmarshal(e.Data, v)
}

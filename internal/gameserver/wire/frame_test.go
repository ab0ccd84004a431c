package wire

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"
)

type moveData struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

func TestWriteThenReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, TypePlayerMove, moveData{DX: 1, DY: -1}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	env, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if env.Type != TypePlayerMove {
		t.Fatalf("Type = %q, want %q", env.Type, TypePlayerMove)
	}

	var got moveData
	if err := env.Unmarshal(&got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.DX != 1 || got.DY != -1 {
		t.Errorf("got %+v, want {1 -1}", got)
	}
}

// TestReadFrame_OverNetConn exercises the framing over a real net.Conn pair
// (in-memory, via net.Pipe) rather than a bytes.Buffer, since the production
// caller always reads from a TCP connection.
func TestReadFrame_OverNetConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		done <- WriteFrame(client, TypeChatMessage, map[string]string{"sender": "a", "message": "hi"})
	}()

	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	env, err := ReadFrame(server)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if writeErr := <-done; writeErr != nil {
		t.Fatalf("WriteFrame: %v", writeErr)
	}
	if env.Type != TypeChatMessage {
		t.Fatalf("Type = %q, want %q", env.Type, TypeChatMessage)
	}
}

func TestReadFrame_EmptyReaderIsEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestReadFrame_TruncatedPayloadIsFatal(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, TypePlayerMove, moveData{DX: 1}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-1]

	_, err := ReadFrame(bytes.NewReader(truncated))
	if err == nil {
		t.Fatal("expected error for truncated payload, got nil")
	}
}

func TestReadFrame_InvalidJSONIsFatal(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 5})
	buf.WriteString("not json")

	_, err := ReadFrame(&buf)
	if err == nil {
		t.Fatal("expected error for invalid JSON payload, got nil")
	}
}

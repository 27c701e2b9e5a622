package protocol_test

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sockeon/sockeon-go/protocol"
)

func mask(t *testing.T, f *protocol.Frame) []byte {
	t.Helper()
	f.MaskKey = [4]byte{0x12, 0x34, 0x56, 0x78}
	data, err := protocol.EncodeFrame(f, true)
	if err != nil {
		t.Fatalf("encode masked frame: %v", err)
	}
	return data
}

func TestDecodeFramesRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("a"),
		bytes.Repeat([]byte("x"), 125),
		bytes.Repeat([]byte("y"), 126),
		bytes.Repeat([]byte("z"), 65535),
		bytes.Repeat([]byte("w"), 65536),
	}
	opcodes := []byte{protocol.OpcodeText, protocol.OpcodeBinary}

	for _, op := range opcodes {
		for _, p := range payloads {
			data := mask(t, &protocol.Frame{Fin: true, Opcode: op, Payload: p})
			frames, consumed, err := protocol.DecodeFrames(data, true)
			if err != nil {
				t.Fatalf("decode opcode %d len %d: %v", op, len(p), err)
			}
			if consumed != len(data) {
				t.Fatalf("consumed %d of %d bytes", consumed, len(data))
			}
			if len(frames) != 1 {
				t.Fatalf("expected 1 frame, got %d", len(frames))
			}
			f := frames[0]
			if !f.Fin || f.Opcode != op {
				t.Errorf("fin/opcode mismatch: %+v", f)
			}
			if !bytes.Equal(f.Payload, p) {
				t.Errorf("payload mismatch at len %d", len(p))
			}
		}
	}
}

func TestControlFrameRoundTrip(t *testing.T) {
	for _, op := range []byte{protocol.OpcodeClose, protocol.OpcodePing, protocol.OpcodePong} {
		payload := []byte("hello")
		data := mask(t, &protocol.Frame{Fin: true, Opcode: op, Payload: payload})
		frames, _, err := protocol.DecodeFrames(data, true)
		if err != nil || len(frames) != 1 {
			t.Fatalf("opcode %d: frames=%d err=%v", op, len(frames), err)
		}
		if !bytes.Equal(frames[0].Payload, payload) {
			t.Errorf("opcode %d payload mismatch", op)
		}
	}
}

func TestDecodeMultipleFramesAndResidual(t *testing.T) {
	first := mask(t, &protocol.Frame{Fin: true, Opcode: protocol.OpcodeText, Payload: []byte("one")})
	second := mask(t, &protocol.Frame{Fin: true, Opcode: protocol.OpcodeText, Payload: []byte("two")})

	buf := append(append([]byte{}, first...), second...)
	partial := append(append([]byte{}, buf...), second[:3]...)

	frames, consumed, err := protocol.DecodeFrames(partial, true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if consumed != len(buf) {
		t.Fatalf("expected residual of 3 bytes, consumed %d of %d", consumed, len(partial))
	}
	if string(frames[0].Payload) != "one" || string(frames[1].Payload) != "two" {
		t.Errorf("payload order mismatch")
	}
}

func TestDecodeIncompleteHeader(t *testing.T) {
	frames, consumed, err := protocol.DecodeFrames([]byte{0x81}, true)
	if err != nil || consumed != 0 || len(frames) != 0 {
		t.Fatalf("expected clean stop on 1-byte buffer, got frames=%d consumed=%d err=%v", len(frames), consumed, err)
	}
}

func TestUnmaskedClientFrameRejected(t *testing.T) {
	data, err := protocol.EncodeText([]byte("nope"))
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = protocol.DecodeFrames(data, true)
	if err != protocol.ErrUnmaskedFrame {
		t.Fatalf("expected ErrUnmaskedFrame, got %v", err)
	}
	// The same bytes are fine when masking is not required (client side).
	frames, _, err := protocol.DecodeFrames(data, false)
	if err != nil || len(frames) != 1 {
		t.Fatalf("server frame decode failed: frames=%d err=%v", len(frames), err)
	}
}

func TestFragmentedControlFrameRejected(t *testing.T) {
	raw := []byte{protocol.OpcodePing, 0x80, 1, 2, 3, 4} // FIN clear on a ping
	_, _, err := protocol.DecodeFrames(raw, true)
	if err != protocol.ErrBadControlFrame {
		t.Fatalf("expected ErrBadControlFrame, got %v", err)
	}
}

func TestOversizedFrameRejected(t *testing.T) {
	// Declare an 8-byte extended length above the cap without carrying the payload.
	raw := []byte{0x82, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x01}
	_, _, err := protocol.DecodeFrames(raw, false)
	if err != protocol.ErrFrameTooLarge {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestCloseFramePayload(t *testing.T) {
	data, err := protocol.EncodeClose(protocol.CloseGoingAway, "shutdown")
	if err != nil {
		t.Fatal(err)
	}
	frames, _, err := protocol.DecodeFrames(data, false)
	if err != nil || len(frames) != 1 {
		t.Fatalf("decode close: frames=%d err=%v", len(frames), err)
	}
	if code := frames[0].CloseCode(); code != protocol.CloseGoingAway {
		t.Errorf("close code = %d, want %d", code, protocol.CloseGoingAway)
	}
	if string(frames[0].Payload[2:]) != "shutdown" {
		t.Errorf("close reason mismatch: %q", frames[0].Payload[2:])
	}
}

func TestCloseReasonTrimmedOnRuneBoundary(t *testing.T) {
	// 122 ASCII bytes then a two-byte rune straddling the 123-byte cap.
	reason := strings.Repeat("a", 122) + "é fin"
	data, err := protocol.EncodeClose(protocol.CloseGoingAway, reason)
	if err != nil {
		t.Fatal(err)
	}
	frames, _, err := protocol.DecodeFrames(data, false)
	if err != nil || len(frames) != 1 {
		t.Fatalf("decode close: frames=%d err=%v", len(frames), err)
	}
	payload := frames[0].Payload
	if len(payload) > protocol.MaxControlPayloadLen {
		t.Fatalf("payload %d bytes exceeds control cap", len(payload))
	}
	if !utf8.Valid(payload[2:]) {
		t.Fatalf("reason split mid-rune: %q", payload[2:])
	}
	if string(payload[2:]) != strings.Repeat("a", 122) {
		t.Fatalf("reason = %q", payload[2:])
	}
}

func TestPingPongEcho(t *testing.T) {
	ping := mask(t, &protocol.Frame{Fin: true, Opcode: protocol.OpcodePing, Payload: []byte("hello")})
	frames, _, err := protocol.DecodeFrames(ping, true)
	if err != nil || len(frames) != 1 {
		t.Fatalf("decode ping: %v", err)
	}
	pong, err := protocol.EncodePong(frames[0].Payload)
	if err != nil {
		t.Fatal(err)
	}
	out, _, err := protocol.DecodeFrames(pong, false)
	if err != nil || len(out) != 1 {
		t.Fatalf("decode pong: %v", err)
	}
	if out[0].Opcode != protocol.OpcodePong || out[0].Masked {
		t.Errorf("pong must be unmasked opcode 10, got %+v", out[0])
	}
	if string(out[0].Payload) != "hello" {
		t.Errorf("pong payload = %q, want hello", out[0].Payload)
	}
}

// File: protocol/frame.go
// Package protocol implements the WebSocket frame codec per RFC 6455.
// License: Apache-2.0
//
// The decoder is a pure, restartable producer over an inbound byte buffer:
// DecodeFrames consumes as many complete frames as the buffer holds and
// reports how many bytes it consumed, leaving partial frames for the next
// read. Encoding writes the shortest length form and never masks server
// frames.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Frame is one decoded WebSocket frame.
type Frame struct {
	Fin     bool
	Opcode  byte
	Masked  bool
	MaskKey [4]byte
	Payload []byte
}

// IsControl reports whether the frame is a control frame (close/ping/pong).
func (f *Frame) IsControl() bool { return IsControlOpcode(f.Opcode) }

// CloseCode extracts the status code from a close frame payload.
// Returns CloseNoStatusRcvd when the payload carries no code.
func (f *Frame) CloseCode() int {
	if f.Opcode != OpcodeClose || len(f.Payload) < 2 {
		return CloseNoStatusRcvd
	}
	return int(binary.BigEndian.Uint16(f.Payload[:2]))
}

// Decode errors. ErrUnmaskedFrame and ErrReservedBits must fail the
// connection with close code 1002; ErrFrameTooLarge with 1009.
var (
	ErrUnmaskedFrame   = errors.New("client frame is not masked")
	ErrFrameTooLarge   = fmt.Errorf("frame payload exceeds %d bytes", MaxFramePayload)
	ErrBadControlFrame = errors.New("control frame fragmented or payload exceeds 125 bytes")
	ErrReservedBits    = errors.New("reserved frame bits set without negotiated extension")
)

// DecodeFrames parses every complete frame at the front of buf and returns
// the frames together with the number of bytes consumed. Callers keep
// buf[consumed:] for the next read. requireMasked enforces client-to-server
// masking; a server passes true.
//
// A partial trailing frame is not an error: decoding simply stops. Any
// returned error refers to the first malformed frame; frames decoded before
// it are still returned so control replies already owed can be sent.
func DecodeFrames(buf []byte, requireMasked bool) ([]Frame, int, error) {
	var frames []Frame
	consumed := 0
	for {
		f, n, err := decodeFrame(buf[consumed:], requireMasked)
		if err != nil {
			return frames, consumed, err
		}
		if n == 0 {
			return frames, consumed, nil
		}
		frames = append(frames, f)
		consumed += n
	}
}

// decodeFrame parses a single frame from the front of raw.
// Returns (zero, 0, nil) when raw holds an incomplete frame.
func decodeFrame(raw []byte, requireMasked bool) (Frame, int, error) {
	if len(raw) < 2 {
		return Frame{}, 0, nil
	}

	if raw[0]&RsvBits != 0 {
		return Frame{}, 0, ErrReservedBits
	}

	fin := raw[0]&FinBit != 0
	opcode := raw[0] & 0x0F
	masked := raw[1]&MaskBit != 0
	length := int64(raw[1] & 0x7F)
	offset := 2

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return Frame{}, 0, nil
		}
		length = int64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return Frame{}, 0, nil
		}
		u := binary.BigEndian.Uint64(raw[offset:])
		if u > uint64(MaxFramePayload) {
			return Frame{}, 0, ErrFrameTooLarge
		}
		length = int64(u)
		offset += 8
	}

	if length > MaxFramePayload {
		return Frame{}, 0, ErrFrameTooLarge
	}
	if IsControlOpcode(opcode) && (!fin || length > MaxControlPayloadLen) {
		return Frame{}, 0, ErrBadControlFrame
	}
	if requireMasked && !masked {
		return Frame{}, 0, ErrUnmaskedFrame
	}

	var maskKey [4]byte
	if masked {
		if len(raw) < offset+4 {
			return Frame{}, 0, nil
		}
		copy(maskKey[:], raw[offset:offset+4])
		offset += 4
	}

	total := offset + int(length)
	if len(raw) < total {
		return Frame{}, 0, nil
	}

	payload := make([]byte, length)
	copy(payload, raw[offset:total])
	if masked {
		applyMask(payload, maskKey)
	}

	return Frame{
		Fin:     fin,
		Opcode:  opcode,
		Masked:  masked,
		MaskKey: maskKey,
		Payload: payload,
	}, total, nil
}

// EncodeFrame serialises a frame for the wire. Server frames are sent
// unmasked; set mask for client-originated frames only.
func EncodeFrame(f *Frame, mask bool) ([]byte, error) {
	plen := len(f.Payload)
	if plen > MaxFramePayload {
		return nil, ErrFrameTooLarge
	}
	if f.IsControl() && (!f.Fin || plen > MaxControlPayloadLen) {
		return nil, ErrBadControlFrame
	}

	var b0 byte
	if f.Fin {
		b0 = FinBit
	}
	b0 |= f.Opcode & 0x0F

	headerLen := 2
	switch {
	case plen <= 125:
	case plen <= 0xFFFF:
		headerLen += 2
	default:
		headerLen += 8
	}
	maskOffset := headerLen
	if mask {
		headerLen += 4
	}

	out := make([]byte, headerLen+plen)
	out[0] = b0
	switch {
	case plen <= 125:
		out[1] = byte(plen)
	case plen <= 0xFFFF:
		out[1] = 126
		binary.BigEndian.PutUint16(out[2:], uint16(plen))
	default:
		out[1] = 127
		binary.BigEndian.PutUint64(out[2:], uint64(plen))
	}

	copy(out[headerLen:], f.Payload)
	if mask {
		out[1] |= MaskBit
		copy(out[maskOffset:], f.MaskKey[:])
		applyMask(out[headerLen:], f.MaskKey)
	}
	return out, nil
}

// EncodeText builds a final text frame around payload.
func EncodeText(payload []byte) ([]byte, error) {
	return EncodeFrame(&Frame{Fin: true, Opcode: OpcodeText, Payload: payload}, false)
}

// EncodePong builds the pong reply for a ping payload.
func EncodePong(payload []byte) ([]byte, error) {
	return EncodeFrame(&Frame{Fin: true, Opcode: OpcodePong, Payload: payload}, false)
}

// EncodePing builds a ping frame.
func EncodePing(payload []byte) ([]byte, error) {
	return EncodeFrame(&Frame{Fin: true, Opcode: OpcodePing, Payload: payload}, false)
}

// EncodeClose builds a close frame carrying code and an optional reason.
// Reasons that would overflow the control-frame payload are trimmed on a
// rune boundary; the reason must stay valid UTF-8 per RFC 6455 §5.5.1.
func EncodeClose(code int, reason string) ([]byte, error) {
	if max := MaxControlPayloadLen - 2; len(reason) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, uint16(code))
	copy(payload[2:], reason)
	return EncodeFrame(&Frame{Fin: true, Opcode: OpcodeClose, Payload: payload}, false)
}

// applyMask XORs buf with the mask key cycled per byte. Masking is its own
// inverse, so the same routine masks and unmasks.
func applyMask(buf []byte, key [4]byte) {
	for i := range buf {
		buf[i] ^= key[i%4]
	}
}

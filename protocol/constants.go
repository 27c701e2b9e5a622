// File: protocol/constants.go
// Package protocol
// License: Apache-2.0
//
// WebSocket wire protocol constants per RFC 6455.

package protocol

const (
	OpcodeContinuation = 0x0
	OpcodeText         = 0x1
	OpcodeBinary       = 0x2
	OpcodeClose        = 0x8
	OpcodePing         = 0x9
	OpcodePong         = 0xA

	// MaxFramePayload caps a single frame payload. Frames above it fail the
	// connection instead of exhausting memory.
	MaxFramePayload = 16 << 20 // 16 MiB

	// MaxControlPayloadLen bounds control-frame payloads per RFC 6455 §5.5.
	MaxControlPayloadLen = 125

	// MaxFrameHeaderLen is the longest possible header: 2 base bytes,
	// 8 extended-length bytes, 4 mask bytes.
	MaxFrameHeaderLen = 14

	FinBit  = 0x80
	MaskBit = 0x80
	RsvBits = 0x70

	// Close codes.
	CloseNormalClosure      = 1000
	CloseGoingAway          = 1001
	CloseProtocolError      = 1002
	CloseUnsupportedData    = 1003
	CloseNoStatusRcvd       = 1005
	CloseAbnormalClosure    = 1006
	CloseInvalidPayloadData = 1007
	ClosePolicyViolation    = 1008
	CloseMessageTooBig      = 1009
	CloseInternalServerErr  = 1011
	CloseTryAgainLater      = 1013

	// WebSocketGUID is the fixed handshake GUID per RFC 6455 §1.3.
	WebSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

	// RequiredWebSocketVersion is the only supported Sec-WebSocket-Version.
	RequiredWebSocketVersion = "13"

	// MaxHandshakeHeadersSize bounds the combined handshake header length.
	MaxHandshakeHeadersSize = 8192
)

// IsControlOpcode reports whether op designates a control frame.
func IsControlOpcode(op byte) bool {
	return op >= OpcodeClose
}

// IsDataOpcode reports whether op starts a data message.
func IsDataOpcode(op byte) bool {
	return op == OpcodeText || op == OpcodeBinary
}

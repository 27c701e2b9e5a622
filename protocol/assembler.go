// File: protocol/assembler.go
// Package protocol
// License: Apache-2.0
//
// Fragmented message reassembly per RFC 6455 §5.4. One fragmented message may
// be in flight per direction; control frames interleave freely and never
// fragment.

package protocol

import "errors"

var (
	ErrUnexpectedContinuation = errors.New("continuation frame without a message in progress")
	ErrInterleavedMessage     = errors.New("new data frame while a fragmented message is in progress")
	ErrMessageTooLarge        = errors.New("reassembled message exceeds payload cap")
)

// Assembler accumulates fragments of one inbound data message.
// The zero value is ready for use.
type Assembler struct {
	opcode byte
	buf    []byte
	active bool
}

// Active reports whether a fragmented message is being assembled.
func (a *Assembler) Active() bool { return a.active }

// Reset drops any partially assembled message.
func (a *Assembler) Reset() {
	a.opcode = 0
	a.buf = nil
	a.active = false
}

// Push feeds one data-or-continuation frame into the assembler. When the
// frame completes a message, Push returns it with done=true. Violations of
// the fragmentation rules return an error; the caller must fail the
// connection with close code 1002 (1009 for ErrMessageTooLarge).
//
// Control frames must not be pushed; the caller handles those directly.
func (a *Assembler) Push(f *Frame) (opcode byte, payload []byte, done bool, err error) {
	switch {
	case f.Opcode == OpcodeContinuation:
		if !a.active {
			return 0, nil, false, ErrUnexpectedContinuation
		}
		if len(a.buf)+len(f.Payload) > MaxFramePayload {
			a.Reset()
			return 0, nil, false, ErrMessageTooLarge
		}
		a.buf = append(a.buf, f.Payload...)
		if f.Fin {
			op, payload := a.opcode, a.buf
			a.Reset()
			return op, payload, true, nil
		}
		return 0, nil, false, nil

	case IsDataOpcode(f.Opcode):
		if a.active {
			return 0, nil, false, ErrInterleavedMessage
		}
		if f.Fin {
			return f.Opcode, f.Payload, true, nil
		}
		a.active = true
		a.opcode = f.Opcode
		a.buf = append([]byte(nil), f.Payload...)
		return 0, nil, false, nil

	default:
		return 0, nil, false, ErrUnexpectedContinuation
	}
}

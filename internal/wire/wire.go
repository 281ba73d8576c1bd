// Package wire encodes simulation messages with msgpack.
//
// Every message is an Envelope whose payload is a raw msgpack document of a
// game.Command, game.Snapshot or game.DisplayState. Maps are written with
// sorted keys so equal values encode to equal bytes, and float32 fields are
// kept as float32 so snapshots survive the trip bit for bit.
package wire

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vovakirdan/padclash/internal/game"
)

// Kind tags the payload of an envelope.
type Kind uint8

const (
	KindCommand Kind = iota + 1
	KindSnapshot
	KindDisplay
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindSnapshot:
		return "snapshot"
	case KindDisplay:
		return "display"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) valid() bool { return k >= KindCommand && k <= KindDisplay }

// NoSeat marks envelopes sent by the server rather than a player.
const NoSeat = -1

// Envelope is the unit sent over a connection.
type Envelope struct {
	Kind    Kind               `msgpack:"k"`
	Tick    uint64             `msgpack:"t"`
	Seat    int8               `msgpack:"s"`
	Payload msgpack.RawMessage `msgpack:"p"`
}

var (
	// ErrUnknownKind is returned when decoding an envelope with an
	// unrecognised kind.
	ErrUnknownKind = errors.New("wire: unknown message kind")
	// ErrWrongKind is returned when a payload is read as the wrong type.
	ErrWrongKind = errors.New("wire: payload kind mismatch")
)

// Marshal encodes v with sorted map keys.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(kind Kind, tick uint64, seat int, payload any) ([]byte, error) {
	raw, err := Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", kind, err)
	}
	data, err := Marshal(Envelope{Kind: kind, Tick: tick, Seat: int8(seat), Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("wire: encode envelope: %w", err)
	}
	return data, nil
}

// EncodeCommand wraps a command issued from seat for the given tick.
func EncodeCommand(tick uint64, seat int, cmd game.Command) ([]byte, error) {
	return encode(KindCommand, tick, seat, cmd)
}

// EncodeSnapshot wraps a snapshot. The envelope tick is the snapshot's.
func EncodeSnapshot(s game.Snapshot) ([]byte, error) {
	return encode(KindSnapshot, s.Tick, NoSeat, s)
}

// EncodeDisplay wraps a display state for the given tick.
func EncodeDisplay(tick uint64, d game.DisplayState) ([]byte, error) {
	return encode(KindDisplay, tick, NoSeat, d)
}

// Decode reads an envelope. The payload is left encoded.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope: %w", err)
	}
	if !env.Kind.valid() {
		return Envelope{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(env.Kind))
	}
	return env, nil
}

func (e Envelope) decode(want Kind, v any) error {
	if e.Kind != want {
		return fmt.Errorf("%w: have %s, want %s", ErrWrongKind, e.Kind, want)
	}
	if err := msgpack.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("wire: decode %s: %w", want, err)
	}
	return nil
}

// Command decodes a command payload.
func (e Envelope) Command() (game.Command, error) {
	var cmd game.Command
	err := e.decode(KindCommand, &cmd)
	return cmd, err
}

// Snapshot decodes a snapshot payload.
func (e Envelope) Snapshot() (game.Snapshot, error) {
	var s game.Snapshot
	err := e.decode(KindSnapshot, &s)
	return s, err
}

// Display decodes a display state payload.
func (e Envelope) Display() (game.DisplayState, error) {
	var d game.DisplayState
	err := e.decode(KindDisplay, &d)
	return d, err
}

// MarshalSnapshot encodes a bare snapshot, without an envelope. The
// recorder stores keyframes in this form.
func MarshalSnapshot(s game.Snapshot) ([]byte, error) {
	data, err := Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("wire: encode snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes the output of MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (game.Snapshot, error) {
	var s game.Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return game.Snapshot{}, fmt.Errorf("wire: decode snapshot: %w", err)
	}
	if s.Projectiles == nil {
		s.Projectiles = map[uint16]game.Kinematics{}
	}
	return s, nil
}

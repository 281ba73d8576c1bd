package game

import "fmt"

// InputField names one button of a PlayerInput.
type InputField uint8

const (
	FieldAction InputField = iota
	FieldLeft
	FieldRight
)

func (f InputField) String() string {
	switch f {
	case FieldAction:
		return "action"
	case FieldLeft:
		return "left"
	case FieldRight:
		return "right"
	default:
		return fmt.Sprintf("field(%d)", uint8(f))
	}
}

// ParseInputField converts "action", "left" or "right".
func ParseInputField(s string) (InputField, error) {
	for f := FieldAction; f <= FieldRight; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("game: unknown input field %q", s)
}

// Command sets one input field of one player. It is the only way input
// reaches the simulation.
type Command struct {
	Player PlayerID   `msgpack:"p"`
	Field  InputField `msgpack:"f"`
	Value  bool       `msgpack:"v"`
}

// Input builds a command.
func Input(player PlayerID, field InputField, value bool) Command {
	return Command{Player: player, Field: field, Value: value}
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s=%t", c.Player, c.Field, c.Value)
}

// IsValid reports whether a connection sitting in seat may issue cmd.
// Commands naming another player, an unknown player or an unknown field are
// rejected.
func IsValid(cmd Command, seat int) bool {
	return cmd.Player.Valid() && cmd.Field <= FieldRight && cmd.Player.Seat() == seat
}

// ApplyCommand overwrites the named input field. Physical effects only
// happen on the next Step.
func (w *World) ApplyCommand(cmd Command) {
	if !cmd.Player.Valid() {
		return
	}
	p := &w.players[cmd.Player.Seat()]
	p.input = p.input.Apply(cmd.Field, cmd.Value)
}

// Apply sets the field on an input value. Drivers use it to track what a
// player has pressed without touching a World.
func (in PlayerInput) Apply(field InputField, value bool) PlayerInput {
	switch field {
	case FieldAction:
		in.Action = value
	case FieldLeft:
		in.Left = value
	case FieldRight:
		in.Right = value
	}
	return in
}

// Get returns the value of one field.
func (in PlayerInput) Get(field InputField) bool {
	switch field {
	case FieldAction:
		return in.Action
	case FieldLeft:
		return in.Left
	case FieldRight:
		return in.Right
	}
	return false
}

package machine

import (
	"github.com/mna/ippcode/lang/program"
	"github.com/mna/ippcode/lang/types"
)

// readValue resolves a symb operand: a literal yields itself, a variable
// reference yields its current value (54 unknown, 55 inactive frame, 56
// uninitialized). Label and type arguments are not values (53).
func (m *Machine) readValue(a *program.Argument) (types.Value, error) {
	switch a.Kind {
	case program.ArgLiteral:
		return a.Lit, nil
	case program.ArgVar:
		f, err := m.frames.frame(a.Frame)
		if err != nil {
			return types.UndefValue, err
		}
		return f.Get(a.Name)
	}
	return types.UndefValue, types.NewError(types.ExitBadType, "operand is not a value")
}

// operands resolves two symb operands.
func (m *Machine) operands(a, b *program.Argument) (types.Value, types.Value, error) {
	x, err := m.readValue(a)
	if err != nil {
		return x, x, err
	}
	y, err := m.readValue(b)
	return x, y, err
}

// writeValue stores a value through a variable reference operand; anything
// else is a type error (53).
func (m *Machine) writeValue(a *program.Argument, v types.Value) error {
	if a.Kind != program.ArgVar {
		return types.NewError(types.ExitBadType, "operand is not a variable")
	}
	f, err := m.frames.frame(a.Frame)
	if err != nil {
		return err
	}
	return f.Set(a.Name, v)
}

// tagForType resolves the operand of TYPE: the tag of a literal, or the tag
// of the value bound to a variable, tolerating Undef (whose tag renders as
// the empty string).
func (m *Machine) tagForType(a *program.Argument) (types.Tag, error) {
	switch a.Kind {
	case program.ArgLiteral:
		return a.Lit.Tag(), nil
	case program.ArgVar:
		f, err := m.frames.frame(a.Frame)
		if err != nil {
			return types.Undef, err
		}
		return f.TagOf(a.Name)
	}
	return types.Undef, types.NewError(types.ExitBadType, "operand is not a value")
}

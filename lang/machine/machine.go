// Package machine implements the IPPcode22 stack machine: the three variable
// frames, the data and call stacks, and the per-opcode semantics executed
// over a loaded program.
package machine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf8"

	"github.com/mna/ippcode/lang/program"
	"github.com/mna/ippcode/lang/types"
)

// Machine executes one program. The zero streams default to the os standard
// streams.
type Machine struct {
	// Stdout receives WRITE output; Stderr receives DPRINT and BREAK
	// diagnostics; Stdin is the line-oriented input consumed by READ.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	prog   *program.Program
	labels *program.Labels

	frames *FrameStack
	state  *State
	stack  []types.Value // data stack

	in   *bufio.Reader
	out  io.Writer
	errw io.Writer
}

// New returns a machine for the sorted program and its label table.
func New(p *program.Program, labels *program.Labels) *Machine {
	return &Machine{prog: p, labels: labels}
}

// Run executes the program from the first instruction. It returns the
// process exit code on a clean termination: 0 when execution falls off the
// end of the program, or the operand of an EXIT instruction. Any failing
// instruction aborts the run with an error carrying the mapped exit code.
// The context is checked before each step so cancellation stops a runaway
// program.
func (m *Machine) Run(ctx context.Context) (int, error) {
	m.out = m.Stdout
	if m.out == nil {
		m.out = os.Stdout
	}
	m.errw = m.Stderr
	if m.errw == nil {
		m.errw = os.Stderr
	}
	stdin := m.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	m.in = bufio.NewReader(stdin)

	m.frames = NewFrameStack()
	m.state = newState(m.labels)
	m.stack = m.stack[:0]

	for m.state.ip < len(m.prog.Instrs) {
		if err := ctx.Err(); err != nil {
			return 0, types.Errorf(types.ExitInternal, "execution cancelled: %s", err)
		}
		in := &m.prog.Instrs[m.state.ip]
		halt, code, err := m.step(in)
		if err != nil {
			if e, ok := err.(*types.Error); ok {
				e.At(in.Op.String(), in.Order)
			}
			return 0, err
		}
		if halt {
			return code, nil
		}
		m.state.ip++
	}
	return 0, nil
}

// step executes a single instruction. It reports halt=true with the exit
// code when an EXIT instruction fires.
func (m *Machine) step(in *program.Instruction) (halt bool, code int, err error) {
	switch in.Op {
	case program.MOVE:
		v, err := m.readValue(&in.Args[1])
		if err != nil {
			return false, 0, err
		}
		return false, 0, m.writeValue(&in.Args[0], v)

	case program.CREATEFRAME:
		m.frames.CreateTemp()

	case program.PUSHFRAME:
		return false, 0, m.frames.PushTemp()

	case program.POPFRAME:
		return false, 0, m.frames.PopLocal()

	case program.DEFVAR:
		a := &in.Args[0]
		if a.Kind != program.ArgVar {
			return false, 0, types.NewError(types.ExitBadType, "operand is not a variable")
		}
		f, err := m.frames.frame(a.Frame)
		if err != nil {
			return false, 0, err
		}
		return false, 0, f.Define(a.Name)

	case program.CALL:
		return false, 0, m.state.call(in.Args[0].Name)

	case program.RETURN:
		return false, 0, m.state.ret()

	case program.PUSHS:
		v, err := m.readValue(&in.Args[0])
		if err != nil {
			return false, 0, err
		}
		m.stack = append(m.stack, v)

	case program.POPS:
		if len(m.stack) == 0 {
			return false, 0, types.NewError(types.ExitNoValue, "data stack is empty")
		}
		v := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
		return false, 0, m.writeValue(&in.Args[0], v)

	case program.ADD, program.SUB, program.MUL, program.IDIV:
		return false, 0, m.arith(in)

	case program.LT, program.GT, program.EQ:
		return false, 0, m.compare(in)

	case program.AND, program.OR:
		x, y, err := m.boolOperands(&in.Args[1], &in.Args[2])
		if err != nil {
			return false, 0, err
		}
		r := x && y
		if in.Op == program.OR {
			r = x || y
		}
		return false, 0, m.writeValue(&in.Args[0], types.MakeBool(r))

	case program.NOT:
		v, err := m.readValue(&in.Args[1])
		if err != nil {
			return false, 0, err
		}
		if v.Tag() != types.Bool {
			return false, 0, types.NewError(types.ExitBadType, "wrong type of operand")
		}
		return false, 0, m.writeValue(&in.Args[0], types.MakeBool(!v.Bool()))

	case program.INT2CHAR:
		v, err := m.readValue(&in.Args[1])
		if err != nil {
			return false, 0, err
		}
		if v.Tag() != types.Int {
			return false, 0, types.NewError(types.ExitBadType, "wrong type of operand")
		}
		i := v.Int()
		if i < 0 || i > utf8.MaxRune || !utf8.ValidRune(rune(i)) {
			return false, 0, types.Errorf(types.ExitStringRange, "value %d is not a valid codepoint", i)
		}
		return false, 0, m.writeValue(&in.Args[0], types.MakeString(string(rune(i))))

	case program.STRI2INT:
		s, i, err := m.stringIndexOperands(&in.Args[1], &in.Args[2])
		if err != nil {
			return false, 0, err
		}
		return false, 0, m.writeValue(&in.Args[0], types.MakeInt(int64(s[i])))

	case program.READ:
		return false, 0, m.read(in)

	case program.WRITE:
		v, err := m.readValue(&in.Args[0])
		if err != nil {
			return false, 0, err
		}
		fmt.Fprint(m.out, v.Render())

	case program.CONCAT:
		x, y, err := m.operands(&in.Args[1], &in.Args[2])
		if err != nil {
			return false, 0, err
		}
		if x.Tag() != types.String || y.Tag() != types.String {
			return false, 0, types.NewError(types.ExitBadType, "wrong types of operands")
		}
		return false, 0, m.writeValue(&in.Args[0], types.MakeString(x.Str()+y.Str()))

	case program.STRLEN:
		v, err := m.readValue(&in.Args[1])
		if err != nil {
			return false, 0, err
		}
		if v.Tag() != types.String {
			return false, 0, types.NewError(types.ExitBadType, "wrong type of operand")
		}
		return false, 0, m.writeValue(&in.Args[0], types.MakeInt(int64(utf8.RuneCountInString(v.Str()))))

	case program.GETCHAR:
		s, i, err := m.stringIndexOperands(&in.Args[1], &in.Args[2])
		if err != nil {
			return false, 0, err
		}
		return false, 0, m.writeValue(&in.Args[0], types.MakeString(string(s[i])))

	case program.SETCHAR:
		return false, 0, m.setchar(in)

	case program.TYPE:
		tag, err := m.tagForType(&in.Args[1])
		if err != nil {
			return false, 0, err
		}
		return false, 0, m.writeValue(&in.Args[0], types.MakeString(tag.String()))

	case program.LABEL:
		// registered at load, no runtime effect

	case program.JUMP:
		return false, 0, m.state.jump(in.Args[0].Name)

	case program.JUMPIFEQ, program.JUMPIFNEQ:
		// an unknown label is an error even when the branch is not taken
		idx, err := m.state.labels.Index(in.Args[0].Name)
		if err != nil {
			return false, 0, err
		}
		eq, err := m.equalOperands(&in.Args[1], &in.Args[2])
		if err != nil {
			return false, 0, err
		}
		if eq == (in.Op == program.JUMPIFEQ) {
			m.state.ip = idx
		}

	case program.EXIT:
		v, err := m.readValue(&in.Args[0])
		if err != nil {
			return false, 0, err
		}
		if v.Tag() != types.Int {
			return false, 0, types.NewError(types.ExitBadType, "wrong type of operand")
		}
		if v.Int() < 0 || v.Int() > 49 {
			return false, 0, types.Errorf(types.ExitBadValue, "exit code %d out of range", v.Int())
		}
		return true, int(v.Int()), nil

	case program.DPRINT:
		v, err := m.readValue(&in.Args[0])
		if err != nil {
			return false, 0, err
		}
		fmt.Fprintln(m.errw, v)

	case program.BREAK:
		m.dump(in)

	default:
		return false, 0, types.Errorf(types.ExitInternal, "unimplemented opcode %s", in.Op)
	}
	return false, 0, nil
}

// arith implements ADD, SUB, MUL and IDIV over int operands. Results wrap in
// signed 64-bit two's complement; IDIV truncates toward zero and rejects a
// zero divisor (57).
func (m *Machine) arith(in *program.Instruction) error {
	x, y, err := m.operands(&in.Args[1], &in.Args[2])
	if err != nil {
		return err
	}
	if x.Tag() != types.Int || y.Tag() != types.Int {
		return types.NewError(types.ExitBadType, "wrong types of operands")
	}
	a, b := x.Int(), y.Int()
	var r int64
	switch in.Op {
	case program.ADD:
		r = a + b
	case program.SUB:
		r = a - b
	case program.MUL:
		r = a * b
	case program.IDIV:
		if b == 0 {
			return types.NewError(types.ExitBadValue, "division by zero")
		}
		if a == math.MinInt64 && b == -1 {
			r = math.MinInt64 // wraps, like the other operations
		} else {
			r = a / b
		}
	}
	return m.writeValue(&in.Args[0], types.MakeInt(r))
}

// compare implements LT, GT and EQ. Operands must share a type; EQ
// additionally accepts nil on either side (equal only to nil itself), while
// LT and GT reject nil.
func (m *Machine) compare(in *program.Instruction) error {
	x, y, err := m.operands(&in.Args[1], &in.Args[2])
	if err != nil {
		return err
	}
	if in.Op == program.EQ {
		if x.Tag() != y.Tag() && x.Tag() != types.Nil && y.Tag() != types.Nil {
			return types.NewError(types.ExitBadType, "wrong types of operands")
		}
		return m.writeValue(&in.Args[0], types.MakeBool(x.Equal(y)))
	}

	if x.Tag() != y.Tag() || x.Tag() == types.Nil {
		return types.NewError(types.ExitBadType, "wrong types of operands")
	}
	var less, greater bool
	switch x.Tag() {
	case types.Int:
		less, greater = x.Int() < y.Int(), x.Int() > y.Int()
	case types.String:
		// byte order equals codepoint order for UTF-8 text
		less, greater = x.Str() < y.Str(), x.Str() > y.Str()
	case types.Bool:
		less = !x.Bool() && y.Bool()
		greater = x.Bool() && !y.Bool()
	default:
		return types.NewError(types.ExitBadType, "wrong types of operands")
	}
	r := less
	if in.Op == program.GT {
		r = greater
	}
	return m.writeValue(&in.Args[0], types.MakeBool(r))
}

// equalOperands evaluates the JUMPIFEQ/JUMPIFNEQ operand rule: same type or
// either side nil.
func (m *Machine) equalOperands(a, b *program.Argument) (bool, error) {
	x, y, err := m.operands(a, b)
	if err != nil {
		return false, err
	}
	if x.Tag() != y.Tag() && x.Tag() != types.Nil && y.Tag() != types.Nil {
		return false, types.NewError(types.ExitBadType, "wrong types of operands")
	}
	return x.Equal(y), nil
}

func (m *Machine) boolOperands(a, b *program.Argument) (bool, bool, error) {
	x, y, err := m.operands(a, b)
	if err != nil {
		return false, false, err
	}
	if x.Tag() != types.Bool || y.Tag() != types.Bool {
		return false, false, types.NewError(types.ExitBadType, "wrong types of operands")
	}
	return x.Bool(), y.Bool(), nil
}

// stringIndexOperands evaluates a string operand and an int index operand,
// checking the index against the character count (58 when out of range).
func (m *Machine) stringIndexOperands(a, b *program.Argument) ([]rune, int64, error) {
	x, y, err := m.operands(a, b)
	if err != nil {
		return nil, 0, err
	}
	if x.Tag() != types.String || y.Tag() != types.Int {
		return nil, 0, types.NewError(types.ExitBadType, "wrong types of operands")
	}
	runes := []rune(x.Str())
	i := y.Int()
	if i < 0 || i >= int64(len(runes)) {
		return nil, 0, types.Errorf(types.ExitStringRange, "index %d out of range", i)
	}
	return runes, i, nil
}

// setchar reads its target variable as the source string, replaces the
// character at the index with the first character of the replacement and
// writes the result back to the same variable.
func (m *Machine) setchar(in *program.Instruction) error {
	dst, err := m.readValue(&in.Args[0])
	if err != nil {
		return err
	}
	i, repl, err := m.operands(&in.Args[1], &in.Args[2])
	if err != nil {
		return err
	}
	if dst.Tag() != types.String || i.Tag() != types.Int || repl.Tag() != types.String {
		return types.NewError(types.ExitBadType, "wrong types of operands")
	}
	runes := []rune(dst.Str())
	idx := i.Int()
	if idx < 0 || idx >= int64(len(runes)) || repl.Str() == "" {
		return types.Errorf(types.ExitStringRange, "index %d out of range", idx)
	}
	runes[idx] = []rune(repl.Str())[0]
	return m.writeValue(&in.Args[0], types.MakeString(string(runes)))
}

// dump writes the BREAK diagnostic: the instruction identity and the
// contents of each frame.
func (m *Machine) dump(in *program.Instruction) {
	fmt.Fprintf(m.errw, "instruction %s %d\n", in.Op, in.Order)
	fmt.Fprintln(m.errw, "global frame:")
	m.frames.global.dump(m.errw)
	fmt.Fprintln(m.errw, "local frame:")
	if f := m.frames.local(); f != nil {
		f.dump(m.errw)
	} else {
		fmt.Fprintln(m.errw, "  (not defined)")
	}
	fmt.Fprintln(m.errw, "temporary frame:")
	if m.frames.temp != nil {
		m.frames.temp.dump(m.errw)
	} else {
		fmt.Fprintln(m.errw, "  (not defined)")
	}
}

package machine

import (
	"regexp"
	"strings"

	"github.com/mna/ippcode/lang/program"
	"github.com/mna/ippcode/lang/types"
)

// rxStringInput accepts lines made of \DDD escapes and any characters other
// than a raw backslash or '#'; anything else reads as nil.
var rxStringInput = regexp.MustCompile(`^((\\\d{3})|[^#\\])*$`)

// read implements READ: consume one line from the input stream and convert
// it according to the type operand. EOF and blank lines store nil, as does
// any line that fails the type's validation.
func (m *Machine) read(in *program.Instruction) error {
	target := &in.Args[0]
	line := m.readLine()
	if line == "" {
		return m.writeValue(target, types.NilValue)
	}

	switch in.Args[1].Type {
	case types.Int:
		v, ok := types.ParseInt(line)
		if !ok {
			return m.writeValue(target, types.NilValue)
		}
		return m.writeValue(target, types.MakeInt(v))

	case types.String:
		if !rxStringInput.MatchString(line) {
			return m.writeValue(target, types.NilValue)
		}
		return m.writeValue(target, types.MakeString(types.DecodeEscapes(line)))

	case types.Bool:
		return m.writeValue(target, types.MakeBool(strings.EqualFold(line, "true")))
	}
	return types.Errorf(types.ExitInternal, "cannot read a value of type %s", in.Args[1].Type)
}

// readLine returns the next input line with the trailing newline stripped;
// at EOF it returns the empty string.
func (m *Machine) readLine() string {
	line, _ := m.in.ReadString('\n')
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

package program

import (
	"fmt"

	"github.com/mna/ippcode/lang/types"
)

// FrameTag is the frame prefix of a variable reference.
type FrameTag uint8

const (
	GF FrameTag = iota // global frame
	LF                 // local frame, top of the frame stack
	TF                 // temporary frame
)

var frameNames = [...]string{GF: "GF", LF: "LF", TF: "TF"}

func (ft FrameTag) String() string { return frameNames[ft] }

// ParseFrameTag resolves a frame prefix ("GF", "LF" or "TF").
func ParseFrameTag(s string) (FrameTag, bool) {
	switch s {
	case "GF":
		return GF, true
	case "LF":
		return LF, true
	case "TF":
		return TF, true
	}
	return GF, false
}

// ArgKind discriminates the Argument variants.
type ArgKind uint8

const (
	ArgLiteral ArgKind = iota
	ArgVar
	ArgType
	ArgLabel
)

// Argument is one operand of an instruction: a literal value, a variable
// reference (frame tag plus name), a type name or a label name.
type Argument struct {
	Kind  ArgKind
	Lit   types.Value // ArgLiteral; never Undef
	Frame FrameTag    // ArgVar
	Name  string      // ArgVar variable name, ArgLabel label name
	Type  types.Tag   // ArgType
}

func LitArg(v types.Value) Argument { return Argument{Kind: ArgLiteral, Lit: v} }

func VarArg(ft FrameTag, name string) Argument {
	return Argument{Kind: ArgVar, Frame: ft, Name: name}
}

func TypeArg(t types.Tag) Argument { return Argument{Kind: ArgType, Type: t} }

func LabelArg(name string) Argument { return Argument{Kind: ArgLabel, Name: name} }

func (a Argument) String() string {
	switch a.Kind {
	case ArgVar:
		return fmt.Sprintf("%s@%s", a.Frame, a.Name)
	case ArgType:
		return fmt.Sprintf("type@%s", a.Type)
	case ArgLabel:
		return fmt.Sprintf("label@%s", a.Name)
	}
	return a.Lit.String()
}

// Instruction is one loaded instruction: opcode, source order and operands
// in positional order. The loader guarantees len(Args) == Op.Arity().
type Instruction struct {
	Op    Opcode
	Order int
	Args  []Argument
}

// Fail builds an error of the given code carrying this instruction's
// identity.
func (in *Instruction) Fail(code types.ExitCode, msg string) *types.Error {
	return (&types.Error{Code: code, Msg: msg}).At(in.Op.String(), in.Order)
}

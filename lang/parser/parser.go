// Package parser loads an IPPcode22 program from its XML document form.
// Malformed XML is reported with code 31; every structural violation of the
// document rules (element names, attributes, argument indices, literal
// lexing) is reported with code 32. The returned program is unsorted; the
// caller runs Sort and ScanLabels before execution.
package parser

import (
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/mna/ippcode/lang/program"
	"github.com/mna/ippcode/lang/types"
)

// Language is the required value of the root element's language attribute.
const Language = "IPPcode22"

// Parse reads the XML source document and builds the instruction vector.
func Parse(r io.Reader) (*program.Program, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, types.Errorf(types.ExitXMLSyntax, "malformed XML: %s", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "program" {
		return nil, types.NewError(types.ExitStructure, "missing program root element")
	}
	if lang := root.SelectAttrValue("language", ""); lang != Language {
		return nil, types.Errorf(types.ExitStructure, "unsupported language %q", lang)
	}

	var prog program.Program
	for _, el := range root.ChildElements() {
		in, err := parseInstruction(el)
		if err != nil {
			return nil, err
		}
		prog.Append(in)
	}
	return &prog, nil
}

func parseInstruction(el *etree.Element) (program.Instruction, error) {
	var in program.Instruction

	if el.Tag != "instruction" {
		return in, types.Errorf(types.ExitStructure, "unexpected element %s", el.Tag)
	}
	if len(el.Attr) != 2 || el.SelectAttr("order") == nil || el.SelectAttr("opcode") == nil {
		return in, types.NewError(types.ExitStructure, "instruction requires exactly the order and opcode attributes")
	}

	order, err := strconv.Atoi(el.SelectAttrValue("order", ""))
	if err != nil || order <= 0 {
		return in, types.Errorf(types.ExitStructure, "order is not a positive integer: %q", el.SelectAttrValue("order", ""))
	}

	name := el.SelectAttrValue("opcode", "")
	op, ok := program.LookupOpcode(name)
	if !ok {
		return in, types.Errorf(types.ExitStructure, "unknown opcode %q", name)
	}

	in.Op = op
	in.Order = order

	sig := op.Signature()
	children := el.ChildElements()
	if len(children) != len(sig) {
		return in, in.Fail(types.ExitStructure, "wrong number of arguments")
	}

	in.Args = make([]program.Argument, len(sig))
	var seen [3]bool
	for _, child := range children {
		idx, err := argIndex(child.Tag)
		if err != nil {
			return in, err.At(op.String(), order)
		}
		if idx > len(sig) {
			return in, in.Fail(types.ExitStructure, "argument index out of range for opcode")
		}
		if seen[idx-1] {
			return in, in.Fail(types.ExitStructure, "duplicate argument index")
		}
		seen[idx-1] = true

		if len(child.Attr) != 1 || child.SelectAttr("type") == nil {
			return in, in.Fail(types.ExitStructure, "argument requires exactly the type attribute")
		}
		arg, aerr := parseArgument(child.SelectAttrValue("type", ""), child.Text(), sig[idx-1])
		if aerr != nil {
			return in, aerr.At(op.String(), order)
		}
		in.Args[idx-1] = arg
	}
	// the length and duplicate checks above leave no room for index gaps
	return in, nil
}

// argIndex resolves an argN element name to N in 1..3.
func argIndex(tag string) (int, *types.Error) {
	if len(tag) != 4 || tag[:3] != "arg" || tag[3] < '1' || tag[3] > '3' {
		return 0, types.Errorf(types.ExitStructure, "unexpected argument element %s", tag)
	}
	return int(tag[3] - '0'), nil
}

func parseArgument(typ, text string, slot program.Operand) (program.Argument, *types.Error) {
	var arg program.Argument

	switch slot {
	case program.OperLabel:
		if typ != "label" {
			return arg, types.Errorf(types.ExitStructure, "expected a label argument, got type %q", typ)
		}
		if text == "" {
			return arg, types.NewError(types.ExitStructure, "empty label name")
		}
		return program.LabelArg(text), nil

	case program.OperType:
		if typ != "type" {
			return arg, types.Errorf(types.ExitStructure, "expected a type argument, got type %q", typ)
		}
		tag, ok := types.TagOf(text)
		if !ok {
			return arg, types.Errorf(types.ExitStructure, "unknown type name %q", text)
		}
		return program.TypeArg(tag), nil
	}

	// var and symb slots: a variable reference or (for symb, checked at
	// runtime with code 53 for var slots) a literal
	switch typ {
	case "var":
		frame, name, ok := strings.Cut(text, "@")
		if !ok || name == "" {
			return arg, types.Errorf(types.ExitStructure, "malformed variable reference %q", text)
		}
		ft, ok := program.ParseFrameTag(frame)
		if !ok {
			return arg, types.Errorf(types.ExitStructure, "unknown frame prefix %q", frame)
		}
		return program.VarArg(ft, name), nil

	case "int":
		v, ok := types.ParseInt(text)
		if !ok {
			return arg, types.Errorf(types.ExitStructure, "malformed int literal %q", text)
		}
		return program.LitArg(types.MakeInt(v)), nil

	case "string":
		// a missing text node is the empty string
		return program.LitArg(types.MakeString(types.DecodeEscapes(text))), nil

	case "bool":
		switch text {
		case "true":
			return program.LitArg(types.MakeBool(true)), nil
		case "false":
			return program.LitArg(types.MakeBool(false)), nil
		}
		return arg, types.Errorf(types.ExitStructure, "malformed bool literal %q", text)

	case "nil":
		if text != "nil" {
			return arg, types.Errorf(types.ExitStructure, "malformed nil literal %q", text)
		}
		return program.LitArg(types.NilValue), nil
	}
	return arg, types.Errorf(types.ExitStructure, "unknown argument type %q", typ)
}

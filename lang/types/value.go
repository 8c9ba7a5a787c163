// Package types provides the runtime representation of IPPcode22 values and
// the error taxonomy shared by the loader, the machine and the command-line
// front-end.
package types

import (
	"fmt"
	"strconv"
)

// Tag identifies the dynamic type of a Value. The zero value is Undef, the
// state of a variable that was declared but never assigned.
type Tag uint8

const (
	Undef Tag = iota
	Int
	String
	Bool
	Nil
)

var tagNames = [...]string{
	Undef:  "",
	Int:    "int",
	String: "string",
	Bool:   "bool",
	Nil:    "nil",
}

// String returns the name of the tag as used by the TYPE instruction: one of
// "int", "string", "bool", "nil", or the empty string for Undef.
func (t Tag) String() string { return tagNames[t] }

// TagOf returns the tag named by s ("int", "string", "bool" or "nil").
func TagOf(s string) (Tag, bool) {
	switch s {
	case "int":
		return Int, true
	case "string":
		return String, true
	case "bool":
		return Bool, true
	case "nil":
		return Nil, true
	}
	return Undef, false
}

// Value is a tagged IPPcode22 value. The zero value is the Undef marker.
// Strings are stored as decoded Unicode text; the \DDD escape form never
// reaches a Value.
type Value struct {
	tag Tag
	i   int64
	s   string
	b   bool
}

var (
	NilValue   = Value{tag: Nil}
	UndefValue = Value{}
)

func MakeInt(i int64) Value { return Value{tag: Int, i: i} }

func MakeString(s string) Value { return Value{tag: String, s: s} }

func MakeBool(b bool) Value { return Value{tag: Bool, b: b} }

func (v Value) Tag() Tag { return v.tag }

func (v Value) IsUndef() bool { return v.tag == Undef }

// Int returns the payload of an Int value. It must only be called when the
// tag is known to be Int.
func (v Value) Int() int64 { return v.i }

// Str returns the payload of a String value.
func (v Value) Str() string { return v.s }

// Bool returns the payload of a Bool value.
func (v Value) Bool() bool { return v.b }

// Equal reports whether v and w are the same typed value. Values of
// different tags are never equal; Nil is equal only to Nil. Type rules
// (which tags may legally be compared) are enforced by the caller.
func (v Value) Equal(w Value) bool {
	if v.tag != w.tag {
		return false
	}
	switch v.tag {
	case Int:
		return v.i == w.i
	case String:
		return v.s == w.s
	case Bool:
		return v.b == w.b
	}
	// Nil == Nil, Undef == Undef
	return true
}

// Render returns the WRITE form of the value: base-10 for ints, lowercase
// true/false for bools, the text itself for strings and the empty string for
// nil.
func (v Value) Render() string {
	switch v.tag {
	case Int:
		return strconv.FormatInt(v.i, 10)
	case String:
		return v.s
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	}
	return ""
}

// String returns a debug rendering that keeps the tag visible, used by BREAK
// and DPRINT diagnostics.
func (v Value) String() string {
	switch v.tag {
	case Undef:
		return "undef"
	case Nil:
		return "nil@nil"
	}
	return fmt.Sprintf("%s@%s", v.tag, v.Render())
}

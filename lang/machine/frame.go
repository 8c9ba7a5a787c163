package machine

import (
	"fmt"
	"io"
	"sort"

	"github.com/dolthub/swiss"

	"github.com/mna/ippcode/lang/program"
	"github.com/mna/ippcode/lang/types"
)

// Frame is a mapping from variable name to value. Whether a frame is active
// is not a property of the frame itself but of its position in the
// FrameStack: the global frame always is, the temp slot is active when
// non-nil and the local frame is the top of the pushed stack.
type Frame struct {
	vars *swiss.Map[string, types.Value]
}

func newFrame() *Frame {
	return &Frame{vars: swiss.NewMap[string, types.Value](8)}
}

// Define creates a fresh Undef slot for the variable (52 if it exists).
func (f *Frame) Define(name string) error {
	if f.vars.Has(name) {
		return types.Errorf(types.ExitRedefined, "variable %s already defined", name)
	}
	f.vars.Put(name, types.UndefValue)
	return nil
}

// Set assigns a value to an existing variable (54 if unknown).
func (f *Frame) Set(name string, v types.Value) error {
	if !f.vars.Has(name) {
		return types.Errorf(types.ExitUndefVar, "variable %s does not exist", name)
	}
	f.vars.Put(name, v)
	return nil
}

// Get returns the value of an initialized variable (54 if unknown, 56 if
// still Undef).
func (f *Frame) Get(name string) (types.Value, error) {
	v, ok := f.vars.Get(name)
	if !ok {
		return v, types.Errorf(types.ExitUndefVar, "variable %s does not exist", name)
	}
	if v.IsUndef() {
		return v, types.Errorf(types.ExitNoValue, "variable %s is not initialized", name)
	}
	return v, nil
}

// TagOf returns the tag of a variable, tolerating Undef. Only the TYPE
// instruction uses this path.
func (f *Frame) TagOf(name string) (types.Tag, error) {
	v, ok := f.vars.Get(name)
	if !ok {
		return types.Undef, types.Errorf(types.ExitUndefVar, "variable %s does not exist", name)
	}
	return v.Tag(), nil
}

// dump writes the frame contents to w in name order, for BREAK.
func (f *Frame) dump(w io.Writer) {
	names := make([]string, 0, f.vars.Count())
	f.vars.Iter(func(name string, _ types.Value) bool {
		names = append(names, name)
		return false
	})
	sort.Strings(names)
	for _, name := range names {
		v, _ := f.vars.Get(name)
		fmt.Fprintf(w, "  %s = %s\n", name, v)
	}
}

// FrameStack holds the global frame, the detachable temporary frame and the
// stack of pushed frames whose top serves as the local frame.
type FrameStack struct {
	global *Frame
	temp   *Frame
	stack  []*Frame
}

func NewFrameStack() *FrameStack {
	return &FrameStack{global: newFrame()}
}

func (fs *FrameStack) local() *Frame {
	if len(fs.stack) == 0 {
		return nil
	}
	return fs.stack[len(fs.stack)-1]
}

// frame resolves a frame prefix to the targeted frame, failing with 55 when
// the local or temporary frame is inactive.
func (fs *FrameStack) frame(ft program.FrameTag) (*Frame, error) {
	switch ft {
	case program.GF:
		return fs.global, nil
	case program.LF:
		if f := fs.local(); f != nil {
			return f, nil
		}
		return nil, types.NewError(types.ExitNoFrame, "local frame is not defined")
	default:
		if fs.temp != nil {
			return fs.temp, nil
		}
		return nil, types.NewError(types.ExitNoFrame, "temporary frame is not defined")
	}
}

// CreateTemp replaces the temporary frame with a new empty one; any previous
// temp frame is discarded.
func (fs *FrameStack) CreateTemp() {
	fs.temp = newFrame()
}

// PushTemp moves the temporary frame onto the stack, making it the local
// frame; the temp slot becomes inactive. 55 if there is no temp frame.
func (fs *FrameStack) PushTemp() error {
	if fs.temp == nil {
		return types.NewError(types.ExitNoFrame, "temporary frame is not defined")
	}
	fs.stack = append(fs.stack, fs.temp)
	fs.temp = nil
	return nil
}

// PopLocal moves the top of the stack back into the temp slot. 55 if the
// stack is empty.
func (fs *FrameStack) PopLocal() error {
	if len(fs.stack) == 0 {
		return types.NewError(types.ExitNoFrame, "local frame is not defined")
	}
	fs.temp = fs.stack[len(fs.stack)-1]
	fs.stack = fs.stack[:len(fs.stack)-1]
	return nil
}

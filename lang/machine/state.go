package machine

import (
	"github.com/mna/ippcode/lang/program"
	"github.com/mna/ippcode/lang/types"
)

// State is the mutable control-flow state of one execution: the instruction
// pointer, the call return stack and the label table (read-only after
// loading).
type State struct {
	ip        int
	callStack []int
	labels    *program.Labels
}

func newState(labels *program.Labels) *State {
	return &State{labels: labels}
}

// jump sets the ip to the label's recorded index; the run loop's post-step
// increment then lands on the instruction after the LABEL.
func (st *State) jump(name string) error {
	idx, err := st.labels.Index(name)
	if err != nil {
		return err
	}
	st.ip = idx
	return nil
}

// call saves the current ip on the call stack and jumps to the label.
func (st *State) call(name string) error {
	idx, err := st.labels.Index(name)
	if err != nil {
		return err
	}
	st.callStack = append(st.callStack, st.ip)
	st.ip = idx
	return nil
}

// ret pops the call stack into the ip (56 if empty); the post-step increment
// resumes after the CALL.
func (st *State) ret() error {
	if len(st.callStack) == 0 {
		return types.NewError(types.ExitNoValue, "call stack is empty")
	}
	st.ip = st.callStack[len(st.callStack)-1]
	st.callStack = st.callStack[:len(st.callStack)-1]
	return nil
}

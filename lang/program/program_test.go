package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/ippcode/lang/types"
)

func TestLookupOpcode(t *testing.T) {
	op, ok := LookupOpcode("move")
	require.True(t, ok)
	assert.Equal(t, MOVE, op)

	op, ok = LookupOpcode("JuMpIfEq")
	require.True(t, ok)
	assert.Equal(t, JUMPIFEQ, op)

	_, ok = LookupOpcode("NOP")
	assert.False(t, ok)
}

func TestSignatures(t *testing.T) {
	// every opcode has a name and a signature entry
	for op := MOVE; op <= BREAK; op++ {
		assert.NotEmpty(t, op.String(), "opcode %d has no name", op)
		assert.NotNil(t, signatures[op], "opcode %s has no signature", op)
	}

	assert.Equal(t, 0, CREATEFRAME.Arity())
	assert.Equal(t, 1, DEFVAR.Arity())
	assert.Equal(t, 2, MOVE.Arity())
	assert.Equal(t, 3, JUMPIFEQ.Arity())
	assert.Equal(t, []Operand{OperLabel, OperSymb, OperSymb}, JUMPIFEQ.Signature())
	assert.Equal(t, []Operand{OperVar, OperType}, READ.Signature())
}

func TestProgramSort(t *testing.T) {
	var p Program
	p.Append(Instruction{Op: WRITE, Order: 3, Args: []Argument{LitArg(types.MakeInt(3))}})
	p.Append(Instruction{Op: WRITE, Order: 1, Args: []Argument{LitArg(types.MakeInt(1))}})
	p.Append(Instruction{Op: WRITE, Order: 2, Args: []Argument{LitArg(types.MakeInt(2))}})
	require.NoError(t, p.Sort())
	assert.Equal(t, []int{1, 2, 3}, []int{p.Instrs[0].Order, p.Instrs[1].Order, p.Instrs[2].Order})
}

func TestProgramSortDuplicateOrder(t *testing.T) {
	var p Program
	p.Append(Instruction{Op: BREAK, Order: 2})
	p.Append(Instruction{Op: BREAK, Order: 2})
	err := p.Sort()
	require.Error(t, err)
	assert.Equal(t, types.ExitStructure, types.CodeOf(err))
}

func TestScanLabels(t *testing.T) {
	var p Program
	p.Append(Instruction{Op: LABEL, Order: 1, Args: []Argument{LabelArg("start")}})
	p.Append(Instruction{Op: JUMP, Order: 2, Args: []Argument{LabelArg("end")}})
	p.Append(Instruction{Op: LABEL, Order: 3, Args: []Argument{LabelArg("end")}})
	require.NoError(t, p.Sort())

	labels, err := p.ScanLabels()
	require.NoError(t, err)

	idx, err := labels.Index("start")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = labels.Index("end")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = labels.Index("nope")
	require.Error(t, err)
	assert.Equal(t, types.ExitRedefined, types.CodeOf(err))
}

func TestScanLabelsRedefined(t *testing.T) {
	var p Program
	p.Append(Instruction{Op: LABEL, Order: 1, Args: []Argument{LabelArg("x")}})
	p.Append(Instruction{Op: LABEL, Order: 2, Args: []Argument{LabelArg("x")}})
	_, err := p.ScanLabels()
	require.Error(t, err)
	assert.Equal(t, types.ExitRedefined, types.CodeOf(err))
}

func TestArgumentString(t *testing.T) {
	assert.Equal(t, "GF@x", VarArg(GF, "x").String())
	assert.Equal(t, "label@loop", LabelArg("loop").String())
	assert.Equal(t, "type@int", TypeArg(types.Int).String())
	assert.Equal(t, "int@7", LitArg(types.MakeInt(7)).String())
	assert.Equal(t, "nil@nil", LitArg(types.NilValue).String())
}

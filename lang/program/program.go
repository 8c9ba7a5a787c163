package program

import (
	"sort"

	"github.com/dolthub/swiss"
	"github.com/mna/ippcode/lang/types"
)

// Program is the ordered instruction vector of one source document.
type Program struct {
	Instrs []Instruction
}

// Append adds an instruction. Ordering is established later by Sort.
func (p *Program) Append(in Instruction) {
	p.Instrs = append(p.Instrs, in)
}

// Sort orders the instructions by ascending order attribute and rejects
// duplicate order values.
func (p *Program) Sort() error {
	sort.SliceStable(p.Instrs, func(i, j int) bool {
		return p.Instrs[i].Order < p.Instrs[j].Order
	})
	for i := 1; i < len(p.Instrs); i++ {
		if p.Instrs[i].Order == p.Instrs[i-1].Order {
			return p.Instrs[i].Fail(types.ExitStructure, "duplicate instruction order")
		}
	}
	return nil
}

// Labels maps label names to the index of their LABEL instruction. It is
// populated once by ScanLabels and read-only afterwards.
type Labels struct {
	m *swiss.Map[string, int]
}

// Index returns the instruction index recorded for the label. An unknown
// label is an error (52).
func (l *Labels) Index(name string) (int, error) {
	idx, ok := l.m.Get(name)
	if !ok {
		return 0, types.Errorf(types.ExitRedefined, "unknown label %s", name)
	}
	return idx, nil
}

// ScanLabels walks the sorted program and records every LABEL instruction at
// its own index; the executor's post-step increment makes jumps fall through
// to the instruction after the LABEL. Label redefinition is an error (52).
func (p *Program) ScanLabels() (*Labels, error) {
	labels := &Labels{m: swiss.NewMap[string, int](8)}
	for i := range p.Instrs {
		in := &p.Instrs[i]
		if in.Op != LABEL {
			continue
		}
		name := in.Args[0].Name
		if labels.m.Has(name) {
			return nil, in.Fail(types.ExitRedefined, "label "+name+" already defined")
		}
		labels.m.Put(name, i)
	}
	return labels, nil
}

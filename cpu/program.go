package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and generated instructions.
type Opcode struct {
	LineNo    int
	Pc        int
	Words     []string
	Codes     []Code
	LinkLabel string
}

// Program is an assembled program listing.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the source line that generated the word at pc.
func (prog *Program) Debug(pc uint32) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if uint64(pc) >= uint64(op.Pc) && uint64(pc) < uint64(op.Pc+len(op.Codes)) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(pc) - op.Pc,
			}
			break
		}
	}

	return
}

// Binary returns the program image.
func (prog *Program) Binary() (bins []uint32) {
	for _, code := range prog.Codes() {
		bins = append(bins, uint32(code))
	}

	return
}

func (prog *Program) Codes() iter.Seq2[uint32, Code] {
	return func(yield func(pc uint32, code Code) bool) {
		for _, op := range prog.Opcodes {
			pc := uint32(op.Pc)
			for n, code := range op.Codes {
				if !yield(pc+uint32(n), code) {
					return
				}
			}
		}
	}
}

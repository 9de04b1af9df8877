package cpu

import (
	"fmt"

	"github.com/ezrec/um/bitpack"
)

// CodeOp is an opcode, the top 4 bits of an instruction word.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_CMOV  = CodeOp(0)  // cmov
	OP_LOAD  = CodeOp(1)  // load
	OP_STORE = CodeOp(2)  // store
	OP_ADD   = CodeOp(3)  // add
	OP_MUL   = CodeOp(4)  // mul
	OP_DIV   = CodeOp(5)  // div
	OP_NAND  = CodeOp(6)  // nand
	OP_HALT  = CodeOp(7)  // halt
	OP_MAP   = CodeOp(8)  // map
	OP_UNMAP = CodeOp(9)  // unmap
	OP_OUT   = CodeOp(10) // out
	OP_IN    = CodeOp(11) // in
	OP_LOADP = CodeOp(12) // loadp
	OP_LV    = CodeOp(13) // lv
)

// Layout is the operand layout of a decoded instruction.
type Layout int

//go:generate go tool stringer -linecomment -type=Layout
const (
	LAYOUT_INVALID    = Layout(0) // invalid
	LAYOUT_STANDARD   = Layout(1) // standard
	LAYOUT_LOAD_VALUE = Layout(2) // value
)

// Instruction word fields.
const (
	FIELD_OP_WIDTH    = 4
	FIELD_OP_LSB      = 28
	FIELD_REG_WIDTH   = 3
	FIELD_A_LSB       = 6
	FIELD_B_LSB       = 3
	FIELD_C_LSB       = 0
	FIELD_LV_REG_LSB  = 25
	FIELD_VALUE_WIDTH = 25
	FIELD_VALUE_LSB   = 0

	VALUE_MAX = (1 << FIELD_VALUE_WIDTH) - 1 // Largest load value immediate.
)

// Code is a single 32-bit instruction word.
type Code uint32

// Instruction is a decoded instruction word.
//
// For LAYOUT_STANDARD, A, B and C are the register operands.
// For LAYOUT_LOAD_VALUE, A is the destination register and Value the
// immediate. LAYOUT_INVALID carries only the opcode.
type Instruction struct {
	Layout Layout
	Op     CodeOp
	A      int
	B      int
	C      int
	Value  uint32
}

// MakeCode creates a standard layout instruction. Register indexes are
// truncated to 3 bits.
func MakeCode(op CodeOp, a, b, c int) Code {
	const mask = (1 << FIELD_REG_WIDTH) - 1
	return Code((uint32(op)&0xf)<<FIELD_OP_LSB |
		(uint32(a)&mask)<<FIELD_A_LSB |
		(uint32(b)&mask)<<FIELD_B_LSB |
		(uint32(c)&mask)<<FIELD_C_LSB)
}

// MakeCodeValue creates a load value instruction.
func MakeCodeValue(a int, value uint32) (code Code, err error) {
	word, err := bitpack.SetUnsigned(uint64(OP_LV)<<FIELD_OP_LSB, FIELD_VALUE_WIDTH, FIELD_VALUE_LSB, uint64(value))
	if err != nil {
		err = ErrValueRange
		return
	}

	word, err = bitpack.SetUnsigned(word, FIELD_REG_WIDTH, FIELD_LV_REG_LSB, uint64(a))
	if err != nil {
		err = ErrRegisterInvalid
		return
	}

	code = Code(word)
	return
}

// MakeCodeHalt creates a halt instruction.
func MakeCodeHalt() Code {
	return MakeCode(OP_HALT, 0, 0, 0)
}

// Op returns the opcode of the instruction word.
func (code Code) Op() CodeOp {
	return CodeOp(bitpack.Extract(uint32(code), FIELD_OP_WIDTH, FIELD_OP_LSB))
}

// Decode decodes the instruction word.
func (code Code) Decode() (inst Instruction) {
	word := uint32(code)

	inst.Op = code.Op()
	switch {
	case inst.Op == OP_LV:
		inst.Layout = LAYOUT_LOAD_VALUE
		inst.A = int(bitpack.Extract(word, FIELD_REG_WIDTH, FIELD_LV_REG_LSB))
		inst.Value = bitpack.Extract(word, FIELD_VALUE_WIDTH, FIELD_VALUE_LSB)
	case inst.Op < OP_LV:
		inst.Layout = LAYOUT_STANDARD
		inst.A = int(bitpack.Extract(word, FIELD_REG_WIDTH, FIELD_A_LSB))
		inst.B = int(bitpack.Extract(word, FIELD_REG_WIDTH, FIELD_B_LSB))
		inst.C = int(bitpack.Extract(word, FIELD_REG_WIDTH, FIELD_C_LSB))
	default:
		inst.Layout = LAYOUT_INVALID
	}

	return
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	inst := code.Decode()

	switch inst.Layout {
	case LAYOUT_LOAD_VALUE:
		out = fmt.Sprintf("%v r%d %#x", inst.Op, inst.A, inst.Value)
	case LAYOUT_STANDARD:
		switch inst.Op {
		case OP_HALT:
			out = inst.Op.String()
		case OP_MAP, OP_LOADP:
			out = fmt.Sprintf("%v r%d r%d", inst.Op, inst.B, inst.C)
		case OP_UNMAP, OP_OUT, OP_IN:
			out = fmt.Sprintf("%v r%d", inst.Op, inst.C)
		default:
			out = fmt.Sprintf("%v r%d r%d r%d", inst.Op, inst.A, inst.B, inst.C)
		}
	default:
		out = fmt.Sprintf(".word %#x", uint32(code))
	}

	return
}

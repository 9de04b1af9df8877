package cpu

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/um/io"
)

func FuzzCpu(f *testing.F) {
	for op := range 16 {
		f.Add(uint32(op)<<FIELD_OP_LSB|0x053, uint32(0), uint32(1), uint8(0))
		f.Add(uint32(op)<<FIELD_OP_LSB|0x1ff, uint32(0xffffffff), uint32(3), uint8(2))
	}

	f.Fuzz(func(t *testing.T, word uint32, value uint32, size uint32, inputs uint8) {
		assert := assert.New(t)

		code := Code(word)
		size &= 0xff

		tape_output := &bytes.Buffer{}
		tape_input := make([]byte, inputs&0x3)
		for n := range tape_input {
			tape_input[n] = uint8(rand.Uint32() & 0xff)
		}
		tape := &io.Tape{
			Input:  bytes.NewReader(tape_input),
			Output: tape_output,
		}

		cpu := NewCpu(tape)
		cpu.Reset([]uint32{0x70000000, 0x70000000, uint32(code), 0x70000000})
		id, err := cpu.Memory.Map(size)
		assert.NoError(err)
		assert.Equal(uint32(1), id)

		cpu.Pc = 2
		cpu.Register = Registers{0, 1, 2, value, 0, size, 0xff, value & 0xff}
		pre := cpu.Register

		inst := code.Decode()
		if inst.Op == OP_MAP && pre[inst.C] > 0xffff {
			t.Skip("segment too large")
		}

		err = cpu.Execute(code)
		assert.NoError(tape.Flush())

		code_str := fmt.Sprintf("0x%08x (%v) value:%#x size:%v inputs:%v\ncpu:%v",
			uint32(code), code, value, size, len(tape_input), cpu.String())

		if err != nil {
			assert.True(errors.Is(err, ErrInstruction(0)), code_str)
			assert.Equal(uint32(2), cpu.Pc, code_str)
			assert.Equal(pre, cpu.Register, code_str)
			assert.Equal(0, cpu.Ticks, code_str)

			switch {
			case errors.Is(err, ErrDecode):
				assert.Equal(LAYOUT_INVALID, inst.Layout, code_str)
			case errors.Is(err, ErrArithmetic):
				assert.Equal(OP_DIV, inst.Op, code_str)
				assert.Equal(uint32(0), pre[inst.C], code_str)
			case errors.Is(err, ErrProtocol):
				switch inst.Op {
				case OP_OUT:
					assert.Greater(pre[inst.C], uint32(0xff), code_str)
				case OP_UNMAP:
					assert.Equal(uint32(0), pre[inst.C], code_str)
				default:
					assert.NoError(err, code_str)
				}
			case errors.Is(err, ErrBounds):
				switch inst.Op {
				case OP_LOAD, OP_STORE, OP_UNMAP, OP_LOADP:
					// expected error
				default:
					assert.NoError(err, code_str)
				}
			default:
				assert.NoError(err, code_str)
			}
			return
		}

		next_pc := uint32(3)
		expect := pre
		a, b, c := inst.A, inst.B, inst.C

		switch inst.Op {
		case OP_CMOV:
			if pre[c] != 0 {
				expect[a] = pre[b]
			}
		case OP_LOAD:
			if pre[b] == 0 {
				expect[a] = cpu.Memory.Program()[pre[c]]
			} else {
				expect[a] = 0
			}
		case OP_STORE:
			segment := cpu.Memory.Program()
			if pre[a] == 1 {
				var stored uint32
				stored, err = cpu.Memory.Load(1, pre[b])
				assert.NoError(err, code_str)
				assert.Equal(pre[c], stored, code_str)
			} else {
				assert.Equal(pre[c], segment[pre[b]], code_str)
			}
		case OP_ADD:
			expect[a] = pre[b] + pre[c]
		case OP_MUL:
			expect[a] = pre[b] * pre[c]
		case OP_DIV:
			expect[a] = pre[b] / pre[c]
		case OP_NAND:
			expect[a] = ^(pre[b] & pre[c])
		case OP_HALT:
			assert.True(cpu.Halted, code_str)
		case OP_MAP:
			expect[b] = 2
			assert.True(cpu.Memory.Live(2), code_str)
		case OP_UNMAP:
			assert.Equal(uint32(1), pre[c], code_str)
			assert.False(cpu.Memory.Live(1), code_str)
		case OP_OUT:
			assert.Equal([]byte{byte(pre[c])}, tape_output.Bytes(), code_str)
		case OP_IN:
			if len(tape_input) > 0 {
				expect[c] = uint32(tape_input[0])
			} else {
				expect[c] = 0xffffffff
			}
		case OP_LOADP:
			next_pc = pre[c]
			if pre[b] == 1 {
				assert.Equal(int(size), len(cpu.Memory.Program()), code_str)
			}
		case OP_LV:
			expect[a] = inst.Value
		default:
			panic(ErrInstruction(code))
		}

		assert.Equal(expect, cpu.Register, code_str)
		assert.Equal(next_pc, cpu.Pc, code_str)
		assert.Equal(1, cpu.Ticks, code_str)
	})
}

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/um/io"
	"github.com/ezrec/um/memory"
)

// Port is the byte I/O interface used by the in and out instructions.
type Port io.Port

var _cpu_defines = map[string]string{
	"REGISTERS": fmt.Sprintf("%d", REGISTER_COUNT),
	"VALUE_MAX": fmt.Sprintf("%#x", VALUE_MAX),
}

// Cpu is the simulation context for the Universal Machine.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory *memory.Memory // Segmented memory. Segment 0 is the program.
	Port   Port           // Console I/O.

	Pc       uint32    // Index in segment 0 of the next instruction.
	Register Registers // Register bank.
	Halted   bool      // Set once a halt instruction has executed.

	Ticks int // Instructions executed.
}

// NewCpu creates a new CPU attached to an I/O port, with an empty program.
func NewCpu(port Port) (cpu *Cpu) {
	cpu = &Cpu{
		Memory: memory.New(nil),
		Port:   port,
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears the registers and memory.
// - Installs program as segment 0.
// - Zeros the program counter and statistics.
func (cpu *Cpu) Reset(program []uint32) {
	if cpu.Verbose {
		log.Printf("cpu: reset (%d words)", len(program))
	}

	clear(cpu.Register[:])
	cpu.Memory.Reset(program)
	cpu.Memory.Verbose = cpu.Verbose
	cpu.Pc = 0
	cpu.Halted = false
	cpu.Ticks = 0
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %04X_%04X\n", "pc", cpu.Pc>>16, cpu.Pc&0xffff)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("% 5s: %04X_%04X\n", fmt.Sprintf("r%d", n), val>>16, val&0xffff)
	}
	text += fmt.Sprintf("% 5s: %v\n", "mem", cpu.Memory.String())
	text += fmt.Sprintf("% 5s: %v\n", "halt", cpu.Halted)

	return
}

// FetchCode fetches the instruction at the program counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	if cpu.Halted {
		err = ErrHalted
		return
	}

	program := cpu.Memory.Program()
	if uint64(cpu.Pc) >= uint64(len(program)) {
		err = errors.Join(ErrBounds, ErrPcBounds)
		return
	}

	code = Code(program[cpu.Pc])
	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	err = cpu.Execute(code)
	return
}

// Run executes instructions until the CPU halts or faults.
//
// Segment 0 is fetched directly, and only re-read after a load program
// instruction replaces it. Stores into segment 0 share its backing array,
// so they are seen by the next fetch.
func (cpu *Cpu) Run() (err error) {
	if cpu.Verbose {
		for !cpu.Halted {
			err = cpu.Tick()
			if err != nil {
				return
			}
		}
		return
	}

	program := cpu.Memory.Program()
	for !cpu.Halted {
		if uint64(cpu.Pc) >= uint64(len(program)) {
			err = errors.Join(ErrBounds, ErrPcBounds)
			return
		}

		code := Code(program[cpu.Pc])
		err = cpu.execute(code)
		if err != nil {
			err = errors.Join(ErrInstruction(code), err)
			return
		}

		if CodeOp(code>>FIELD_OP_LSB) == OP_LOADP {
			program = cpu.Memory.Program()
		}
	}

	return
}

// Execute executes a single instruction located at the program counter.
//
// On success the program counter advances to the next instruction, or to
// the target of a load program instruction. On failure the machine state is
// left as it was before the instruction, except for any output already sent.
func (cpu *Cpu) Execute(code Code) (err error) {
	if cpu.Verbose {
		log.Printf("%08x: %v", cpu.Pc, code)
	}

	err = cpu.execute(code)
	if err != nil {
		err = errors.Join(ErrInstruction(code), err)
	}

	return
}

func (cpu *Cpu) execute(code Code) (err error) {
	const mask = (1 << FIELD_REG_WIDTH) - 1

	next_pc := cpu.Pc + 1

	reg := &cpu.Register
	mem := cpu.Memory

	word := uint32(code)
	a := int(word>>FIELD_A_LSB) & mask
	b := int(word>>FIELD_B_LSB) & mask
	c := int(word>>FIELD_C_LSB) & mask

	switch CodeOp(word>>FIELD_OP_LSB) {
	case OP_CMOV:
		if reg.Get(c) != 0 {
			reg.Set(a, reg.Get(b))
		}
	case OP_LOAD:
		var value uint32
		value, err = mem.Load(reg.Get(b), reg.Get(c))
		if err != nil {
			err = errors.Join(ErrBounds, err)
			return
		}
		reg.Set(a, value)
	case OP_STORE:
		err = mem.Store(reg.Get(a), reg.Get(b), reg.Get(c))
		if err != nil {
			err = errors.Join(ErrBounds, err)
			return
		}
	case OP_ADD:
		reg.Set(a, reg.Get(b)+reg.Get(c))
	case OP_MUL:
		reg.Set(a, reg.Get(b)*reg.Get(c))
	case OP_DIV:
		divisor := reg.Get(c)
		if divisor == 0 {
			err = errors.Join(ErrArithmetic, ErrDivideByZero)
			return
		}
		reg.Set(a, reg.Get(b)/divisor)
	case OP_NAND:
		reg.Set(a, ^(reg.Get(b) & reg.Get(c)))
	case OP_HALT:
		cpu.Halted = true
		if cpu.Verbose {
			log.Printf("cpu: halt after %d ticks", cpu.Ticks+1)
		}
	case OP_MAP:
		var id uint32
		id, err = mem.Map(reg.Get(c))
		if err != nil {
			err = errors.Join(ErrBounds, err)
			return
		}
		reg.Set(b, id)
	case OP_UNMAP:
		err = mem.Unmap(reg.Get(c))
		if errors.Is(err, memory.ErrSegmentZero) {
			err = errors.Join(ErrProtocol, err)
			return
		}
		if err != nil {
			err = errors.Join(ErrBounds, err)
			return
		}
	case OP_OUT:
		value := reg.Get(c)
		if value > 0xff {
			err = errors.Join(ErrProtocol, ErrOutputRange)
			return
		}
		if cpu.Port == nil {
			err = errors.Join(ErrOutput, ErrPortInvalid)
			return
		}
		err = cpu.Port.Send(byte(value))
		if err != nil {
			err = errors.Join(ErrOutput, err)
			return
		}
	case OP_IN:
		if cpu.Port == nil {
			err = errors.Join(ErrInput, ErrPortInvalid)
			return
		}
		var value byte
		var ok bool
		value, ok, err = cpu.Port.Receive()
		if err != nil {
			err = errors.Join(ErrInput, err)
			return
		}
		if ok {
			reg.Set(c, uint32(value))
		} else {
			reg.Set(c, ^uint32(0))
		}
	case OP_LOADP:
		target := reg.Get(c)
		err = mem.ReplaceProgram(reg.Get(b))
		if err != nil {
			err = errors.Join(ErrBounds, err)
			return
		}
		next_pc = target
	case OP_LV:
		reg.Set(int(word>>FIELD_LV_REG_LSB)&mask, word&VALUE_MAX)
	default:
		err = errors.Join(ErrDecode, ErrOpcodeInvalid)
		return
	}

	cpu.Pc = next_pc
	cpu.Ticks++

	return
}

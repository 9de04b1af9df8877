// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"iter"
	"log"
	"slices"

	"github.com/ezrec/um/cpu"
	"github.com/ezrec/um/internal"
	"github.com/ezrec/um/io"
)

// Process exit statuses.
const (
	EXIT_HALT       = 0 // Program halted.
	EXIT_HOST       = 1 // Usage or host I/O failure.
	EXIT_LOADER     = 2 // Program image could not be loaded.
	EXIT_DECODE     = 3 // Invalid instruction.
	EXIT_BOUNDS     = 4 // Memory or program counter out of bounds.
	EXIT_ARITHMETIC = 5 // Division by zero.
	EXIT_PROTOCOL   = 6 // Invalid use of an instruction.
)

// Emulator state. CPU + memory + tape and program image.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the assembled program listing, if any.

	Tape io.Tape // Tape I/O port.
	Rom  io.Rom  // Program image.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Program: &cpu.Program{},
	}

	emu.Cpu = cpu.NewCpu(&emu.Tape)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(
		emu.Cpu.Defines(),
		emu.Tape.Defines(),
	)
}

// Close the emulator, flushing any pending output.
func (emu *Emulator) Close() (err error) {
	err = emu.Tape.Flush()
	if err != nil {
		err = errors.Join(cpu.ErrOutput, err)
	}

	return
}

// Reset the emulator state, and load the program image.
// An assembled Program replaces the contents of the Rom.
func (emu *Emulator) Reset() (err error) {
	if emu.Program != nil && len(emu.Program.Opcodes) > 0 {
		emu.Rom.Data = emu.Program.Binary()
	}

	if emu.Verbose {
		log.Printf("emulator: image %d words, blake3 %v", len(emu.Rom.Data), emu.Rom.Digest())
	}

	emu.Tape.Rewind()

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset(slices.Clone(emu.Rom.Data))

	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Code returns the current instruction code.
func (emu *Emulator) Code() (code cpu.Code) {
	code, _ = emu.Cpu.FetchCode()
	return
}

// LineNo returns the source line number for the program counter, or 0 if
// there is no listing for the running program. The listing no longer
// applies once segment 0 has been replaced, or once the word at pc has been
// overwritten by a store.
func (emu *Emulator) LineNo(pc uint32) int {
	if emu.Program == nil || emu.Cpu.Memory.Stats.Replaces > 0 {
		return 0
	}

	dbg := emu.Program.Debug(pc)
	if dbg.Opcode == nil {
		return 0
	}

	program := emu.Cpu.Memory.Program()
	if uint64(pc) >= uint64(len(program)) || cpu.Code(program[pc]) != dbg.Codes[dbg.Index] {
		return 0
	}

	return dbg.LineNo
}

// setVerbose copies the emulator verbosity to the CPU and its memory.
func (emu *Emulator) setVerbose() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Memory.Verbose = emu.Verbose
}

// runtimeError locates err at the current program counter. A faulting
// instruction leaves the program counter on itself.
func (emu *Emulator) runtimeError(err error) error {
	pc := emu.Cpu.Pc
	return &ErrRuntime{Pc: pc, LineNo: emu.LineNo(pc), Err: err}
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.setVerbose()

	if emu.Cpu.Halted {
		done = true
		return
	}

	err = emu.Cpu.Tick()
	if err != nil {
		err = emu.runtimeError(err)
		return
	}

	done = emu.Cpu.Halted
	return
}

// Run the emulator until the program halts or faults.
// Pending output is flushed on every path.
func (emu *Emulator) Run() (err error) {
	defer func() {
		cerr := emu.Close()
		if err == nil {
			err = cerr
		}
		if emu.Verbose {
			log.Printf("emulator: %d ticks, %+v", emu.Ticks(), emu.Cpu.Memory.Stats)
		}
	}()

	emu.setVerbose()

	err = emu.Cpu.Run()
	if err != nil {
		err = emu.runtimeError(err)
		return
	}

	return
}

// ExitStatus maps a Run result to a process exit status.
func ExitStatus(err error) int {
	switch {
	case err == nil:
		return EXIT_HALT
	case errors.Is(err, io.ErrLoader):
		return EXIT_LOADER
	case errors.Is(err, cpu.ErrDecode):
		return EXIT_DECODE
	case errors.Is(err, cpu.ErrBounds):
		return EXIT_BOUNDS
	case errors.Is(err, cpu.ErrArithmetic):
		return EXIT_ARITHMETIC
	case errors.Is(err, cpu.ErrProtocol):
		return EXIT_PROTOCOL
	default:
		return EXIT_HOST
	}
}

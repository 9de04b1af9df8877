package cpu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/um/io"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("8", asm.Equate["REGISTERS"])
	assert.Equal("0x1ffffff", asm.Equate["VALUE_MAX"])
}

func opEqual(t *testing.T, expected, opcodes []Opcode) {
	assert := assert.New(t)

	assert.Equal(len(expected), len(opcodes))
	if len(expected) == len(opcodes) {
		for n := range len(expected) {
			assert.Equal(expected[n], opcodes[n])
		}
	}
}

func TestAssemblerOpcodes(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"cmov r7 r6 r5",
		"load r1 r2 r3",
		"store r1 r2 r3",
		"add r0 r1 r2",
		"mul r1 r2 r3",
		"div r1 r2 r3",
		"nand r1 r2 r2",
		"halt",
		"map r1 r2",
		"unmap r3",
		"out r4",
		"in r5",
		"loadp r0 r6",
		"lv r0 0x10",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	expected := []Opcode{
		{1, 0, []string{"cmov", "r7", "r6", "r5"}, []Code{0x0000_01f5}, ""},
		{2, 1, []string{"load", "r1", "r2", "r3"}, []Code{0x1000_0053}, ""},
		{3, 2, []string{"store", "r1", "r2", "r3"}, []Code{0x2000_0053}, ""},
		{4, 3, []string{"add", "r0", "r1", "r2"}, []Code{0x3000_000a}, ""},
		{5, 4, []string{"mul", "r1", "r2", "r3"}, []Code{0x4000_0053}, ""},
		{6, 5, []string{"div", "r1", "r2", "r3"}, []Code{0x5000_0053}, ""},
		{7, 6, []string{"nand", "r1", "r2", "r2"}, []Code{0x6000_0052}, ""},
		{8, 7, []string{"halt"}, []Code{0x7000_0000}, ""},
		{9, 8, []string{"map", "r1", "r2"}, []Code{0x8000_000a}, ""},
		{10, 9, []string{"unmap", "r3"}, []Code{0x9000_0003}, ""},
		{11, 10, []string{"out", "r4"}, []Code{0xa000_0004}, ""},
		{12, 11, []string{"in", "r5"}, []Code{0xb000_0005}, ""},
		{13, 12, []string{"loadp", "r0", "r6"}, []Code{0xc000_0006}, ""},
		{14, 13, []string{"lv", "r0", "0x10"}, []Code{0xd000_0010}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerAlternates(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"write r2 'A'",
		"not r1 r2",
		"output r2",
		"input r3",
		"lv r4 '\\n'",
		"lv r5 ~0xfffffff0",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	expected := []Opcode{
		{1, 0, []string{"write", "r2", "65"}, []Code{0xd400_0041}, ""},
		{2, 1, []string{"not", "r1", "r2"}, []Code{0x6000_0052}, ""},
		{3, 2, []string{"output", "r2"}, []Code{0xa000_0002}, ""},
		{4, 3, []string{"input", "r3"}, []Code{0xb000_0003}, ""},
		{5, 4, []string{"lv", "r4", "10"}, []Code{0xd800_000a}, ""},
		{6, 5, []string{"lv", "r5", "~0xfffffff0"}, []Code{0xda00_000f}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".equ TEN 10",
		"lv r0 TEN",
		"lv r1 $(TEN * 3)",
		"lv r2 $(LINENO)",
		"lv r3 VALUE_MAX",
		".equ SUM $(TEN + TEN)",
		"lv r4 SUM",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(errors.Unwrap(err))
	}

	expected := []Opcode{
		{2, 0, []string{"lv", "r0", "10"}, []Code{0xd000_000a}, ""},
		{3, 1, []string{"lv", "r1", "0x1e"}, []Code{0xd200_001e}, ""},
		{4, 2, []string{"lv", "r2", "0x4"}, []Code{0xd400_0004}, ""},
		{5, 3, []string{"lv", "r3", "0x1ffffff"}, []Code{0xd7ff_ffff}, ""},
		{7, 4, []string{"lv", "r4", "0x14"}, []Code{0xd800_0014}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("CHAR", "'x'")
	asm.Predefine("CHAR", "0x78")

	prog, err := asm.Parse(strings.NewReader("lv r0 CHAR\n"))
	assert.NoError(err)
	assert.Equal([]uint32{0xd000_0078}, prog.Binary())
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".macro PUT reg ch",
		"lv reg ch",
		"out reg",
		".endm",
		"PUT r1 'H'",
		"PUT r1 'i'",
		".macro PUTS2 a b",
		"PUT r2 a",
		"PUT r2 b",
		".endm",
		"PUTS2 0x21 0x0a",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Opcode{
		{2, 0, []string{"lv", "r1", "72"}, []Code{0xd200_0048}, ""},
		{3, 1, []string{"out", "r1"}, []Code{0xa000_0001}, ""},
		{2, 2, []string{"lv", "r1", "105"}, []Code{0xd200_0069}, ""},
		{3, 3, []string{"out", "r1"}, []Code{0xa000_0001}, ""},
		{2, 4, []string{"lv", "r2", "0x21"}, []Code{0xd400_0021}, ""},
		{3, 5, []string{"out", "r2"}, []Code{0xa000_0002}, ""},
		{2, 6, []string{"lv", "r2", "0x0a"}, []Code{0xd400_000a}, ""},
		{3, 7, []string{"out", "r2"}, []Code{0xa000_0002}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerMacroLocal(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".macro SKIP",
		"lv r0 @done",
		"loadp r7 r0",
		"halt",
		"@done:",
		".endm",
		"SKIP",
		"SKIP",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(3, asm.Label["SKIP_1_done"])
	assert.Equal(6, asm.Label["SKIP_2_done"])
	assert.Equal([]uint32{
		0xd000_0003, 0xc000_0038, 0x7000_0000,
		0xd000_0006, 0xc000_0038, 0x7000_0000,
	}, prog.Binary())
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"lv r1 END",
		"loadp r0 r1",
		"LOOP: out r2",
		"END: ALSO_END:",
		"halt",
		".word LOOP",
		"",
		"DATA: .word 1 2 0xffffffff",
		"lv r2 DATA",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Opcode{
		{1, 0, []string{"lv", "r1", "END"}, []Code{0xd200_0003}, "END"},
		{2, 1, []string{"loadp", "r0", "r1"}, []Code{0xc000_0001}, ""},
		{3, 2, []string{"out", "r2"}, []Code{0xa000_0002}, ""},
		{5, 3, []string{"halt"}, []Code{0x7000_0000}, ""},
		{6, 4, []string{".word", "LOOP"}, []Code{0x0000_0002}, "LOOP"},
		{8, 5, []string{".word", "1", "2", "0xffffffff"}, []Code{1, 2, 0xffff_ffff}, ""},
		{9, 8, []string{"lv", "r2", "DATA"}, []Code{0xd400_0005}, "DATA"},
	}

	opEqual(t, expected, prog.Opcodes)
	assert.Equal(3, asm.Label["ALSO_END"])
}

func TestAssemblerRun(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"; Print a message, then halt.",
		".macro PUT ch",
		"lv r1 ch",
		"out r1",
		".endm",
		"PUT 'H'",
		"PUT 'i'",
		"PUT '\\n'",
		"halt",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	output := &bytes.Buffer{}
	tape := &io.Tape{Output: output}
	cpu := NewCpu(tape)
	cpu.Reset(prog.Binary())

	assert.NoError(cpu.Run())
	assert.NoError(tape.Flush())
	assert.Equal("Hi\n", output.String())
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Various syntax errors
	table := [](struct {
		prog string
		line int
	}){
		{"DUP:\nDUP:\n", 2},
		{"lv r0 nothing", 1},
		{"halt\nlv r0 nothing", 2},
		{"lv r0 $(\"aaa\")", 1},
		{"lv r0 $(more(\"aaa\"))", 1},
		{"lv r0 $(0x10000000000000000)", 1},
		{"lv r0 0x2000000", 1},
		{"lv r0 -1", 1},
		{"lv r0 ~", 1},
		{"lv r0", 1},
		{"lv", 1},
		{"lv r9 1", 1},
		{"lv r0 1 2", 1},
		{"add r0 r1", 1},
		{"add r0 r1 r2 r3", 1},
		{"add r0 r1 r8", 1},
		{"halt r0", 1},
		{"out", 1},
		{"map r1", 1},
		{"frob r0", 1},
		{".word", 1},
		{".word 1 LABEL", 1},
		{".word 0x100000000", 1},
		{".equ", 1},
		{".equ A", 1},
		{".equ A 1\n.equ A 2\n", 2},
		{".macro\n.endm\n", 1},
		{".macro A B C\n.endm\nA 1\n", 3},
		{".macro A B\n.macro C\n.endm\n.endm", 2},
		{".macro A B\n.endm\n.macro A\n.endm\n", 3},
		{".macro A B\n.endm\n.endm\n", 3},
		{".macro A\nhalt\n", 2},
		{".macro A B\nlv r0 B\n.endm\nA 0x4000000\n", 4},
	}

	for _, entry := range table {
		_, err := asm.Parse(strings.NewReader(entry.prog))
		var se *ErrSyntax
		assert.NotNil(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &se), entry.prog)
			assert.Equal(entry.line, se.LineNo, entry.prog)
		}
	}
}

func TestAssemblerErrKinds(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Parse(strings.NewReader("lv r0 0x2000000"))
	assert.ErrorIs(err, ErrValueRange)

	_, err = asm.Parse(strings.NewReader("lv r0 MISSING"))
	var lm ErrLabelMissing
	assert.True(errors.As(err, &lm))
	assert.Equal(ErrLabelMissing("MISSING"), lm)

	_, err = asm.Parse(strings.NewReader(".macro A B\nlv r0 B\n.endm\nA 0x4000000\n"))
	var me *ErrMacro
	if assert.True(errors.As(err, &me)) {
		assert.Equal("A", me.Macro)
		assert.Equal(2, me.Line)
	}
	assert.ErrorIs(err, ErrValueRange)
}

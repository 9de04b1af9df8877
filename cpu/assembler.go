// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Assembler is a single pass macro assembler for the Universal Machine.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to program counters.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expansions int // Count of macro expansions, for unique local labels.
}

// sysEquate returns the predefined system equates.
func sysEquate() (equ map[string]string) {
	equ = maps.Collect((&Cpu{}).Defines())
	equ["LINENO"] = "0"
	return
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register names to register indexes.
var regMap = map[string]int{
	"r0": 0,
	"r1": 1,
	"r2": 2,
	"r3": 3,
	"r4": 4,
	"r5": 5,
	"r6": 6,
	"r7": 7,
}

// opMap maps mnemonics to opcodes.
var opMap = map[string]CodeOp{
	"cmov":  OP_CMOV,
	"load":  OP_LOAD,
	"store": OP_STORE,
	"add":   OP_ADD,
	"mul":   OP_MUL,
	"div":   OP_DIV,
	"nand":  OP_NAND,
	"halt":  OP_HALT,
	"map":   OP_MAP,
	"unmap": OP_UNMAP,
	"out":   OP_OUT,
	"in":    OP_IN,
	"loadp": OP_LOADP,
	"lv":    OP_LV,
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
		if len(word) == 0 {
			err = ErrParseNumber("~")
			return
		}
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil || v64 > 0xffffffff || v64 < -int64(0x80000000) {
		err = ErrParseNumber(word)
		return
	}

	value = uint32(v64)

	if invert {
		value = ^value
	}

	return
}

// regOf returns the register index named by a word.
func (asm *Assembler) regOf(word string) (reg int, err error) {
	reg, ok := regMap[word]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeUint64(uint64(value32))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "0":
				str = "\000"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentPc()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		// '@' prefixes labels local to this expansion.
		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentPc gets the program counter of the next generated word.
func (asm *Assembler) currentPc() int {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Pc + len(last.Codes)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.expansions = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = sysEquate()
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line, _, _ = strings.Cut(text, ";")
		line = strings.TrimSpace(line)
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")

		label := op.LinkLabel
		pc, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		if len(op.Codes) < 1 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		linked := &op.Codes[len(op.Codes)-1]
		inst := linked.Decode()
		if inst.Layout == LAYOUT_LOAD_VALUE {
			*linked, err = MakeCodeValue(inst.A, uint32(pc))
			if err != nil {
				return
			}
		} else {
			*linked = Code(pc)
		}
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Pc: asm.currentPc(), Words: initial_words, Codes: codes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	// Alternate syntax substitutions
	switch {
	case len(words) == 3 && words[0] == "write":
		// write rA VALUE => lv rA VALUE
		words = []string{"lv", words[1], words[2]}
	case len(words) == 3 && words[0] == "not":
		// not rA rB => nand rA rB rB
		words = []string{"nand", words[1], words[2], words[2]}
	case len(words) >= 1 && words[0] == "output":
		words = append([]string{"out"}, words[1:]...)
	case len(words) >= 1 && words[0] == "input":
		words = append([]string{"in"}, words[1:]...)
	default:
		// unchanged
	}

	if words[0] == ".word" {
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, word := range words[1:] {
			value, verr := asm.valueOf(word)
			if verr != nil {
				if len(words) != 2 || !isLabel(word) {
					err = verr
					return
				}
				label = word
			}
			codes = append(codes, Code(value))
		}
		return
	}

	op, ok := opMap[words[0]]
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	// Register operands, by position in the A, B, C fields.
	var fields []*int
	var reg [3]int
	switch op {
	case OP_HALT:
	case OP_MAP, OP_LOADP:
		fields = []*int{&reg[1], &reg[2]}
	case OP_UNMAP, OP_OUT, OP_IN:
		fields = []*int{&reg[2]}
	case OP_LV:
		fields = []*int{&reg[0]}
	default:
		fields = []*int{&reg[0], &reg[1], &reg[2]}
	}

	args := words[1:]
	need := len(fields)
	if op == OP_LV {
		need++
	}
	if len(args) < need {
		err = ErrOpcodeMissing
		if op == OP_LV && len(args) == len(fields) {
			err = ErrOpcodeValueMissing
		}
		return
	}
	if len(args) > need {
		err = ErrOpcodeExtraArgs
		return
	}

	for n, field := range fields {
		*field, err = asm.regOf(args[n])
		if err != nil {
			return
		}
	}

	if op != OP_LV {
		codes = append(codes, MakeCode(op, reg[0], reg[1], reg[2]))
		return
	}

	arg := args[len(fields)]
	value, err := asm.valueOf(arg)
	if err != nil {
		if !isLabel(arg) {
			return
		}
		err = nil
		label = arg
		value = 0
	}

	code, err := MakeCodeValue(reg[0], value)
	if err != nil {
		return
	}
	codes = append(codes, code)

	return
}

var reLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// isLabel returns true if the word could name a label.
func isLabel(word string) bool {
	if _, ok := regMap[word]; ok {
		return false
	}
	return reLabel.MatchString(word)
}

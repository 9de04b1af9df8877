package cpu

import (
	"errors"

	"github.com/ezrec/um/translate"
)

var f = translate.From

var (
	// Fault classes
	ErrDecode     = errors.New(f("decode"))
	ErrBounds     = errors.New(f("bounds"))
	ErrArithmetic = errors.New(f("arithmetic"))
	ErrProtocol   = errors.New(f("protocol"))
	ErrInput      = errors.New(f("input"))
	ErrOutput     = errors.New(f("output"))

	// Cpu errors
	ErrHalted        = errors.New(f("halted"))
	ErrPcBounds      = errors.New(f("pc outside of program"))
	ErrOpcodeInvalid = errors.New(f("opcode invalid"))
	ErrDivideByZero  = errors.New(f("divide by zero"))
	ErrOutputRange   = errors.New(f("output value above 255"))
	ErrPortInvalid   = errors.New(f("port invalid"))
	ErrValueRange    = errors.New(f("value exceeds 25 bits"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("opcode missing"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrInstruction identifies the instruction word that faulted.
type ErrInstruction Code

func (ei ErrInstruction) Error() string {
	return f("instruction 0x%08x '%v'", uint32(ei), Code(ei).String())
}

func (ei ErrInstruction) Is(err error) (ok bool) {
	_, ok = err.(ErrInstruction)
	return
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}

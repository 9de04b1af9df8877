// Package bitpack reads and writes fixed-width bit fields inside machine words.
//
// Fields are addressed by width and least-significant bit position (lsb),
// with bit 0 the least significant bit of the word. A field that extends past
// the top of the word is a programming error, and every function here panics
// with ErrFieldRange when asked for one.
package bitpack

import (
	"errors"

	"github.com/ezrec/um/translate"
)

var f = translate.From

var (
	ErrFieldRange = errors.New(f("field outside of word"))
	ErrOverflow   = errors.New(f("value does not fit field"))
)

// Extract returns the width-bit unsigned field of word at lsb.
func Extract(word uint32, width, lsb uint) uint32 {
	if width+lsb > 32 {
		panic(ErrFieldRange)
	}
	if width == 0 {
		return 0
	}

	return (word >> lsb) & (^uint32(0) >> (32 - width))
}

// FitsUnsigned returns true if n can be represented in width unsigned bits.
// No value fits in a zero-width field.
func FitsUnsigned(n uint64, width uint) bool {
	if width == 0 {
		return false
	}
	if width >= 64 {
		return true
	}

	return n>>width == 0
}

// FitsSigned returns true if n can be represented in width two's complement
// bits. No value fits in a zero-width field.
func FitsSigned(n int64, width uint) bool {
	if width == 0 {
		return false
	}
	if width >= 64 {
		return true
	}

	shift := 64 - width
	return (n<<shift)>>shift == n
}

func checkField(width, lsb uint) {
	if width > 64 || width+lsb > 64 {
		panic(ErrFieldRange)
	}
}

func fieldMask(width, lsb uint) uint64 {
	if width == 0 {
		return 0
	}

	return (^uint64(0) >> (64 - width)) << lsb
}

// GetUnsigned returns the width-bit unsigned field of word at lsb.
func GetUnsigned(word uint64, width, lsb uint) uint64 {
	checkField(width, lsb)

	return (word & fieldMask(width, lsb)) >> lsb
}

// GetSigned returns the width-bit field of word at lsb, sign extended.
func GetSigned(word uint64, width, lsb uint) int64 {
	checkField(width, lsb)
	if width == 0 {
		return 0
	}

	shift := 64 - width
	return int64(GetUnsigned(word, width, lsb)<<shift) >> shift
}

// SetUnsigned returns word with the width-bit field at lsb replaced by value.
func SetUnsigned(word uint64, width, lsb uint, value uint64) (out uint64, err error) {
	checkField(width, lsb)
	if !FitsUnsigned(value, width) {
		err = ErrOverflow
		return
	}

	mask := fieldMask(width, lsb)
	out = (word &^ mask) | ((value << lsb) & mask)
	return
}

// SetSigned returns word with the width-bit field at lsb replaced by the
// two's complement encoding of value.
func SetSigned(word uint64, width, lsb uint, value int64) (out uint64, err error) {
	checkField(width, lsb)
	if !FitsSigned(value, width) {
		err = ErrOverflow
		return
	}

	mask := fieldMask(width, lsb)
	out = (word &^ mask) | ((uint64(value) << lsb) & mask)
	return
}

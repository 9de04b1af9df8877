// Package io provides the byte streams of the Universal Machine emulator:
// the console Tape used by the input and output instructions, and the Rom
// program image loader.
package io

// Port defines the byte-level interface used by the input and output
// instructions.
type Port interface {
	// Receive reads a single byte. At end of stream ok is false and err is
	// nil. Pending output is made visible before the read can block.
	Receive() (value byte, ok bool, err error)
	// Send writes a single byte.
	Send(value byte) error
	// Flush makes all written bytes visible.
	Flush() error
}

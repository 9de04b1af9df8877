package io

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"maps"
)

// Tape provides sequential byte I/O for the machine. It wraps an io.Reader
// for input and an io.Writer for output, buffering both.
type Tape struct {
	Input  io.Reader
	Output io.Writer

	Received int // Bytes received.
	Sent     int // Bytes sent.

	reader *bufio.Reader
	writer *bufio.Writer
}

var _ Port = (*Tape)(nil)

// Defines returns an iter of defines for the tape.
func (tc *Tape) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"EOF": "0xffffffff",
	})
}

// Rewind drops any buffered state, and resets the counters. Unflushed
// output and read-ahead input are discarded.
func (tc *Tape) Rewind() {
	tc.reader = nil
	tc.writer = nil
	tc.Received = 0
	tc.Sent = 0
}

// Receive reads the next byte from the input stream, after flushing the
// output. A missing Input behaves as an empty stream.
func (tc *Tape) Receive() (value byte, ok bool, err error) {
	err = tc.Flush()
	if err != nil {
		return
	}

	if tc.Input == nil {
		return
	}

	if tc.reader == nil {
		tc.reader = bufio.NewReader(tc.Input)
	}

	value, err = tc.reader.ReadByte()
	if errors.Is(err, io.EOF) {
		err = nil
		return
	}
	if err != nil {
		return
	}

	tc.Received++
	ok = true
	return
}

// Send writes a byte to the output stream. A missing Output discards
// the byte.
func (tc *Tape) Send(value byte) (err error) {
	if tc.Output == nil {
		return
	}

	if tc.writer == nil {
		tc.writer = bufio.NewWriter(tc.Output)
	}

	err = tc.writer.WriteByte(value)
	if err != nil {
		return
	}

	tc.Sent++
	return
}

// Flush writes any buffered output.
func (tc *Tape) Flush() (err error) {
	if tc.writer == nil {
		return
	}

	err = tc.writer.Flush()
	return
}

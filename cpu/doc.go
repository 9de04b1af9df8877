// Package cpu implements the processor and assembler of the Universal Machine.
//
// The CPU consists of a program counter (PC) indexing segment 0 of the
// segmented memory, eight 32-bit general-purpose registers (r0-r7), and a
// byte I/O port. Instructions are 32-bit words with a 4-bit opcode; thirteen
// opcodes take three register operands, and the load value opcode takes a
// register and a 25-bit immediate.
//
// The assembler provides a small assembly language for the instruction set,
// supporting macros, labels, equates, and compile-time expression evaluation.
package cpu

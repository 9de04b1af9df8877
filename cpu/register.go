package cpu

// REGISTER_COUNT is the number of general purpose registers.
const REGISTER_COUNT = 8

// Registers is the register file. Indexes come from 3-bit instruction
// fields, and so are always in range.
type Registers [REGISTER_COUNT]uint32

// Get returns the value of register idx.
func (r *Registers) Get(idx int) uint32 {
	return r[idx]
}

// Set sets the value of register idx.
func (r *Registers) Set(idx int, value uint32) {
	r[idx] = value
}

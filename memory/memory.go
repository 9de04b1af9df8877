// Package memory implements the segmented memory of the Universal Machine.
//
// Memory is an arena of segment slots addressed by 32-bit identifiers.
// Segment 0 holds the running program and always exists. Other segments are
// created by Map and released by Unmap; released identifiers are kept on a
// free stack and handed out again by later calls to Map, most recently
// released first.
package memory

import (
	"fmt"
	"log"
	"math"
	"slices"
)

// Stats are the allocation counters of a Memory.
type Stats struct {
	Maps     int // Segments mapped.
	Unmaps   int // Segments unmapped.
	Reuses   int // Maps satisfied from the free stack.
	Replaces int // Replacements of segment 0 by another segment.
}

// slot is one arena entry. A mapped slot may hold an empty segment.
type slot struct {
	mapped bool
	words  []uint32
}

// Memory is the segmented memory simulation.
type Memory struct {
	Verbose bool  // Set to enable verbose logging.
	Stats   Stats // Allocation counters.

	slot []slot   // Segment arena, indexed by segment id.
	free []uint32 // Stack of unmapped ids available for reuse.
}

// New creates a memory whose segment 0 is program. The memory takes
// ownership of the program slice.
func New(program []uint32) (mem *Memory) {
	mem = &Memory{}
	mem.Reset(program)

	return
}

// Reset releases every segment and installs program as segment 0.
func (mem *Memory) Reset(program []uint32) {
	if program == nil {
		program = []uint32{}
	}

	clear(mem.slot)
	mem.slot = append(mem.slot[:0], slot{mapped: true, words: program})
	mem.free = mem.free[:0]
	mem.Stats = Stats{}
}

// String returns a summary of the memory state.
func (mem *Memory) String() string {
	return fmt.Sprintf("segments %d live %d free %d program %d words",
		len(mem.slot), mem.Mapped(), len(mem.free), len(mem.slot[0].words))
}

// Program returns segment 0.
func (mem *Memory) Program() []uint32 {
	return mem.slot[0].words
}

// Live returns true if id is a mapped segment.
func (mem *Memory) Live(id uint32) bool {
	return uint64(id) < uint64(len(mem.slot)) && mem.slot[id].mapped
}

// Mapped returns the number of live segments, including segment 0.
func (mem *Memory) Mapped() int {
	return len(mem.slot) - len(mem.free)
}

// Len returns the length in words of a live segment.
func (mem *Memory) Len(id uint32) (size int, err error) {
	segment, err := mem.segment(id)
	if err != nil {
		return
	}

	size = len(segment)
	return
}

// segment returns the words of a live segment.
func (mem *Memory) segment(id uint32) (words []uint32, err error) {
	if !mem.Live(id) {
		err = ErrSegmentUnmapped(id)
		return
	}

	words = mem.slot[id].words
	return
}

// Map creates a zero-filled segment of size words, and returns its id.
// The returned id is never 0.
func (mem *Memory) Map(size uint32) (id uint32, err error) {
	words := make([]uint32, size)

	if n := len(mem.free); n > 0 {
		id = mem.free[n-1]
		mem.free = mem.free[:n-1]
		mem.Stats.Reuses++
	} else {
		if uint64(len(mem.slot)) > math.MaxUint32 {
			err = ErrSegmentExhausted
			return
		}
		id = uint32(len(mem.slot))
		mem.slot = append(mem.slot, slot{})
	}

	mem.slot[id] = slot{mapped: true, words: words}
	mem.Stats.Maps++

	if mem.Verbose {
		log.Printf("memory: map %d (%d words)", id, size)
	}

	return
}

// Unmap releases a live segment, making its id available for reuse.
// Segment 0 cannot be unmapped.
func (mem *Memory) Unmap(id uint32) (err error) {
	if id == 0 {
		err = ErrSegmentZero
		return
	}

	if !mem.Live(id) {
		err = ErrSegmentUnmapped(id)
		return
	}

	mem.slot[id] = slot{}
	mem.free = append(mem.free, id)
	mem.Stats.Unmaps++

	if mem.Verbose {
		log.Printf("memory: unmap %d", id)
	}

	return
}

// Load returns the word at offset in segment id.
func (mem *Memory) Load(id uint32, offset uint32) (value uint32, err error) {
	segment, err := mem.segment(id)
	if err != nil {
		return
	}

	if uint64(offset) >= uint64(len(segment)) {
		err = &ErrSegmentOffset{Id: id, Offset: offset, Len: len(segment)}
		return
	}

	value = segment[offset]
	return
}

// Store sets the word at offset in segment id.
func (mem *Memory) Store(id uint32, offset uint32, value uint32) (err error) {
	segment, err := mem.segment(id)
	if err != nil {
		return
	}

	if uint64(offset) >= uint64(len(segment)) {
		err = &ErrSegmentOffset{Id: id, Offset: offset, Len: len(segment)}
		return
	}

	segment[offset] = value
	return
}

// ReplaceProgram replaces segment 0 with a copy of segment id.
// Replacing segment 0 with itself does nothing.
func (mem *Memory) ReplaceProgram(id uint32) (err error) {
	if id == 0 {
		return
	}

	segment, err := mem.segment(id)
	if err != nil {
		return
	}

	mem.slot[0].words = slices.Clone(segment)
	mem.Stats.Replaces++

	if mem.Verbose {
		log.Printf("memory: program from %d (%d words)", id, len(segment))
	}

	return
}

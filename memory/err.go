package memory

import (
	"errors"

	"github.com/ezrec/um/translate"
)

var f = translate.From

var (
	ErrSegmentZero      = errors.New(f("segment 0 cannot be unmapped"))
	ErrSegmentExhausted = errors.New(f("segment ids exhausted"))
)

// ErrSegmentUnmapped is a reference to a segment id that is not mapped.
type ErrSegmentUnmapped uint32

func (es ErrSegmentUnmapped) Error() string {
	return f("segment %d not mapped", uint32(es))
}

func (es ErrSegmentUnmapped) Is(err error) (ok bool) {
	_, ok = err.(ErrSegmentUnmapped)
	return
}

// ErrSegmentOffset is an access past the end of a mapped segment.
type ErrSegmentOffset struct {
	Id     uint32
	Offset uint32
	Len    int
}

func (err *ErrSegmentOffset) Error() string {
	return f("segment %d offset %d out of bounds (%d words)", err.Id, err.Offset, err.Len)
}

func (err *ErrSegmentOffset) Is(target error) (ok bool) {
	_, ok = target.(*ErrSegmentOffset)
	return
}

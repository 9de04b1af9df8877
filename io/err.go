package io

import (
	"errors"

	"github.com/ezrec/um/translate"
)

var f = translate.From

var (
	// Image errors
	ErrLoader = errors.New(f("loader"))
)

// ErrRomTruncated is an image that ends with a partial word.
type ErrRomTruncated struct {
	Size int // Size of the image in bytes.
}

func (err *ErrRomTruncated) Error() string {
	return f("image of %d bytes ends with a partial word", err.Size)
}

func (err *ErrRomTruncated) Is(target error) bool {
	return target == ErrLoader
}

// ErrRomDecompress is a compressed image that could not be decompressed.
type ErrRomDecompress struct {
	Err error
}

func (err *ErrRomDecompress) Error() string {
	return f("image decompress: %v", err.Err)
}

func (err *ErrRomDecompress) Unwrap() error {
	return err.Err
}

func (err *ErrRomDecompress) Is(target error) bool {
	return target == ErrLoader
}

package io

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// ROM_WORD_SIZE is the size in bytes of an image word.
const ROM_WORD_SIZE = 4

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Rom is a program image: the initial contents of segment 0.
//
// On the wire an image is a sequence of big-endian 32-bit words. An image
// whose length is not a multiple of four bytes is rejected. Images that are
// zstd compressed are decompressed while loading.
type Rom struct {
	Data []uint32
}

var _ io.ReaderFrom = (*Rom)(nil)
var _ io.WriterTo = (*Rom)(nil)

// ReadFrom replaces the image with the words read from r until end of
// stream. The returned count is of bytes consumed from r.
func (rc *Rom) ReadFrom(r io.Reader) (n int64, err error) {
	counter := &countingReader{Reader: r}
	in := bufio.NewReader(counter)

	var src io.Reader = in
	magic, _ := in.Peek(len(zstdMagic))
	if bytes.Equal(magic, zstdMagic) {
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(in, zstd.WithDecoderConcurrency(1))
		if err != nil {
			n = counter.n
			err = &ErrRomDecompress{Err: err}
			return
		}
		defer dec.Close()
		src = dec
	}

	raw, err := io.ReadAll(src)
	n = counter.n
	if err != nil {
		if _, ok := src.(*zstd.Decoder); ok {
			err = &ErrRomDecompress{Err: err}
		}
		return
	}

	if len(raw)%ROM_WORD_SIZE != 0 {
		err = &ErrRomTruncated{Size: len(raw)}
		return
	}

	rc.Data = make([]uint32, len(raw)/ROM_WORD_SIZE)
	for i := range rc.Data {
		rc.Data[i] = binary.BigEndian.Uint32(raw[i*ROM_WORD_SIZE:])
	}

	return
}

// WriteTo writes the image to w as big-endian words.
func (rc *Rom) WriteTo(w io.Writer) (n int64, err error) {
	out := bufio.NewWriter(w)

	var word [ROM_WORD_SIZE]byte
	for _, data := range rc.Data {
		binary.BigEndian.PutUint32(word[:], data)
		var wrote int
		wrote, err = out.Write(word[:])
		n += int64(wrote)
		if err != nil {
			return
		}
	}

	err = out.Flush()
	return
}

// Digest returns the hex encoded BLAKE3-256 digest of the image bytes.
func (rc *Rom) Digest() string {
	hasher := blake3.New()

	var word [ROM_WORD_SIZE]byte
	for _, data := range rc.Data {
		binary.BigEndian.PutUint32(word[:], data)
		hasher.Write(word[:])
	}

	return hex.EncodeToString(hasher.Sum(nil))
}

// countingReader counts the bytes read through it.
type countingReader struct {
	io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.Reader.Read(p)
	cr.n += int64(n)
	return
}

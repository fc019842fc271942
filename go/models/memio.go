package models

import (
	"io"
)

// MemReader is the minimum a backend needs to expose an address space.
// MemRead returns exactly size bytes starting at addr, or an error matching
// ErrUnmapped if any part of the range can't be resolved. Partial reads are
// never returned.
type MemReader interface {
	MemRead(addr, size uint64) ([]byte, error)
}

// MemReaderInto is implemented by backends that can fill a caller buffer
// without allocating.
type MemReaderInto interface {
	MemReadInto(p []byte, addr uint64) error
}

// ReadInto fills p from addr using MemReadInto when r supports it.
func ReadInto(r MemReader, p []byte, addr uint64) error {
	if ri, ok := r.(MemReaderInto); ok {
		return ri.MemReadInto(p, addr)
	}
	mem, err := r.MemRead(addr, uint64(len(p)))
	if err != nil {
		return err
	}
	copy(p, mem)
	return nil
}

// StreamReader reads sequentially from Addr, advancing after each read.
type StreamReader struct {
	M    MemReader
	Addr uint64
}

func (m *StreamReader) Read(p []byte) (int, error) {
	if err := ReadInto(m.M, p, m.Addr); err != nil {
		return 0, err
	}
	m.Addr += uint64(len(p))
	return len(p), nil
}

// ReaderAt adapts a MemReader to io.ReaderAt, treating offsets as addresses.
type ReaderAt struct {
	M MemReader
}

func (r *ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, &MemError{Addr: uint64(off), Size: uint64(len(p))}
	}
	if err := ReadInto(r.M, p, uint64(off)); err != nil {
		return 0, err
	}
	return len(p), nil
}

var (
	_ io.Reader   = &StreamReader{}
	_ io.ReaderAt = &ReaderAt{}
)

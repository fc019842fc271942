package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnmapped is the single fault a MemReader reports: the requested range is
// not fully backed by one known region. Match it with errors.Is.
var ErrUnmapped = errors.New("bad address")

type MemError struct {
	Addr uint64
	Size uint64
}

func (m *MemError) Error() string {
	return fmt.Sprintf("unmapped read at %#x(%d)", m.Addr, m.Size)
}

func (m *MemError) Is(target error) bool {
	return target == ErrUnmapped
}

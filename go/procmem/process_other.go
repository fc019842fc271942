//go:build !linux

package procmem

import (
	"github.com/pkg/errors"
)

func Open(pid int) (*Process, error) {
	return nil, errors.WithStack(ErrUnsupported)
}

func (p *Process) MemReadInto(buf []byte, addr uint64) error {
	return errors.WithStack(ErrUnsupported)
}

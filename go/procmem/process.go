// Package procmem reads the memory of a running process, exposing it through
// the same models.MemReader capability as a loaded core.
package procmem

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/coremem/go/models"
)

var ErrUnsupported = errors.New("live process memory is not supported on this platform")

// largest single read; a live process can't be bounds checked up front, so
// this caps the buffer a caller can make us allocate
const maxRead = 1 << 30

type Process struct {
	pid int
}

func (p *Process) Pid() int { return p.pid }

func (p *Process) MemRead(addr, size uint64) ([]byte, error) {
	if addr+size < addr {
		return nil, &models.MemError{Addr: addr, Size: size}
	}
	if size > maxRead {
		return nil, errors.Errorf("read of %#x bytes exceeds limit %#x", size, maxRead)
	}
	buf := make([]byte, size)
	if err := p.MemReadInto(buf, addr); err != nil {
		return nil, err
	}
	return buf, nil
}

var _ models.MemReader = &Process{}

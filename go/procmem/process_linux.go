//go:build linux

package procmem

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lunixbochs/coremem/go/models"
)

func Open(pid int) (*Process, error) {
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
		return nil, errors.Wrapf(err, "no such process %d", pid)
	}
	return &Process{pid: pid}, nil
}

// MemReadInto reads with process_vm_readv. EFAULT and short reads are
// reported as unmapped; other errors (ESRCH, EPERM) are returned as-is.
// Zero-length reads always succeed, as the kernel can't validate them.
func (p *Process) MemReadInto(buf []byte, addr uint64) error {
	if len(buf) == 0 {
		return nil
	}
	if uint64(uintptr(addr)) != addr {
		return &models.MemError{Addr: addr, Size: uint64(len(buf))}
	}
	local := []unix.Iovec{{Base: &buf[0]}}
	local[0].SetLen(len(buf))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}
	n, err := unix.ProcessVMReadv(p.pid, local, remote, 0)
	if errors.Is(err, unix.EFAULT) || (err == nil && n < len(buf)) {
		return &models.MemError{Addr: addr, Size: uint64(len(buf))}
	} else if err != nil {
		return errors.Wrapf(err, "process_vm_readv(%d, %#x, %d)", p.pid, addr, len(buf))
	}
	return nil
}

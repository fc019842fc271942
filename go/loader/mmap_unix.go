//go:build unix

package loader

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func mmapFile(f *os.File) ([]byte, func() error, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	size := st.Size()
	if size <= 0 || int64(int(size)) != size {
		return nil, nil, errors.Errorf("can't map %d byte file", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	return data, func() error { return unix.Munmap(data) }, nil
}

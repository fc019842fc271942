//go:build !unix

package loader

import (
	"os"

	"github.com/pkg/errors"
)

func mmapFile(f *os.File) ([]byte, func() error, error) {
	return nil, nil, errors.New("mmap unsupported on this platform")
}

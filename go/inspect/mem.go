// Package inspect decodes values out of any models.MemReader. It only sees
// raw bytes through the capability, so it works the same over a core dump,
// a snapshot or a live process.
package inspect

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunixbochs/coremem/go/models"
)

type Mem struct {
	m     models.MemReader
	bits  uint
	order binary.ByteOrder
}

// New wraps m for pointers of the given width, which must be 16, 32 or 64.
// A nil order means little endian.
func New(m models.MemReader, bits uint, order binary.ByteOrder) (*Mem, error) {
	switch bits {
	case 16, 32, 64:
	default:
		return nil, errors.Errorf("unsupported pointer width: %d bits", bits)
	}
	if order == nil {
		order = binary.LittleEndian
	}
	return &Mem{m: m, bits: bits, order: order}, nil
}

func (m *Mem) Bits() uint                  { return m.bits }
func (m *Mem) ByteOrder() binary.ByteOrder { return m.order }

func (m *Mem) Read(addr, size uint64) ([]byte, error) {
	return m.m.MemRead(addr, size)
}

func (m *Mem) ReadUint(addr uint64, size int) (uint64, error) {
	switch size {
	case 1, 2, 4, 8:
	default:
		return 0, errors.Errorf("unsupported uint size: %d", size)
	}
	var buf [8]byte
	if err := models.ReadInto(m.m, buf[:size], addr); err != nil {
		return 0, err
	}
	return UnpackUint(m.order, size, buf[:size])
}

// ReadPtr reads a pointer-width value.
func (m *Mem) ReadPtr(addr uint64) (uint64, error) {
	return m.ReadUint(addr, int(m.bits/8))
}

// PtrChain follows base through each offset: at every level the pointer at
// the current address is loaded and the offset added to it.
func (m *Mem) PtrChain(base uint64, offsets ...uint64) (uint64, error) {
	addr := base
	for i, off := range offsets {
		ptr, err := m.ReadPtr(addr)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to read pointer at level %d (addr %#x)", i, addr)
		}
		addr = ptr + off
	}
	return addr, nil
}

// ReadStr reads a NUL-terminated string of at most max bytes. The string may
// end at the edge of mapped memory, in which case the bytes read so far are
// returned without error.
func (m *Mem) ReadStr(addr uint64, max int) (string, error) {
	var out []byte
	var b [1]byte
	for i := 0; i < max; i++ {
		if err := models.ReadInto(m.m, b[:], addr+uint64(i)); err != nil {
			if i == 0 {
				return "", err
			}
			break
		}
		if b[0] == 0 {
			break
		}
		out = append(out, b[0])
	}
	return string(out), nil
}

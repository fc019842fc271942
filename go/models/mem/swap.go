package mem

import (
	"go.uber.org/atomic"

	"github.com/lunixbochs/coremem/go/models"
)

// Swap holds the current Table for readers while allowing it to be replaced
// wholesale. Each read loads the pointer once, so it sees exactly one table.
type Swap struct {
	cur atomic.Pointer[Table]
}

func NewSwap(t *Table) *Swap {
	s := &Swap{}
	s.cur.Store(t)
	return s
}

func (s *Swap) Load() *Table { return s.cur.Load() }

// Store installs t and returns the previous table.
func (s *Swap) Store(t *Table) *Table { return s.cur.Swap(t) }

func (s *Swap) MemRead(addr, size uint64) ([]byte, error) {
	t := s.cur.Load()
	if t == nil {
		return nil, &models.MemError{Addr: addr, Size: size}
	}
	return t.MemRead(addr, size)
}

func (s *Swap) MemReadInto(p []byte, addr uint64) error {
	t := s.cur.Load()
	if t == nil {
		return &models.MemError{Addr: addr, Size: uint64(len(p))}
	}
	return t.MemReadInto(p, addr)
}

var _ models.MemReader = &Swap{}

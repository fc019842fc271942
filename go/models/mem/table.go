package mem

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/coremem/go/models"
)

var ErrBadSegment = errors.New("bad segment descriptor")

// Table resolves reads against a fixed list of segments. It is immutable
// after NewTable, so a single Table can be shared by any number of readers.
//
// Lookup is a linear scan in table order and the first segment containing the
// whole range wins. A range is never satisfied by splicing adjacent segments.
type Table struct {
	segs Segments
}

// NewTable copies the descriptor list. Segment data is shared, not copied, and
// must not be modified afterwards.
func NewTable(segs ...Segment) (*Table, error) {
	t := &Table{segs: make(Segments, len(segs))}
	for i, s := range segs {
		if uint64(len(s.Data)) != s.Size {
			return nil, errors.Wrapf(ErrBadSegment, "segment %d at %#x: size %#x, data %#x", i, s.Addr, s.Size, len(s.Data))
		}
		if s.Addr+s.Size < s.Addr {
			return nil, errors.Wrapf(ErrBadSegment, "segment %d at %#x: size %#x overflows", i, s.Addr, s.Size)
		}
		t.segs[i] = s
	}
	return t, nil
}

// returns index of first segment fully containing addr:size, or -1
func (t *Table) find(addr, size uint64) int {
	for i := range t.segs {
		if t.segs[i].ContainsRange(addr, size) {
			return i
		}
	}
	return -1
}

func (t *Table) MemRead(addr, size uint64) ([]byte, error) {
	i := t.find(addr, size)
	if i < 0 {
		return nil, &models.MemError{Addr: addr, Size: size}
	}
	// size is bounded by the segment here, so the allocation is too
	p := make([]byte, size)
	t.copyOut(i, p, addr)
	return p, nil
}

func (t *Table) MemReadInto(p []byte, addr uint64) error {
	i := t.find(addr, uint64(len(p)))
	if i < 0 {
		return &models.MemError{Addr: addr, Size: uint64(len(p))}
	}
	t.copyOut(i, p, addr)
	return nil
}

func (t *Table) copyOut(i int, p []byte, addr uint64) {
	s := &t.segs[i]
	o := addr - s.Addr
	copy(p, s.Data[o:o+uint64(len(p))])
}

// Find returns the first segment containing addr.
func (t *Table) Find(addr uint64) (Segment, bool) {
	for _, s := range t.segs {
		if s.Contains(addr) {
			return s, true
		}
	}
	return Segment{}, false
}

// Segments returns a copy of the descriptor list in table order.
func (t *Table) Segments() Segments {
	out := make(Segments, len(t.segs))
	copy(out, t.segs)
	return out
}

func (t *Table) Len() int { return len(t.segs) }

func (t *Table) String() string { return t.segs.String() }

var (
	_ models.MemReader     = &Table{}
	_ models.MemReaderInto = &Table{}
)

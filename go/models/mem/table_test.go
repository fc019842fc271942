package mem

import (
	"bytes"
	"errors"
	"testing"

	"github.com/lunixbochs/coremem/go/models"
)

// this shouldn't repeat much at width
func pattern(len int) []byte {
	p := make([]byte, len)
	width := 8
	for i := range p {
		cycle := i / width
		p[i] = byte(cycle*width*i + i)
	}
	return p
}

func seq(start, n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(start + i)
	}
	return p
}

func mustTable(t testing.TB, segs ...Segment) *Table {
	t.Helper()
	tab, err := NewTable(segs...)
	if err != nil {
		t.Fatal("failed to build table:", err)
	}
	return tab
}

func isUnmapped(err error) bool {
	return errors.Is(err, models.ErrUnmapped)
}

func TestTableSingle(t *testing.T) {
	tab := mustTable(t, Segment{Addr: 0x1000, Size: 16, Data: seq(0, 16)})

	if p, err := tab.MemRead(0x1000, 4); err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(p, []byte{0, 1, 2, 3}) {
		t.Errorf("read(0x1000, 4) = %x", p)
	}
	if p, err := tab.MemRead(0x1008, 8); err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(p, seq(8, 8)) {
		t.Errorf("read(0x1008, 8) = %x", p)
	}
	if _, err := tab.MemRead(0x1010, 1); !isUnmapped(err) {
		t.Errorf("read past end: expected unmapped, got %v", err)
	}
	if _, err := tab.MemRead(0xfff, 2); !isUnmapped(err) {
		t.Errorf("read straddling start: expected unmapped, got %v", err)
	}
}

func TestTableGap(t *testing.T) {
	tab := mustTable(t,
		Segment{Addr: 0x1000, Size: 0x10, Data: pattern(0x10)},
		Segment{Addr: 0x2000, Size: 0x10, Data: pattern(0x10)},
	)
	if _, err := tab.MemRead(0x1ff8, 16); !isUnmapped(err) {
		t.Errorf("read across gap: expected unmapped, got %v", err)
	}
	if _, err := tab.MemRead(0x1800, 1); !isUnmapped(err) {
		t.Errorf("read inside gap: expected unmapped, got %v", err)
	}
}

func TestTableNoSplice(t *testing.T) {
	// contiguous segments still don't satisfy a range spanning both
	tab := mustTable(t,
		Segment{Addr: 0x1000, Size: 0x1000, Data: pattern(0x1000)},
		Segment{Addr: 0x2000, Size: 0x1000, Data: pattern(0x1000)},
	)
	if _, err := tab.MemRead(0x1ffc, 8); !isUnmapped(err) {
		t.Errorf("read across segment boundary: expected unmapped, got %v", err)
	}
	if _, err := tab.MemRead(0x1000, 0x2000); !isUnmapped(err) {
		t.Errorf("read covering both segments: expected unmapped, got %v", err)
	}
	if _, err := tab.MemRead(0x1ffc, 4); err != nil {
		t.Errorf("read ending at boundary failed: %v", err)
	}
	if _, err := tab.MemRead(0x2000, 4); err != nil {
		t.Errorf("read starting at boundary failed: %v", err)
	}
}

// every in-bounds range of every segment returns the matching data slice
func TestTableExhaustive(t *testing.T) {
	segs := []Segment{
		{Addr: 0x100, Size: 0x20, Data: pattern(0x20)},
		{Addr: 0x400, Size: 0x11, Data: seq(0x40, 0x11)},
		{Addr: 0x1000, Size: 1, Data: []byte{0xcc}},
	}
	tab := mustTable(t, segs...)
	for _, s := range segs {
		for off := uint64(0); off <= s.Size; off++ {
			for n := uint64(0); off+n <= s.Size; n++ {
				p, err := tab.MemRead(s.Addr+off, n)
				if err != nil {
					t.Fatalf("read(%#x, %d) failed: %v", s.Addr+off, n, err)
				}
				if !bytes.Equal(p, s.Data[off:off+n]) {
					t.Fatalf("read(%#x, %d) = %x, want %x", s.Addr+off, n, p, s.Data[off:off+n])
				}
			}
			// one byte too far
			if _, err := tab.MemRead(s.Addr+off, s.Size-off+1); !isUnmapped(err) {
				t.Fatalf("read(%#x, %d) past segment end: expected unmapped, got %v", s.Addr+off, s.Size-off+1, err)
			}
		}
	}
}

// table of {addr, size, should_error} for a single 0x1100-0x1200 segment
var boundsTable = [][]uint64{
	{0x1000, 0x100, 1},
	{0x1000, 0x101, 1},
	{0x10ff, 0x2, 1},
	{0x1100, 0x100, 0},
	{0x1100, 0x101, 1},
	{0x1150, 0x50, 0},
	{0x1150, 0xb0, 0},
	{0x1150, 0xb1, 1},
	{0x11ff, 0x1, 0},
	{0x1200, 0x1, 1},
	{0x1200, 0x0, 0},
	{0x1100, 0x0, 0},
	{0x10ff, 0x0, 1},
	{0x1201, 0x0, 1},
}

func TestTableBounds(t *testing.T) {
	tab := mustTable(t, Segment{Addr: 0x1100, Size: 0x100, Data: pattern(0x100)})
	for _, v := range boundsTable {
		p, err := tab.MemRead(v[0], v[1])
		if v[2] == 1 {
			if !isUnmapped(err) {
				t.Errorf("read(%#x, %#x) expected unmapped, got %v", v[0], v[1], err)
			}
			if p != nil {
				t.Errorf("read(%#x, %#x) returned data with error", v[0], v[1])
			}
		} else if err != nil {
			t.Errorf("read(%#x, %#x) failed: %v", v[0], v[1], err)
		} else if uint64(len(p)) != v[1] {
			t.Errorf("read(%#x, %#x) returned %d bytes", v[0], v[1], len(p))
		}
	}
}

func TestTableZeroLength(t *testing.T) {
	tab := mustTable(t, Segment{Addr: 0x1000, Size: 0x10, Data: pattern(0x10)})
	for _, addr := range []uint64{0x1000, 0x1008, 0x1010} {
		p, err := tab.MemRead(addr, 0)
		if err != nil {
			t.Errorf("zero read at %#x failed: %v", addr, err)
		} else if p == nil || len(p) != 0 {
			t.Errorf("zero read at %#x returned %#v", addr, p)
		}
	}
	if _, err := tab.MemRead(0x1011, 0); !isUnmapped(err) {
		t.Errorf("zero read outside segment: expected unmapped, got %v", err)
	}
	empty := mustTable(t)
	if _, err := empty.MemRead(0, 0); !isUnmapped(err) {
		t.Errorf("zero read on empty table: expected unmapped, got %v", err)
	}
}

func TestTableOverlapFirstMatch(t *testing.T) {
	a := bytes.Repeat([]byte{0xaa}, 0x100)
	b := bytes.Repeat([]byte{0xbb}, 0x200)
	tab := mustTable(t,
		Segment{Addr: 0x1080, Size: 0x100, Data: a},
		Segment{Addr: 0x1000, Size: 0x200, Data: b},
	)
	// both contain it, first wins
	if p, err := tab.MemRead(0x1100, 4); err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(p, a[:4]) {
		t.Errorf("overlapping read used wrong segment: %x", p)
	}
	// only the second contains it
	if p, err := tab.MemRead(0x1000, 0x100); err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(p, b[:0x100]) {
		t.Error("fallback to later segment failed")
	}
	if s, ok := tab.Find(0x1100); !ok || s.Addr != 0x1080 {
		t.Errorf("Find(0x1100) = %v, %v", s, ok)
	}
}

func TestTableOverflow(t *testing.T) {
	top := ^uint64(0) - 0x10
	tab := mustTable(t, Segment{Addr: top, Size: 0x10, Data: pattern(0x10)})
	if p, err := tab.MemRead(top, 0x10); err != nil {
		t.Errorf("read at top of address space failed: %v", err)
	} else if len(p) != 0x10 {
		t.Errorf("short read at top of address space: %d", len(p))
	}
	if _, err := tab.MemRead(top+8, ^uint64(0)); !isUnmapped(err) {
		t.Errorf("wrapping read: expected unmapped, got %v", err)
	}
	// must fail without trying to allocate the range
	if _, err := tab.MemRead(0, ^uint64(0)); !isUnmapped(err) {
		t.Errorf("huge read: expected unmapped, got %v", err)
	}
}

func TestTableIdempotent(t *testing.T) {
	data := pattern(0x1000)
	tab := mustTable(t, Segment{Addr: 0x4000, Size: 0x1000, Data: data})
	first, err := tab.MemRead(0x4100, 0x80)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		p, err := tab.MemRead(0x4100, 0x80)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(p, first) {
			t.Fatal("repeated read returned different data")
		}
		// callers own the result, scribbling on it can't touch the table
		for j := range p {
			p[j] = 0
		}
	}
	if !bytes.Equal(data, pattern(0x1000)) {
		t.Error("segment data was modified by a read")
	}
}

func TestTableReadInto(t *testing.T) {
	tab := mustTable(t, Segment{Addr: 0x1000, Size: 16, Data: seq(0, 16)})
	p := make([]byte, 4)
	if err := tab.MemReadInto(p, 0x100c); err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(p, seq(12, 4)) {
		t.Errorf("MemReadInto = %x", p)
	}
	p = []byte{1, 2, 3, 4, 5}
	if err := tab.MemReadInto(p, 0x100c); !isUnmapped(err) {
		t.Errorf("MemReadInto past end: expected unmapped, got %v", err)
	}
	if !bytes.Equal(p, []byte{1, 2, 3, 4, 5}) {
		t.Error("failed MemReadInto modified the buffer")
	}
}

func TestTableErrorValue(t *testing.T) {
	tab := mustTable(t)
	_, err := tab.MemRead(0xdead, 4)
	var merr *models.MemError
	if !errors.As(err, &merr) {
		t.Fatalf("expected *MemError, got %T", err)
	}
	if merr.Addr != 0xdead || merr.Size != 4 {
		t.Errorf("MemError = %+v", merr)
	}
}

func TestNewTableBadSegment(t *testing.T) {
	if _, err := NewTable(Segment{Addr: 0x1000, Size: 0x10, Data: make([]byte, 8)}); !errors.Is(err, ErrBadSegment) {
		t.Errorf("short data: expected ErrBadSegment, got %v", err)
	}
	if _, err := NewTable(Segment{Addr: ^uint64(0), Size: 2, Data: make([]byte, 2)}); !errors.Is(err, ErrBadSegment) {
		t.Errorf("overflowing segment: expected ErrBadSegment, got %v", err)
	}
}

func TestNewTableCopiesList(t *testing.T) {
	segs := []Segment{
		{Addr: 0x1000, Size: 4, Data: []byte{1, 2, 3, 4}},
	}
	tab := mustTable(t, segs...)
	segs[0] = Segment{Addr: 0x9000, Size: 4, Data: []byte{5, 6, 7, 8}}
	if _, err := tab.MemRead(0x1000, 4); err != nil {
		t.Error("table changed after caller modified descriptor slice")
	}
	list := tab.Segments()
	list[0].Addr = 0
	if s, ok := tab.Find(0x1000); !ok || s.Addr != 0x1000 {
		t.Error("Segments() exposed internal list")
	}
}

func TestSegmentString(t *testing.T) {
	s := Segment{Addr: 0x1000, Size: 0x1000, Prot: PROT_READ | PROT_EXEC, Desc: ".text"}
	if got := s.String(); got != "0x1000-0x2000 r-x [.text]" {
		t.Errorf("String() = %q", got)
	}
}

func BenchmarkTableRead(b *testing.B) {
	segs := make([]Segment, 64)
	for i := range segs {
		segs[i] = Segment{Addr: uint64(i) * 0x10000, Size: 0x1000, Data: make([]byte, 0x1000)}
	}
	tab := mustTable(b, segs...)
	p := make([]byte, 8)
	for i := 0; i < b.N; i++ {
		tab.MemReadInto(p, uint64(i%64)*0x10000+uint64(i*8)&0xfff)
	}
}

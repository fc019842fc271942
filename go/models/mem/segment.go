package mem

import (
	"fmt"
	"strings"
)

// Segment is one contiguous region of captured memory, covering
// [Addr, Addr+Size). Data always holds exactly Size bytes.
type Segment struct {
	Addr uint64
	Size uint64
	Prot int
	Data []byte

	Desc string
}

func (s *Segment) End() uint64 {
	return s.Addr + s.Size
}

func (s *Segment) String() string {
	// add prot
	prots := []int{PROT_READ, PROT_WRITE, PROT_EXEC}
	chars := []string{"r", "w", "x"}
	prot := ""
	for i := range prots {
		if s.Prot&prots[i] != 0 {
			prot += chars[i]
		} else {
			prot += "-"
		}
	}
	desc := fmt.Sprintf("0x%x-0x%x %s", s.Addr, s.End(), prot)
	if s.Desc != "" {
		desc += fmt.Sprintf(" [%s]", s.Desc)
	}
	return desc
}

func (s *Segment) Contains(addr uint64) bool {
	return addr >= s.Addr && addr < s.End()
}

// ContainsRange reports whether all of [addr, addr+size) lies inside s.
// A zero-length range at s.End() is contained.
func (s *Segment) ContainsRange(addr, size uint64) bool {
	end := addr + size
	if end < addr {
		return false
	}
	return s.Addr <= addr && end <= s.End()
}

// start = max(s1, s2), end = min(e1, e2), ok = end > start
func (s *Segment) Intersect(addr, size uint64) (uint64, uint64, bool) {
	start := s.Addr
	end := s.End()
	e2 := addr + size
	if end > e2 {
		end = e2
	}
	if start < addr {
		start = addr
	}
	return start, end - start, end > start
}

func (s *Segment) Overlaps(addr, size uint64) bool {
	_, _, ok := s.Intersect(addr, size)
	return ok
}

type Segments []Segment

func (s Segments) Len() int           { return len(s) }
func (s Segments) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s Segments) Less(i, j int) bool { return s[i].Addr < s[j].Addr }

func (s Segments) String() string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = s[i].String()
	}
	return strings.Join(out, "\n")
}

// Size is the total number of captured bytes.
func (s Segments) Size() uint64 {
	var total uint64
	for i := range s {
		total += s[i].Size
	}
	return total
}

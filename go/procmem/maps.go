package procmem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lunixbochs/coremem/go/models/mem"
)

// Mapping is one line of /proc/<pid>/maps.
type Mapping struct {
	Addr, Size uint64
	Prot       int
	Shared     bool
	Offset     uint64
	Path       string
}

func (m *Mapping) Readable() bool { return m.Prot&mem.PROT_READ != 0 }

func (m *Mapping) String() string {
	s := mem.Segment{Addr: m.Addr, Size: m.Size, Prot: m.Prot, Desc: m.Path}
	return s.String()
}

func Maps(pid int) ([]Mapping, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return ParseMaps(f)
}

// ParseMaps reads the /proc/<pid>/maps format:
// 00400000-0040b000 r-xp 00000000 08:01 1234   /bin/cat
func ParseMaps(r io.Reader) ([]Mapping, error) {
	var maps []Mapping
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 5 {
			return nil, errors.Errorf("maps line %d: expected at least 5 fields, got %d", line, len(fields))
		}
		addrRange := strings.SplitN(fields[0], "-", 2)
		if len(addrRange) != 2 {
			return nil, errors.Errorf("maps line %d: bad range %q", line, fields[0])
		}
		start, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "maps line %d", line)
		}
		end, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "maps line %d", line)
		}
		if end < start {
			return nil, errors.Errorf("maps line %d: range %q ends before it starts", line, fields[0])
		}
		off, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "maps line %d", line)
		}
		m := Mapping{Addr: start, Size: end - start, Offset: off}
		perms := fields[1]
		if len(perms) > 0 && perms[0] == 'r' {
			m.Prot |= mem.PROT_READ
		}
		if len(perms) > 1 && perms[1] == 'w' {
			m.Prot |= mem.PROT_WRITE
		}
		if len(perms) > 2 && perms[2] == 'x' {
			m.Prot |= mem.PROT_EXEC
		}
		m.Shared = len(perms) > 3 && perms[3] == 's'
		if len(fields) > 5 {
			m.Path = strings.Join(fields[5:], " ")
		}
		maps = append(maps, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return maps, nil
}

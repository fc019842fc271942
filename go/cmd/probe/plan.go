package probe

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// largest raw read a plan may ask for
const maxSize = 1 << 20

// Addr is a uint64 that also accepts Go integer literals (0x1000, 0o17, 1_000)
// in YAML, so large addresses don't go through a signed int.
type Addr uint64

func (a *Addr) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return errors.Errorf("invalid address %q", s)
	}
	*a = Addr(n)
	return nil
}

// Probe is one named read. Exactly one of Size, Uint or Str is set.
//
//	- name: argv0
//	  addr: 0x7ffd5a9f4000
//	  offsets: [0x10, 0]
//	  str: 64
type Probe struct {
	Name string `yaml:"name"`
	Addr Addr   `yaml:"addr"`
	// follow a pointer chain from Addr before reading
	Offsets []Addr `yaml:"offsets,omitempty"`

	// raw bytes
	Size Addr `yaml:"size,omitempty"`
	// unsigned integer of this many bytes, in the source byte order
	Uint int `yaml:"uint,omitempty"`
	// NUL-terminated string of at most this many bytes
	Str int `yaml:"str,omitempty"`
}

func (p *Probe) offsets() []uint64 {
	out := make([]uint64, len(p.Offsets))
	for i, off := range p.Offsets {
		out[i] = uint64(off)
	}
	return out
}

func (p *Probe) validate() error {
	if p.Name == "" {
		return errors.Errorf("probe at %#x has no name", uint64(p.Addr))
	}
	kinds := 0
	if p.Size > 0 {
		kinds++
		if p.Size > maxSize {
			return errors.Errorf("probe %q: size %#x exceeds %#x", p.Name, uint64(p.Size), maxSize)
		}
	}
	if p.Uint != 0 {
		kinds++
		switch p.Uint {
		case 1, 2, 4, 8:
		default:
			return errors.Errorf("probe %q: uint width must be 1, 2, 4 or 8, not %d", p.Name, p.Uint)
		}
	}
	if p.Str != 0 {
		kinds++
		if p.Str < 0 || p.Str > maxSize {
			return errors.Errorf("probe %q: bad string length %d", p.Name, p.Str)
		}
	}
	if kinds != 1 {
		return errors.Errorf("probe %q: set exactly one of size, uint or str", p.Name)
	}
	return nil
}

type Plan struct {
	Probes []*Probe `yaml:"probes"`
}

func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.UnmarshalStrict(data, &plan); err != nil {
		return nil, errors.Wrap(err, "failed to parse probe plan")
	}
	seen := make(map[string]bool, len(plan.Probes))
	for i, p := range plan.Probes {
		if p == nil {
			return nil, errors.Errorf("probe %d is empty", i)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, errors.Errorf("duplicate probe %q", p.Name)
		}
		seen[p.Name] = true
	}
	return &plan, nil
}

func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ParsePlan(data)
}

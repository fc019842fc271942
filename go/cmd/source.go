package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/lunixbochs/coremem/go/inspect"
	"github.com/lunixbochs/coremem/go/loader"
	"github.com/lunixbochs/coremem/go/models"
	"github.com/lunixbochs/coremem/go/procmem"
	"github.com/lunixbochs/coremem/go/snapshot"
)

// Source is an opened memory source: a core file, a snapshot or a live
// process.
type Source struct {
	models.MemReader
	Name  string
	Arch  string
	Bits  int
	Order binary.ByteOrder
	// nil for a live process
	Core *loader.Core
}

func (s *Source) Close() error {
	if s.Core != nil {
		return s.Core.Close()
	}
	return nil
}

func (s *Source) Inspect() (*inspect.Mem, error) {
	m, err := inspect.New(s.MemReader, uint(s.Bits), s.Order)
	if err != nil {
		return nil, errors.Wrap(err, s.Name)
	}
	return m, nil
}

func hostOrder() binary.ByteOrder {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// OpenSource opens -pid if set, otherwise the first positional argument,
// and returns the remaining arguments.
func (c *CoreCmd) OpenSource(args []string) (*Source, []string, error) {
	config := c.Config
	if config.Live() {
		proc, err := procmem.Open(config.Pid)
		if err != nil {
			return nil, nil, err
		}
		return &Source{
			MemReader: proc,
			Name:      fmt.Sprintf("pid %d", config.Pid),
			Arch:      "native",
			Bits:      strconv.IntSize,
			Order:     hostOrder(),
		}, args, nil
	}
	opts := &loader.Options{NoMmap: config.NoMmap, Logger: c.Log}
	if config.Sections {
		opts.Source = loader.SourceSections
	}
	core, err := loader.Open(args[0], opts)
	if err != nil {
		return nil, nil, err
	}
	return &Source{
		MemReader: core,
		Name:      args[0],
		Arch:      core.Arch,
		Bits:      core.Bits,
		Order:     core.ByteOrder,
		Core:      core,
	}, args[1:], nil
}

// Snapshot copies the source into a snapshot, capturing every readable
// mapping of a live process.
func (c *CoreCmd) Snapshot(ctx context.Context, src *Source) (*snapshot.Snapshot, error) {
	if src.Core != nil {
		return src.Core.Snapshot(), nil
	}
	segs, err := procmem.Capture(ctx, c.Config.Pid, &procmem.CaptureOptions{
		Workers: c.Config.Workers,
		Logger:  c.Log,
	})
	if err != nil {
		return nil, err
	}
	return &snapshot.Snapshot{Order: src.Order, Bits: src.Bits, Segments: segs}, nil
}

package loader

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/lunixbochs/coremem/go/models/mem"
)

// Source picks which ELF headers describe captured memory.
type Source int

const (
	// PT_LOAD program headers with file data, as written by the kernel for core dumps
	SourceProgs Source = iota
	// allocated sections with file data
	SourceSections
)

type Options struct {
	Source Source
	// read the whole file instead of mapping it
	NoMmap bool
	Logger *zap.Logger
}

func (o *Options) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *Options) source() Source {
	if o == nil {
		return SourceProgs
	}
	return o.Source
}

// Core is a loaded memory image. Segment data may point into a file mapping,
// so the Table must not be used after Close.
type Core struct {
	*mem.Table

	Arch      string
	Bits      int
	ByteOrder binary.ByteOrder

	closer func() error
}

func (c *Core) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer()
	c.closer = nil
	return err
}

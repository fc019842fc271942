package loader

import (
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lunixbochs/coremem/go/snapshot"
)

var UnknownMagic = errors.New("Could not identify file magic.")

var gzipMagic = []byte{0x1f, 0x8b}

func MatchGzip(p []byte) bool {
	return bytes.HasPrefix(p, gzipMagic)
}

// Open loads an ELF core, a snapshot, or a gzip of either. Uncompressed ELF
// files are mapped read-only when possible.
func Open(path string, opts *Options) (*Core, error) {
	log := opts.logger()
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	n, _ := io.ReadFull(f, magic)
	magic = magic[:n]
	if MatchElf(magic) && (opts == nil || !opts.NoMmap) {
		raw, unmap, err := mmapFile(f)
		if err == nil {
			log.Debug("mapped core", zap.String("path", path), zap.Int("size", len(raw)))
			core, err := LoadElf(raw, opts)
			if err != nil {
				unmap()
				return nil, err
			}
			core.closer = unmap
			return core, nil
		}
		log.Debug("mmap failed, reading core instead", zap.String("path", path), zap.Error(err))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.WithStack(err)
	}
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return Load(raw, opts)
}

// Load identifies raw by its magic and loads it.
func Load(raw []byte, opts *Options) (*Core, error) {
	if MatchGzip(raw) {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrap(err, "failed to open gzip stream")
		}
		defer zr.Close()
		inflated, err := io.ReadAll(zr)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decompress")
		}
		opts.logger().Debug("decompressed core", zap.Int("compressed", len(raw)), zap.Int("size", len(inflated)))
		if MatchGzip(inflated) {
			return nil, errors.New("nested gzip streams are not supported")
		}
		return Load(inflated, opts)
	}
	if MatchElf(raw) {
		return LoadElf(raw, opts)
	}
	if snapshot.Match(bytes.NewReader(raw)) {
		return LoadSnapshot(bytes.NewReader(raw))
	}
	return nil, errors.WithStack(UnknownMagic)
}

func LoadSnapshot(r io.Reader) (*Core, error) {
	snap, err := snapshot.Load(r)
	if err != nil {
		return nil, err
	}
	table, err := snap.Table()
	if err != nil {
		return nil, err
	}
	return &Core{
		Table:     table,
		Arch:      "unknown",
		Bits:      snap.Bits,
		ByteOrder: snap.Order,
	}, nil
}

// Snapshot converts a loaded core back into a savable snapshot.
func (c *Core) Snapshot() *snapshot.Snapshot {
	segs := c.Table.Segments()
	// detach from any file mapping
	for i := range segs {
		segs[i].Data = append([]byte{}, segs[i].Data...)
	}
	return &snapshot.Snapshot{Order: c.ByteOrder, Bits: c.Bits, Segments: segs}
}

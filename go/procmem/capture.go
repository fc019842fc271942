package procmem

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lunixbochs/coremem/go/models"
	"github.com/lunixbochs/coremem/go/models/mem"
)

type CaptureOptions struct {
	// only capture mappings for which Filter returns true
	Filter func(m *Mapping) bool
	// concurrent readers, defaults to GOMAXPROCS
	Workers int
	Logger  *zap.Logger
}

// Capture copies every readable mapping of pid into segments, in maps order.
// Mappings that fault while being read (guard pages, [vvar]) are skipped.
func Capture(ctx context.Context, pid int, opts *CaptureOptions) (mem.Segments, error) {
	if opts == nil {
		opts = &CaptureOptions{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	proc, err := Open(pid)
	if err != nil {
		return nil, err
	}
	maps, err := Maps(pid)
	if err != nil {
		return nil, err
	}
	var todo []*Mapping
	for i := range maps {
		m := &maps[i]
		if !m.Readable() || m.Size == 0 {
			continue
		}
		if opts.Filter != nil && !opts.Filter(m) {
			continue
		}
		if m.Size > maxRead {
			log.Warn("skipping oversized mapping", zap.Stringer("mapping", m))
			continue
		}
		todo = append(todo, m)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]*mem.Segment, len(todo))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, m := range todo {
		i, m := i, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := proc.MemRead(m.Addr, m.Size)
			if errors.Is(err, models.ErrUnmapped) {
				log.Debug("skipping unreadable mapping", zap.Stringer("mapping", m))
				return nil
			} else if err != nil {
				return err
			}
			results[i] = &mem.Segment{Addr: m.Addr, Size: m.Size, Prot: m.Prot, Data: data, Desc: m.Path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	segs := make(mem.Segments, 0, len(results))
	for _, s := range results {
		if s != nil {
			segs = append(segs, *s)
		}
	}
	log.Debug("captured process", zap.Int("pid", pid), zap.Int("segments", len(segs)), zap.Uint64("bytes", segs.Size()))
	return segs, nil
}

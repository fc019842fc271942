package probe

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"

	"github.com/mgutz/ansi"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lunixbochs/coremem/go/cmd"
	"github.com/lunixbochs/coremem/go/inspect"
	"github.com/lunixbochs/coremem/go/models"
)

var chFault = ansi.ColorCode("red")

type Result struct {
	Probe *Probe
	// final address, after following offsets
	Addr  uint64
	Data  []byte
	Value uint64
	Str   string
	// set when the read hit unmapped memory
	Err error
}

func (r *Result) Format(pad, strsize int, color bool) string {
	p := r.Probe
	prefix := fmt.Sprintf("%-*s %#x", pad, p.Name, r.Addr)
	if r.Err != nil {
		s := fmt.Sprintf("%s: %v", prefix, r.Err)
		if color {
			s = chFault + s + ansi.Reset
		}
		return s
	}
	switch {
	case p.Uint != 0:
		return fmt.Sprintf("%s = %#x (%d)", prefix, r.Value, r.Value)
	case p.Str != 0:
		return fmt.Sprintf("%s = %s", prefix, inspect.Repr([]byte(r.Str), strsize))
	default:
		return fmt.Sprintf("%s = %s", prefix, hex.EncodeToString(r.Data))
	}
}

func runOne(m *inspect.Mem, p *Probe) (*Result, error) {
	r := &Result{Probe: p, Addr: uint64(p.Addr)}
	addr, err := m.PtrChain(uint64(p.Addr), p.offsets()...)
	if err == nil {
		r.Addr = addr
		switch {
		case p.Uint != 0:
			r.Value, err = m.ReadUint(addr, p.Uint)
		case p.Str != 0:
			r.Str, err = m.ReadStr(addr, p.Str)
		default:
			r.Data, err = m.Read(addr, uint64(p.Size))
		}
	}
	if errors.Is(err, models.ErrUnmapped) {
		r.Err = err
	} else if err != nil {
		return nil, errors.Wrapf(err, "probe %q", p.Name)
	}
	return r, nil
}

// Run evaluates every probe in the plan concurrently. Results are in plan
// order. Unmapped reads are recorded in Result.Err; any other error aborts
// the run.
func Run(ctx context.Context, m *inspect.Mem, plan *Plan, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]*Result, len(plan.Probes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range plan.Probes {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := runOne(m, p)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newCmd() *cmd.CoreCmd {
	c := cmd.NewCoreCmd("<plan.yaml>", 1)
	c.Live = true
	c.Sections = true
	c.SetupFlags = func() error {
		c.Flags.IntVar(&c.Config.Workers, "j", 0, "concurrent probes (default GOMAXPROCS)")
		c.Flags.IntVar(&c.Config.Strsize, "strsize", 60, "truncate displayed strings to this length (0 disables)")
		return nil
	}
	c.Run = func(args []string) error {
		src, args, err := c.OpenSource(args)
		if err != nil {
			return errors.Wrap(err, "failed to open source")
		}
		defer src.Close()
		plan, err := LoadPlan(args[0])
		if err != nil {
			return err
		}
		m, err := src.Inspect()
		if err != nil {
			return err
		}
		results, err := Run(context.Background(), m, plan, c.Config.Workers)
		if err != nil {
			return err
		}
		pad, faults := 0, 0
		for _, r := range results {
			if len(r.Probe.Name) > pad {
				pad = len(r.Probe.Name)
			}
		}
		for _, r := range results {
			if r.Err != nil {
				faults++
			}
			fmt.Fprintln(c.Stdout, r.Format(pad, c.Config.Strsize, c.Config.Color))
		}
		c.Log.Debug("probes done", zap.String("source", src.Name), zap.Int("probes", len(results)), zap.Int("unmapped", faults))
		return nil
	}
	return c
}

func Main(args []string) {
	os.Exit(newCmd().Main(args))
}

func init() { cmd.Register("probe", "evaluate a YAML plan of named reads", Main) }

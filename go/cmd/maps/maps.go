package maps

import (
	"fmt"
	"os"

	"github.com/mgutz/ansi"
	"github.com/pkg/errors"

	"github.com/lunixbochs/coremem/go/cmd"
	"github.com/lunixbochs/coremem/go/models/mem"
)

var chExec = ansi.ColorCode("red")
var chWrite = ansi.ColorCode("yellow")
var chEmpty = ansi.ColorCode("black+h")

func colorize(seg *mem.Segment) string {
	s := seg.String()
	switch {
	case seg.Size == 0:
		return chEmpty + s + ansi.Reset
	case seg.Prot&mem.PROT_EXEC != 0:
		return chExec + s + ansi.Reset
	case seg.Prot&mem.PROT_WRITE != 0:
		return chWrite + s + ansi.Reset
	}
	return s
}

func orderName(c *cmd.Source) string {
	if c.Order == nil {
		return "unknown"
	}
	return c.Order.String()
}

func newCmd() *cmd.CoreCmd {
	c := cmd.NewCoreCmd("", 0)
	c.Sections = true
	c.Run = func(args []string) error {
		src, _, err := c.OpenSource(args)
		if err != nil {
			return errors.Wrap(err, "failed to open source")
		}
		defer src.Close()

		segs := src.Core.Segments()
		fmt.Fprintf(c.Stdout, "%s: %s, %d-bit, %s\n", src.Name, src.Arch, src.Bits, orderName(src))
		for i := range segs {
			if c.Config.Color {
				fmt.Fprintln(c.Stdout, colorize(&segs[i]))
			} else {
				fmt.Fprintln(c.Stdout, segs[i].String())
			}
		}
		fmt.Fprintf(c.Stdout, "%d segments, %#x bytes\n", len(segs), segs.Size())
		return nil
	}
	return c
}

func Main(args []string) {
	os.Exit(newCmd().Main(args))
}

func init() { cmd.Register("maps", "list the segments of a core or snapshot", Main) }

package read

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/lunixbochs/coremem/go/cmd"
	"github.com/lunixbochs/coremem/go/inspect"
)

// refuse to hexdump more than this
const maxDump = 16 << 20

func newCmd() *cmd.CoreCmd {
	c := cmd.NewCoreCmd("<addr> <size>", 2)
	c.Live = true
	c.Sections = true
	c.Run = func(args []string) error {
		src, args, err := c.OpenSource(args)
		if err != nil {
			return errors.Wrap(err, "failed to open source")
		}
		defer src.Close()

		addr, err := cmd.ParseUint(args[0])
		if err != nil {
			return err
		}
		size, err := cmd.ParseUint(args[1])
		if err != nil {
			return err
		}
		if size > maxDump {
			return errors.Errorf("size %#x too large to dump (max %#x)", size, maxDump)
		}
		data, err := src.MemRead(addr, size)
		if err != nil {
			return err
		}
		for _, line := range inspect.HexDump(addr, data, src.Bits, c.Config.Color) {
			fmt.Fprintln(c.Stdout, line)
		}
		return nil
	}
	return c
}

func Main(args []string) {
	os.Exit(newCmd().Main(args))
}

func init() { cmd.Register("read", "hexdump an address range", Main) }

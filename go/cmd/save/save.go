package save

import (
	"context"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lunixbochs/coremem/go/cmd"
	"github.com/lunixbochs/coremem/go/snapshot"
)

func newCmd() *cmd.CoreCmd {
	c := cmd.NewCoreCmd("<out>", 1)
	c.Live = true
	c.Sections = true
	c.SetupFlags = func() error {
		c.Flags.StringVar(&c.Config.Codec, "codec", "snappy", "snapshot compression: none, gzip, snappy or lz4")
		c.Flags.IntVar(&c.Config.Workers, "j", 0, "concurrent readers when capturing a process (default GOMAXPROCS)")
		return nil
	}
	c.Run = func(args []string) error {
		codec, err := snapshot.ParseCodec(c.Config.Codec)
		if err != nil {
			return err
		}
		src, args, err := c.OpenSource(args)
		if err != nil {
			return errors.Wrap(err, "failed to open source")
		}
		defer src.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		snap, err := c.Snapshot(ctx, src)
		if err != nil {
			return errors.Wrap(err, "failed to capture")
		}
		out := args[0]
		if err := snapshot.SaveFile(out, snap, codec); err != nil {
			return err
		}
		c.Log.Info("saved snapshot",
			zap.String("source", src.Name),
			zap.String("out", out),
			zap.Stringer("codec", codec),
			zap.Int("segments", len(snap.Segments)),
			zap.Uint64("bytes", snap.Segments.Size()),
		)
		return nil
	}
	return c
}

func Main(args []string) {
	os.Exit(newCmd().Main(args))
}

func init() { cmd.Register("save", "write a core, snapshot or process to a snapshot file", Main) }

package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lunixbochs/coremem/go/models"
)

// CoreCmd is the shared shell of every subcommand: common flags, logging,
// positional argument checks and error printing.
type CoreCmd struct {
	Config *models.Config
	Flags  *flag.FlagSet
	Log    *zap.Logger

	// positional usage, without the leading <source>
	Args string
	// number of positional arguments after <source>
	NArgs int

	// register -pid, which replaces the <source> argument
	Live bool
	// register -sections and -nommap
	Sections bool

	SetupFlags func() error
	Run        func(args []string) error

	Stdout, Stderr io.Writer
}

func NewCoreCmd(args string, nargs int) *CoreCmd {
	return &CoreCmd{
		Config: &models.Config{},
		Args:   args,
		NArgs:  nargs,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *CoreCmd) PrintError(err error) {
	// print an error, and a stacktrace if available
	fmt.Fprintf(c.Stderr, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(c.Stderr, "Error: %s\n", err)
	if !c.Config.Verbose {
		return
	}
	var st stackTracer
	if errors.As(err, &st) {
		// parse full path and method name for each stack frame
		var frames [][]string
		for _, f := range st.StackTrace() {
			fullpath := ""
			fileline := fmt.Sprintf("%s:%d", f, f)
			method := fmt.Sprintf("%n", f)

			frame := fmt.Sprintf("%+s", f)
			tmp := strings.SplitN(frame, "\n", 3)
			if len(tmp) == 2 {
				pathsplit := strings.Split(tmp[0], "/")
				method = pathsplit[len(pathsplit)-1]
				fullpath = strings.TrimSpace(tmp[1])
			}
			frames = append(frames, []string{fullpath, fileline, method})
			if method == "main.main" {
				break
			}
		}
		widths := make([]int, 3)
		for _, f := range frames {
			for i, s := range f {
				if len(s) > widths[i] {
					widths[i] = len(s)
				}
			}
		}
		for _, f := range frames {
			for i := 0; i < 2; i++ {
				if widths[i] > 0 {
					pad := strings.Repeat(" ", widths[i]-len(f[i]))
					fmt.Fprintf(c.Stderr, "%s%s | ", f[i], pad)
				}
			}
			fmt.Fprintf(c.Stderr, "%s()\n", f[2])
		}
	}
}

// Main parses argv (argv[0] is the command name) and calls Run with the
// positional arguments. It returns the process exit code.
func (c *CoreCmd) Main(argv []string) int {
	fs := flag.NewFlagSet(argv[0], flag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	c.Flags = fs
	config := c.Config

	fs.BoolVar(&config.Verbose, "v", false, "verbose output")
	fs.StringVar(&config.LogFile, "log", "", "also log to <file>, rotated at 64MB")
	fs.BoolVar(&config.Color, "color", false, "colorize output")
	if c.Live {
		fs.IntVar(&config.Pid, "pid", 0, "read a running process instead of <source>")
	}
	if c.Sections {
		fs.BoolVar(&config.Sections, "sections", false, "build segments from ELF section headers instead of program headers")
		fs.BoolVar(&config.NoMmap, "nommap", false, "read the whole file instead of mapping it")
	}
	fs.Usage = func() {
		usage := "Usage: %s [options] <source>"
		if c.Live {
			usage = "Usage: %s [options] <source|-pid N>"
		}
		if c.Args != "" {
			usage += " " + c.Args
		}
		usage += "\n\nOptions:\n"
		fmt.Fprintf(c.Stderr, usage, argv[0])
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(c.Stderr, flags)
	}
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	if err := fs.Parse(argv[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	want := c.NArgs + 1
	if config.Live() {
		want--
	}
	if fs.NArg() != want {
		fs.Usage()
		return 1
	}

	log, closeLog := NewLogger(config, c.Stderr)
	defer closeLog()
	c.Log = log

	if err := c.Run(fs.Args()); err != nil {
		log.Debug("command failed", zap.String("cmd", argv[0]), zap.Error(err))
		c.PrintError(err)
		return 1
	}
	return 0
}

// ParseUint accepts Go integer literals: decimal, 0x, 0o, 0b and underscores.
func ParseUint(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errors.Errorf("invalid number %q", s)
	}
	return n, nil
}

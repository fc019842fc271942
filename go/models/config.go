package models

// Config holds the options shared by every coremem subcommand.
type Config struct {
	Color   bool
	Verbose bool
	LogFile string

	// build segments from section headers instead of program headers
	Sections bool
	NoMmap   bool
	// read a live process instead of a file
	Pid int

	Codec   string
	Workers int
	Strsize int
}

// Live reports whether the config targets a running process.
func (c *Config) Live() bool { return c.Pid > 0 }

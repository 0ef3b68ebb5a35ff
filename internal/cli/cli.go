// Package cli parses the flags that override selected fields of the
// resolved configuration's Bridge 0 and top-level settings, using
// github.com/spf13/pflag the same way the teacher tool's own cmd/
// entrypoints do.
package cli

import (
	"github.com/spf13/pflag"
)

// Flags holds every value the command line may override. Zero values
// mean "not set on the command line"; callers apply non-zero/non-empty
// fields over a parsed config.
type Flags struct {
	ConfigPath string

	Device       string
	BaudRate     int
	LogLevel     int
	Logfile      string
	PIDFile      string
	PCAPFile     string
	ConsoleOnly  bool
	NoConsole    bool
	QuietStartup bool
}

// Parse parses args (typically os.Args[1:]) into Flags.
func Parse(args []string) (Flags, error) {
	fs := pflag.NewFlagSet("axkissbridge", pflag.ContinueOnError)

	var f Flags
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "path to the config file")
	fs.StringVarP(&f.Device, "device", "D", "", "override Bridge 0's serial device path")
	fs.IntVarP(&f.BaudRate, "baud-rate", "b", 0, "override Bridge 0's serial baud rate")
	fs.IntVarP(&f.LogLevel, "log-level", "L", 0, "override log_level")
	fs.StringVarP(&f.Logfile, "logfile", "l", "", "override logfile path")
	fs.StringVarP(&f.PIDFile, "pidfile", "P", "", "override pidfile path")
	fs.StringVar(&f.PCAPFile, "pcap", "", "override pcap_file path")
	fs.BoolVar(&f.ConsoleOnly, "console-only", false, "log to console only")
	fs.BoolVar(&f.NoConsole, "no-console", false, "disable console logging")
	fs.BoolVarP(&f.QuietStartup, "quiet", "q", false, "suppress startup banner")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}

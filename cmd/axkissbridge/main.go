// Command axkissbridge runs the multi-port AX.25 KISS bridge: it loads a
// configuration file, opens every declared physical device, and serves
// TCP, serial-peer and AGWPE endpoints for each declared Bridge until
// interrupted.
package main

import (
	"fmt"
	"os"

	"github.com/n7ekb/axkissbridge/internal/bridge"
	"github.com/n7ekb/axkissbridge/internal/cli"
	"github.com/n7ekb/axkissbridge/internal/config"
	"github.com/n7ekb/axkissbridge/internal/lifecycle"
	"github.com/n7ekb/axkissbridge/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "axkissbridge:", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := cli.Parse(os.Args[1:])
	if err != nil {
		return err
	}
	if flags.ConfigPath == "" {
		return fmt.Errorf("no config file given, use -c/--config")
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(cfg, flags)

	log, err := logging.New(logging.Options{
		Level:        logLevelFromConfig(cfg.LogLevel),
		Logfile:      cfg.Logfile,
		LogToConsole: cfg.LogToConsole,
	})
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Close()

	if !cfg.QuietStartup {
		log.Info("axkissbridge starting", "config", flags.ConfigPath, "devices", len(cfg.Devices), "bridges", len(cfg.Bridges))
	}

	cleanupPID, err := lifecycle.WritePIDFile(cfg.PIDFile)
	if err != nil {
		return fmt.Errorf("writing pidfile: %w", err)
	}
	defer cleanupPID()

	set, err := bridge.Build(cfg, log)
	if err != nil {
		return fmt.Errorf("starting bridges: %w", err)
	}

	lifecycle.WaitForShutdown()
	log.Info("shutting down")
	set.Shutdown()
	return nil
}

// applyOverrides layers command-line flags over the loaded config,
// limited to Bridge 0's serial device (the first declared Bridge's
// physical device) and the process-wide settings, per the flag grammar.
func applyOverrides(cfg *config.Resolved, flags cli.Flags) {
	if flags.Device != "" || flags.BaudRate != 0 {
		if id, ok := primaryDeviceID(cfg); ok {
			dc := cfg.Devices[id]
			if flags.Device != "" {
				dc.Device = flags.Device
			}
			if flags.BaudRate != 0 {
				dc.Baud = flags.BaudRate
			}
			cfg.Devices[id] = dc
		}
	}
	if flags.LogLevel != 0 {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.Logfile != "" {
		cfg.Logfile = flags.Logfile
	}
	if flags.PIDFile != "" {
		cfg.PIDFile = flags.PIDFile
	}
	if flags.PCAPFile != "" {
		cfg.PCAPFile = flags.PCAPFile
	}
	if flags.ConsoleOnly {
		cfg.LogToConsole = true
	}
	if flags.NoConsole {
		cfg.LogToConsole = false
	}
	if flags.QuietStartup {
		cfg.QuietStartup = true
	}
}

func primaryDeviceID(cfg *config.Resolved) (string, bool) {
	if len(cfg.Bridges) == 0 {
		return "", false
	}
	for _, ep := range []config.Endpoint{cfg.Bridges[0].A, cfg.Bridges[0].B} {
		if ep.Kind == config.EndpointSerial {
			return ep.DeviceID, true
		}
	}
	return "", false
}

// logLevelFromConfig maps the configuration's 0-5 verbosity scale (0 =
// most verbose) onto the four logging.Level buckets this bridge's
// logger actually distinguishes.
func logLevelFromConfig(n int) logging.Level {
	switch {
	case n <= 1:
		return logging.LevelDebug
	case n == 2:
		return logging.LevelInfo
	case n <= 4:
		return logging.LevelWarn
	default:
		return logging.LevelError
	}
}

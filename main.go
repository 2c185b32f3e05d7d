package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/SSRS-Innovation/redis-communication/pkg/cmd"
	"github.com/SSRS-Innovation/redis-communication/pkg/logging"
)

func main() {
	app := cli.NewApp()
	app.Name = "redcomm"
	app.Usage = "publish and receive messages over redis channels and streams"
	app.Description = "redcomm sends JSON messages over redis pub/sub channels, " +
		"appends them to redis streams, and reads streams exactly once per reader."
	app.Commands = cmd.RootCommands
	app.Flags = cmd.RootFlags
	// Disable the built-in -v flag (version), to avoid collisions with the
	// verbosity flags.
	app.HideVersion = true
	app.Before = func(c *cli.Context) error {
		return configureLogging(c)
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configureLogging(c *cli.Context) error {
	if logging.IsTerminal() {
		logging.ConsoleMode()
	}

	// The LOG_LEVEL environment variable takes precedence.
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
		logging.SetLevel(l)
		return nil
	}

	// Apply verbosity flags.
	switch {
	case c.Bool("vv"):
		logging.SetLevel(zapcore.DebugLevel)
	case c.Bool("v"):
		logging.SetLevel(zapcore.InfoLevel)
	default:
		// Do nothing; level remains at default (WARN).
	}
	return nil
}

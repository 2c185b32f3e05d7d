package cmd

import "github.com/urfave/cli/v2"

// RootCommands collects all subcommands of the redcomm CLI.
var RootCommands = cli.Commands{
	&PublishCommand,
	&SubscribeCommand,
	&StreamCommand,
	&TimeCommand,
	&ServeCommand,
	&VersionCommand,
}

var RootFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "v",
		Usage: "verbose output (equivalent to INFO log level)",
	},
	&cli.BoolFlag{
		Name:  "vv",
		Usage: "super verbose output (equivalent to DEBUG log level)",
	},
	&cli.StringFlag{
		Name:  "config",
		Usage: "load configuration from `FILE` instead of $REDCOMM_HOME/config.toml",
	},
	&cli.StringFlag{
		Name:  "redis-host",
		Usage: "redis host (overrides config.toml and REDIS_HOST)",
	},
	&cli.IntFlag{
		Name:  "redis-port",
		Usage: "redis port (overrides config.toml and REDIS_PORT)",
	},
	&cli.StringFlag{
		Name:  "cursor-backend",
		Usage: "where stream cursors are kept: memory, leveldb or redis",
	},
}

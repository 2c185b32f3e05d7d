package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
)

var TimeCommand = cli.Command{
	Name:   "time",
	Usage:  "print the redis server time and the local clock skew",
	Action: timeCommand,
}

func timeCommand(c *cli.Context) error {
	client, _, err := setupClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	ts, err := client.ServerTime(ProcessContext())
	if err != nil {
		return err
	}

	skew := time.Since(ts.Time()).Round(time.Millisecond)
	newConsole(c.App.Writer).msg(Info, "server", ts, ts.Time().UTC().Format(time.RFC3339Nano), " skew=", skew)
	return nil
}

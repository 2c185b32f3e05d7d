package cmd

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
)

var SubscribeCommand = cli.Command{
	Name:      "subscribe",
	Usage:     "print the messages published on one or more channels",
	ArgsUsage: "<channel>...",
	Action:    subscribeCommand,
}

func subscribeCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("expected at least one channel")
	}

	client, _, err := setupClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	out := newConsole(c.App.Writer)
	for _, channel := range c.Args().Slice() {
		channel := channel
		err := client.AddSubscriber(channel, func(ts codec.Timestamp, content interface{}) {
			out.event(channel, ts, content)
		})
		if err != nil {
			return err
		}
	}

	err = client.Listen(ProcessContext())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

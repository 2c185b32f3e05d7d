package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
)

var PublishCommand = cli.Command{
	Name:      "publish",
	Usage:     "publish a message on a channel",
	ArgsUsage: "<channel> <json>",
	Action:    publishCommand,
}

func publishCommand(c *cli.Context) error {
	if err := requireArgs(c, 2, "<channel> <json>"); err != nil {
		return err
	}
	channel, content := c.Args().Get(0), parseContent(c.Args().Get(1))

	client, _, err := setupClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := client.SendMessage(ProcessContext(), channel, content)
	if err != nil {
		return err
	}

	newConsole(c.App.Writer).msg(Info, channel, codec.Now(), "delivered to ", n, " receiver(s)")
	return nil
}

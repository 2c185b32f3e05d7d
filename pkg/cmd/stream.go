package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/SSRS-Innovation/redis-communication/pkg/rediscomm"
)

var StreamCommand = cli.Command{
	Name:  "stream",
	Usage: "append to and read from streams",
	Subcommands: cli.Commands{
		&cli.Command{
			Name:      "add",
			Usage:     "append a message to a stream",
			ArgsUsage: "<stream> <json>",
			Action:    streamAddCommand,
		},
		&cli.Command{
			Name:      "latest",
			Usage:     "print the newest message of a stream, without moving the cursor",
			ArgsUsage: "<stream>",
			Action:    streamLatestCommand,
		},
		&cli.Command{
			Name:      "unread",
			Usage:     "print the messages past the stream cursor, and advance it",
			ArgsUsage: "<stream>",
			Action:    streamUnreadCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "max",
					Usage: "read at most `N` messages; 0 reads everything",
				},
			},
		},
		&cli.Command{
			Name:      "follow",
			Usage:     "poll a stream for unread messages until interrupted",
			ArgsUsage: "<stream>",
			Action:    streamFollowCommand,
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "interval",
					Usage: "polling interval",
					Value: time.Second,
				},
			},
		},
	},
}

func streamAddCommand(c *cli.Context) error {
	if err := requireArgs(c, 2, "<stream> <json>"); err != nil {
		return err
	}
	name, content := c.Args().Get(0), parseContent(c.Args().Get(1))

	client, _, err := setupClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.AddStreamMessage(ProcessContext(), name, content)
	if err != nil {
		return err
	}

	newConsole(c.App.Writer).info(name, "appended ", id)
	return nil
}

func streamLatestCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "<stream>"); err != nil {
		return err
	}
	name := c.Args().Get(0)

	client, _, err := setupClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	msg, ok, err := client.LatestStreamMessage(ProcessContext(), name)
	if err != nil {
		return err
	}

	out := newConsole(c.App.Writer)
	if !ok {
		out.info(name, "stream is empty")
		return nil
	}
	out.entry(name, msg)
	return nil
}

func streamUnreadCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "<stream>"); err != nil {
		return err
	}
	if c.Int("max") < 0 {
		return errors.New("--max must not be negative")
	}
	name := c.Args().Get(0)

	client, _, err := setupClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	out := newConsole(c.App.Writer)
	n, err := printUnread(ProcessContext(), client, out, name, c.Int("max"))
	if err != nil {
		return err
	}
	if n == 0 {
		out.info(name, "no unread messages")
	}
	return nil
}

func streamFollowCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "<stream>"); err != nil {
		return err
	}
	interval := c.Duration("interval")
	if interval <= 0 {
		return errors.New("--interval must be positive")
	}
	name := c.Args().Get(0)

	client, _, err := setupClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := ProcessContext()
	out := newConsole(c.App.Writer)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := printUnread(ctx, client, out, name, 0); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func printUnread(ctx context.Context, client *rediscomm.Client, out *console, name string, maxMessages int) (int, error) {
	msgs, err := client.UnreadStreamMessages(ctx, name, maxMessages)
	if err != nil {
		return 0, err
	}
	for _, m := range msgs {
		out.entry(name, m)
	}
	return len(msgs), nil
}

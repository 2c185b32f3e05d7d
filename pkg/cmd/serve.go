package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/SSRS-Innovation/redis-communication/pkg/logging"
	"github.com/SSRS-Innovation/redis-communication/pkg/server"
)

var ServeCommand = cli.Command{
	Name:   "serve",
	Usage:  "run the http and websocket gateway",
	Action: serveCommand,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Usage: "listen address (overrides config.toml)",
		},
	},
}

func serveCommand(c *cli.Context) error {
	ctx, cancel := context.WithCancel(ProcessContext())
	defer cancel()

	client, cfg, err := setupClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	listen := cfg.Server.Listen
	if c.IsSet("listen") {
		listen = c.String("listen")
	}

	srv, err := server.New(logging.S(), client, listen)
	if err != nil {
		return err
	}

	var eg errgroup.Group
	eg.Go(func() error {
		err := srv.Serve()
		if err == http.ErrServerClosed {
			err = nil
		}
		cancel()
		return err
	})
	eg.Go(func() error {
		<-ctx.Done()
		logging.S().Infow("shutting down gateway")

		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		return srv.Shutdown(sctx)
	})
	return eg.Wait()
}

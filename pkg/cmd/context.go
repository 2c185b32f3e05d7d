package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

var (
	processContext     context.Context
	processContextOnce sync.Once
)

// ProcessContext returns a context that is canceled on the first interrupt.
// A second interrupt, or a shutdown taking longer than 10 seconds, exits the
// process.
func ProcessContext() context.Context {
	processContextOnce.Do(func() {
		var cancel context.CancelFunc
		processContext, cancel = context.WithCancel(context.Background())

		notify := make(chan os.Signal, 2)
		signal.Notify(notify, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
		go func() {
			defer signal.Stop(notify)

			<-notify
			cancel()

			select {
			case <-time.After(10 * time.Second):
				fmt.Fprintln(os.Stderr, "timed out on shutdown, terminating...")
			case <-notify:
				fmt.Fprintln(os.Stderr, "received another interrupt before graceful shutdown, terminating...")
			}
			os.Exit(1)
		}()
	})
	return processContext
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"tangled.sh/tangled.sh/notifications/log"
	"tangled.sh/tangled.sh/notifications/server"
)

func main() {
	cmd := &cli.Command{
		Name:  "notifyd",
		Usage: "notification server",
		Commands: []*cli.Command{
			server.Command(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New("notifyd")
	ctx = log.IntoContext(ctx, logger.With("command", cmd.Name))

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(-1)
	}
}

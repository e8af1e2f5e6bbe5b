package main

import (
	"context"
	"os"

	"tangled.sh/tangled.sh/notifications/client"
	"tangled.sh/tangled.sh/notifications/log"
)

func main() {
	cmd := client.Command()
	cmd.Name = "notifyctl"

	ctx := context.Background()
	logger := log.New("notifyctl")
	ctx = log.IntoContext(ctx, logger.With("command", cmd.Name))

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(-1)
	}
}

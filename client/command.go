package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"tangled.sh/tangled.sh/notifications/config"
	"tangled.sh/tangled.sh/notifications/log"
	"tangled.sh/tangled.sh/notifications/notification"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "talk to a notification server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "server endpoint, overrides NOTIFY_CLIENT_ENDPOINT",
			},
		},
		Description: `
Environment variables:
	NOTIFY_CLIENT_ENDPOINT   (default: http://localhost:8080)
	NOTIFY_CLIENT_TIMEOUT    (default: 5s)
	NOTIFY_CLIENT_MAX_PAGES  (default: 100)
`,
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "list every notification of a user",
				ArgsUsage: "<username>",
				Action:    Fetch,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "output format (table, json)",
						Value:   "table",
					},
				},
			},
			{
				Name:   "ping",
				Usage:  "check that the server is up",
				Action: Ping,
			},
			{
				Name:   "version",
				Usage:  "print the server version",
				Action: Version,
			},
		},
	}
}

func fromCommand(ctx context.Context, cmd *cli.Command) (*NotificationClient, error) {
	c, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	endpoint := c.Client.Endpoint
	if e := cmd.String("endpoint"); e != "" {
		endpoint = e
	}

	return New(endpoint,
		WithTimeout(c.Client.Timeout),
		WithMaxPages(c.Client.MaxPages),
		WithLogger(log.SubLogger(log.FromContext(ctx), "client")),
	)
}

func Fetch(ctx context.Context, cmd *cli.Command) error {
	username := cmd.Args().First()
	if username == "" {
		return fmt.Errorf("fetch: %w", ErrEmptyUsername)
	}

	nc, err := fromCommand(ctx, cmd)
	if err != nil {
		return err
	}
	defer nc.Close()

	items, err := nc.Fetch(ctx, username)
	if err != nil {
		return err
	}

	return writeNotifications(os.Stdout, cmd.String("output"), items, time.Now())
}

func writeNotifications(w io.Writer, output string, items []notification.Notification, now time.Time) error {
	switch output {
	case "json":
		b, err := json.MarshalIndent(items, "", "    ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "table":
		fmt.Fprintf(w, "%-20s %-3s %-12s %-16s %s\n", "ID", "NEW", "CATEGORY", "CREATED", "MESSAGE")
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for _, n := range items {
			unseen := ""
			if n.Unseen {
				unseen = "*"
			}
			fmt.Fprintf(w, "%-20d %-3s %-12s %-16s %s\n", n.ID, unseen, n.Category, humanize.RelTime(n.CreatedAt, now, "ago", "from now"), n.Message)
		}
		fmt.Fprintf(w, "\n%s notifications\n", humanize.Comma(int64(len(items))))
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func Ping(ctx context.Context, cmd *cli.Command) error {
	nc, err := fromCommand(ctx, cmd)
	if err != nil {
		return err
	}
	defer nc.Close()

	ok, err := nc.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unexpected ping response from %s", nc.Url)
	}
	fmt.Println("pong")
	return nil
}

func Version(ctx context.Context, cmd *cli.Command) error {
	nc, err := fromCommand(ctx, cmd)
	if err != nil {
		return err
	}
	defer nc.Close()

	v, err := nc.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}

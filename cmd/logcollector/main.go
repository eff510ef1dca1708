package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "logcollector: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "logcollector",
		Usage: "Receive slogger network output and inspect archived logs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Level for the collector's own diagnostics (trace, debug, info, warn, error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "log-config",
				Usage: "TOML file with a [slogger] table for the collector's own logger",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			verifyCommand(),
		},
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lixenwraith/slogger/archive"
)

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check archive containers written by file rotation",
		ArgsUsage: "ARCHIVE.zip...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "Print every entry",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() == 0 {
				return fmt.Errorf("verify: at least one archive is required")
			}

			failed := 0
			for _, path := range c.Args().Slice() {
				summary, err := archive.Verify(path)
				if err != nil {
					fmt.Printf("FAIL %s: %v\n", path, err)
					failed++
					continue
				}
				fmt.Printf("OK   %s: %d files, %d entries, %d bytes\n",
					path, summary.Files(), len(summary.Entries), summary.Size)
				if c.Bool("list") {
					for _, e := range summary.Entries {
						fmt.Printf("     %08x %10d %s %s\n", e.CRC32, e.Size, e.Modified.Format("2006-01-02 15:04:05"), e.Name)
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("verify: %d of %d archives failed", failed, c.NArg())
			}
			return nil
		},
	}
}

// Package main provides the Gradia CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

const version = "v0.1.0-dev"

func main() {
	app := &cli.Command{
		Name:  "gradia",
		Usage: "Tape-based autodiff engine with saved-tensor hooks",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			demoCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("gradia %s\n", version)
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// main builds the CLI. The serve command wires every dependency and runs the
// HTTP API; the rest are operator utilities.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "casedesk",
		Usage: "case lifecycle engine for license applications",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			catalogCommand(),
		},
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

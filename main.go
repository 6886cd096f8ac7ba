package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/markis/geonames-rdf/internal/args"
	"github.com/markis/geonames-rdf/internal/config"
	"github.com/markis/geonames-rdf/internal/geonames"
	"github.com/markis/geonames-rdf/internal/logging"
)

const appName = "geonames-rdf"

// main loads the configuration, parses arguments and runs the selected command.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	geonames.Init()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return err
	}

	a, err := args.ParseArgs(ctx, *cfg, os.Args[1:])
	if err != nil {
		return err
	}
	logger := logging.Configure(appName, a.LogLevel)

	switch a.Command {
	case args.CommandFormats:
		return listFormats(os.Stdout)
	case args.CommandDecode:
		return decode(ctx, a, logger)
	default:
		return nil
	}
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
}

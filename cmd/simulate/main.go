package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/petstriker/matchsim/internal/config"
	"github.com/petstriker/matchsim/internal/logging"
)

const usage = `usage: simulate [-config path] <command> [flags]

commands:
  batch    run a Monte-Carlo batch and print win/draw statistics
  replay   fold an event log (.gz supported) and print the reconstructed match
  live     play one real-time match headless and record its event log
`

type command func(ctx context.Context, args []string, cfg *config.Config, logger *zap.Logger) error

var commands = map[string]command{
	"batch":  runBatch,
	"replay": runReplay,
	"live":   runLive,
}

func main() {
	configPath, name, args, err := parseGlobalFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		fmt.Print(usage)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		os.Exit(2)
	}
	run, ok := commands[name]
	if !ok {
		if name == "help" {
			fmt.Print(usage)
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args, cfg, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("command failed", zap.String("command", name), zap.Error(err))
		os.Exit(1)
	}
}

// parseGlobalFlags reads the flags shared by every command, which come before
// the command name. A missing config file falls back to defaults.
func parseGlobalFlags(args []string) (configPath, name string, rest []string, err error) {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("config", "config/config.yaml", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return "", "", nil, err
	}
	if fs.NArg() == 0 {
		return "", "", nil, errors.New("missing command")
	}
	return *path, fs.Arg(0), fs.Args()[1:], nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command export-convert converts a conversations.json export into a
// Markdown corpus of the user's own messages, suitable for profile-distill's
// -corpus input.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/calehoff/profile-distill/distill"
)

type Config struct {
	InPath     string
	OutPath    string
	ArrayField string
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	return nil
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := distill.WriteUserCorpus(ctx, cfg.InPath, cfg.OutPath, distill.ExportOptions{ArrayField: cfg.ArrayField})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	fmt.Printf("conversations=%d user_messages=%d out=%s\n", stats.Conversations, stats.Messages, cfg.OutPath)
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", "", "Path to conversations.json (top-level array, or object containing one)")
	fs.StringVar(&cfg.OutPath, "out", "", "Output path for the Markdown corpus")
	fs.StringVar(&cfg.ArrayField, "array-field", "", "Object field holding the conversation array (default: first array field)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.InPath != "" {
		cfg.InPath = filepath.Clean(cfg.InPath)
	}
	if cfg.OutPath != "" {
		cfg.OutPath = filepath.Clean(cfg.OutPath)
	}
	return cfg, nil
}

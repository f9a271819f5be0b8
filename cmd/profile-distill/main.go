// Command profile-distill distills a chat corpus into a writing-style
// profile JSON file through chunked summarization and hierarchical
// consolidation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/calehoff/profile-distill/distill"
	"github.com/calehoff/profile-distill/distill/provider"
)

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

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	// The context is deliberately not bound to signals: the first interrupt
	// only stops new unit requests so the run can still consolidate and save
	// what it has. The second interrupt abandons the run.
	ctx := context.Background()

	cancel := &distill.Token{}
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel.Cancel()
		fmt.Fprintln(os.Stderr, "interrupt: finishing current chunk, consolidating partial results (interrupt again to abandon)")
		<-sigCh
		fmt.Fprintln(os.Stderr, "second interrupt: abandoning run")
		os.Exit(1)
	}()

	corpus, err := loadInput(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if strings.TrimSpace(corpus) == "" {
		fmt.Fprintln(os.Stderr, "warning: corpus is empty, writing defaulted profile")
	}

	tracker := distill.NewTracker(cfg.PricePerToken)

	var lexicon *distill.Lexicon
	if cfg.LexiconPath != "" {
		lex, err := distill.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		lexicon = &lex
	}

	var runLog *distill.RunLog
	if cfg.RunLogPath != "" {
		runLog, err = distill.OpenRunLog(cfg.RunLogPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		defer func() {
			if err := runLog.Close(); err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
			}
		}()
	}

	var sampler distill.Sampler
	if cfg.SkipRate > 0 {
		sampler = distill.NewRandomSkip(cfg.SkipRate, cfg.Seed)
	}

	pipeline := distill.Pipeline{
		Oracle:    provider.NewClient(apiKey, cfg.Model),
		ChunkSize: cfg.ChunkSize,
		BatchSize: cfg.BatchSize,
		Cooldown:  cfg.Cooldown,
		MaxChunks: cfg.MaxChunks,
		Sampler:   sampler,
		Cancel:    cancel,
		Tracker:   tracker,
		RunLog:    runLog,
		Lexicon:   lexicon,
		Logf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	}

	res, err := pipeline.Run(ctx, corpus)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if err := distill.SaveProfile(cfg.OutPath, res.Profile, cfg.Pretty); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if lexicon != nil {
		if err := distill.SaveLexicon(cfg.LexiconPath, *lexicon); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	}

	fmt.Printf("chunks_processed=%d chunks_skipped=%d chunks_failed=%d cancelled=%v cost=$%.6f elapsed=%s profile=%s\n",
		res.ChunksProcessed, res.ChunksSkipped, res.ChunksFailed,
		res.Cancelled, tracker.Cost(), tracker.Elapsed().Round(time.Second), cfg.OutPath)
}

// loadInput resolves the corpus from whichever input flag was given.
func loadInput(ctx context.Context, cfg Config) (string, error) {
	if cfg.ConversationsPath != "" {
		corpus, stats, err := distill.ReadUserCorpus(ctx, cfg.ConversationsPath, distill.ExportOptions{ArrayField: cfg.ArrayField})
		if err != nil {
			return "", fmt.Errorf("read conversations export: %w", err)
		}
		fmt.Fprintf(os.Stderr, "export: %d conversations, %d user messages\n", stats.Conversations, stats.Messages)
		return corpus, nil
	}

	corpus, err := distill.LoadCorpus(cfg.CorpusPath)
	if err != nil {
		return "", err
	}
	if cfg.UserOnly {
		corpus = strings.Join(distill.UserMessages(corpus), "\n\n")
	}
	return corpus, nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.CorpusPath, "corpus", "", "Path to a corpus file (.md/.html/plain text)")
	fs.StringVar(&cfg.ConversationsPath, "conversations", "", "Path to a conversations.json export (streamed; mutually exclusive with -corpus)")
	fs.StringVar(&cfg.ArrayField, "array-field", "", "Object field holding the conversation array (default: first array field)")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Output path for the profile JSON")
	fs.StringVar(&cfg.LexiconPath, "lexicon", "", "Optional path for the phrase lexicon JSON")
	fs.StringVar(&cfg.RunLogPath, "run-log", "", "Optional path for the per-chunk JSONL run log (appended)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model to use (e.g. gpt-5-mini)")
	fs.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "Max chunk size in characters")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Max summaries consolidated per request")
	fs.DurationVar(&cfg.Cooldown, "cooldown", cfg.Cooldown, "Fixed wait before the single rate-limit retry")
	fs.IntVar(&cfg.MaxChunks, "max-chunks", 0, "Process only the first N chunks (0 = all)")
	fs.Float64Var(&cfg.SkipRate, "skip-rate", 0, "Probability of skipping each chunk, for cheap sampled runs (0 = process all)")
	fs.Int64Var(&cfg.Seed, "seed", 0, "Seed for -skip-rate sampling (same seed, same chunks)")
	fs.Float64Var(&cfg.PricePerToken, "price-per-token", cfg.PricePerToken, "USD per token for cost estimates")
	fs.BoolVar(&cfg.UserOnly, "user-only", false, "Keep only '**You:**' lines from a -corpus file")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print the profile JSON")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.CorpusPath != "" {
		cfg.CorpusPath = filepath.Clean(cfg.CorpusPath)
	}
	if cfg.ConversationsPath != "" {
		cfg.ConversationsPath = filepath.Clean(cfg.ConversationsPath)
	}
	cfg.OutPath = filepath.Clean(cfg.OutPath)
	return cfg, nil
}

package main

import (
	"errors"
	"time"
)

type Config struct {
	CorpusPath        string
	ConversationsPath string
	ArrayField        string
	OutPath           string
	LexiconPath       string
	RunLogPath        string

	Model     string
	ChunkSize int
	BatchSize int
	Cooldown  time.Duration
	MaxChunks int

	SkipRate float64
	Seed     int64

	PricePerToken float64

	UserOnly bool
	Pretty   bool
	APIKey   string
}

func (c Config) Validate() error {
	if c.CorpusPath == "" && c.ConversationsPath == "" {
		return errors.New("missing input: pass -corpus or -conversations")
	}
	if c.CorpusPath != "" && c.ConversationsPath != "" {
		return errors.New("pass only one of -corpus and -conversations")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.ChunkSize <= 0 {
		return errors.New("chunk-size must be > 0")
	}
	if c.BatchSize < 2 {
		return errors.New("batch-size must be >= 2")
	}
	if c.Cooldown < 0 {
		return errors.New("cooldown must be >= 0")
	}
	if c.MaxChunks < 0 {
		return errors.New("max-chunks must be >= 0")
	}
	if c.SkipRate < 0 || c.SkipRate > 1 {
		return errors.New("skip-rate must be in [0, 1]")
	}
	if c.PricePerToken < 0 {
		return errors.New("price-per-token must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutPath:       "user_profile.json",
		Model:         "gpt-5-mini",
		ChunkSize:     6000,
		BatchSize:     10,
		Cooldown:      30 * time.Second,
		PricePerToken: 0.000002,
	}
}

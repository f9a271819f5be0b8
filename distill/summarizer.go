package distill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UnitSummarizer turns one chunk into a raw text summary via the oracle.
// It owns the transient-failure policy: a rate-limit-class error sleeps the
// fixed cooldown and retries exactly once; everything else propagates
// immediately, and the caller decides whether to skip the unit or give up.
type UnitSummarizer struct {
	Oracle Oracle

	// Cooldown is the fixed sleep before the single rate-limit retry.
	// Zero means the default.
	Cooldown time.Duration
}

// Summarize issues one generation request for the chunk and returns the raw
// response text (trimmed) plus observed token usage.
func (s UnitSummarizer) Summarize(ctx context.Context, chunk Chunk, totalChunks int) (Generation, error) {
	if s.Oracle == nil {
		return Generation{}, errors.New("UnitSummarizer: oracle is nil")
	}

	req := Request{
		Instructions: unitInstructions,
		Prompt:       buildUnitPrompt(chunk, totalChunks),
	}
	gen, err := completeWithCooldown(ctx, s.Oracle, req, s.Cooldown)
	if err != nil {
		return Generation{}, fmt.Errorf("summarize chunk %d/%d: %w", chunk.Index+1, totalChunks, err)
	}
	gen.Text = strings.TrimSpace(gen.Text)
	return gen, nil
}

package distill

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultBatchSize bounds how many summaries feed a single combine request.
const DefaultBatchSize = 10

// Reducer consolidates many partial summaries into one Profile, batch by
// batch, so no single oracle request grows with the corpus. A run over N leaf
// summaries takes ⌈N/B⌉ + ⌈N/B²⌉ + … extra combine requests on top of the
// leaf requests; B tunes that cost/throughput tradeoff.
type Reducer struct {
	Oracle Oracle

	// BatchSize is the maximum number of summaries combined per request.
	// Must be at least 2; zero means DefaultBatchSize.
	BatchSize int

	// Cooldown is the fixed sleep before the single rate-limit retry.
	Cooldown time.Duration

	// Tracker, when set, receives token usage from combine requests.
	Tracker *Tracker

	// Logf, when set, receives progress lines.
	Logf func(format string, args ...any)
}

// Reduce consolidates summaries level by level until a single Profile
// remains. The loop is an explicit worklist rather than recursion, so depth
// is bounded no matter how large the input list is; each level shrinks the
// list by a factor of at least BatchSize, so it always terminates.
//
// Malformed oracle output never fails the run: an unsalvageable node degrades
// to an explicitly empty Profile and later levels carry on. The only errors
// returned are misconfiguration and context cancellation.
func (r Reducer) Reduce(ctx context.Context, summaries []string) (Profile, error) {
	if r.Oracle == nil {
		return Profile{}, errors.New("Reducer: oracle is nil")
	}
	batch := r.BatchSize
	if batch == 0 {
		batch = DefaultBatchSize
	}
	if batch < 2 {
		return Profile{}, fmt.Errorf("Reducer: batch size must be >= 2, got %d", batch)
	}

	level := append([]string(nil), summaries...)
	for pass := 1; ; pass++ {
		switch {
		case len(level) == 0:
			return EmptyProfile(), nil
		case len(level) == 1:
			return r.reduceSingle(ctx, level[0])
		case len(level) <= batch:
			return r.combine(ctx, level)
		}

		groups := windows(level, batch)
		next := make([]string, 0, len(groups))
		for gi, group := range groups {
			r.logf("consolidation pass %d: group %d/%d (size %d)", pass, gi+1, len(groups), len(group))
			p, err := r.combine(ctx, group)
			if err != nil {
				return Profile{}, err
			}
			s, err := p.Summary()
			if err != nil {
				return Profile{}, fmt.Errorf("reduce: reserialize partial profile: %w", err)
			}
			next = append(next, s)
		}
		level = next
	}
}

// reduceSingle handles the one-summary base case: if the summary is already a
// well-formed profile it is returned as-is, otherwise one consolidate request
// is issued and its response salvage-parsed.
func (r Reducer) reduceSingle(ctx context.Context, summary string) (Profile, error) {
	if p, err := ParseProfileStrict(summary); err == nil {
		return p, nil
	}

	req := Request{
		Instructions: jsonOnlyInstructions,
		Prompt:       buildConsolidatePrompt(summary),
		WantProfile:  true,
	}
	return r.request(ctx, req, "consolidate")
}

// combine merges one group of summaries with a single oracle request.
func (r Reducer) combine(ctx context.Context, group []string) (Profile, error) {
	req := Request{
		Instructions: jsonOnlyInstructions,
		Prompt:       buildCombinePrompt(group),
		WantProfile:  true,
	}
	return r.request(ctx, req, "combine")
}

func (r Reducer) request(ctx context.Context, req Request, kind string) (Profile, error) {
	gen, err := completeWithCooldown(ctx, r.Oracle, req, r.Cooldown)
	if err != nil {
		if ctx.Err() != nil {
			return Profile{}, ctx.Err()
		}
		r.logf("%s request failed, node degrades to empty profile: %v", kind, err)
		return EmptyProfile(), nil
	}
	if r.Tracker != nil {
		r.Tracker.AddTokens(gen.TokensUsed)
	}

	p, err := ParseProfile(gen.Text)
	if err != nil {
		r.logf("%s response unsalvageable (len=%d), node degrades to empty profile", kind, len(gen.Text))
		return EmptyProfile(), nil
	}
	return p, nil
}

func (r Reducer) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

func windows(in []string, max int) [][]string {
	if max <= 0 || len(in) <= max {
		return [][]string{in}
	}
	out := make([][]string, 0, (len(in)+max-1)/max)
	for start := 0; start < len(in); start += max {
		end := start + max
		if end > len(in) {
			end = len(in)
		}
		out = append(out, in[start:end])
	}
	return out
}

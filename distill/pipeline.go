package distill

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Pipeline wires the chunker, unit summarizer, reducer, tracker, and stores
// into one corpus → profile run. Every external call is sequential and
// blocking; the only suspension point is an outstanding oracle request.
type Pipeline struct {
	Oracle Oracle

	// ChunkSize is the maximum chunk length in runes. Must be > 0.
	ChunkSize int

	// BatchSize bounds summaries per combine request. Zero means
	// DefaultBatchSize.
	BatchSize int

	// Cooldown is the fixed sleep before the single rate-limit retry.
	Cooldown time.Duration

	// MaxChunks caps how many chunks are planned (0 = all).
	MaxChunks int

	// Sampler thins the chunk set; nil processes every chunk in order.
	Sampler Sampler

	// Cancel is polled before each unit request. On cancellation the loop
	// stops issuing unit requests and falls through to reduction over
	// whatever summaries exist.
	Cancel *Token

	Tracker *Tracker
	RunLog  *RunLog

	// Lexicon, when set, is merged from every processed chunk and used as a
	// common_phrases fallback.
	Lexicon *Lexicon

	// Logf, when set, receives progress lines.
	Logf func(format string, args ...any)
}

// Result is what one pipeline run produced.
type Result struct {
	Profile Profile

	ChunksPlanned   int
	ChunksProcessed int
	ChunksSkipped   int
	ChunksFailed    int

	// Cancelled reports that the unit loop stopped early on request; the
	// profile still reflects everything produced before the stop.
	Cancelled bool
}

// Run distills the corpus into a profile. It returns an error only for
// misconfiguration, context cancellation, or conditions no partial result can
// survive; unit failures, malformed output, and cooperative cancellation all
// degrade gracefully into a (possibly partially empty) profile.
func (p Pipeline) Run(ctx context.Context, corpus string) (Result, error) {
	if p.Oracle == nil {
		return Result{}, errors.New("Pipeline: oracle is nil")
	}
	if p.ChunkSize <= 0 {
		return Result{}, fmt.Errorf("Pipeline: chunk size must be > 0, got %d", p.ChunkSize)
	}

	chunks := ChunkText(corpus, p.ChunkSize)
	if p.MaxChunks > 0 && len(chunks) > p.MaxChunks {
		p.logf("limiting run to first %d of %d chunks", p.MaxChunks, len(chunks))
		chunks = chunks[:p.MaxChunks]
	}

	res := Result{ChunksPlanned: len(chunks)}
	if len(chunks) == 0 {
		p.logf("empty corpus: finalizing defaulted profile")
		res.Profile = p.finalize(EmptyProfile(), nil, res)
		return res, nil
	}

	totalChars := 0
	for _, c := range chunks {
		totalChars += len(c.Text)
	}

	sampler := p.Sampler
	if sampler == nil {
		sampler = EveryChunk{}
	}
	summarizer := UnitSummarizer{Oracle: p.Oracle, Cooldown: p.Cooldown}

	summaries := make([]string, 0, len(chunks))
	processed := make([]Chunk, 0, len(chunks))
	charsSeen := 0

	for _, chunk := range chunks {
		if p.Cancel.Cancelled() {
			res.Cancelled = true
			p.logf("cancellation requested: consolidating %d completed summaries", len(summaries))
			break
		}
		charsSeen += len(chunk.Text)

		if sampler.Skip(chunk.Index) {
			res.ChunksSkipped++
			p.Tracker.ObserveSkip()
			p.appendLog(UnitRecord{
				ChunkIndex: chunk.Index,
				ChunkChars: len(chunk.Text),
				Outcome:    OutcomeSkipped,
			})
			continue
		}

		start := time.Now()
		gen, err := summarizer.Summarize(ctx, chunk, len(chunks))
		elapsed := time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			res.ChunksFailed++
			p.Tracker.ObserveFailure()
			p.appendLog(UnitRecord{
				ChunkIndex: chunk.Index,
				ChunkChars: len(chunk.Text),
				ElapsedMS:  elapsed.Milliseconds(),
				Outcome:    OutcomeFailed,
				Err:        err.Error(),
			})
			p.logf("chunk %d/%d failed, continuing: %v", chunk.Index+1, len(chunks), err)
			continue
		}

		summaries = append(summaries, gen.Text)
		processed = append(processed, chunk)
		res.ChunksProcessed++
		p.Tracker.ObserveUnit(elapsed, len(chunk.Text), gen.TokensUsed)
		p.appendLog(UnitRecord{
			ChunkIndex: chunk.Index,
			ChunkChars: len(chunk.Text),
			ElapsedMS:  elapsed.Milliseconds(),
			TokensUsed: gen.TokensUsed,
			Outcome:    OutcomeSummarized,
			Summary:    gen.Text,
		})
		p.logf("progress distill: %d/%d chunks (avg=%s cost=$%.6f eta=%s)",
			chunk.Index+1, len(chunks),
			p.Tracker.RollingAvg().Round(time.Millisecond),
			p.Tracker.Cost(),
			p.Tracker.EstimatedRemaining(totalChars-charsSeen).Round(time.Second))
	}

	reducer := Reducer{
		Oracle:    p.Oracle,
		BatchSize: p.BatchSize,
		Cooldown:  p.Cooldown,
		Tracker:   p.Tracker,
		Logf:      p.Logf,
	}
	profile, err := reducer.Reduce(ctx, summaries)
	if err != nil {
		return Result{}, err
	}

	res.Profile = p.finalize(profile, processed, res)
	return res, nil
}

// finalize overlays offline metrics and lexicon fallbacks, then attaches run
// metadata.
func (p Pipeline) finalize(profile Profile, processed []Chunk, res Result) Profile {
	if len(processed) > 0 {
		m := ComputeTextMetrics(processed)
		profile.AvgSentenceLength = m.AvgSentenceLength
		profile.VocabularyRichness = m.VocabularyRichness
	}

	if p.Lexicon != nil {
		for _, c := range processed {
			MergeLexicon(p.Lexicon, c.Index, c.Text)
		}
		CullLexicon(p.Lexicon, 2)
		if len(profile.CommonPhrases) == 0 {
			profile.CommonPhrases = StringList(p.Lexicon.TopPhrases(20, 4))
		}
	}

	profile = profile.Normalize()
	if p.Tracker != nil {
		profile.Meta = &RunMeta{
			RunID:           p.Tracker.RunID,
			GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
			ChunksProcessed: res.ChunksProcessed,
			ChunksPlanned:   res.ChunksPlanned,
		}
	}
	return profile
}

func (p Pipeline) appendLog(rec UnitRecord) {
	if p.RunLog == nil {
		return
	}
	if p.Tracker != nil {
		rec.RunID = p.Tracker.RunID
	}
	if err := p.RunLog.Append(rec); err != nil {
		p.logf("run log append failed: %v", err)
	}
}

func (p Pipeline) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

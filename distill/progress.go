package distill

import (
	"time"

	"github.com/google/uuid"
)

// rollingWindow is how many recent unit durations feed the rolling average.
const rollingWindow = 10

// Tracker accumulates timing and cost observations for one run. It is purely
// observational: nothing in the pipeline branches on its state. The pipeline
// is single-threaded, so the tracker is not safe for concurrent use.
type Tracker struct {
	// RunID identifies this run in progress lines, run-log rows, and
	// profile metadata.
	RunID string

	// PricePerToken converts observed token usage into an estimated cost.
	PricePerToken float64

	start        time.Time
	unitTimes    []time.Duration
	unitsDone    int
	unitsFailed  int
	unitsSkipped int
	totalTokens  int64
	charsDone    int
}

// NewTracker starts a tracker with a fresh run ID.
func NewTracker(pricePerToken float64) *Tracker {
	return &Tracker{
		RunID:         uuid.NewString(),
		PricePerToken: pricePerToken,
		start:         time.Now(),
	}
}

// ObserveUnit records one successfully summarized chunk.
func (t *Tracker) ObserveUnit(elapsed time.Duration, chunkChars int, tokens int64) {
	if t == nil {
		return
	}
	t.unitTimes = append(t.unitTimes, elapsed)
	t.unitsDone++
	t.charsDone += chunkChars
	t.totalTokens += tokens
}

// ObserveFailure records a unit that failed even after the retry.
func (t *Tracker) ObserveFailure() {
	if t == nil {
		return
	}
	t.unitsFailed++
}

// ObserveSkip records a unit passed over by the sampling policy.
func (t *Tracker) ObserveSkip() {
	if t == nil {
		return
	}
	t.unitsSkipped++
}

// AddTokens records token usage outside the unit loop (combine requests).
func (t *Tracker) AddTokens(n int64) {
	if t == nil {
		return
	}
	t.totalTokens += n
}

// RollingAvg is the average duration of the most recent units (up to
// rollingWindow of them). Zero until the first unit completes.
func (t *Tracker) RollingAvg() time.Duration {
	if t == nil || len(t.unitTimes) == 0 {
		return 0
	}
	times := t.unitTimes
	if len(times) > rollingWindow {
		times = times[len(times)-rollingWindow:]
	}
	var sum time.Duration
	for _, d := range times {
		sum += d
	}
	return sum / time.Duration(len(times))
}

// EstimatedRemaining projects time left from observed time-per-character.
func (t *Tracker) EstimatedRemaining(remainingChars int) time.Duration {
	if t == nil || t.charsDone <= 0 || remainingChars <= 0 {
		return 0
	}
	var total time.Duration
	for _, d := range t.unitTimes {
		total += d
	}
	perChar := float64(total) / float64(t.charsDone)
	return time.Duration(perChar * float64(remainingChars))
}

// Cost is the running cost estimate: observed tokens × price per token.
func (t *Tracker) Cost() float64 {
	if t == nil {
		return 0
	}
	return float64(t.totalTokens) * t.PricePerToken
}

// Elapsed is wall-clock time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration {
	if t == nil {
		return 0
	}
	return time.Since(t.start)
}

func (t *Tracker) UnitsDone() int {
	if t == nil {
		return 0
	}
	return t.unitsDone
}

func (t *Tracker) UnitsFailed() int {
	if t == nil {
		return 0
	}
	return t.unitsFailed
}

func (t *Tracker) UnitsSkipped() int {
	if t == nil {
		return 0
	}
	return t.unitsSkipped
}

// TotalTokens is the observed token usage across unit and combine requests.
func (t *Tracker) TotalTokens() int64 {
	if t == nil {
		return 0
	}
	return t.totalTokens
}

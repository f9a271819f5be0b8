package distill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

const validProfileJSON = `{"tone":["wry"],"style":["terse"],"common_phrases":["fair enough"],"preferred_topics":["go"]}`

func TestReduce_EmptyInputNoCalls(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{}
	r := Reducer{Oracle: oracle}

	p, err := r.Reduce(context.Background(), nil)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !p.IsEmpty() {
		t.Fatalf("profile should be empty: %+v", p)
	}
	if p.Tone == nil || p.Style == nil {
		t.Fatalf("empty profile should be normalized")
	}
	if oracle.callCount() != 0 {
		t.Fatalf("calls=%d want 0", oracle.callCount())
	}
}

func TestReduce_SingleWellFormedSummaryNoCalls(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{}
	r := Reducer{Oracle: oracle}

	p, err := r.Reduce(context.Background(), []string{validProfileJSON})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(p.Tone) != 1 || p.Tone[0] != "wry" {
		t.Fatalf("Tone=%v", p.Tone)
	}
	if oracle.callCount() != 0 {
		t.Fatalf("calls=%d want 0", oracle.callCount())
	}
}

func TestReduce_SingleRawSummaryOneConsolidate(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{
		respond: func(int, Request) (Generation, error) {
			return Generation{Text: validProfileJSON}, nil
		},
	}
	r := Reducer{Oracle: oracle}

	p, err := r.Reduce(context.Background(), []string{"the user writes tersely about go"})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(p.Style) != 1 || p.Style[0] != "terse" {
		t.Fatalf("Style=%v", p.Style)
	}
	if oracle.callCount() != 1 {
		t.Fatalf("calls=%d want 1", oracle.callCount())
	}
	if !strings.Contains(oracle.calls[0].Prompt, "Consolidate") {
		t.Fatalf("expected consolidate prompt, got %q", oracle.calls[0].Prompt[:40])
	}
}

func TestReduce_TwentyFiveSummariesBatchTen(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{
		respond: func(int, Request) (Generation, error) {
			return Generation{Text: validProfileJSON, TokensUsed: 100}, nil
		},
	}
	tracker := NewTracker(0.000002)
	r := Reducer{Oracle: oracle, BatchSize: 10, Tracker: tracker}

	summaries := make([]string, 25)
	for i := range summaries {
		summaries[i] = fmt.Sprintf("summary %d", i)
	}

	p, err := r.Reduce(context.Background(), summaries)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if p.IsEmpty() {
		t.Fatalf("profile should not be empty")
	}
	// 25 leaves: groups of 10/10/5 (3 calls), then 3 partials in one final
	// combine (1 call).
	if oracle.callCount() != 4 {
		t.Fatalf("calls=%d want 4", oracle.callCount())
	}
	if tracker.TotalTokens() != 400 {
		t.Fatalf("TotalTokens=%d want 400", tracker.TotalTokens())
	}

	for i := 0; i < 3; i++ {
		if got := len(oracle.calls[i].Prompt); !strings.Contains(oracle.calls[i].Prompt, "Summary 1:") {
			t.Fatalf("call %d not a combine prompt (len=%d)", i, got)
		}
	}
	if !strings.Contains(oracle.calls[3].Prompt, "Summary 3:") {
		t.Fatalf("final combine should carry 3 partials")
	}
	if strings.Contains(oracle.calls[3].Prompt, "Summary 4:") {
		t.Fatalf("final combine should not carry more than 3 partials")
	}
}

func TestReduce_AtMostBatchSingleCombine(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{
		respond: func(int, Request) (Generation, error) {
			return Generation{Text: validProfileJSON}, nil
		},
	}
	r := Reducer{Oracle: oracle, BatchSize: 10}

	if _, err := r.Reduce(context.Background(), make([]string, 10)); err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if oracle.callCount() != 1 {
		t.Fatalf("calls=%d want 1", oracle.callCount())
	}
}

func TestReduce_GarbageResponsesDegradeToEmpty(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{
		respond: func(int, Request) (Generation, error) {
			return Generation{Text: "no json here, sorry"}, nil
		},
	}
	r := Reducer{Oracle: oracle, BatchSize: 10}

	p, err := r.Reduce(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !p.IsEmpty() {
		t.Fatalf("profile should degrade to empty: %+v", p)
	}
	if p.Tone == nil || p.PreferredTopics == nil {
		t.Fatalf("degraded profile should still carry all keys")
	}
}

func TestReduce_OracleErrorDegradesNodeNotRun(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{
		respond: func(n int, _ Request) (Generation, error) {
			// First group fails outright; everything else succeeds.
			if n == 1 {
				return Generation{}, errors.New("boom")
			}
			return Generation{Text: validProfileJSON}, nil
		},
	}
	r := Reducer{Oracle: oracle, BatchSize: 2}

	p, err := r.Reduce(context.Background(), []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if p.IsEmpty() {
		t.Fatalf("surviving nodes should still produce content")
	}
	// Two groups plus one final combine.
	if oracle.callCount() != 3 {
		t.Fatalf("calls=%d want 3", oracle.callCount())
	}
}

func TestReduce_ContextCancellationStopsRun(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	oracle := &fakeOracle{
		respond: func(int, Request) (Generation, error) {
			cancel()
			return Generation{}, context.Canceled
		},
	}
	r := Reducer{Oracle: oracle, BatchSize: 2, Cooldown: time.Millisecond}

	_, err := r.Reduce(ctx, []string{"a", "b", "c"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestReduce_Misconfiguration(t *testing.T) {
	t.Parallel()

	if _, err := (Reducer{}).Reduce(context.Background(), []string{"a"}); err == nil {
		t.Fatalf("expected error for nil oracle")
	}
	if _, err := (Reducer{Oracle: &fakeOracle{}, BatchSize: 1}).Reduce(context.Background(), []string{"a"}); err == nil {
		t.Fatalf("expected error for batch size 1")
	}
}

package distill

import (
	"path/filepath"
	"testing"
)

func TestMergeLexicon_TalliesAndOrders(t *testing.T) {
	t.Parallel()

	var l Lexicon
	MergeLexicon(&l, 0, "Honestly, honestly — the compiler is right. Honestly!")
	MergeLexicon(&l, 2, "The compiler disagrees.")

	if l.Version != 1 {
		t.Fatalf("Version=%d", l.Version)
	}

	byPhrase := map[string]LexiconEntry{}
	for _, e := range l.Entries {
		byPhrase[e.Phrase] = e
	}
	if e := byPhrase["honestly"]; e.Count != 3 || e.FirstChunk != 0 || e.LastChunk != 0 {
		t.Fatalf("honestly=%+v", e)
	}
	if e := byPhrase["compiler"]; e.Count != 2 || e.FirstChunk != 0 || e.LastChunk != 2 {
		t.Fatalf("compiler=%+v", e)
	}
	if _, ok := byPhrase["is"]; ok {
		t.Fatalf("short words should be dropped")
	}

	// Highest count first, ties broken by phrase.
	if l.Entries[0].Phrase != "honestly" || l.Entries[1].Phrase != "compiler" {
		t.Fatalf("order=%q,%q", l.Entries[0].Phrase, l.Entries[1].Phrase)
	}
}

func TestCullLexicon(t *testing.T) {
	t.Parallel()

	var l Lexicon
	MergeLexicon(&l, 0, "alpha alpha alpha beta beta gamma")
	CullLexicon(&l, 2)

	if len(l.Entries) != 2 {
		t.Fatalf("entries=%v", l.Entries)
	}
	for _, e := range l.Entries {
		if e.Count < 2 {
			t.Fatalf("culled entry survived: %+v", e)
		}
	}
}

func TestTopPhrases(t *testing.T) {
	t.Parallel()

	var l Lexicon
	MergeLexicon(&l, 0, "alpha alpha alpha beta beta gamma delta delta delta delta")

	got := l.TopPhrases(2, 2)
	if len(got) != 2 || got[0] != "delta" || got[1] != "alpha" {
		t.Fatalf("TopPhrases=%v", got)
	}

	if got := l.TopPhrases(10, 4); len(got) != 1 || got[0] != "delta" {
		t.Fatalf("TopPhrases min 4=%v", got)
	}
}

func TestLoadLexicon_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	l, err := LoadLexicon(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	if l.Version != 1 || len(l.Entries) != 0 {
		t.Fatalf("lexicon=%+v", l)
	}
}

func TestSaveLoadLexicon_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lexicon.json")

	var l Lexicon
	MergeLexicon(&l, 1, "repeat repeat repeat once")
	if err := SaveLexicon(path, l); err != nil {
		t.Fatalf("SaveLexicon: %v", err)
	}

	got, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	if len(got.Entries) != len(l.Entries) {
		t.Fatalf("entries=%d want %d", len(got.Entries), len(l.Entries))
	}
	if got.Entries[0].Phrase != "repeat" || got.Entries[0].Count != 3 {
		t.Fatalf("first=%+v", got.Entries[0])
	}
}

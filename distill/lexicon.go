package distill

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// Lexicon is a deterministic cross-chunk tally of the words the user leans
// on. It is computed offline (no oracle involvement), backs the
// common_phrases fallback when the oracle yields none, and is persisted
// beside the profile for inspection.
type Lexicon struct {
	Version int            `json:"version"`
	Entries []LexiconEntry `json:"entries"`
}

// LexiconEntry is one tallied word/phrase.
type LexiconEntry struct {
	Phrase     string `json:"phrase"`
	Count      int    `json:"count"`
	FirstChunk int    `json:"first_chunk"`
	LastChunk  int    `json:"last_chunk"`
}

const lexiconMinPhraseLen = 3

// MergeLexicon tallies the words of one chunk into the lexicon and restores
// the canonical ordering (highest count first, then phrase).
func MergeLexicon(l *Lexicon, chunkIndex int, text string) {
	if l == nil {
		return
	}
	if l.Version == 0 {
		l.Version = 1
	}
	if l.Entries == nil {
		l.Entries = []LexiconEntry{}
	}

	index := make(map[string]int, len(l.Entries))
	for i := range l.Entries {
		index[l.Entries[i].Phrase] = i
	}

	for _, w := range strings.Fields(text) {
		key := normalizeLexiconKey(w)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			e := &l.Entries[i]
			e.Count++
			e.LastChunk = chunkIndex
			continue
		}
		l.Entries = append(l.Entries, LexiconEntry{
			Phrase:     key,
			Count:      1,
			FirstChunk: chunkIndex,
			LastChunk:  chunkIndex,
		})
		index[key] = len(l.Entries) - 1
	}

	sort.SliceStable(l.Entries, func(i, j int) bool {
		if l.Entries[i].Count != l.Entries[j].Count {
			return l.Entries[i].Count > l.Entries[j].Count
		}
		return l.Entries[i].Phrase < l.Entries[j].Phrase
	})
}

// CullLexicon removes entries with Count < minCount.
func CullLexicon(l *Lexicon, minCount int) {
	if l == nil || minCount <= 1 {
		return
	}
	out := l.Entries[:0]
	for _, e := range l.Entries {
		if e.Count >= minCount {
			out = append(out, e)
		}
	}
	l.Entries = out
}

// TopPhrases returns up to n phrases with Count >= minCount, in canonical
// order.
func (l Lexicon) TopPhrases(n, minCount int) []string {
	out := make([]string, 0, n)
	for _, e := range l.Entries {
		if len(out) >= n && n > 0 {
			break
		}
		if e.Count >= minCount {
			out = append(out, e.Phrase)
		}
	}
	return out
}

func normalizeLexiconKey(w string) string {
	w = strings.ToLower(strings.Trim(w, ".,!?;:\"'()[]{}*_`"))
	if len([]rune(w)) < lexiconMinPhraseLen {
		return ""
	}
	return w
}

// LoadLexicon reads a lexicon JSON file. A missing file yields an empty
// lexicon.
func LoadLexicon(path string) (Lexicon, error) {
	if path == "" {
		return Lexicon{}, errors.New("LoadLexicon: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Lexicon{Version: 1, Entries: []LexiconEntry{}}, nil
		}
		return Lexicon{}, fmt.Errorf("LoadLexicon: read file: %w", err)
	}
	var l Lexicon
	if err := json.Unmarshal(b, &l); err != nil {
		return Lexicon{}, fmt.Errorf("LoadLexicon: unmarshal: %w", err)
	}
	if l.Version == 0 {
		l.Version = 1
	}
	if l.Entries == nil {
		l.Entries = []LexiconEntry{}
	}
	return l, nil
}

// SaveLexicon writes the lexicon JSON file atomically.
func SaveLexicon(path string, l Lexicon) error {
	if path == "" {
		return errors.New("SaveLexicon: path is empty")
	}
	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("SaveLexicon: marshal: %w", err)
	}
	if err := writeFileAtomicSameDir(path, b, 0o644); err != nil {
		return fmt.Errorf("SaveLexicon: write: %w", err)
	}
	return nil
}

package distill

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Profile is the final structured style profile distilled from a chat corpus.
// All list fields are always present after Normalize, even when empty, so
// downstream consumers never have to distinguish missing from empty.
type Profile struct {
	// Tone labels the overall emotional register (e.g. "wry", "earnest").
	Tone StringList `json:"tone"`

	// Style labels writing-style traits (e.g. "terse", "technical").
	Style StringList `json:"style"`

	// CommonPhrases are verbatim words/phrases the user leans on.
	CommonPhrases StringList `json:"common_phrases"`

	// PreferredTopics are recurring subjects across the corpus.
	PreferredTopics StringList `json:"preferred_topics"`

	// AvgSentenceLength and VocabularyRichness are computed offline from the
	// processed chunks; model-reported values are overwritten.
	AvgSentenceLength  float64 `json:"average_sentence_length"`
	VocabularyRichness float64 `json:"vocabulary_richness"`

	Meta *RunMeta `json:"meta,omitempty"`
}

// RunMeta records which run produced the profile.
type RunMeta struct {
	RunID           string `json:"run_id"`
	GeneratedAt     string `json:"generated_at"`
	ChunksProcessed int    `json:"chunks_processed"`
	ChunksPlanned   int    `json:"chunks_planned"`
}

// StringList decodes model output that should be a JSON string array but is
// frequently a single comma/"and"-joined string, or a scalar. Anything
// non-empty is coerced to a flat list of trimmed strings.
type StringList []string

var listSepRe = regexp.MustCompile(`\s*(?:,|\band\b)\s*`)

func (l *StringList) UnmarshalJSON(b []byte) error {
	var arr []any
	if err := json.Unmarshal(b, &arr); err == nil {
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = splitListString(s)
		return nil
	}

	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*l = StringList{}
		return nil
	}
	*l = StringList{fmt.Sprintf("%v", v)}
	return nil
}

func splitListString(s string) StringList {
	out := StringList{}
	for _, part := range listSepRe.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// EmptyProfile returns a profile with every recognized key present and empty.
func EmptyProfile() Profile {
	return Profile{}.Normalize()
}

// Normalize returns a copy with all list fields non-nil so serialized
// profiles always carry the full key set.
func (p Profile) Normalize() Profile {
	if p.Tone == nil {
		p.Tone = StringList{}
	}
	if p.Style == nil {
		p.Style = StringList{}
	}
	if p.CommonPhrases == nil {
		p.CommonPhrases = StringList{}
	}
	if p.PreferredTopics == nil {
		p.PreferredTopics = StringList{}
	}
	return p
}

// IsEmpty reports whether the profile carries no distilled content.
func (p Profile) IsEmpty() bool {
	return len(p.Tone) == 0 &&
		len(p.Style) == 0 &&
		len(p.CommonPhrases) == 0 &&
		len(p.PreferredTopics) == 0 &&
		p.AvgSentenceLength == 0 &&
		p.VocabularyRichness == 0
}

// Summary re-serializes the profile so it can feed the next reduction pass as
// a plain summary string. Run metadata is not part of partial summaries.
func (p Profile) Summary() (string, error) {
	p = p.Normalize()
	p.Meta = nil
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("serialize profile summary: %w", err)
	}
	return string(b), nil
}

// ParseProfileStrict parses raw as exactly one JSON profile object with no
// surrounding text. Callers that need tolerance use ParseProfile.
func ParseProfileStrict(raw string) (Profile, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "{") {
		return Profile{}, errors.New("not a JSON object")
	}
	var p Profile
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Profile{}, err
	}
	return p.Normalize(), nil
}

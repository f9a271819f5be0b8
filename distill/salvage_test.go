package distill

import (
	"errors"
	"testing"
)

func TestParseProfile_Strict(t *testing.T) {
	t.Parallel()

	p, err := ParseProfile(`{"tone":["wry"],"style":["terse"],"common_phrases":[],"preferred_topics":["go"]}`)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if len(p.Tone) != 1 || p.Tone[0] != "wry" {
		t.Fatalf("Tone=%v", p.Tone)
	}
	if p.CommonPhrases == nil {
		t.Fatalf("CommonPhrases should be normalized non-nil")
	}
}

func TestParseProfile_SalvagesProseWrappedJSON(t *testing.T) {
	t.Parallel()

	raw := `Sure! Here's the combined profile you asked for:

{"tone": ["enthusiastic"], "style": ["casual"], "common_phrases": ["to be fair"], "preferred_topics": ["cooking"]}

Let me know if you'd like adjustments.`

	p, err := ParseProfile(raw)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if len(p.Tone) != 1 || p.Tone[0] != "enthusiastic" {
		t.Fatalf("Tone=%v", p.Tone)
	}
	if len(p.CommonPhrases) != 1 || p.CommonPhrases[0] != "to be fair" {
		t.Fatalf("CommonPhrases=%v", p.CommonPhrases)
	}
}

func TestParseProfile_SalvagesFencedBlock(t *testing.T) {
	t.Parallel()

	raw := "Here you go:\n```json\n{\"tone\": [\"dry\"], \"style\": [], \"common_phrases\": [], \"preferred_topics\": []}\n```\n"
	p, err := ParseProfile(raw)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if len(p.Tone) != 1 || p.Tone[0] != "dry" {
		t.Fatalf("Tone=%v", p.Tone)
	}
}

func TestParseProfile_FencedBlockWithBracesInProse(t *testing.T) {
	t.Parallel()

	// The brace-substring pass grabs from the first '{' in the prose, which
	// is invalid JSON; the fenced pass must still recover the object.
	raw := "Note: fields {like these} are illustrative.\n```json\n{\"tone\": [\"calm\"], \"style\": [], \"common_phrases\": [], \"preferred_topics\": []}\n```"
	p, err := ParseProfile(raw)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if len(p.Tone) != 1 || p.Tone[0] != "calm" {
		t.Fatalf("Tone=%v", p.Tone)
	}
}

func TestParseProfile_StringCoercedFields(t *testing.T) {
	t.Parallel()

	raw := `{"tone": "wry, earnest", "style": ["plain"], "common_phrases": [], "preferred_topics": "go and sql"}`
	p, err := ParseProfile(raw)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if len(p.Tone) != 2 || p.Tone[0] != "wry" || p.Tone[1] != "earnest" {
		t.Fatalf("Tone=%v", p.Tone)
	}
	if len(p.PreferredTopics) != 2 || p.PreferredTopics[0] != "go" {
		t.Fatalf("PreferredTopics=%v", p.PreferredTopics)
	}
}

func TestParseProfile_Unparseable(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"   \n\t  ",
		"I could not produce a profile for this text.",
		"{\"tone\": [\"wry\"",
		"``` not json ```",
	} {
		if _, err := ParseProfile(raw); !errors.Is(err, ErrUnparseable) {
			t.Fatalf("ParseProfile(%q) err=%v want ErrUnparseable", raw, err)
		}
	}
}

func TestParseProfileStrict_RejectsWrappedJSON(t *testing.T) {
	t.Parallel()

	if _, err := ParseProfileStrict(`prose {"tone": []} prose`); err == nil {
		t.Fatalf("expected strict parse to reject wrapped JSON")
	}
}

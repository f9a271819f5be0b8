package distill

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExportOptions controls conversion of an OpenAI conversations export into a
// user-message corpus.
type ExportOptions struct {
	// ArrayField is the JSON field name that contains the conversation array
	// when the top-level JSON value is an object. If empty, the first
	// array-valued field is used.
	ArrayField string
}

// ExportStats are basic stats from a conversion run.
type ExportStats struct {
	Conversations int
	Messages      int
}

// corpusHeader opens every converted corpus; UserMessages relies on the
// "You:" line convention that follows it.
const corpusHeader = "# User Chat History\n\n"

// WriteUserCorpus streams a conversations export into a Markdown corpus of
// the user's own messages, one "**You:** …" block per message, written
// atomically. The export is typically far larger than memory allows, so the
// input is never fully loaded.
func WriteUserCorpus(ctx context.Context, inputPath, outPath string, opts ExportOptions) (ExportStats, error) {
	if outPath == "" {
		return ExportStats{}, errors.New("WriteUserCorpus: outPath is empty")
	}
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportStats{}, fmt.Errorf("WriteUserCorpus: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp_corpus_*.md")
	if err != nil {
		return ExportStats{}, fmt.Errorf("WriteUserCorpus: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	w := bufio.NewWriterSize(tmp, 1<<20)
	if _, err := w.WriteString(corpusHeader); err != nil {
		_ = tmp.Close()
		return ExportStats{}, err
	}

	stats, err := forEachUserMessage(ctx, inputPath, opts, func(msg string) error {
		_, werr := fmt.Fprintf(w, "**You:** %s\n\n", strings.TrimSpace(msg))
		return werr
	})
	if err != nil {
		_ = tmp.Close()
		return ExportStats{}, err
	}

	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return ExportStats{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return ExportStats{}, err
	}
	if err := tmp.Close(); err != nil {
		return ExportStats{}, err
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return ExportStats{}, fmt.Errorf("WriteUserCorpus: rename: %w", err)
	}
	return stats, nil
}

// ReadUserCorpus is WriteUserCorpus without the file: it streams the export
// and returns the corpus as a string, for single-shot pipeline runs.
func ReadUserCorpus(ctx context.Context, inputPath string, opts ExportOptions) (string, ExportStats, error) {
	var b strings.Builder
	b.WriteString(corpusHeader)
	stats, err := forEachUserMessage(ctx, inputPath, opts, func(msg string) error {
		fmt.Fprintf(&b, "**You:** %s\n\n", strings.TrimSpace(msg))
		return nil
	})
	if err != nil {
		return "", ExportStats{}, err
	}
	return b.String(), stats, nil
}

// forEachUserMessage streams the export with a json.Decoder (the export is
// typically one huge line) and calls fn for every user-authored message in
// chronological order within each conversation.
func forEachUserMessage(ctx context.Context, inputPath string, opts ExportOptions, fn func(msg string) error) (ExportStats, error) {
	if ctx == nil {
		return ExportStats{}, errors.New("forEachUserMessage: ctx is nil")
	}
	if inputPath == "" {
		return ExportStats{}, errors.New("forEachUserMessage: inputPath is empty")
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return ExportStats{}, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReaderSize(f, 1<<20))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return ExportStats{}, fmt.Errorf("read first token: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return ExportStats{}, fmt.Errorf("expected JSON array/object, got %T", tok)
	}

	var stats ExportStats
	switch delim {
	case '[':
		if err := walkConversationArray(ctx, dec, fn, &stats); err != nil {
			return ExportStats{}, err
		}
		if err := consumeClose(dec, ']'); err != nil {
			return ExportStats{}, err
		}
		return stats, nil
	case '{':
		foundArray := false
		for dec.More() {
			select {
			case <-ctx.Done():
				return ExportStats{}, ctx.Err()
			default:
			}

			keyTok, err := dec.Token()
			if err != nil {
				return ExportStats{}, fmt.Errorf("read object key: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return ExportStats{}, fmt.Errorf("expected string key, got %T", keyTok)
			}

			valTok, err := dec.Token()
			if err != nil {
				return ExportStats{}, fmt.Errorf("read value for key %q: %w", key, err)
			}

			isTarget := opts.ArrayField != "" && key == opts.ArrayField
			if !isTarget && opts.ArrayField == "" && !foundArray {
				if d, ok := valTok.(json.Delim); ok && d == '[' {
					isTarget = true
				}
			}

			if isTarget {
				d, ok := valTok.(json.Delim)
				if !ok || d != '[' {
					return ExportStats{}, fmt.Errorf("key %q chosen as array but value isn't an array", key)
				}
				foundArray = true
				if err := walkConversationArray(ctx, dec, fn, &stats); err != nil {
					return ExportStats{}, err
				}
				if err := consumeClose(dec, ']'); err != nil {
					return ExportStats{}, err
				}
				continue
			}

			if err := skipValue(dec, valTok); err != nil {
				return ExportStats{}, fmt.Errorf("skip key %q value: %w", key, err)
			}
		}
		if err := consumeClose(dec, '}'); err != nil {
			return ExportStats{}, err
		}
		if !foundArray {
			return ExportStats{}, errors.New("no conversations array found in top-level object")
		}
		return stats, nil
	default:
		return ExportStats{}, fmt.Errorf("unsupported top-level delimiter %q", delim)
	}
}

func walkConversationArray(ctx context.Context, dec *json.Decoder, fn func(msg string) error, stats *ExportStats) error {
	for dec.More() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode conversation element: %w", err)
		}

		msgs, err := userMessagesFromConversation(raw)
		if err != nil {
			return err
		}
		stats.Conversations++
		for _, m := range msgs {
			stats.Messages++
			if err := fn(m); err != nil {
				return err
			}
		}
	}
	return nil
}

type exportConversation struct {
	ConversationID string                `json:"conversation_id"`
	ID             string                `json:"id"`
	Mapping        map[string]exportNode `json:"mapping"`
}

type exportNode struct {
	Message *exportMessage `json:"message"`
}

type exportMessage struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime *float64        `json:"create_time"`
	Content    json.RawMessage `json:"content"`
}

// userMessagesFromConversation pulls user-authored text out of a
// conversation's mapping graph. Map iteration order is arbitrary, so nodes
// are ordered by create_time (stable on the node key) before extraction.
func userMessagesFromConversation(raw json.RawMessage) ([]string, error) {
	var conv exportConversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	if len(conv.Mapping) == 0 {
		// Malformed or empty conversation; skip rather than fail the run.
		return nil, nil
	}

	type nodeRef struct {
		key string
		msg *exportMessage
	}
	refs := make([]nodeRef, 0, len(conv.Mapping))
	for key, n := range conv.Mapping {
		if n.Message == nil || n.Message.Author.Role != "user" {
			continue
		}
		refs = append(refs, nodeRef{key: key, msg: n.Message})
	}
	sort.SliceStable(refs, func(i, j int) bool {
		ti, tj := refs[i].msg.CreateTime, refs[j].msg.CreateTime
		switch {
		case ti == nil && tj == nil:
			return refs[i].key < refs[j].key
		case ti == nil:
			return false
		case tj == nil:
			return true
		case *ti != *tj:
			return *ti < *tj
		}
		return refs[i].key < refs[j].key
	})

	var out []string
	for _, ref := range refs {
		if text := extractMessageText(ref.msg.Content); strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	return out, nil
}

// extractMessageText handles the two content shapes seen in exports:
// a bare string, or { "content_type": ..., "parts": [...] } with string
// parts.
func extractMessageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var probe struct {
		Parts []any  `json:"parts"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}

	var parts []string
	for _, p := range probe.Parts {
		if ps, ok := p.(string); ok && strings.TrimSpace(ps) != "" {
			parts = append(parts, ps)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	return probe.Text
}

func consumeClose(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read closing token: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected closing %q, got %v", want, tok)
	}
	return nil
}

func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok {
		// Primitive (string/number/bool/null): already fully consumed.
		return nil
	}

	switch d {
	case '{', '[':
	default:
		return fmt.Errorf("skipValue: unexpected delimiter %q", d)
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

package distill

import (
	"strings"
	"testing"
)

func TestChunkText_PartitionsExactly(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 15000)
	chunks := ChunkText(text, 6000)

	if len(chunks) != 3 {
		t.Fatalf("len=%d want 3", len(chunks))
	}
	wantLens := []int{6000, 6000, 3000}
	var rebuilt strings.Builder
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has Index=%d", i, c.Index)
		}
		if len([]rune(c.Text)) != wantLens[i] {
			t.Fatalf("chunk %d len=%d want %d", i, len([]rune(c.Text)), wantLens[i])
		}
		rebuilt.WriteString(c.Text)
	}
	if rebuilt.String() != text {
		t.Fatalf("concatenated chunks do not reproduce input")
	}
}

func TestChunkText_ExactMultiple(t *testing.T) {
	t.Parallel()

	chunks := ChunkText(strings.Repeat("x", 12000), 6000)
	if len(chunks) != 2 {
		t.Fatalf("len=%d want 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) != 6000 {
			t.Fatalf("chunk %d len=%d", i, len(c.Text))
		}
	}
}

func TestChunkText_ShortInputSingleChunk(t *testing.T) {
	t.Parallel()

	chunks := ChunkText("hello", 6000)
	if len(chunks) != 1 || chunks[0].Text != "hello" || chunks[0].Index != 0 {
		t.Fatalf("chunks=%+v", chunks)
	}
}

func TestChunkText_EmptyAndInvalid(t *testing.T) {
	t.Parallel()

	if got := ChunkText("", 6000); got != nil {
		t.Fatalf("empty text: got %+v", got)
	}
	if got := ChunkText("abc", 0); got != nil {
		t.Fatalf("zero size: got %+v", got)
	}
	if got := ChunkText("abc", -1); got != nil {
		t.Fatalf("negative size: got %+v", got)
	}
}

func TestChunkText_NeverSplitsRunes(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("héllo wörld ", 100)
	chunks := ChunkText(text, 7)

	var rebuilt strings.Builder
	for _, c := range chunks {
		if strings.ContainsRune(c.Text, '�') {
			t.Fatalf("chunk %d contains replacement char: %q", c.Index, c.Text)
		}
		if n := len([]rune(c.Text)); n > 7 {
			t.Fatalf("chunk %d rune len=%d exceeds limit", c.Index, n)
		}
		rebuilt.WriteString(c.Text)
	}
	if rebuilt.String() != text {
		t.Fatalf("concatenated chunks do not reproduce input")
	}
}

package distill

// Chunk is one bounded-size contiguous slice of the corpus.
type Chunk struct {
	// Index is the 0-based position of the chunk within the corpus.
	Index int
	Text  string
}

// ChunkText splits text into contiguous chunks of at most chunkSize runes.
// Chunks partition the corpus exactly: no gaps, no overlaps, no reordering,
// and concatenating them in index order reproduces the input. Only the final
// chunk may be shorter than chunkSize. Empty text yields no chunks; callers
// validate chunkSize > 0 at the configuration boundary.
//
// Splitting is rune-based so a multi-byte UTF-8 sequence is never cut in two.
func ChunkText(text string, chunkSize int) []Chunk {
	if text == "" || chunkSize <= 0 {
		return nil
	}

	runes := []rune(text)
	chunks := make([]Chunk, 0, (len(runes)+chunkSize-1)/chunkSize)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
		})
	}
	return chunks
}

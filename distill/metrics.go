package distill

import (
	"regexp"
	"strings"
)

// TextMetrics are style metrics computed directly from the corpus, with no
// oracle involvement. They overwrite whatever numbers the oracle reports,
// since the oracle only ever sees one chunk or summary group at a time.
type TextMetrics struct {
	AvgSentenceLength  float64
	VocabularyRichness float64
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+`)

// ComputeTextMetrics derives average words-per-sentence and unique-word ratio
// over the given chunks.
func ComputeTextMetrics(chunks []Chunk) TextMetrics {
	totalSentences := 0
	totalWords := 0
	unique := make(map[string]struct{})

	for _, c := range chunks {
		for _, s := range sentenceEndRe.Split(c.Text, -1) {
			if strings.TrimSpace(s) != "" {
				totalSentences++
			}
		}
		words := strings.Fields(c.Text)
		totalWords += len(words)
		for _, w := range words {
			unique[w] = struct{}{}
		}
	}

	var m TextMetrics
	if totalSentences > 0 {
		m.AvgSentenceLength = float64(totalWords) / float64(totalSentences)
	}
	if totalWords > 0 {
		m.VocabularyRichness = float64(len(unique)) / float64(totalWords)
	}
	return m
}

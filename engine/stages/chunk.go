package stages

import (
	"strings"
	"unicode"
)

const (
	// defaultChunkSize is the target number of tokens per chunk handed to
	// the cartographer's extraction prompt.
	defaultChunkSize = 512
	// defaultOverlap is the number of overlapping tokens carried between
	// consecutive chunks so a claim split across a chunk boundary still
	// has enough surrounding context to be extracted.
	defaultOverlap = 50
)

// TextChunk is one sliding-window slice of a document's text.
type TextChunk struct {
	Text  string
	Index int
}

// splitSentences splits text into sentences using punctuation and newlines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if r == '\n' || i == len(text)-1 || (i+1 < len(text) && unicode.IsSpace(rune(text[i+1]))) {
				s := strings.TrimSpace(current.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// chunkText groups text into overlapping windows of ~chunkSize tokens.
// Token count is approximated as word count.
func chunkText(text string, chunkSize, overlap int) []TextChunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []TextChunk
	idx := 0
	start := 0

	for start < len(sentences) {
		var buf strings.Builder
		tokens := 0
		end := start

		for end < len(sentences) {
			words := wordCount(sentences[end])
			if tokens+words > chunkSize && tokens > 0 {
				break
			}
			if buf.Len() > 0 {
				buf.WriteRune(' ')
			}
			buf.WriteString(sentences[end])
			tokens += words
			end++
		}

		chunks = append(chunks, TextChunk{Text: buf.String(), Index: idx})
		idx++
		if end >= len(sentences) {
			break
		}

		overlapTokens := 0
		newStart := end
		for newStart > start+1 && overlapTokens < overlap {
			newStart--
			overlapTokens += wordCount(sentences[newStart])
		}
		if newStart == start {
			start = end
		} else {
			start = newStart
		}
	}
	return chunks
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

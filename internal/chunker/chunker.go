// Package chunker splits document text into ordered, token-bounded chunks
// with character offsets into the original text.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Default sliding-window sizes in estimated tokens.
const (
	DefaultMaxTokens     = 400
	DefaultOverlapTokens = 50
)

// Chunk is one bounded span of a document's text. StartChar and EndChar are
// rune offsets into the original text, end exclusive.
type Chunk struct {
	Text       string
	Index      int
	TokenCount int
	StartChar  int
	EndChar    int
}

// Chunker splits text using a sliding window over rune offsets.
// The zero value is not usable; construct with New.
type Chunker struct {
	maxTokens     int
	overlapTokens int
}

// New creates a Chunker. Non-positive values fall back to the defaults;
// overlap is clamped below maxTokens so the window always advances.
func New(maxTokens, overlapTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapTokens < 0 {
		overlapTokens = DefaultOverlapTokens
	}
	if overlapTokens >= maxTokens {
		overlapTokens = maxTokens / 4
	}
	return &Chunker{maxTokens: maxTokens, overlapTokens: overlapTokens}
}

// EstimateTokens provides a rough token count: rune count divided by 2.
// Conservative for both English (~4 chars/token) and CJK (~1.5 chars/token).
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}

// Chunk splits text into ordered chunks. Empty or whitespace-only input
// yields no chunks. Consecutive chunks overlap by overlapTokens to preserve
// context across boundaries.
func (c *Chunker) Chunk(text string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	// Window sizes in runes; a token is estimated as 2 runes.
	window := c.maxTokens * 2
	step := window - c.overlapTokens*2

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := min(start+window, len(runes))

		// Avoid splitting mid-word: back off to the last space unless the
		// chunk would shrink below half the window.
		if end < len(runes) {
			if cut := lastBreak(runes, start, end); cut > start+window/2 {
				end = cut
			}
		}

		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, Chunk{
				Text:       piece,
				Index:      len(chunks),
				TokenCount: EstimateTokens(piece),
				StartChar:  start,
				EndChar:    end,
			})
		}

		if end == len(runes) {
			break
		}
		// Keep the step anchored to the actual chunk end so overlap stays
		// consistent after a word-boundary back-off.
		step = end - start - c.overlapTokens*2
		if step <= 0 {
			step = window / 2
		}
	}

	return chunks, nil
}

// lastBreak returns the rune offset just after the last whitespace in
// runes[start:end], or end if none is found.
func lastBreak(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		switch runes[i] {
		case ' ', '\n', '\t', '\r':
			return i + 1
		}
	}
	return end
}

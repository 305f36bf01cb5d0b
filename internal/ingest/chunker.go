package ingest

import (
	"strings"
	"unicode"

	"github.com/hyperjump/tansaku/internal/models"
)

// Chunker splits cleaned text into token-bounded, overlapping chunks.
// A token is a whitespace-delimited word; the same rule is used for the
// chunk budget, the recorded token count, and the overlap seed.
type Chunker struct {
	chunkSize   int
	overlapSize int
}

// NewChunker creates a chunker with the given chunk and overlap token budgets.
func NewChunker(chunkSize, overlapSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlapSize < 0 {
		overlapSize = 0
	}
	return &Chunker{chunkSize: chunkSize, overlapSize: overlapSize}
}

// CountTokens returns the token count of text under the chunker's
// tokenization rule.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// Chunk splits cleaned text into ordered chunks for one source.
// Sentences are accumulated greedily; a chunk closes before the sentence
// that would push it past the budget, and the next chunk is seeded with
// the trailing overlapSize words of the closed chunk. A single sentence
// longer than the budget is emitted as one oversized chunk rather than
// being split further.
func (c *Chunker) Chunk(text, source string) ([]models.Chunk, error) {
	sentences := splitSentences(text)
	var chunks []models.Chunk
	current := ""
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		candidate := sentence
		if current != "" {
			candidate = current + " " + sentence
		}
		if CountTokens(candidate) > c.chunkSize && current != "" {
			chunk, err := models.NewChunk(source, current, CountTokens(current), len(chunks))
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, chunk)

			overlap := c.overlapText(current)
			if overlap != "" {
				current = overlap + " " + sentence
			} else {
				current = sentence
			}
		} else {
			current = candidate
		}
	}
	if strings.TrimSpace(current) != "" {
		chunk, err := models.NewChunk(source, current, CountTokens(current), len(chunks))
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// overlapText returns the trailing overlapSize words of a closed chunk,
// or "" when the chunk has no more words than the overlap budget.
func (c *Chunker) overlapText(text string) string {
	if c.overlapSize == 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= c.overlapSize {
		return ""
	}
	return strings.Join(words[len(words)-c.overlapSize:], " ")
}

// splitSentences splits text at sentence-terminal punctuation followed
// by whitespace. The terminator stays with its sentence. Text without a
// terminal boundary comes back as a single sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			// Consume a run of terminal punctuation.
			end := i
			for end+1 < len(runes) && isTerminal(runes[end+1]) {
				end++
			}
			if end+1 >= len(runes) || unicode.IsSpace(runes[end+1]) {
				sentences = append(sentences, string(runes[start:end+1]))
				i = end + 1
				for i < len(runes) && unicode.IsSpace(runes[i]) {
					i++
				}
				start = i
				i--
			} else {
				i = end
			}
		}
	}
	if start < len(runes) {
		tail := strings.TrimSpace(string(runes[start:]))
		if tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

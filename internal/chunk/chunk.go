// Package chunk splits document text into overlapping windows for indexing.
//
// Splitting is a pure function of the input text and the splitter
// configuration: the same text always produces byte-identical chunk
// boundaries. Offsets are measured in runes so multi-byte text never
// splits inside a character.
package chunk

import "fmt"

// Default window configuration. Roughly 800 characters keeps a chunk
// within one embedding call while 150 characters of overlap preserves
// context across boundaries.
const (
	DefaultSize    = 800
	DefaultOverlap = 150
)

// Chunk is one window of the source text.
type Chunk struct {
	Text string
	// StartIndex is the rune offset of the window in the source text.
	StartIndex int
}

// Splitter produces overlapping fixed-budget windows.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a splitter with the given character budget and overlap.
// The overlap must be smaller than the size or the window would never advance.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d with size %d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// NewDefaultSplitter creates a splitter with DefaultSize and DefaultOverlap.
func NewDefaultSplitter() *Splitter {
	s, err := NewSplitter(DefaultSize, DefaultOverlap)
	if err != nil {
		// Defaults are compile-time constants that satisfy NewSplitter.
		panic(err)
	}
	return s
}

// Split cuts text into windows of at most size runes, each starting
// size-overlap runes after the previous one, in source order.
//
// Text shorter than the budget yields exactly one chunk. Empty text yields
// zero chunks; callers decide whether that is a failure.
func (s *Splitter) Split(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.size - s.overlap
	chunks := make([]Chunk, 0, (len(runes)+step-1)/step)

	for start := 0; ; start += step {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:       string(runes[start:end]),
			StartIndex: start,
		})
		if end == len(runes) {
			return chunks
		}
	}
}

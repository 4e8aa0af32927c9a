package ingestion

import "fmt"

// Chunker splits text into overlapping fixed-size rune windows. Window i
// starts at i*(size-overlap), so adjacent chunks share exactly overlap runes
// except possibly the final, shorter one.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window parameters. Size must be strictly greater
// than overlap or the window start never advances.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if size <= overlap {
		return nil, fmt.Errorf("chunk size %d must exceed overlap %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk covers the whole text contiguously; empty text yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

package docindex

import "strings"

// Chunker splits document text into overlapping passages. Splits happen on
// line boundaries so no passage starts or ends mid-line.
type Chunker struct {
	size    int // target passage size in bytes
	overlap int // bytes of trailing context repeated at the next passage start
}

// NewChunker creates a chunker. Non-positive arguments fall back to a 2000
// byte passage size with one fifth overlap.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 2000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits content into passages.
func (c *Chunker) Chunk(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if len(content) <= c.size {
		return []string{content}
	}

	lines := strings.Split(content, "\n")

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, "\n"))

		// Carry trailing lines into the next chunk as overlap.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			lineLen := len(current[i]) + 1
			if carryLen+lineLen > c.overlap {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryLen += lineLen
		}
		current = carry
		currentLen = carryLen
	}

	for _, line := range lines {
		lineLen := len(line) + 1

		if currentLen > 0 && currentLen+lineLen > c.size {
			flush()
		}

		// A single line longer than the chunk size becomes its own chunk.
		if lineLen > c.size && currentLen == 0 {
			chunks = append(chunks, line)
			continue
		}

		current = append(current, line)
		currentLen += lineLen
	}

	if len(current) > 0 && currentLen > 0 {
		last := strings.Join(current, "\n")
		// Skip a trailing chunk that is pure overlap of the previous one.
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], last) {
			chunks = append(chunks, last)
		}
	}

	return chunks
}

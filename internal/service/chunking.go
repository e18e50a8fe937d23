package service

import (
	"fmt"
	"strings"
)

// ChunkConfig controls the fixed-window splitting of extracted document text.
type ChunkConfig struct {
	WindowChars  int
	OverlapChars int
}

// DefaultChunkConfig returns the documented splitting policy: 1000-character
// windows with a 200-character overlap between consecutive chunks.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		WindowChars:  1000,
		OverlapChars: 200,
	}
}

// Validate checks that the window and overlap produce a positive step.
func (c ChunkConfig) Validate() error {
	if c.WindowChars <= 0 {
		return fmt.Errorf("chunk window must be positive, got %d", c.WindowChars)
	}
	if c.OverlapChars < 0 || c.OverlapChars >= c.WindowChars {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.WindowChars, c.OverlapChars)
	}
	return nil
}

// chunkText splits text into fixed-size rune windows, each starting
// window-overlap runes after the previous one. The overlap exists so
// retrieval does not lose context at chunk boundaries. Splitting is
// deterministic: identical text and config always yield the same sequence.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	runes := []rune(clean)
	if len(runes) <= cfg.WindowChars {
		return []string{clean}
	}

	step := cfg.WindowChars - cfg.OverlapChars
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + cfg.WindowChars
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}

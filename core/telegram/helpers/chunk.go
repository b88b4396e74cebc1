package helpers

import "strings"

// DefaultChunkLimit keeps chunks safely below Telegram's 4096-character cap
// while leaving headroom for HTML entities.
const DefaultChunkLimit = 3800

// ChunkText splits text into pieces no longer than limit characters,
// preferring to cut at a newline so rendered lines stay intact. A split point
// is only moved back to a newline when that newline sits past 60% of the
// limit; otherwise the chunk is cut hard to avoid degenerate tiny chunks.
func ChunkText(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	if text == "" {
		return nil
	}

	var chunks []string
	remaining := text
	for len(remaining) > limit {
		splitAt := strings.LastIndex(remaining[:limit], "\n")
		if splitAt == -1 || splitAt < limit*6/10 {
			splitAt = limit
		}
		chunks = append(chunks, strings.TrimRight(remaining[:splitAt], " \n"))
		remaining = strings.TrimLeft(remaining[splitAt:], "\n")
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

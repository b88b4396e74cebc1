package helpers

import (
	"strings"
	"testing"
)

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("hello", 100)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("expected single chunk, got %#v", chunks)
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if chunks := ChunkText("", 100); chunks != nil {
		t.Fatalf("expected nil for empty input, got %#v", chunks)
	}
}

func TestChunkTextPrefersLineBoundaries(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("line with some content here\n")
	}
	text := strings.TrimRight(b.String(), "\n")

	chunks := ChunkText(text, 200)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 200 {
			t.Fatalf("chunk %d exceeds limit: %d chars", i, len(chunk))
		}
		for _, line := range strings.Split(chunk, "\n") {
			if line != "line with some content here" {
				t.Fatalf("chunk %d contains a broken line: %q", i, line)
			}
		}
	}

	joined := strings.Join(chunks, "\n")
	if joined != text {
		t.Fatal("chunks do not reassemble into the original text")
	}
}

func TestChunkTextHardSplitWithoutNewlines(t *testing.T) {
	text := strings.Repeat("x", 450)
	chunks := ChunkText(text, 200)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 200 || len(chunks[1]) != 200 || len(chunks[2]) != 50 {
		t.Fatalf("unexpected chunk sizes: %d/%d/%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}

func TestChunkTextEarlyNewlineIgnored(t *testing.T) {
	// The only newline sits before 60% of the limit, so the split is hard.
	text := "ab\n" + strings.Repeat("c", 300)
	chunks := ChunkText(text, 200)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 200 {
		t.Fatalf("expected hard cut at limit, first chunk is %d chars", len(chunks[0]))
	}
}

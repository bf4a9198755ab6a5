package semantic

import (
	"context"
	"strings"
	"unicode"
)

// Encoder turns text into embeddings.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeSequence(ctx context.Context, texts []string) ([][]float32, error)
}

// EncodeFunc adapts a single-text embedding function to Encoder.
type EncodeFunc func(ctx context.Context, text string) ([]float32, error)

// Encode calls f.
func (f EncodeFunc) Encode(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// EncodeSequence calls f for each text in order.
func (f EncodeFunc) EncodeSequence(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Segmenter splits a document into the spans stored as atoms.
type Segmenter interface {
	Segment(text string) []string
}

// SentenceSegmenter splits on '.', '!' and '?' followed by whitespace, and
// on blank lines. Empty spans are dropped.
type SentenceSegmenter struct{}

// Segment implements Segmenter.
func (SentenceSegmenter) Segment(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	flush := func(end int) {
		if span := strings.TrimSpace(string(runes[start:end])); span != "" {
			out = append(out, span)
		}
		start = end
	}
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '.' || r == '!' || r == '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush(i + 1)
			}
		case r == '\n' && i+1 < len(runes) && runes[i+1] == '\n':
			flush(i + 1)
		}
	}
	flush(len(runes))
	return out
}

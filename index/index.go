package index

import (
	"fmt"
	"sort"
	"strings"
)

// Hit is a search result.
type Hit struct {
	ID    uint64
	Score float64
}

// Index is a mutable vector index keyed by caller supplied ids. Callers are
// expected to add unit-normalised vectors; Score is then cosine similarity.
type Index interface {
	// Add inserts vectors under ids. Re-adding an id replaces its vector.
	Add(ids []uint64, vectors [][]float32) error
	// Remove deletes ids and returns how many were present.
	Remove(ids []uint64) int
	// Len returns the number of stored vectors.
	Len() int
	// Search returns up to k hits ordered by score descending, ties by
	// ascending id.
	Search(query []float32, k int) ([]Hit, error)
}

// Kind selects an index implementation.
type Kind string

const (
	KindFlat  Kind = "flat"
	KindCover Kind = "cover"
	// KindAuto scans exhaustively until a domain reaches the configured
	// size, then switches to a cover tree.
	KindAuto Kind = "auto"
)

// ParseKind parses a case-insensitive kind name. An empty name is KindAuto.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindAuto, nil
	case KindFlat, KindCover, KindAuto:
		return k, nil
	default:
		return "", fmt.Errorf("index: unknown kind %q", s)
	}
}

// Less reports whether a ranks before b.
func Less(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// Sort orders hits by score descending, ties by ascending id.
func Sort(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool { return Less(hits[i], hits[j]) })
}

// Top sorts hits and truncates them to k. k <= 0 yields nil.
func Top(hits []Hit, k int) []Hit {
	if k <= 0 {
		return nil
	}
	Sort(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Dot returns the float64 inner product of a and b.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

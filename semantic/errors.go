package semantic

import (
	"errors"
	"fmt"

	"github.com/viant/semvec/registry"
)

// ErrNotFound is returned for an unknown domain name or document key.
var ErrNotFound = registry.ErrNotFound

// ErrNoEncoder is returned by text operations when no Encoder is configured.
var ErrNoEncoder = errors.New("semantic: no encoder configured")

// DesyncWarning reports that a domain index no longer holds one vector per
// persisted atom. It accompanies an otherwise successful result; only
// Rehydrate corrects it.
type DesyncWarning struct {
	Domain  string
	Rows    int64
	Indexed int
}

func (w *DesyncWarning) Error() string {
	return fmt.Sprintf("semantic: domain %q out of sync: %d rows, %d indexed", w.Domain, w.Rows, w.Indexed)
}

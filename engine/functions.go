package engine

import (
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/viant/semvec/vector"
	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once

// RegisterVectorFunctions makes vec_cosine(a BLOB, b BLOB) available on
// connections opened afterwards. Open calls it; repeated calls do nothing.
func RegisterVectorFunctions() {
	registerOnce.Do(func() {
		_ = sqlite.RegisterDeterministicScalarFunction("vec_cosine", 2, vecCosine)
	})
}

// vecCosine returns NULL when either argument is NULL or empty, and 0 for a
// zero-magnitude operand.
func vecCosine(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_cosine: expected 2 arguments, got %d", len(args))
	}
	var operands [2][]float32
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
			return nil, nil
		case []byte:
			decoded, err := vector.DecodeEmbedding(v)
			if err != nil {
				return nil, fmt.Errorf("vec_cosine: %w", err)
			}
			if decoded == nil {
				return nil, nil
			}
			operands[i] = decoded
		default:
			return nil, fmt.Errorf("vec_cosine: unsupported argument type %T, want BLOB", arg)
		}
	}
	if len(operands[0]) != len(operands[1]) {
		return nil, fmt.Errorf("vec_cosine: %w: %d vs %d", vector.ErrDimension, len(operands[0]), len(operands[1]))
	}
	return vector.Cosine(operands[0], operands[1]), nil
}

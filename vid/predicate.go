package vid

import (
	"fmt"
	"strings"
)

// Predicate is a single SQL equality over the packed column, e.g.
// "((id >> 32) & 65535) = ?" with Arg 7.
type Predicate struct {
	SQL string
	Arg int64
}

// Conditions builds the predicates selecting rows whose packed column matches
// v as a mask. Absent fields and a none temporary flag are wildcards.
//
// Every field is masked after shifting: SQLite stores the address as a signed
// integer and shifts it arithmetically, so the domain field must not rely on
// the sign bit being zero.
//
// column is interpolated into SQL and must be a trusted identifier.
func (v Vid) Conditions(column string) []Predicate {
	var result []Predicate
	field := func(shift uint) string {
		if shift == 0 {
			return fmt.Sprintf("(%s & %d)", column, fieldMask)
		}
		return fmt.Sprintf("((%s >> %d) & %d)", column, shift, fieldMask)
	}
	if d, ok := v.Domain(); ok {
		result = append(result, Predicate{SQL: field(shiftDomain) + " = ?", Arg: int64(d)})
	}
	if d, ok := v.Document(); ok {
		result = append(result, Predicate{SQL: field(shiftDocument) + " = ?", Arg: int64(d)})
	}
	if i, ok := v.Item(); ok {
		result = append(result, Predicate{SQL: field(shiftItem) + " = ?", Arg: int64(i)})
	}
	switch v.Temporary() {
	case FlagTrue:
		result = append(result, Predicate{SQL: fmt.Sprintf("(%s & %d) = ?", column, flagBits), Arg: flagTrue})
	case FlagFalse:
		result = append(result, Predicate{SQL: fmt.Sprintf("(%s & %d) = ?", column, flagBits), Arg: flagFalse})
	}
	return result
}

// Where joins Conditions with AND and returns the clause with its arguments.
// A full wildcard yields "1 = 1".
func (v Vid) Where(column string) (string, []any) {
	conds := v.Conditions(column)
	if len(conds) == 0 {
		return "1 = 1", nil
	}
	clauses := make([]string, len(conds))
	args := make([]any, len(conds))
	for i, c := range conds {
		clauses[i] = c.SQL
		args[i] = c.Arg
	}
	return strings.Join(clauses, " AND "), args
}

// Matches reports whether the concrete address a satisfies v as a mask. It is
// the in-process equivalent of Conditions.
func (v Vid) Matches(a Vid) bool {
	for _, shift := range []uint{shiftDomain, shiftDocument, shiftItem} {
		want, ok := v.field(shift)
		if !ok {
			continue
		}
		if got, _ := a.field(shift); got != want {
			return false
		}
	}
	switch v.Temporary() {
	case FlagTrue, FlagFalse:
		return a.Temporary() == v.Temporary()
	}
	return true
}

package dbrecord

import (
	"strings"

	"github.com/teru01/filedb-go/dbconstant"
)

// Row holds one value per schema column, in schema order.
type Row []dbconstant.Value

// Concat returns left ++ right in a new slice.
func Concat(left, right Row) Row {
	row := make(Row, 0, len(left)+len(right))
	row = append(row, left...)
	return append(row, right...)
}

func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

func (r Row) String() string {
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = v.Literal()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

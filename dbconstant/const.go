package dbconstant

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/teru01/filedb-go/dberr"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INT"
	case KindText:
		return "TEXT"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is a tagged union over Integer, Text and Null.
// The zero Value is NULL. Values are comparable with == and usable as map keys.
type Value struct {
	kind Kind
	i    int64
	s    string
}

func NewInt(value int64) Value {
	return Value{kind: KindInt, i: value}
}

func NewText(value string) Value {
	return Value{kind: KindText, s: value}
}

func Null() Value {
	return Value{}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

func (v Value) AsInt() int64 {
	return v.i
}

func (v Value) AsText() string {
	return v.s
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindText:
		return v.s
	}
	return "NULL"
}

// Literal renders v the way it would be written in a query.
func (v Value) Literal() string {
	if v.kind == KindText {
		return `'` + strings.ReplaceAll(v.s, `'`, `''`) + `'`
	}
	return v.String()
}

// Compare orders two non-null values of the same kind.
// Comparing different kinds, or comparing NULL, is a type error.
func (v Value) Compare(other Value) (int, error) {
	if v.kind == KindNull || other.kind == KindNull {
		return 0, dberr.New(dberr.CodeTypeMismatch, "cannot order NULL", nil)
	}
	if v.kind != other.kind {
		return 0, dberr.New(dberr.CodeTypeMismatch, fmt.Sprintf("cannot compare %s with %s", v.kind, other.kind), nil)
	}
	switch v.kind {
	case KindInt:
		switch {
		case v.i < other.i:
			return -1, nil
		case v.i > other.i:
			return 1, nil
		}
		return 0, nil
	default:
		return strings.Compare(v.s, other.s), nil
	}
}

func (v Value) Equals(other Value) (bool, error) {
	c, err := v.Compare(other)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

// AppendKey appends an unambiguous binary form of v to b, for use in hash keys.
func (v Value) AppendKey(b []byte) []byte {
	b = append(b, byte(v.kind))
	switch v.kind {
	case KindInt:
		b = binary.LittleEndian.AppendUint64(b, uint64(v.i))
	case KindText:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(v.s)))
		b = append(b, v.s...)
	}
	return b
}

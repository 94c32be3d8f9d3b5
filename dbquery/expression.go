package dbquery

import (
	"fmt"

	"github.com/teru01/filedb-go/dbconstant"
	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbrecord"
)

// FieldRef names a column of a plan schema by qualifier and name.
type FieldRef struct {
	Qualifier string
	Name      string
}

func (f FieldRef) String() string {
	if f.Qualifier == "" {
		return f.Name
	}
	return f.Qualifier + "." + f.Name
}

// Expression is either a constant or a column reference. A column reference
// must be bound to a schema before it can be evaluated.
type Expression struct {
	value dbconstant.Value
	field FieldRef
	index int
}

func NewExpressionFromValue(value dbconstant.Value) Expression {
	return Expression{value: value, index: -1}
}

func NewExpressionFromField(qualifier, fieldName string) Expression {
	return Expression{field: FieldRef{Qualifier: qualifier, Name: fieldName}, index: -1}
}

func (e Expression) IsFieldName() bool {
	return e.field.Name != ""
}

func (e Expression) AsConstant() dbconstant.Value {
	return e.value
}

func (e Expression) AsField() FieldRef {
	return e.field
}

// Bind resolves the column ordinal against schema. An unqualified reference
// takes the qualifier of the single column with that name.
func (e Expression) Bind(schema *dbrecord.Schema) (Expression, error) {
	if !e.IsFieldName() {
		return e, nil
	}
	i := indexOf(schema, e.field)
	if i == ambiguous {
		return e, dberr.New(dberr.CodeAmbiguousColumn, fmt.Sprintf("column reference %q is ambiguous", e.field), nil)
	}
	if i < 0 {
		return e, dberr.New(dberr.CodeUnresolvedColumn, fmt.Sprintf("column %s does not exist", e.field), nil)
	}
	e.index = i
	e.field.Qualifier = schema.Column(i).Qualifier
	return e, nil
}

// Type is the column type of a bound column reference, or the kind of a
// constant. ok is false for NULL constants.
func (e Expression) Type(schema *dbrecord.Schema) (t dbrecord.FieldType, ok bool) {
	if e.IsFieldName() {
		return schema.Column(e.index).Type, true
	}
	switch e.value.Kind() {
	case dbconstant.KindInt:
		return dbrecord.FieldTypeInt, true
	case dbconstant.KindText:
		return dbrecord.FieldTypeText, true
	}
	return 0, false
}

func (e Expression) Evaluate(row dbrecord.Row) dbconstant.Value {
	if e.IsFieldName() {
		return row[e.index]
	}
	return e.value
}

func (e Expression) String() string {
	if e.IsFieldName() {
		return e.field.String()
	}
	return e.value.Literal()
}

// FieldIndex returns the ordinal of f in schema, or -1 if f is missing or
// ambiguous.
func FieldIndex(schema *dbrecord.Schema, f FieldRef) int {
	return max(indexOf(schema, f), -1)
}

const ambiguous = -2

// indexOf returns the ordinal of f in schema, -1 if there is none, or
// ambiguous if an unqualified f matches several columns.
func indexOf(schema *dbrecord.Schema, f FieldRef) int {
	found := -1
	for i := range schema.Len() {
		c := schema.Column(i)
		if c.Name != f.Name || (f.Qualifier != "" && c.Qualifier != f.Qualifier) {
			continue
		}
		if found >= 0 {
			return ambiguous
		}
		found = i
	}
	return found
}

package dbquery

import (
	"fmt"

	"github.com/teru01/filedb-go/dbconstant"
	"github.com/teru01/filedb-go/dbrecord"
)

// Term compares two expressions.
type Term struct {
	lhs Expression
	rhs Expression
	op  Op
}

func NewTerm(lhs Expression, op Op, rhs Expression) *Term {
	return &Term{lhs: lhs, rhs: rhs, op: op}
}

func (t *Term) LHS() Expression { return t.lhs }
func (t *Term) RHS() Expression { return t.rhs }
func (t *Term) Op() Op          { return t.op }

func (t *Term) Evaluate(row dbrecord.Row) (Truth, error) {
	lhs := t.lhs.Evaluate(row)
	rhs := t.rhs.Evaluate(row)
	if lhs.IsNull() || rhs.IsNull() {
		return Unknown, nil
	}
	cmp, err := lhs.Compare(rhs)
	if err != nil {
		return Unknown, fmt.Errorf("evaluate %s: %w", t, err)
	}
	return TruthOf(t.op.Apply(cmp)), nil
}

func (t *Term) Bind(schema *dbrecord.Schema) (Predicate, error) {
	lhs, err := t.lhs.Bind(schema)
	if err != nil {
		return nil, fmt.Errorf("bind lhs: %w", err)
	}
	rhs, err := t.rhs.Bind(schema)
	if err != nil {
		return nil, fmt.Errorf("bind rhs: %w", err)
	}
	return &Term{lhs: lhs, rhs: rhs, op: t.op}, nil
}

func (t *Term) Fields() []FieldRef {
	var fields []FieldRef
	for _, e := range []Expression{t.lhs, t.rhs} {
		if e.IsFieldName() {
			fields = append(fields, e.AsField())
		}
	}
	return fields
}

// EquatesWithConstant reports the constant c when the term is field = c.
func (t *Term) EquatesWithConstant(field FieldRef) (dbconstant.Value, bool) {
	if t.op != OpEqual {
		return dbconstant.Value{}, false
	}
	if t.lhs.IsFieldName() && t.lhs.AsField() == field && !t.rhs.IsFieldName() {
		return t.rhs.AsConstant(), true
	}
	if t.rhs.IsFieldName() && t.rhs.AsField() == field && !t.lhs.IsFieldName() {
		return t.lhs.AsConstant(), true
	}
	return dbconstant.Value{}, false
}

// EquatesWithField reports the other column g when the term is field = g.
func (t *Term) EquatesWithField(field FieldRef) (FieldRef, bool) {
	if t.op != OpEqual || !t.lhs.IsFieldName() || !t.rhs.IsFieldName() {
		return FieldRef{}, false
	}
	if t.lhs.AsField() == field {
		return t.rhs.AsField(), true
	}
	if t.rhs.AsField() == field {
		return t.lhs.AsField(), true
	}
	return FieldRef{}, false
}

// ReductionFactor estimates how many times fewer rows pass the term.
// distinctValues returns the distinct value count of a column.
func (t *Term) ReductionFactor(distinctValues func(FieldRef) int) int {
	switch {
	case t.op != OpEqual:
		return 3
	case t.lhs.IsFieldName() && t.rhs.IsFieldName():
		return min(max(distinctValues(t.lhs.AsField()), distinctValues(t.rhs.AsField()), 1), MaxEstimate)
	case t.lhs.IsFieldName():
		return min(max(distinctValues(t.lhs.AsField()), 1), MaxEstimate)
	case t.rhs.IsFieldName():
		return min(max(distinctValues(t.rhs.AsField()), 1), MaxEstimate)
	}
	// 定数同士
	return 1
}

func (t *Term) String() string {
	return fmt.Sprintf("%s %s %s", t.lhs, t.op, t.rhs)
}

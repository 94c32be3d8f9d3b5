package dbquery

import (
	"fmt"
	"math"
	"strings"

	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbrecord"
)

// Predicate is a boolean expression over the columns of one row.
type Predicate interface {
	Evaluate(row dbrecord.Row) (Truth, error)
	// Bind resolves every column reference against schema.
	Bind(schema *dbrecord.Schema) (Predicate, error)
	Fields() []FieldRef
	String() string
}

// Conjunction is AND over its predicates. An empty conjunction is TRUE.
type Conjunction struct {
	predicates []Predicate
}

func NewConjunction(predicates ...Predicate) *Conjunction {
	return &Conjunction{predicates: predicates[:]}
}

func (c *Conjunction) Evaluate(row dbrecord.Row) (Truth, error) {
	result := True
	for _, p := range c.predicates {
		t, err := p.Evaluate(row)
		if err != nil {
			return Unknown, err
		}
		result = result.And(t)
		if result == False {
			return False, nil
		}
	}
	return result, nil
}

func (c *Conjunction) Bind(schema *dbrecord.Schema) (Predicate, error) {
	bound, err := bindAll(c.predicates, schema)
	if err != nil {
		return nil, err
	}
	return &Conjunction{predicates: bound}, nil
}

func (c *Conjunction) Fields() []FieldRef {
	return fieldsOf(c.predicates)
}

func (c *Conjunction) String() string {
	if len(c.predicates) == 0 {
		return "TRUE"
	}
	return joinStrings(c.predicates, " AND ")
}

// Disjunction is OR over its predicates.
type Disjunction struct {
	predicates []Predicate
}

func NewDisjunction(predicates ...Predicate) *Disjunction {
	return &Disjunction{predicates: predicates}
}

func (d *Disjunction) Evaluate(row dbrecord.Row) (Truth, error) {
	result := False
	for _, p := range d.predicates {
		t, err := p.Evaluate(row)
		if err != nil {
			return Unknown, err
		}
		result = result.Or(t)
		if result == True {
			return True, nil
		}
	}
	return result, nil
}

func (d *Disjunction) Bind(schema *dbrecord.Schema) (Predicate, error) {
	bound, err := bindAll(d.predicates, schema)
	if err != nil {
		return nil, err
	}
	return &Disjunction{predicates: bound}, nil
}

func (d *Disjunction) Fields() []FieldRef {
	return fieldsOf(d.predicates)
}

func (d *Disjunction) String() string {
	return "(" + joinStrings(d.predicates, " OR ") + ")"
}

type Negation struct {
	predicate Predicate
}

func NewNegation(predicate Predicate) *Negation {
	return &Negation{predicate: predicate}
}

func (n *Negation) Predicate() Predicate {
	return n.predicate
}

func (n *Negation) Evaluate(row dbrecord.Row) (Truth, error) {
	t, err := n.predicate.Evaluate(row)
	if err != nil {
		return Unknown, err
	}
	return t.Not(), nil
}

func (n *Negation) Bind(schema *dbrecord.Schema) (Predicate, error) {
	bound, err := n.predicate.Bind(schema)
	if err != nil {
		return nil, err
	}
	return &Negation{predicate: bound}, nil
}

func (n *Negation) Fields() []FieldRef {
	return n.predicate.Fields()
}

func (n *Negation) String() string {
	return "NOT (" + n.predicate.String() + ")"
}

// NullTest is expr IS NULL, or expr IS NOT NULL when negated. It is never
// Unknown.
type NullTest struct {
	expr    Expression
	negated bool
}

func NewNullTest(expr Expression, negated bool) *NullTest {
	return &NullTest{expr: expr, negated: negated}
}

func (n *NullTest) Expression() Expression {
	return n.expr
}

func (n *NullTest) Evaluate(row dbrecord.Row) (Truth, error) {
	return TruthOf(n.expr.Evaluate(row).IsNull() != n.negated), nil
}

func (n *NullTest) Bind(schema *dbrecord.Schema) (Predicate, error) {
	expr, err := n.expr.Bind(schema)
	if err != nil {
		return nil, err
	}
	return &NullTest{expr: expr, negated: n.negated}, nil
}

func (n *NullTest) Fields() []FieldRef {
	if n.expr.IsFieldName() {
		return []FieldRef{n.expr.AsField()}
	}
	return nil
}

func (n *NullTest) String() string {
	if n.negated {
		return n.expr.String() + " IS NOT NULL"
	}
	return n.expr.String() + " IS NULL"
}

// Conjuncts splits p into its top-level AND operands.
func Conjuncts(p Predicate) []Predicate {
	if p == nil {
		return nil
	}
	c, ok := p.(*Conjunction)
	if !ok {
		return []Predicate{p}
	}
	var result []Predicate
	for _, sub := range c.predicates {
		result = append(result, Conjuncts(sub)...)
	}
	return result
}

// Conjoin combines predicates with AND. It returns nil for no predicates.
func Conjoin(predicates ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range predicates {
		flat = append(flat, Conjuncts(p)...)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &Conjunction{predicates: flat}
}

// MaxEstimate caps cardinality estimates and reduction factors.
const MaxEstimate = math.MaxInt32

// MulEstimate multiplies two non-negative estimates, saturating at
// MaxEstimate.
func MulEstimate(a, b int) int {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > MaxEstimate/b {
		return MaxEstimate
	}
	return a * b
}

// ReductionFactor estimates how many times fewer rows pass p.
func ReductionFactor(p Predicate, distinctValues func(FieldRef) int) int {
	switch p := p.(type) {
	case nil:
		return 1
	case *Term:
		return p.ReductionFactor(distinctValues)
	case *Conjunction:
		factor := 1
		for _, sub := range p.predicates {
			factor = MulEstimate(factor, ReductionFactor(sub, distinctValues))
		}
		return factor
	case *NullTest:
		// 値の分布を持っていないので等値条件より緩く見積もる
		return 2
	}
	return 3
}

func bindAll(predicates []Predicate, schema *dbrecord.Schema) ([]Predicate, error) {
	bound := make([]Predicate, len(predicates))
	for i, p := range predicates {
		b, err := p.Bind(schema)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", p, err)
		}
		bound[i] = b
	}
	return bound, nil
}

func fieldsOf(predicates []Predicate) []FieldRef {
	var fields []FieldRef
	for _, p := range predicates {
		fields = append(fields, p.Fields()...)
	}
	return fields
}

func joinStrings(predicates []Predicate, sep string) string {
	parts := make([]string, len(predicates))
	for i, p := range predicates {
		parts[i] = p.String()
	}
	return strings.Join(parts, sep)
}

// CheckTypes reports a TYPE_MISMATCH for any comparison in p between an INT
// and a TEXT operand. p must be bound to schema.
func CheckTypes(p Predicate, schema *dbrecord.Schema) error {
	switch p := p.(type) {
	case *Term:
		lt, lok := p.lhs.Type(schema)
		rt, rok := p.rhs.Type(schema)
		if lok && rok && lt != rt {
			return dberr.New(dberr.CodeTypeMismatch, fmt.Sprintf("cannot compare %s (%s) with %s (%s)", p.lhs, lt, p.rhs, rt), nil)
		}
	case *Conjunction:
		return checkTypesAll(p.predicates, schema)
	case *Disjunction:
		return checkTypesAll(p.predicates, schema)
	case *Negation:
		return CheckTypes(p.predicate, schema)
	}
	return nil
}

func checkTypesAll(predicates []Predicate, schema *dbrecord.Schema) error {
	for _, p := range predicates {
		if err := CheckTypes(p, schema); err != nil {
			return err
		}
	}
	return nil
}

package dbplan

import (
	"errors"
	"fmt"

	"github.com/teru01/filedb-go/dbquery"
	"github.com/teru01/filedb-go/dbrecord"
)

type JoinStrategy int

const (
	NestedLoopJoin JoinStrategy = iota
	HashJoin
)

func (s JoinStrategy) String() string {
	switch s {
	case NestedLoopJoin:
		return "NestedLoopJoin"
	case HashJoin:
		return "HashJoin"
	}
	return fmt.Sprintf("JoinStrategy(%d)", int(s))
}

// JoinKey is an equality between a column of the left input and a column of
// the right input.
type JoinKey struct {
	Left  dbquery.FieldRef
	Right dbquery.FieldRef
}

// JoinPlan is an inner join. Its output schema is left ++ right.
type JoinPlan struct {
	left, right         Plan
	keys                []JoinKey
	leftKeys, rightKeys []int
	condition           dbquery.Predicate
	strategy            JoinStrategy
	buildLeft           bool
	schema              *dbrecord.Schema
}

// NewJoinPlan joins left and right on keys. With no keys it is a cross join,
// which only the nested-loop strategy can execute.
func NewJoinPlan(left, right Plan, keys []JoinKey, strategy JoinStrategy, buildLeft bool) (*JoinPlan, error) {
	if strategy == HashJoin && len(keys) == 0 {
		return nil, errors.New("hash join needs at least one equality key")
	}
	s := dbrecord.NewSchema()
	s.AddAll(left.Schema())
	s.AddAll(right.Schema())

	j := &JoinPlan{left: left, right: right, keys: keys, strategy: strategy, buildLeft: buildLeft, schema: s}
	var terms []dbquery.Predicate
	for _, k := range keys {
		l := dbquery.FieldIndex(left.Schema(), k.Left)
		r := dbquery.FieldIndex(right.Schema(), k.Right)
		if l < 0 || r < 0 {
			return nil, fmt.Errorf("join key %s = %s does not match the inputs", k.Left, k.Right)
		}
		j.leftKeys = append(j.leftKeys, l)
		j.rightKeys = append(j.rightKeys, r)
		terms = append(terms, dbquery.NewTerm(
			dbquery.NewExpressionFromField(k.Left.Qualifier, k.Left.Name),
			dbquery.OpEqual,
			dbquery.NewExpressionFromField(k.Right.Qualifier, k.Right.Name),
		))
	}
	if cond := dbquery.Conjoin(terms...); cond != nil {
		bound, err := cond.Bind(s)
		if err != nil {
			return nil, fmt.Errorf("bind join condition: %w", err)
		}
		j.condition = bound
	}
	return j, nil
}

func (j *JoinPlan) Left() Plan {
	return j.left
}

func (j *JoinPlan) Right() Plan {
	return j.right
}

func (j *JoinPlan) Keys() []JoinKey {
	return j.keys
}

// LeftKeys and RightKeys are the ordinals of the key columns in the left and
// right input rows.
func (j *JoinPlan) LeftKeys() []int {
	return j.leftKeys
}

func (j *JoinPlan) RightKeys() []int {
	return j.rightKeys
}

// Condition is the key equalities bound to the joined schema, or nil for a
// cross join.
func (j *JoinPlan) Condition() dbquery.Predicate {
	return j.condition
}

func (j *JoinPlan) Strategy() JoinStrategy {
	return j.strategy
}

// BuildLeft reports whether a hash join hashes the left input.
func (j *JoinPlan) BuildLeft() bool {
	return j.buildLeft
}

func (j *JoinPlan) RecordsOutput() int {
	records := dbquery.MulEstimate(j.left.RecordsOutput(), j.right.RecordsOutput())
	for _, k := range j.keys {
		records /= max(j.left.DistinctValues(k.Left), j.right.DistinctValues(k.Right), 1)
	}
	return records
}

func (j *JoinPlan) DistinctValues(field dbquery.FieldRef) int {
	if dbquery.FieldIndex(j.left.Schema(), field) >= 0 {
		return j.left.DistinctValues(field)
	}
	return j.right.DistinctValues(field)
}

func (j *JoinPlan) Schema() *dbrecord.Schema {
	return j.schema
}

func (j *JoinPlan) Children() []Plan {
	return []Plan{j.left, j.right}
}

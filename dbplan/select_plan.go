package dbplan

import (
	"fmt"

	"github.com/teru01/filedb-go/dbquery"
	"github.com/teru01/filedb-go/dbrecord"
)

// SelectPlan passes the rows of child for which predicate is TRUE.
type SelectPlan struct {
	child     Plan
	predicate dbquery.Predicate
}

// NewSelectPlan binds predicate to the schema of child.
func NewSelectPlan(child Plan, predicate dbquery.Predicate) (*SelectPlan, error) {
	bound, err := predicate.Bind(child.Schema())
	if err != nil {
		return nil, fmt.Errorf("bind filter %s: %w", predicate, err)
	}
	return &SelectPlan{child: child, predicate: bound}, nil
}

func (s *SelectPlan) Predicate() dbquery.Predicate {
	return s.predicate
}

func (s *SelectPlan) DistinctValues(field dbquery.FieldRef) int {
	for _, c := range dbquery.Conjuncts(s.predicate) {
		term, ok := c.(*dbquery.Term)
		if !ok {
			continue
		}
		if _, ok := term.EquatesWithConstant(field); ok {
			return 1
		}
		if other, ok := term.EquatesWithField(field); ok {
			return min(s.child.DistinctValues(field), s.child.DistinctValues(other))
		}
	}
	// V(child, F) if F != fieldName 子の分布と同じ
	return s.child.DistinctValues(field)
}

func (s *SelectPlan) RecordsOutput() int {
	return s.child.RecordsOutput() / max(dbquery.ReductionFactor(s.predicate, s.child.DistinctValues), 1)
}

func (s *SelectPlan) Schema() *dbrecord.Schema {
	return s.child.Schema()
}

func (s *SelectPlan) Children() []Plan {
	return []Plan{s.child}
}

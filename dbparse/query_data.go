package dbparse

import (
	"strings"

	"github.com/teru01/filedb-go/dbquery"
)

// TableRef is a table in the FROM clause with its optional alias.
type TableRef struct {
	Name  string
	Alias string
}

// Qualifier is the name columns of this table are qualified with.
func (t TableRef) Qualifier() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

func (t TableRef) String() string {
	if t.Alias != "" {
		return t.Name + " AS " + t.Alias
	}
	return t.Name
}

// Projection is one item of the select list: *, q.* or a column.
type Projection struct {
	Star      bool
	Qualifier string
	Field     string
}

func (p Projection) String() string {
	switch {
	case p.Star && p.Qualifier == "":
		return "*"
	case p.Star:
		return p.Qualifier + ".*"
	case p.Qualifier != "":
		return p.Qualifier + "." + p.Field
	}
	return p.Field
}

// JoinData is one JOIN ... ON ... clause. The table is tables[Index].
type JoinData struct {
	Index     int
	Condition dbquery.Predicate
}

type QueryData struct {
	projections []Projection
	tables      []TableRef
	joins       []JoinData
	predicate   dbquery.Predicate
}

func NewQueryData(projections []Projection, tables []TableRef, joins []JoinData, predicate dbquery.Predicate) *QueryData {
	return &QueryData{projections: projections, tables: tables, joins: joins, predicate: predicate}
}

func (q *QueryData) Projections() []Projection {
	return q.projections
}

func (q *QueryData) Tables() []TableRef {
	return q.tables
}

// JoinConditions returns the ON conditions in clause order.
func (q *QueryData) JoinConditions() []JoinData {
	return q.joins
}

// Predicate is the WHERE condition, or nil.
func (q *QueryData) Predicate() dbquery.Predicate {
	return q.predicate
}

func (q *QueryData) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	fields := make([]string, len(q.projections))
	for i, p := range q.projections {
		fields[i] = p.String()
	}
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(" FROM ")
	on := make(map[int]dbquery.Predicate, len(q.joins))
	for _, j := range q.joins {
		on[j.Index] = j.Condition
	}
	for i, table := range q.tables {
		cond, isJoin := on[i]
		switch {
		case i == 0:
		case isJoin:
			b.WriteString(" JOIN ")
		default:
			b.WriteString(", ")
		}
		b.WriteString(table.String())
		if isJoin {
			b.WriteString(" ON " + cond.String())
		}
	}
	if q.predicate != nil {
		b.WriteString(" WHERE ")
		b.WriteString(q.predicate.String())
	}
	return b.String()
}

func (*QueryData) statement() {}

package dbplan

import (
	"fmt"

	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbquery"
	"github.com/teru01/filedb-go/dbrecord"
)

type ProjectPlan struct {
	child  Plan
	fields []int
	schema *dbrecord.Schema
}

// NewProjectPlan selects fields from child in the given order.
func NewProjectPlan(child Plan, fieldList []dbquery.FieldRef) (*ProjectPlan, error) {
	s := dbrecord.NewSchema()
	fields := make([]int, len(fieldList))
	for i, f := range fieldList {
		idx := dbquery.FieldIndex(child.Schema(), f)
		if idx < 0 {
			return nil, dberr.New(dberr.CodeUnresolvedColumn, fmt.Sprintf("column %s does not exist", f), nil)
		}
		fields[i] = idx
		s.AddColumn(child.Schema().Column(idx))
	}
	return &ProjectPlan{child: child, fields: fields, schema: s}, nil
}

// Fields are the ordinals of the output columns in the child schema.
func (p *ProjectPlan) Fields() []int {
	return p.fields
}

func (p *ProjectPlan) RecordsOutput() int {
	return p.child.RecordsOutput()
}

func (p *ProjectPlan) DistinctValues(field dbquery.FieldRef) int {
	return p.child.DistinctValues(field)
}

func (p *ProjectPlan) Schema() *dbrecord.Schema {
	return p.schema
}

func (p *ProjectPlan) Children() []Plan {
	return []Plan{p.child}
}

package dbplan

import (
	"context"
	"fmt"

	"github.com/teru01/filedb-go/dbparse"
)

type Planner struct {
	queryPlanner  *QueryPlanner
	updatePlanner *UpdatePlanner
}

func NewPlanner(queryPlanner *QueryPlanner, updatePlanner *UpdatePlanner) *Planner {
	return &Planner{queryPlanner: queryPlanner, updatePlanner: updatePlanner}
}

func (p *Planner) CreateQueryPlan(ctx context.Context, sql string) (Plan, error) {
	parser := dbparse.NewParser(sql)
	queryData, err := parser.Query()
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return p.queryPlanner.CreatePlan(ctx, queryData)
}

func (p *Planner) CreatePlan(ctx context.Context, queryData *dbparse.QueryData) (Plan, error) {
	return p.queryPlanner.CreatePlan(ctx, queryData)
}

func (p *Planner) ExecuteUpdate(ctx context.Context, sql string) (int, error) {
	stmt, err := dbparse.Parse(sql)
	if err != nil {
		return 0, fmt.Errorf("parse update: %w", err)
	}
	return p.ExecuteUpdateStatement(ctx, stmt)
}

// ExecuteUpdateStatement runs INSERT or CREATE TABLE and returns the number
// of rows written.
func (p *Planner) ExecuteUpdateStatement(ctx context.Context, stmt dbparse.Statement) (int, error) {
	switch updateData := stmt.(type) {
	case *dbparse.InsertData:
		return p.updatePlanner.ExecuteInsert(ctx, updateData)
	case *dbparse.CreateTableData:
		return p.updatePlanner.ExecuteCreateTable(ctx, updateData)
	default:
		return 0, fmt.Errorf("unexpected update data: %T", updateData)
	}
}

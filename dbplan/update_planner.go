package dbplan

import (
	"context"
	"fmt"
	"slices"

	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbmetadata"
	"github.com/teru01/filedb-go/dbparse"
	"github.com/teru01/filedb-go/dbrecord"
)

type UpdatePlanner struct {
	catalog *dbmetadata.Catalog
}

func NewUpdatePlanner(catalog *dbmetadata.Catalog) *UpdatePlanner {
	return &UpdatePlanner{catalog: catalog}
}

func (u *UpdatePlanner) ExecuteCreateTable(ctx context.Context, createTableData *dbparse.CreateTableData) (int, error) {
	if _, err := u.catalog.CreateTable(ctx, createTableData.TableName(), createTableData.Schema()); err != nil {
		return 0, fmt.Errorf("create table %q: %w", createTableData.TableName(), err)
	}
	return 0, nil
}

// ExecuteInsert appends the rows of insertData. Every row is validated before
// the first one is written, so an invalid row leaves the table unchanged.
func (u *UpdatePlanner) ExecuteInsert(ctx context.Context, insertData *dbparse.InsertData) (affectedRows int, err error) {
	store, err := u.catalog.GetTable(ctx, insertData.TableName())
	if err != nil {
		return 0, fmt.Errorf("insert into %q: %w", insertData.TableName(), err)
	}
	schema := store.Schema()

	positions, err := columnPositions(schema, insertData.Fields())
	if err != nil {
		return 0, fmt.Errorf("insert into %q: %w", insertData.TableName(), err)
	}
	rows := make([]dbrecord.Row, len(insertData.Rows()))
	for i, vals := range insertData.Rows() {
		if len(vals) != len(positions) {
			return 0, dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("row %d of insert into %q has %d values, expected %d", i+1, insertData.TableName(), len(vals), len(positions)), nil)
		}
		// 指定されなかった列はNULL
		row := make(dbrecord.Row, schema.Len())
		for j, v := range vals {
			row[positions[j]] = v
		}
		if err := dbrecord.ValidateRow(row, schema); err != nil {
			return 0, fmt.Errorf("row %d of insert into %q: %w", i+1, insertData.TableName(), err)
		}
		rows[i] = row
	}

	defer func() {
		if affectedRows > 0 {
			u.catalog.InvalidateStats(store.Name())
		}
	}()
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return affectedRows, err
		}
		if err := store.Append(row); err != nil {
			return affectedRows, fmt.Errorf("insert into %q: %w", insertData.TableName(), err)
		}
		affectedRows++
	}
	return affectedRows, nil
}

// columnPositions maps an INSERT column list onto schema ordinals. A nil list
// means every column in schema order.
func columnPositions(schema *dbrecord.Schema, fields []string) ([]int, error) {
	if fields == nil {
		positions := make([]int, schema.Len())
		for i := range positions {
			positions[i] = i
		}
		return positions, nil
	}
	positions := make([]int, len(fields))
	for i, f := range fields {
		if slices.Contains(fields[:i], f) {
			return nil, dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("column %q specified more than once", f), nil)
		}
		idx := schema.IndexOf(f)
		if idx < 0 {
			return nil, dberr.New(dberr.CodeUnresolvedColumn, fmt.Sprintf("column %s does not exist", f), nil)
		}
		positions[i] = idx
	}
	return positions, nil
}

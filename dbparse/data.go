package dbparse

import (
	"fmt"
	"strings"

	"github.com/teru01/filedb-go/dbconstant"
	"github.com/teru01/filedb-go/dbrecord"
)

// Statement is one parsed SQL statement.
type Statement interface {
	String() string
	statement()
}

// InsertData represents an INSERT statement
type InsertData struct {
	tableName string
	fields    []string
	rows      [][]dbconstant.Value
}

func NewInsertData(tableName string, fields []string, rows [][]dbconstant.Value) *InsertData {
	return &InsertData{tableName: tableName, fields: fields, rows: rows}
}

func (d *InsertData) TableName() string {
	return d.tableName
}

// Fields is the explicit column list, or nil when the statement has none.
func (d *InsertData) Fields() []string {
	return d.fields
}

func (d *InsertData) Rows() [][]dbconstant.Value {
	return d.rows
}

func (d *InsertData) String() string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.tableName)
	if d.fields != nil {
		b.WriteString(" (" + strings.Join(d.fields, ", ") + ")")
	}
	b.WriteString(" VALUES ")
	for i, row := range d.rows {
		if i > 0 {
			b.WriteString(", ")
		}
		vals := make([]string, len(row))
		for j, v := range row {
			vals[j] = v.Literal()
		}
		b.WriteString("(" + strings.Join(vals, ", ") + ")")
	}
	return b.String()
}

func (*InsertData) statement() {}

// CreateTableData represents a CREATE TABLE statement
type CreateTableData struct {
	tableName string
	schema    *dbrecord.Schema
}

func NewCreateTableData(tableName string, schema *dbrecord.Schema) *CreateTableData {
	return &CreateTableData{tableName: tableName, schema: schema}
}

func (d *CreateTableData) TableName() string {
	return d.tableName
}

func (d *CreateTableData) Schema() *dbrecord.Schema {
	return d.schema
}

func (d *CreateTableData) String() string {
	return fmt.Sprintf("CREATE TABLE %s %s", d.tableName, d.schema)
}

func (*CreateTableData) statement() {}

// ExplainData represents EXPLAIN SELECT ...
type ExplainData struct {
	query *QueryData
}

func NewExplainData(query *QueryData) *ExplainData {
	return &ExplainData{query: query}
}

func (d *ExplainData) Query() *QueryData {
	return d.query
}

func (d *ExplainData) String() string {
	return "EXPLAIN " + d.query.String()
}

func (*ExplainData) statement() {}

// ShowTablesData represents SHOW TABLES
type ShowTablesData struct{}

func (*ShowTablesData) String() string {
	return "SHOW TABLES"
}

func (*ShowTablesData) statement() {}

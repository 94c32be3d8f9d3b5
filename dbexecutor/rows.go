package dbexecutor

import (
	"context"

	"github.com/teru01/filedb-go/dbquery"
	"github.com/teru01/filedb-go/dbrecord"
)

// Rows is the lazily read result of DB.Query.
type Rows struct {
	scan       dbquery.Scan
	fields     []string
	fieldTypes []dbrecord.FieldType
	closed     bool
}

func (r *Rows) Fields() []string {
	return r.fields
}

func (r *Rows) FieldTypes() []dbrecord.FieldType {
	return r.fieldTypes
}

// Next advances to the next row. Rows read before an error stay valid.
func (r *Rows) Next(ctx context.Context) (bool, error) {
	if r.closed {
		return false, nil
	}
	return r.scan.Next(ctx)
}

func (r *Rows) Row() dbrecord.Row {
	return r.scan.Row()
}

func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.scan.Close()
}

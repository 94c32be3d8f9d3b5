package dbrecord

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// TableScan reads the records of one table file in append order. The end of
// the scan is fixed when the scan is created.
type TableScan struct {
	tableName string
	schema    *Schema
	reader    *bufio.Reader
	current   Row
	rowCount  int
	done      bool
}

func newTableScan(tableName string, schema *Schema, section *io.SectionReader) *TableScan {
	return &TableScan{
		tableName: tableName,
		schema:    schema,
		reader:    bufio.NewReader(section),
	}
}

func (t *TableScan) Schema() *Schema {
	return t.schema
}

// Next advances to the next row. A partial trailing record is CORRUPT_DATA.
func (t *TableScan) Next(ctx context.Context) (bool, error) {
	if t.done {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	row, err := ReadRow(t.reader, t.schema)
	if errors.Is(err, io.EOF) {
		t.done = true
		t.current = nil
		return false, nil
	}
	if err != nil {
		t.done = true
		t.current = nil
		return false, fmt.Errorf("read row %d of table %q: %w", t.rowCount, t.tableName, err)
	}
	t.current = row
	t.rowCount++
	return true, nil
}

func (t *TableScan) Row() Row {
	return t.current
}

func (t *TableScan) Close() error {
	t.done = true
	t.current = nil
	t.reader = nil
	return nil
}

package dbquery

import (
	"context"

	"github.com/teru01/filedb-go/dbrecord"
)

// ProjectScan selects and reorders columns of scan by ordinal.
type ProjectScan struct {
	scan    Scan
	fields  []int
	current dbrecord.Row
}

func NewProjectScan(scan Scan, fields []int) *ProjectScan {
	return &ProjectScan{
		scan:   scan,
		fields: fields,
	}
}

func (s *ProjectScan) Next(ctx context.Context) (bool, error) {
	ok, err := s.scan.Next(ctx)
	if err != nil || !ok {
		s.current = nil
		return false, err
	}
	row := s.scan.Row()
	projected := make(dbrecord.Row, len(s.fields))
	for i, f := range s.fields {
		projected[i] = row[f]
	}
	s.current = projected
	return true, nil
}

func (s *ProjectScan) Row() dbrecord.Row {
	return s.current
}

func (s *ProjectScan) Close() error {
	return s.scan.Close()
}

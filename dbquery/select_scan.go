package dbquery

import (
	"context"
	"fmt"

	"github.com/teru01/filedb-go/dbrecord"
)

// SelectScan passes the rows of scan for which predicate is TRUE.
type SelectScan struct {
	scan      Scan
	predicate Predicate
}

func NewSelectScan(scan Scan, predicate Predicate) *SelectScan {
	return &SelectScan{
		scan:      scan,
		predicate: predicate,
	}
}

func (s *SelectScan) Next(ctx context.Context) (bool, error) {
	for {
		ok, err := s.scan.Next(ctx)
		if err != nil {
			return false, fmt.Errorf("next: %w", err)
		}
		if !ok {
			return false, nil
		}
		// UNKNOWNとFALSEは捨てる
		t, err := s.predicate.Evaluate(s.scan.Row())
		if err != nil {
			return false, fmt.Errorf("evaluate %s: %w", s.predicate, err)
		}
		if t == True {
			return true, nil
		}
	}
}

func (s *SelectScan) Row() dbrecord.Row {
	return s.scan.Row()
}

func (s *SelectScan) Close() error {
	return s.scan.Close()
}

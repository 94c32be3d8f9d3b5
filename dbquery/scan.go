package dbquery

import (
	"context"
	"errors"
	"fmt"

	"github.com/teru01/filedb-go/dbrecord"
)

// Scan is a pull iterator over rows. Row returns the current row after Next
// returns true. A returned row is never modified by later calls.
type Scan interface {
	Next(ctx context.Context) (bool, error)
	Row() dbrecord.Row
	Close() error
}

// Collect drains scan and closes it.
func Collect(ctx context.Context, scan Scan) (rows []dbrecord.Row, err error) {
	defer func() {
		if closeErr := scan.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close scan: %w", closeErr))
		}
	}()
	for {
		ok, err := scan.Next(ctx)
		if err != nil {
			return rows, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, scan.Row())
	}
}

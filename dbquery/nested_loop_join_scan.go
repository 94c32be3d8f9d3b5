package dbquery

import (
	"context"
	"errors"
	"fmt"

	"github.com/teru01/filedb-go/dbrecord"
)

// OpenFunc opens a fresh scan over the same rows each time it is called.
type OpenFunc func(ctx context.Context) (Scan, error)

// NestedLoopJoinScan emits left ++ right for every pair of rows satisfying
// condition. The right side is reopened for each left row.
type NestedLoopJoinScan struct {
	left      Scan
	openRight OpenFunc
	right     Scan
	condition Predicate
	current   dbrecord.Row
}

// NewNestedLoopJoinScan joins left with the scans produced by openRight.
// condition is bound to the joined schema; nil means a cross join.
func NewNestedLoopJoinScan(left Scan, openRight OpenFunc, condition Predicate) *NestedLoopJoinScan {
	return &NestedLoopJoinScan{left: left, openRight: openRight, condition: condition}
}

// leftを固定してrightを最後まで読み、読み切ったらleftを1つ進める
func (s *NestedLoopJoinScan) Next(ctx context.Context) (bool, error) {
	for {
		if s.right == nil {
			ok, err := s.left.Next(ctx)
			if err != nil {
				return false, fmt.Errorf("next left: %w", err)
			}
			if !ok {
				s.current = nil
				return false, nil
			}
			right, err := s.openRight(ctx)
			if err != nil {
				return false, fmt.Errorf("open right: %w", err)
			}
			s.right = right
		}
		ok, err := s.right.Next(ctx)
		if err != nil {
			return false, fmt.Errorf("next right: %w", err)
		}
		if !ok {
			if err := s.closeRight(); err != nil {
				return false, err
			}
			continue
		}
		row := dbrecord.Concat(s.left.Row(), s.right.Row())
		if s.condition != nil {
			t, err := s.condition.Evaluate(row)
			if err != nil {
				return false, fmt.Errorf("evaluate %s: %w", s.condition, err)
			}
			if t != True {
				continue
			}
		}
		s.current = row
		return true, nil
	}
}

func (s *NestedLoopJoinScan) Row() dbrecord.Row {
	return s.current
}

func (s *NestedLoopJoinScan) Close() error {
	return errors.Join(s.closeRight(), s.left.Close())
}

func (s *NestedLoopJoinScan) closeRight() error {
	if s.right == nil {
		return nil
	}
	right := s.right
	s.right = nil
	if err := right.Close(); err != nil {
		return fmt.Errorf("close right: %w", err)
	}
	return nil
}

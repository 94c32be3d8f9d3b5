package dbquery

import (
	"context"
	"errors"
	"fmt"

	"github.com/teru01/filedb-go/dbrecord"
)

// HashJoinScan is an equi-join. It drains the build side into a hash table
// before emitting anything, then streams the other side. Output rows are
// always left ++ right whichever side is built.
type HashJoinScan struct {
	left, right         Scan
	leftKeys, rightKeys []int
	buildLeft           bool

	hashTable map[string][]dbrecord.Row
	built     bool
	buildRows int

	streamRow  dbrecord.Row
	matches    []dbrecord.Row
	matchIndex int
	current    dbrecord.Row
	keyBuf     []byte
}

// NewHashJoinScan joins left and right on leftKeys[i] = rightKeys[i]. The
// keys are ordinals into the rows of the respective side. If buildLeft is
// set the left side is hashed, otherwise the right side.
func NewHashJoinScan(left, right Scan, leftKeys, rightKeys []int, buildLeft bool) *HashJoinScan {
	return &HashJoinScan{
		left:      left,
		right:     right,
		leftKeys:  leftKeys,
		rightKeys: rightKeys,
		buildLeft: buildLeft,
		hashTable: make(map[string][]dbrecord.Row),
	}
}

// BuildRows is the number of rows held in the hash table.
func (s *HashJoinScan) BuildRows() int {
	return s.buildRows
}

func (s *HashJoinScan) sides() (build Scan, buildKeys []int, stream Scan, streamKeys []int) {
	if s.buildLeft {
		return s.left, s.leftKeys, s.right, s.rightKeys
	}
	return s.right, s.rightKeys, s.left, s.leftKeys
}

func (s *HashJoinScan) build(ctx context.Context) error {
	build, buildKeys, _, _ := s.sides()
	for {
		ok, err := build.Next(ctx)
		if err != nil {
			return fmt.Errorf("next build side: %w", err)
		}
		if !ok {
			break
		}
		row := build.Row()
		key, ok := s.key(row, buildKeys)
		if !ok {
			// NULLのキーはどの行とも一致しない
			continue
		}
		s.hashTable[key] = append(s.hashTable[key], row)
		s.buildRows++
	}
	s.built = true
	return nil
}

func (s *HashJoinScan) Next(ctx context.Context) (bool, error) {
	if !s.built {
		if err := s.build(ctx); err != nil {
			return false, err
		}
	}
	_, _, stream, streamKeys := s.sides()
	for s.matchIndex >= len(s.matches) {
		ok, err := stream.Next(ctx)
		if err != nil {
			return false, fmt.Errorf("next stream side: %w", err)
		}
		if !ok {
			s.current = nil
			return false, nil
		}
		s.streamRow = stream.Row()
		key, ok := s.key(s.streamRow, streamKeys)
		if !ok {
			s.matches = nil
		} else {
			s.matches = s.hashTable[key]
		}
		s.matchIndex = 0
	}
	match := s.matches[s.matchIndex]
	s.matchIndex++
	if s.buildLeft {
		s.current = dbrecord.Concat(match, s.streamRow)
	} else {
		s.current = dbrecord.Concat(s.streamRow, match)
	}
	return true, nil
}

func (s *HashJoinScan) key(row dbrecord.Row, keys []int) (string, bool) {
	s.keyBuf = s.keyBuf[:0]
	for _, k := range keys {
		v := row[k]
		if v.IsNull() {
			return "", false
		}
		s.keyBuf = v.AppendKey(s.keyBuf)
	}
	return string(s.keyBuf), true
}

func (s *HashJoinScan) Row() dbrecord.Row {
	return s.current
}

func (s *HashJoinScan) Close() error {
	s.hashTable = nil
	s.matches = nil
	return errors.Join(s.left.Close(), s.right.Close())
}

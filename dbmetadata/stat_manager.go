package dbmetadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teru01/filedb-go/dbrecord"
)

const (
	defaultStatRefreshInterval = 100
)

type StatInfo struct {
	numRecords        int
	distinctValuesMap map[string]int
}

func NewStatInfo(numRecords int, distinctValues map[string]int) *StatInfo {
	return &StatInfo{
		numRecords:        numRecords,
		distinctValuesMap: distinctValues,
	}
}

func (s *StatInfo) RecordsOutput() int {
	return s.numRecords
}

// DistinctValues returns the number of distinct non-null values of fieldName.
func (s *StatInfo) DistinctValues(fieldName string) int {
	return s.distinctValuesMap[fieldName]
}

// StatManager caches per-table cardinality hints computed by a full scan.
type StatManager struct {
	mu              sync.Mutex
	tableStats      map[string]*StatInfo
	numCalls        int
	refreshInterval int
	logger          *slog.Logger
}

func NewStatManager(refreshInterval int, logger *slog.Logger) *StatManager {
	if refreshInterval <= 0 {
		refreshInterval = defaultStatRefreshInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatManager{
		tableStats:      make(map[string]*StatInfo),
		refreshInterval: refreshInterval,
		logger:          logger.With(slog.String("component", "stats")),
	}
}

// GetStatInfo returns the statistics of store. If the table cannot be read to
// the end, the warning is logged and the counts gathered so far are returned
// without caching them. Only a done context is returned as an error.
func (s *StatManager) GetStatInfo(ctx context.Context, store *dbrecord.TableStore) (*StatInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numCalls++
	if s.numCalls > s.refreshInterval {
		// 一定回数ごとに全テーブルの統計を取り直す
		s.tableStats = make(map[string]*StatInfo)
		s.numCalls = 0
	}
	if si, ok := s.tableStats[store.Name()]; ok {
		return si, nil
	}
	si, err := calcTableStats(ctx, store)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("failed to calc table stats, using partial counts",
			slog.String("table", store.Name()), slog.Int("records", si.numRecords), slog.Any("error", err))
		return si, nil
	}
	s.tableStats[store.Name()] = si
	return si, nil
}

// Invalidate drops the cached statistics of tableName.
func (s *StatManager) Invalidate(tableName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tableStats, tableName)
}

func calcTableStats(ctx context.Context, store *dbrecord.TableStore) (statInfo *StatInfo, err error) {
	schema := store.Schema()
	distinct := make([]map[string]struct{}, schema.Len())
	for i := range distinct {
		distinct[i] = make(map[string]struct{})
	}
	numRecords := 0
	// 失敗しても途中までの件数は返す
	defer func() {
		d := make(map[string]int, schema.Len())
		for i, field := range schema.Fields() {
			d[field] = len(distinct[i])
		}
		statInfo = NewStatInfo(numRecords, d)
	}()

	ts := store.Scan()
	defer func() {
		if closeErr := ts.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	var key []byte
	for {
		next, err := ts.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("go next for %q: %w", store.Name(), err)
		}
		if !next {
			break
		}
		numRecords++
		for i, v := range ts.Row() {
			if v.IsNull() {
				continue
			}
			key = v.AppendKey(key[:0])
			distinct[i][string(key)] = struct{}{}
		}
	}
	return nil, nil
}

package dbplan

import (
	"github.com/teru01/filedb-go/dbmetadata"
	"github.com/teru01/filedb-go/dbquery"
	"github.com/teru01/filedb-go/dbrecord"
)

// TablePlan is a full scan of one table. Its columns are qualified with the
// table name or alias.
type TablePlan struct {
	store     *dbrecord.TableStore
	qualifier string
	schema    *dbrecord.Schema
	statInfo  *dbmetadata.StatInfo
}

// NewTablePlan scans store. statInfo may be nil.
func NewTablePlan(store *dbrecord.TableStore, qualifier string, statInfo *dbmetadata.StatInfo) *TablePlan {
	return &TablePlan{
		store:     store,
		qualifier: qualifier,
		schema:    store.Schema().Qualified(qualifier),
		statInfo:  statInfo,
	}
}

func (t *TablePlan) Store() *dbrecord.TableStore {
	return t.store
}

func (t *TablePlan) TableName() string {
	return t.store.Name()
}

func (t *TablePlan) Qualifier() string {
	return t.qualifier
}

func (t *TablePlan) HasStats() bool {
	return t.statInfo != nil
}

func (t *TablePlan) RecordsOutput() int {
	if t.statInfo == nil {
		return 0
	}
	return t.statInfo.RecordsOutput()
}

func (t *TablePlan) DistinctValues(field dbquery.FieldRef) int {
	if t.statInfo == nil || field.Qualifier != t.qualifier {
		return 0
	}
	return t.statInfo.DistinctValues(field.Name)
}

func (t *TablePlan) Schema() *dbrecord.Schema {
	return t.schema
}

func (t *TablePlan) Children() []Plan {
	return nil
}

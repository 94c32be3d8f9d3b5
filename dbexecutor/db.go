package dbexecutor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teru01/filedb-go/dbconstant"
	"github.com/teru01/filedb-go/dbengine"
	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbfile"
	"github.com/teru01/filedb-go/dbmetadata"
	"github.com/teru01/filedb-go/dbparse"
	"github.com/teru01/filedb-go/dbplan"
	"github.com/teru01/filedb-go/dbquery"
	"github.com/teru01/filedb-go/dbrecord"
)

type Config struct {
	// Dir holds one file per table. It is created if missing.
	Dir                 string
	HashJoinThreshold   int
	SyncWrites          bool
	StatRefreshInterval int
	DisableStatistics   bool
	DisablePushdown     bool
	Logger              *slog.Logger
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:                 dir,
		HashJoinThreshold:   dbplan.DefaultHashJoinThreshold,
		SyncWrites:          true,
		StatRefreshInterval: 100,
	}
}

// ExecuteResult represents the result of a SQL execution.
type ExecuteResult struct {
	// Tag is the command tag (e.g. "SELECT 3", "INSERT 0 1", "CREATE TABLE").
	Tag string
	// Fields holds column names for SELECT, EXPLAIN and SHOW TABLES results.
	Fields []string
	// FieldTypes holds the column types of Fields.
	FieldTypes []dbrecord.FieldType
	Rows       []dbrecord.Row
}

// DB is an embedded database over the table files of one directory.
type DB struct {
	mu           sync.Mutex
	fileManager  *dbfile.FileManager
	catalog      *dbmetadata.Catalog
	queryPlanner *dbplan.QueryPlanner
	planner      *dbplan.Planner
	engine       *dbengine.Engine
	logger       *slog.Logger
}

func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %q: %w", cfg.Dir, err)
	}
	fm, err := dbfile.NewFileManager(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("create file manager: %w", err)
	}
	logger := cfg.Logger.With(slog.String("component", "executor"))
	if fm.IsNew() {
		logger.Info("initializing new database", slog.String("dir", cfg.Dir))
	} else {
		logger.Info("opening database", slog.String("dir", cfg.Dir))
	}

	catalog := dbmetadata.NewCatalog(fm, dbmetadata.Options{
		SyncWrites:          cfg.SyncWrites,
		StatRefreshInterval: cfg.StatRefreshInterval,
		Logger:              cfg.Logger,
	})
	qp := dbplan.NewQueryPlanner(catalog, dbplan.Options{
		HashJoinThreshold: cfg.HashJoinThreshold,
		DisableStatistics: cfg.DisableStatistics,
		DisablePushdown:   cfg.DisablePushdown,
		Logger:            cfg.Logger,
	})
	up := dbplan.NewUpdatePlanner(catalog)
	return &DB{
		fileManager:  fm,
		catalog:      catalog,
		queryPlanner: qp,
		planner:      dbplan.NewPlanner(qp, up),
		engine:       dbengine.NewEngine(cfg.Logger),
		logger:       logger,
	}, nil
}

func (db *DB) Catalog() *dbmetadata.Catalog {
	return db.catalog
}

func (db *DB) Planner() *dbplan.Planner {
	return db.planner
}

func (db *DB) Engine() *dbengine.Engine {
	return db.engine
}

// Execute runs one statement to completion.
func (db *DB) Execute(ctx context.Context, sql string) (*ExecuteResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	logger := db.logger.With(slog.String("query_id", uuid.NewString()))
	start := time.Now()
	stmt, err := dbparse.Parse(sql)
	if err != nil {
		logger.Debug("failed to parse statement", slog.String("sql", sql), slog.Any("error", err))
		return nil, err
	}
	result, err := db.execute(ctx, stmt)
	if err != nil {
		logger.Debug("statement failed", slog.String("statement", stmt.String()), slog.String("code", string(dberr.CodeOf(err))), slog.Any("error", err))
		return nil, err
	}
	logger.Debug("executed statement", slog.String("statement", stmt.String()), slog.String("tag", result.Tag), slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (db *DB) execute(ctx context.Context, stmt dbparse.Statement) (*ExecuteResult, error) {
	switch stmt := stmt.(type) {
	case *dbparse.QueryData:
		return db.execQuery(ctx, stmt)
	case *dbparse.ExplainData:
		plan, err := db.queryPlanner.CreatePlan(ctx, stmt.Query())
		if err != nil {
			return nil, err
		}
		result := &ExecuteResult{Tag: "EXPLAIN", Fields: []string{"QUERY PLAN"}, FieldTypes: []dbrecord.FieldType{dbrecord.FieldTypeText}}
		for line := range strings.SplitSeq(dbplan.Explain(plan), "\n") {
			result.Rows = append(result.Rows, dbrecord.Row{dbconstant.NewText(line)})
		}
		return result, nil
	case *dbparse.ShowTablesData:
		names, err := db.catalog.TableNames()
		if err != nil {
			return nil, err
		}
		result := &ExecuteResult{Tag: "SHOW TABLES", Fields: []string{"table"}, FieldTypes: []dbrecord.FieldType{dbrecord.FieldTypeText}}
		for _, name := range names {
			result.Rows = append(result.Rows, dbrecord.Row{dbconstant.NewText(name)})
		}
		return result, nil
	case *dbparse.InsertData:
		n, err := db.planner.ExecuteUpdateStatement(ctx, stmt)
		if err != nil {
			return nil, err
		}
		return &ExecuteResult{Tag: fmt.Sprintf("INSERT 0 %d", n)}, nil
	case *dbparse.CreateTableData:
		if _, err := db.planner.ExecuteUpdateStatement(ctx, stmt); err != nil {
			return nil, err
		}
		return &ExecuteResult{Tag: "CREATE TABLE"}, nil
	}
	return nil, fmt.Errorf("unexpected statement: %T", stmt)
}

func (db *DB) execQuery(ctx context.Context, queryData *dbparse.QueryData) (*ExecuteResult, error) {
	plan, err := db.queryPlanner.CreatePlan(ctx, queryData)
	if err != nil {
		return nil, err
	}
	scan, err := db.engine.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}
	rows, err := dbquery.Collect(ctx, scan)
	if err != nil {
		return nil, err
	}
	fields, fieldTypes := describe(plan.Schema())
	return &ExecuteResult{
		Tag:        fmt.Sprintf("SELECT %d", len(rows)),
		Fields:     fields,
		FieldTypes: fieldTypes,
		Rows:       rows,
	}, nil
}

func describe(schema *dbrecord.Schema) ([]string, []dbrecord.FieldType) {
	fields := schema.Fields()
	fieldTypes := make([]dbrecord.FieldType, len(fields))
	for i, c := range schema.Columns() {
		fieldTypes[i] = c.Type
	}
	return fields, fieldTypes
}

// Query plans a SELECT and returns its rows lazily. The caller must close
// the returned Rows.
func (db *DB) Query(ctx context.Context, sql string) (*Rows, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	queryData, err := dbparse.NewParser(sql).Query()
	if err != nil {
		return nil, err
	}
	plan, err := db.queryPlanner.CreatePlan(ctx, queryData)
	if err != nil {
		return nil, err
	}
	scan, err := db.engine.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}
	fields, fieldTypes := describe(plan.Schema())
	return &Rows{scan: scan, fields: fields, fieldTypes: fieldTypes}, nil
}

// Close closes every table file. The DB must not be used afterwards.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.catalog.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	return nil
}

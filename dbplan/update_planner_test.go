package dbplan_test

import (
	"context"
	"testing"

	"github.com/teru01/filedb-go/dbconstant"
	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbplan"
	"github.com/teru01/filedb-go/dbrecord"
)

func newPlanner(t *testing.T) (*dbplan.Planner, func()) {
	t.Helper()
	catalog, cleanup := setupQueryPlannerTest(t)
	planner := dbplan.NewPlanner(
		dbplan.NewQueryPlanner(catalog, dbplan.Options{}),
		dbplan.NewUpdatePlanner(catalog),
	)
	return planner, cleanup
}

func readAll(t *testing.T, store *dbrecord.TableStore) []dbrecord.Row {
	t.Helper()
	scan := store.Scan()
	defer scan.Close()
	var rows []dbrecord.Row
	for {
		next, err := scan.Next(context.Background())
		if err != nil {
			t.Fatalf("failed to scan %s: %v", store.Name(), err)
		}
		if !next {
			return rows
		}
		rows = append(rows, scan.Row())
	}
}

func TestUpdatePlannerCreateAndInsert(t *testing.T) {
	catalog, cleanup := setupQueryPlannerTest(t)
	defer cleanup()
	planner := dbplan.NewPlanner(dbplan.NewQueryPlanner(catalog, dbplan.Options{}), dbplan.NewUpdatePlanner(catalog))
	ctx := context.Background()

	if _, err := planner.ExecuteUpdate(ctx, "CREATE TABLE users (id INT, name VARCHAR(10))"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	n, err := planner.ExecuteUpdate(ctx, "INSERT INTO users VALUES (1, 'Alice'), (2, 'Bob')")
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 affected rows, got %d", n)
	}
	n, err = planner.ExecuteUpdate(ctx, "INSERT INTO users (name) VALUES ('Carol')")
	if err != nil {
		t.Fatalf("failed to insert with column list: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 affected row, got %d", n)
	}

	store, err := catalog.GetTable(ctx, "users")
	if err != nil {
		t.Fatalf("failed to get table: %v", err)
	}
	expected := []dbrecord.Row{
		{dbconstant.NewInt(1), dbconstant.NewText("Alice")},
		{dbconstant.NewInt(2), dbconstant.NewText("Bob")},
		{dbconstant.Null(), dbconstant.NewText("Carol")},
	}
	rows := readAll(t, store)
	if len(rows) != len(expected) {
		t.Fatalf("expected %d rows, got %d", len(expected), len(rows))
	}
	for i := range expected {
		if !rows[i].Equal(expected[i]) {
			t.Errorf("row %d: expected %v, got %v", i, expected[i], rows[i])
		}
	}

	if _, err := planner.ExecuteUpdate(ctx, "CREATE TABLE users (id INT)"); !dberr.Is(err, dberr.CodeTableAlreadyExists) {
		t.Errorf("expected TableAlreadyExists, got %v", err)
	}
}

func TestUpdatePlannerInsertErrors(t *testing.T) {
	catalog, cleanup := setupQueryPlannerTest(t)
	defer cleanup()
	planner := dbplan.NewPlanner(dbplan.NewQueryPlanner(catalog, dbplan.Options{}), dbplan.NewUpdatePlanner(catalog))
	ctx := context.Background()

	if _, err := planner.ExecuteUpdate(ctx, "CREATE TABLE users (id INT, name VARCHAR(5))"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := planner.ExecuteUpdate(ctx, "INSERT INTO users VALUES (1, 'Alice')"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	store, err := catalog.GetTable(ctx, "users")
	if err != nil {
		t.Fatalf("failed to get table: %v", err)
	}
	size := store.Size()

	tests := []struct {
		name string
		sql  string
		code dberr.Code
	}{
		{"unknown column", "INSERT INTO users (id, age) VALUES (2, 3)", dberr.CodeUnresolvedColumn},
		{"duplicate column", "INSERT INTO users (id, id) VALUES (2, 3)", dberr.CodeSchemaViolation},
		{"too few values", "INSERT INTO users VALUES (2)", dberr.CodeSchemaViolation},
		{"too many values", "INSERT INTO users (id) VALUES (2, 'Bob')", dberr.CodeSchemaViolation},
		{"wrong type", "INSERT INTO users VALUES ('2', 'Bob')", dberr.CodeSchemaViolation},
		{"text too long", "INSERT INTO users VALUES (2, 'Bobby!')", dberr.CodeSchemaViolation},
		{"bad row after good rows", "INSERT INTO users VALUES (2, 'Bob'), (3, 'Carol'), (4, 'Dave-too-long')", dberr.CodeSchemaViolation},
		{"missing table", "INSERT INTO nothing VALUES (1)", dberr.CodeTableNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := planner.ExecuteUpdate(ctx, tt.sql)
			if !dberr.Is(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
			if store.Size() != size {
				t.Errorf("table changed from %d to %d bytes", size, store.Size())
			}
		})
	}
}

func TestUpdatePlannerInsertInvalidatesStats(t *testing.T) {
	catalog, cleanup := setupQueryPlannerTest(t)
	defer cleanup()
	planner := dbplan.NewPlanner(dbplan.NewQueryPlanner(catalog, dbplan.Options{}), dbplan.NewUpdatePlanner(catalog))
	ctx := context.Background()

	if _, err := planner.ExecuteUpdate(ctx, "CREATE TABLE t (a INT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := planner.ExecuteUpdate(ctx, "INSERT INTO t VALUES (1), (2)"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	store, err := catalog.GetTable(ctx, "t")
	if err != nil {
		t.Fatalf("failed to get table: %v", err)
	}
	stats, err := catalog.GetStatInfo(ctx, store)
	if err != nil {
		t.Fatalf("failed to get stat info: %v", err)
	}
	if stats.RecordsOutput() != 2 {
		t.Fatalf("expected 2 records, got %d", stats.RecordsOutput())
	}

	if _, err := planner.ExecuteUpdate(ctx, "INSERT INTO t VALUES (3)"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	stats, err = catalog.GetStatInfo(ctx, store)
	if err != nil {
		t.Fatalf("failed to get stat info: %v", err)
	}
	if stats.RecordsOutput() != 3 {
		t.Errorf("expected refreshed count 3, got %d", stats.RecordsOutput())
	}
	if stats.DistinctValues("a") != 3 {
		t.Errorf("expected 3 distinct values, got %d", stats.DistinctValues("a"))
	}
}

func TestPlannerCreateQueryPlan(t *testing.T) {
	planner, cleanup := newPlanner(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := planner.ExecuteUpdate(ctx, "CREATE TABLE t (a INT, b TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	plan, err := planner.CreateQueryPlan(ctx, "SELECT b FROM t WHERE a = 1")
	if err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}
	if got := plan.Schema().Fields(); len(got) != 1 || got[0] != "b" {
		t.Errorf("unexpected fields: %v", got)
	}

	if _, err := planner.CreateQueryPlan(ctx, "INSERT INTO t VALUES (1, 'x')"); !dberr.Is(err, dberr.CodeSyntaxError) {
		t.Errorf("expected SyntaxError for non-query, got %v", err)
	}
	if _, err := planner.ExecuteUpdate(ctx, "SELECT a FROM t"); err == nil {
		t.Errorf("expected error for query passed as update")
	}
}

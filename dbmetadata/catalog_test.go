package dbmetadata_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/teru01/filedb-go/dbconstant"
	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbfile"
	"github.com/teru01/filedb-go/dbmetadata"
	"github.com/teru01/filedb-go/dbrecord"
)

func TestCatalogCreateAndGetTable(t *testing.T) {
	catalog, _, cleanup := setupTestCatalog(t)
	defer cleanup()
	ctx := context.Background()

	created, err := catalog.CreateTable(ctx, "students", studentsSchema())
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	got, err := catalog.GetTable(ctx, "students")
	if err != nil {
		t.Fatalf("failed to get table: %v", err)
	}
	if got != created {
		t.Error("GetTable should return the handle created by CreateTable")
	}
	again, err := catalog.GetTable(ctx, "students")
	if err != nil {
		t.Fatalf("failed to get table: %v", err)
	}
	if again != got {
		t.Error("GetTable should return the same handle every time")
	}
}

func TestCatalogTableAlreadyExists(t *testing.T) {
	catalog, _, cleanup := setupTestCatalog(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := catalog.CreateTable(ctx, "students", studentsSchema()); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	_, err := catalog.CreateTable(ctx, "students", studentsSchema())
	if !dberr.Is(err, dberr.CodeTableAlreadyExists) {
		t.Fatalf("expected TABLE_ALREADY_EXISTS, got %v", err)
	}
}

func TestCatalogTableNotFound(t *testing.T) {
	catalog, _, cleanup := setupTestCatalog(t)
	defer cleanup()

	for _, name := range []string{"missing", "../etc/passwd"} {
		_, err := catalog.GetTable(context.Background(), name)
		if !dberr.Is(err, dberr.CodeTableNotFound) {
			t.Errorf("%s: expected TABLE_NOT_FOUND, got %v", name, err)
		}
	}
}

func TestCatalogInvalidNames(t *testing.T) {
	catalog, _, cleanup := setupTestCatalog(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := catalog.CreateTable(ctx, "bad-name", studentsSchema()); !dberr.Is(err, dberr.CodeSchemaViolation) {
		t.Errorf("expected SCHEMA_VIOLATION for table name, got %v", err)
	}
	schema := dbrecord.NewSchema()
	schema.AddIntField("1st")
	if _, err := catalog.CreateTable(ctx, "good", schema); !dberr.Is(err, dberr.CodeSchemaViolation) {
		t.Errorf("expected SCHEMA_VIOLATION for column name, got %v", err)
	}
	if _, err := catalog.CreateTable(ctx, "empty", dbrecord.NewSchema()); !dberr.Is(err, dberr.CodeSchemaViolation) {
		t.Errorf("expected SCHEMA_VIOLATION for empty schema, got %v", err)
	}
}

func TestCatalogReopenAcrossSessions(t *testing.T) {
	catalog, dir, cleanup := setupTestCatalog(t)
	defer cleanup()
	ctx := context.Background()

	store, err := catalog.CreateTable(ctx, "students", studentsSchema())
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	row := dbrecord.Row{dbconstant.NewInt(1), dbconstant.NewText("Ann"), dbconstant.NewInt(3)}
	if err := store.Append(row); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	if _, err := catalog.CreateTable(ctx, "temp_readings", studentsSchema()); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if err := catalog.Close(); err != nil {
		t.Fatalf("failed to close catalog: %v", err)
	}

	fm, err := dbfile.NewFileManager(dir)
	if err != nil {
		t.Fatalf("failed to create file manager: %v", err)
	}
	next := dbmetadata.NewCatalog(fm, dbmetadata.Options{})
	defer next.Close()

	names, err := next.TableNames()
	if err != nil {
		t.Fatalf("failed to list tables: %v", err)
	}
	if len(names) != 2 || names[0] != "students" || names[1] != "temp_readings" {
		t.Errorf("unexpected table names %v", names)
	}
	reopened, err := next.GetTable(ctx, "students")
	if err != nil {
		t.Fatalf("failed to get table: %v", err)
	}
	if !reopened.Schema().Equal(studentsSchema()) {
		t.Errorf("expected schema %s, got %s", studentsSchema(), reopened.Schema())
	}
	scan := reopened.Scan()
	defer scan.Close()
	ok, err := scan.Next(ctx)
	if !ok || err != nil {
		t.Fatalf("expected a row, got %v, %v", ok, err)
	}
	if !scan.Row().Equal(row) {
		t.Errorf("expected %v, got %v", row, scan.Row())
	}
	if _, err := next.CreateTable(ctx, "students", studentsSchema()); !dberr.Is(err, dberr.CodeTableAlreadyExists) {
		t.Errorf("expected TABLE_ALREADY_EXISTS for table on disk, got %v", err)
	}
}

// failingFile accepts no writes.
type failingFile struct {
	*os.File
}

func (f failingFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, errors.New("disk full")
}

func TestCatalogCreateTableRemovesFileOnFailure(t *testing.T) {
	dir, err := os.MkdirTemp("", "catalog_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	fm, err := dbfile.NewFileManager(dir)
	if err != nil {
		t.Fatalf("failed to create file manager: %v", err)
	}
	ctx := context.Background()

	failing := dbmetadata.NewCatalog(fm, dbmetadata.Options{
		OpenFile: func(path string, syncWrites bool) (*dbfile.AppendFile, error) {
			f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
			if err != nil {
				return nil, err
			}
			return dbfile.NewAppendFile(failingFile{f}, 0, syncWrites), nil
		},
	})
	defer failing.Close()
	if _, err := failing.CreateTable(ctx, "students", studentsSchema()); !dberr.Is(err, dberr.CodeIOError) {
		t.Fatalf("expected IO_ERROR, got %v", err)
	}
	if _, err := os.Stat(fm.TablePath("students")); !os.IsNotExist(err) {
		t.Errorf("expected no table file after failed create, got %v", err)
	}

	catalog := dbmetadata.NewCatalog(fm, dbmetadata.Options{})
	defer catalog.Close()
	if _, err := catalog.CreateTable(ctx, "students", studentsSchema()); err != nil {
		t.Errorf("failed to create table after failed attempt: %v", err)
	}
}

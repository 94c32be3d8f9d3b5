package dbfile_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/teru01/filedb-go/dbfile"
)

// faultyFile writes only half of every buffer and then fails.
type faultyFile struct {
	*os.File
	truncated bool
}

var errDiskFull = errors.New("disk full")

func (f *faultyFile) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.File.WriteAt(p[:len(p)/2], off)
	if err != nil {
		return n, err
	}
	return n, errDiskFull
}

func (f *faultyFile) Truncate(size int64) error {
	f.truncated = true
	return f.File.Truncate(size)
}

func TestAppendFileAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tbl")
	af, err := dbfile.OpenAppendFile(path, true)
	if err != nil {
		t.Fatalf("failed to open append file: %v", err)
	}
	defer af.Close()

	if err := af.Append([]byte("hello ")); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	if err := af.Append([]byte("world")); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	if af.Size() != 11 {
		t.Fatalf("expected size 11, got %d", af.Size())
	}

	section := af.Section(0, af.Size())
	b, err := io.ReadAll(section)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(b) != "hello world" {
		t.Errorf("unexpected content %q", string(b))
	}
}

func TestAppendFileSectionIsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tbl")
	af, err := dbfile.OpenAppendFile(path, false)
	if err != nil {
		t.Fatalf("failed to open append file: %v", err)
	}
	defer af.Close()

	if err := af.Append([]byte("abc")); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	section := af.Section(0, af.Size())
	if err := af.Append([]byte("def")); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	b, err := io.ReadAll(section)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(b) != "abc" {
		t.Errorf("section should stop at its starting size, got %q", string(b))
	}
}

func TestAppendFileFailedAppendRestoresLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tbl")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if _, err := f.Write([]byte("good")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	ff := &faultyFile{File: f}
	af := dbfile.NewAppendFile(ff, 4, false)
	defer af.Close()

	err = af.Append([]byte("partial record"))
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected disk full error, got %v", err)
	}
	if !ff.truncated {
		t.Error("expected file to be truncated after failed append")
	}
	if af.Size() != 4 {
		t.Errorf("expected size to stay 4, got %d", af.Size())
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat: %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("expected file length 4 on disk, got %d", info.Size())
	}
}

func TestFileManagerTableNames(t *testing.T) {
	dir := t.TempDir()
	fm, err := dbfile.NewFileManager(dir)
	if err != nil {
		t.Fatalf("failed to create file manager: %v", err)
	}
	if !fm.IsNew() {
		t.Error("empty directory should be new")
	}
	for _, name := range []string{"users", "orders"} {
		if err := os.WriteFile(fm.TablePath(name), nil, 0644); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	names, err := fm.TableNames()
	if err != nil {
		t.Fatalf("failed to list tables: %v", err)
	}
	if len(names) != 2 || names[0] != "orders" || names[1] != "users" {
		t.Errorf("unexpected table names %v", names)
	}
	exists, err := fm.TableExists("users")
	if err != nil || !exists {
		t.Errorf("expected users to exist, got %v, %v", exists, err)
	}
	exists, err = fm.TableExists("missing")
	if err != nil || exists {
		t.Errorf("expected missing to not exist, got %v, %v", exists, err)
	}
}

func TestFileManagerKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"temperature", "temp_log"} {
		if err := os.WriteFile(filepath.Join(dir, dbfile.TableFileName(name)), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
	}
	fm, err := dbfile.NewFileManager(dir)
	if err != nil {
		t.Fatalf("failed to create file manager: %v", err)
	}
	if fm.IsNew() {
		t.Error("directory with files should not be new")
	}
	names, err := fm.TableNames()
	if err != nil {
		t.Fatalf("failed to list tables: %v", err)
	}
	if len(names) != 2 || names[0] != "temp_log" || names[1] != "temperature" {
		t.Errorf("expected both tables to survive, got %v", names)
	}
}

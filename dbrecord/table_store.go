package dbrecord

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbfile"
)

type Options struct {
	// 追記ごとにfsyncする
	SyncWrites bool
	Logger     *slog.Logger
	// OpenFile opens the table file. Defaults to dbfile.OpenAppendFile.
	OpenFile func(path string, syncWrites bool) (*dbfile.AppendFile, error)
}

// TableStore is an open table file: a schema header followed by records
// appended back to back.
type TableStore struct {
	mu        sync.Mutex
	name      string
	schema    *Schema
	file      *dbfile.AppendFile
	dataStart int64
	logger    *slog.Logger
}

// OpenTableStore opens or creates the table file at path. A new or empty
// file gets schema's header; an existing file must carry the same schema.
func OpenTableStore(path string, schema *Schema, opts Options) (*TableStore, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return openTableStore(path, schema, opts)
}

// OpenExistingTableStore opens a table file and adopts the schema stored in it.
func OpenExistingTableStore(path string, opts Options) (*TableStore, error) {
	return openTableStore(path, nil, opts)
}

func openTableStore(path string, expected *Schema, opts Options) (ts *TableStore, err error) {
	openFile := opts.OpenFile
	if openFile == nil {
		openFile = dbfile.OpenAppendFile
	}
	file, err := openFile(path, opts.SyncWrites)
	if err != nil {
		return nil, dberr.New(dberr.CodeIOError, fmt.Sprintf("failed to open table file %s", path), err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, file.Close())
		}
	}()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	logger = logger.With(slog.String("component", "table"), slog.String("table", name))

	var schema *Schema
	if file.Size() == 0 {
		if expected == nil {
			return nil, dberr.New(dberr.CodeCorruptData, fmt.Sprintf("table file %s has no header", path), nil)
		}
		if err := file.Append(EncodeHeader(expected)); err != nil {
			return nil, dberr.New(dberr.CodeIOError, fmt.Sprintf("failed to write header of %s", path), err)
		}
		schema = expected
		logger.Info("created table file", slog.String("path", path), slog.String("schema", schema.String()))
	} else {
		stored, err := ReadHeader(bufio.NewReader(file.Section(0, file.Size())))
		if err != nil {
			return nil, fmt.Errorf("read header of %s: %w", path, err)
		}
		if expected != nil && !stored.Equal(expected) {
			return nil, dberr.New(dberr.CodeSchemaMismatch, fmt.Sprintf("table file %s has schema %s, expected %s", path, stored, expected), nil)
		}
		schema = stored
		logger.Info("opened table file", slog.String("path", path), slog.Int64("size", file.Size()))
	}

	return &TableStore{
		name:      name,
		schema:    schema,
		file:      file,
		dataStart: int64(len(EncodeHeader(schema))),
		logger:    logger,
	}, nil
}

func (ts *TableStore) Name() string {
	return ts.name
}

func (ts *TableStore) Schema() *Schema {
	return ts.schema
}

// Size returns the current file length in bytes, header included.
func (ts *TableStore) Size() int64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.file.Size()
}

// Append validates, encodes and appends row. On a write failure the file is
// restored to its previous length.
func (ts *TableStore) Append(row Row) error {
	rec, err := EncodeRow(row, ts.schema)
	if err != nil {
		return fmt.Errorf("insert into %q: %w", ts.name, err)
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err := ts.file.Append(rec); err != nil {
		return dberr.New(dberr.CodeIOError, fmt.Sprintf("failed to append row to %q", ts.name), err)
	}
	return nil
}

// Scan returns an iterator over the rows present when Scan is called.
func (ts *TableStore) Scan() *TableScan {
	ts.mu.Lock()
	end := ts.file.Size()
	ts.mu.Unlock()
	return newTableScan(ts.name, ts.schema, ts.file.Section(ts.dataStart, end-ts.dataStart))
}

func (ts *TableStore) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err := ts.file.Close(); err != nil {
		return dberr.New(dberr.CodeIOError, fmt.Sprintf("failed to close table %q", ts.name), err)
	}
	return nil
}

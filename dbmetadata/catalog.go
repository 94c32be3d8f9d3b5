package dbmetadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"regexp"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/teru01/filedb-go/dberr"
	"github.com/teru01/filedb-go/dbfile"
	"github.com/teru01/filedb-go/dbrecord"
)

const (
	MaxNameLength = 64
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Options struct {
	SyncWrites          bool
	StatRefreshInterval int
	Logger              *slog.Logger
	// OpenFile is passed to every table store. nil uses dbfile.OpenAppendFile.
	OpenFile func(path string, syncWrites bool) (*dbfile.AppendFile, error)
}

// Catalog maps table names to open table stores. It holds at most one handle
// per table and closes all of them on Close.
type Catalog struct {
	mu          sync.Mutex
	fileManager *dbfile.FileManager
	tables      map[string]*dbrecord.TableStore
	statManager *StatManager
	opts        Options
	logger      *slog.Logger
}

func NewCatalog(fileManager *dbfile.FileManager, opts Options) *Catalog {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Catalog{
		fileManager: fileManager,
		tables:      make(map[string]*dbrecord.TableStore),
		statManager: NewStatManager(opts.StatRefreshInterval, opts.Logger),
		opts:        opts,
		logger:      opts.Logger.With(slog.String("component", "catalog")),
	}
}

func ValidateName(name string) error {
	if len(name) > MaxNameLength {
		return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("name %q is longer than %d", name, MaxNameLength), nil)
	}
	if !identifierPattern.MatchString(name) {
		return dberr.New(dberr.CodeSchemaViolation, fmt.Sprintf("invalid name %q", name), nil)
	}
	return nil
}

func (c *Catalog) CreateTable(ctx context.Context, tableName string, schema *dbrecord.Schema) (*dbrecord.TableStore, error) {
	if err := ValidateName(tableName); err != nil {
		return nil, err
	}
	for _, field := range schema.Fields() {
		if err := ValidateName(field); err != nil {
			return nil, fmt.Errorf("column of table %q: %w", tableName, err)
		}
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("schema of table %q: %w", tableName, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[tableName]; ok {
		return nil, dberr.New(dberr.CodeTableAlreadyExists, fmt.Sprintf("table %q already exists", tableName), nil)
	}
	exists, err := c.fileManager.TableExists(tableName)
	if err != nil {
		return nil, dberr.New(dberr.CodeIOError, fmt.Sprintf("failed to check table %q", tableName), err)
	}
	if exists {
		return nil, dberr.New(dberr.CodeTableAlreadyExists, fmt.Sprintf("table %q already exists", tableName), nil)
	}

	path := c.fileManager.TablePath(tableName)
	store, err := dbrecord.OpenTableStore(path, schema, c.storeOptions())
	if err != nil {
		// 作りかけのファイルが残ると同名のテーブルを作れなくなる
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			err = errors.Join(err, fmt.Errorf("remove %s: %w", path, rmErr))
		}
		return nil, fmt.Errorf("create table %q: %w", tableName, err)
	}
	c.tables[tableName] = store
	c.logger.Info("created table", slog.String("table", tableName), slog.String("schema", schema.String()))
	return store, nil
}

// GetTable returns the open handle for tableName, opening the table file on
// first use.
func (c *Catalog) GetTable(ctx context.Context, tableName string) (*dbrecord.TableStore, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if store, ok := c.tables[tableName]; ok {
		return store, nil
	}
	if err := ValidateName(tableName); err != nil {
		return nil, dberr.New(dberr.CodeTableNotFound, fmt.Sprintf("table %q not found", tableName), nil)
	}
	exists, err := c.fileManager.TableExists(tableName)
	if err != nil {
		return nil, dberr.New(dberr.CodeIOError, fmt.Sprintf("failed to check table %q", tableName), err)
	}
	if !exists {
		return nil, dberr.New(dberr.CodeTableNotFound, fmt.Sprintf("table %q not found", tableName), nil)
	}
	store, err := dbrecord.OpenExistingTableStore(c.fileManager.TablePath(tableName), c.storeOptions())
	if err != nil {
		return nil, fmt.Errorf("open table %q: %w", tableName, err)
	}
	c.tables[tableName] = store
	return store, nil
}

// TableNames lists the tables that are open or present on disk, sorted.
func (c *Catalog) TableNames() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	names, err := c.fileManager.TableNames()
	if err != nil {
		return nil, dberr.New(dberr.CodeIOError, "failed to list tables", err)
	}
	for name := range maps.Keys(c.tables) {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (c *Catalog) GetStatInfo(ctx context.Context, store *dbrecord.TableStore) (*StatInfo, error) {
	return c.statManager.GetStatInfo(ctx, store)
}

func (c *Catalog) InvalidateStats(tableName string) {
	c.statManager.Invalidate(tableName)
}

// Close closes every open table. All handles are released even if some
// closes fail.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := slices.Sorted(maps.Keys(c.tables))
	errs := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		store := c.tables[name]
		g.Go(func() error {
			if err := store.Close(); err != nil {
				errs[i] = fmt.Errorf("close table %q: %w", name, err)
			}
			return errs[i]
		})
	}
	_ = g.Wait()
	clear(c.tables)
	return errors.Join(errs...)
}

func (c *Catalog) storeOptions() dbrecord.Options {
	return dbrecord.Options{SyncWrites: c.opts.SyncWrites, Logger: c.opts.Logger, OpenFile: c.opts.OpenFile}
}

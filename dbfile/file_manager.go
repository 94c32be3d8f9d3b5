package dbfile

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const (
	defaultDirectory = "/tmp/filedb"
	tableFileExt     = ".tbl"
)

// FileManager owns the data directory and the table file naming convention.
// It does not keep file handles; those belong to the table stores.
type FileManager struct {
	mu    sync.Mutex
	dir   string
	isNew bool
}

func NewFileManager(dir string) (*FileManager, error) {
	if dir == "" {
		dir = defaultDirectory
	}
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	isNew := os.IsNotExist(err) || len(entries) == 0
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &FileManager{dir: dir, isNew: isNew}, nil
}

func TableFileName(tableName string) string {
	return tableName + tableFileExt
}

func (fm *FileManager) Dir() string {
	return fm.dir
}

func (fm *FileManager) IsNew() bool {
	return fm.isNew
}

func (fm *FileManager) TablePath(tableName string) string {
	return filepath.Join(fm.dir, TableFileName(tableName))
}

func (fm *FileManager) TableExists(tableName string) (bool, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	_, err := os.Stat(fm.TablePath(tableName))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat table file for %q: %w", tableName, err)
}

// TableNames lists every table file in the directory, sorted.
func (fm *FileManager) TableNames() ([]string, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	entries, err := os.ReadDir(fm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fm.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), tableFileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), tableFileExt))
	}
	slices.Sort(names)
	return names, nil
}

package dbfile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// File is the subset of *os.File an AppendFile needs.
type File interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Sync() error
	Close() error
	Name() string
}

// AppendFile is a file that only grows at its end. It remembers the last
// known-good length so that a failed append never leaves a partial record.
type AppendFile struct {
	file       File
	size       int64
	syncWrites bool
}

func OpenAppendFile(path string, syncWrites bool) (*AppendFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to get file info %s: %w", path, err), f.Close())
	}
	return NewAppendFile(f, info.Size(), syncWrites), nil
}

func NewAppendFile(f File, size int64, syncWrites bool) *AppendFile {
	return &AppendFile{file: f, size: size, syncWrites: syncWrites}
}

func (a *AppendFile) Name() string {
	return a.file.Name()
}

func (a *AppendFile) Size() int64 {
	return a.size
}

// Append writes p at the end of the file. Either all of p is written (and
// synced if configured) or the file is truncated back to its previous size.
func (a *AppendFile) Append(p []byte) error {
	n, err := a.file.WriteAt(p, a.size)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	if err == nil && a.syncWrites {
		err = a.file.Sync()
	}
	if err != nil {
		if truncErr := a.file.Truncate(a.size); truncErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to truncate %s back to %d: %w", a.file.Name(), a.size, truncErr))
		}
		return fmt.Errorf("failed to append %d bytes to %s: %w", len(p), a.file.Name(), err)
	}
	a.size += int64(n)
	return nil
}

// Section returns a reader over [off, off+n). Readers are independent of each
// other and of later appends.
func (a *AppendFile) Section(off, n int64) *io.SectionReader {
	return io.NewSectionReader(a.file, off, n)
}

func (a *AppendFile) ReadAt(p []byte, off int64) (int, error) {
	return a.file.ReadAt(p, off)
}

func (a *AppendFile) Close() error {
	return a.file.Close()
}

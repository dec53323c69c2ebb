package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LineFile appends one line per record. Each line goes out in a single
// O_APPEND write.
type LineFile struct {
	Path   string
	Format func(Record) string
}

func NewLineFile(path string, format func(Record) string) *LineFile {
	return &LineFile{Path: path, Format: format}
}

func (f *LineFile) Append(ctx context.Context, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), os.ModePerm); err != nil {
		return fmt.Errorf("error creating records directory: %w", err)
	}
	fd, err := os.OpenFile(f.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", f.Path, err)
	}
	_, err = fd.Write([]byte(f.Format(rec) + "\n"))
	if err != nil {
		fd.Close()
		return fmt.Errorf("error appending to %s: %w", f.Path, err)
	}
	return fd.Close()
}

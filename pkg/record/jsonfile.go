package record

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/creachadair/atomicfile"
	filelock "github.com/zbiljic/go-filelock"

	"olas.info/attest/pkg/log"
)

// JSONArrayFile keeps a JSON array on disk and appends one element per
// record. The file is rewritten through a temp file and rename, so readers
// never see a partial array.
type JSONArrayFile struct {
	Path  string
	Entry func(Record) any

	mu sync.Mutex
}

func NewJSONArrayFile(path string, entry func(Record) any) *JSONArrayFile {
	return &JSONArrayFile{Path: path, Entry: entry}
}

func (f *JSONArrayFile) Append(ctx context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.Path), os.ModePerm); err != nil {
		return fmt.Errorf("error creating records directory: %w", err)
	}
	lock, err := filelock.New(f.Path + ".lock")
	if err != nil {
		return fmt.Errorf("error creating lock for %s: %w", f.Path, err)
	}
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("error locking %s: %w", f.Path, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Log(ctx, "error unlocking records file", "path", f.Path, "error", err)
		}
	}()

	entries, err := f.read()
	if err != nil {
		return err
	}
	bs, err := json.Marshal(f.Entry(rec))
	if err != nil {
		return fmt.Errorf("error encoding record: %w", err)
	}
	entries = append(entries, bs)
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", f.Path, err)
	}
	if err := f.write(out); err != nil {
		return err
	}
	log.Debug(ctx, "appended record", "path", f.Path, "count", len(entries))
	return nil
}

// Entries returns the raw elements currently in the file.
func (f *JSONArrayFile) Entries() ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *JSONArrayFile) read() ([]json.RawMessage, error) {
	bs, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", f.Path, err)
	}
	if len(bytes.TrimSpace(bs)) == 0 {
		return []json.RawMessage{}, nil
	}
	entries := []json.RawMessage{}
	if err := json.Unmarshal(bs, &entries); err != nil {
		return nil, fmt.Errorf("refusing to overwrite %s, it is not a JSON array: %w", f.Path, err)
	}
	return entries, nil
}

func (f *JSONArrayFile) write(bs []byte) error {
	af, err := atomicfile.New(f.Path, 0644)
	if err != nil {
		return fmt.Errorf("error opening %s for writing: %w", f.Path, err)
	}
	if _, err := af.Write(append(bs, '\n')); err != nil {
		af.Cancel()
		return fmt.Errorf("error writing %s: %w", f.Path, err)
	}
	if err := af.Close(); err != nil {
		return fmt.Errorf("error replacing %s: %w", f.Path, err)
	}
	return nil
}

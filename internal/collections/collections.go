// Package collections stores extracted records as JSON array files, one per
// collection, under a data directory (data/biblios.json, data/patrons.json, ...).
package collections

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"
)

// Store reads and writes collection files in one directory.
type Store struct {
	dir string
}

// NewStore creates the data directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file backing a collection.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// WriteCollection replaces the collection file with records marshalled as a
// JSON array. The file is swapped in atomically so a failed write never
// leaves a truncated collection behind.
func (s *Store) WriteCollection(name string, records any) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.json")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriter(tmp)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// Read returns the documents of a collection without decoding them.
func (s *Store) Read(name string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return docs, nil
}

// ReadInto decodes a collection into v.
func (s *Store) ReadInto(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

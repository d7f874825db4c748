package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SaveJSON writes v as indented JSON to path, replacing any previous file.
// The write goes to a temp file that is renamed into place.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads path into v.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// jsonSink streams matrix rows as a JSON array of objects.
type jsonSink struct {
	path    string
	tmp     string
	f       *os.File
	w       *bufio.Writer
	written int
}

func newJSONSink(path string) (*jsonSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", tmp, err)
	}
	s := &jsonSink{path: path, tmp: tmp, f: f, w: bufio.NewWriterSize(f, 1<<20)}
	if _, err := s.w.WriteString("["); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *jsonSink) WriteRow(_ context.Context, row MatrixRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshaling row: %w", err)
	}
	sep := ",\n    "
	if s.written == 0 {
		sep = "\n    "
	}
	if _, err := s.w.WriteString(sep); err != nil {
		return fmt.Errorf("writing %s: %w", s.tmp, err)
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", s.tmp, err)
	}
	s.written++
	return nil
}

func (s *jsonSink) Written() int {
	return s.written
}

func (s *jsonSink) Close() error {
	tail := "\n]\n"
	if s.written == 0 {
		tail = "]\n"
	}
	_, err := s.w.WriteString(tail)
	err = errors.Join(err, s.w.Flush(), s.f.Close())
	if err != nil {
		os.Remove(s.tmp)
		return fmt.Errorf("finishing %s: %w", s.path, err)
	}
	if err := os.Rename(s.tmp, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

func (s *jsonSink) Abort() error {
	err := s.f.Close()
	if rmErr := os.Remove(s.tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

// Package filestore keeps the job collection in a single JSON file.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sky93/queuectl"
)

// DefaultFileName is the file created inside the data directory.
const DefaultFileName = "jobs.json"

// Store is a queuectl.Store backed by a JSON array on disk.
type Store struct {
	path string
}

// New returns a Store writing to path. The parent directory is created on
// the first save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path is the file the store reads and writes.
func (s *Store) Path() string { return s.path }

// LoadAll reads the file. A missing or empty file is an empty collection;
// undecodable content yields ErrCorruptStore.
func (s *Store) LoadAll(_ context.Context) ([]queuectl.JobRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var jobs []queuectl.JobRecord
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", queuectl.ErrCorruptStore, s.path, err)
	}
	for _, j := range jobs {
		if !j.State.Valid() || j.ID == "" {
			return nil, fmt.Errorf("%w: %s: bad record %q", queuectl.ErrCorruptStore, s.path, j.ID)
		}
	}
	return jobs, nil
}

// SaveAll writes the collection to a temporary file in the same directory
// and renames it over the old one, so readers see either version whole.
func (s *Store) SaveAll(_ context.Context, jobs []queuectl.JobRecord) error {
	if jobs == nil {
		jobs = []queuectl.JobRecord{}
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode jobs: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

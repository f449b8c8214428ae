package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Store persists one artifact file per subcategory ID under a directory.
// Each file is written by exactly one task, so no locking is needed across IDs.
type Store struct {
	dir string
}

// NewStore binds a store to dir. The directory is created lazily on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(id int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d.json", id))
}

// Save writes the artifact atomically, replacing any previous file for the same ID.
func (s *Store) Save(a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact %d: %w", a.SubcategoryID, err)
	}

	path := s.path(a.SubcategoryID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp artifact file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename artifact file: %w", err)
	}
	return nil
}

// Load reads the artifact for id. A missing file wraps ErrNotFound.
func (s *Store) Load(id int) (*Artifact, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("subcategory %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read artifact %d: %w", id, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %d: %w", id, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes the artifact for id. A missing file is not an error.
func (s *Store) Delete(id int) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove artifact %d: %w", id, err)
	}
	return nil
}

// List returns the IDs with a persisted artifact, ascending. A missing directory is empty.
func (s *Store) List() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list model directory: %w", err)
	}

	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(stem)
		if err != nil || id < 0 {
			log.Debug().Str("file", e.Name()).Msg("Ignoring non-artifact file in model directory")
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Empty reports whether no artifact has been persisted yet.
func (s *Store) Empty() (bool, error) {
	ids, err := s.List()
	if err != nil {
		return false, err
	}
	return len(ids) == 0, nil
}

package registry

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"
)

// Mapping assigns every known subcategory name a permanent integer ID.
type Mapping map[string]int

// Registry is the append-only subcategory encoder persisted as a single JSON object.
// A Registry value is scoped to one pipeline run; it is never shared through package state.
type Registry struct {
	path    string
	mapping Mapping
}

// Open returns a registry bound to the mapping file at path. Nothing is read until Resolve.
func Open(path string) *Registry {
	return &Registry{path: path, mapping: Mapping{}}
}

// Path returns the location of the mapping file.
func (r *Registry) Path() string {
	return r.path
}

// Resolve registers names and returns the full mapping (previously known plus new).
// The persisted mapping is reloaded on every call. Unseen names are assigned in sorted
// order starting at max(existing)+1, or 0 for an empty mapping. The file is rewritten
// only when at least one name was added.
func (r *Registry) Resolve(names []string) (Mapping, error) {
	mapping := r.load()

	next := 0
	for _, id := range mapping {
		if id+1 > next {
			next = id + 1
		}
	}

	unseen := make([]string, 0)
	for _, name := range names {
		if _, ok := mapping[name]; !ok && !slices.Contains(unseen, name) {
			unseen = append(unseen, name)
		}
	}
	slices.Sort(unseen)

	for _, name := range unseen {
		mapping[name] = next
		next++
	}

	if len(unseen) > 0 {
		if err := r.save(mapping); err != nil {
			return nil, err
		}
		log.Info().Str("path", r.path).Int("added", len(unseen)).Int("total", len(mapping)).Msg("Encoder mapping updated")
	}

	r.mapping = mapping
	return maps.Clone(mapping), nil
}

// Lookup returns the ID of a name from the last resolved mapping.
func (r *Registry) Lookup(name string) (int, bool) {
	id, ok := r.mapping[name]
	return id, ok
}

// Names returns the registered names sorted by ID.
func (r *Registry) Names() []string {
	names := slices.Collect(maps.Keys(r.mapping))
	slices.SortFunc(names, func(a, b string) int {
		return r.mapping[a] - r.mapping[b]
	})
	return names
}

// Reverse returns the ID to name view of the last resolved mapping.
func (r *Registry) Reverse() map[int]string {
	rev := make(map[int]string, len(r.mapping))
	for name, id := range r.mapping {
		rev[id] = name
	}
	return rev
}

// load reads the mapping file. Absence or corruption yields an empty mapping.
func (r *Registry) load() Mapping {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", r.path).Msg("Encoder mapping unreadable, starting empty")
		}
		return Mapping{}
	}

	var mapping Mapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("Encoder mapping corrupt, starting empty")
		return Mapping{}
	}
	seen := make(map[int]string, len(mapping))
	for name, id := range mapping {
		if id < 0 {
			log.Warn().Str("path", r.path).Str("name", name).Int("id", id).Msg("Encoder mapping holds a negative ID, starting empty")
			return Mapping{}
		}
		if other, dup := seen[id]; dup {
			log.Warn().Str("path", r.path).Str("name", name).Str("other", other).Int("id", id).Msg("Encoder mapping assigns one ID twice, starting empty")
			return Mapping{}
		}
		seen[id] = name
	}
	if mapping == nil {
		mapping = Mapping{}
	}
	return mapping
}

func (r *Registry) save(mapping Mapping) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create encoder directory: %w", err)
	}

	data, err := json.MarshalIndent(mapping, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp mapping file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename mapping file: %w", err)
	}
	return nil
}

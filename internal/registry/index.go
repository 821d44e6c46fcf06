// Package registry parses, mutates and serializes the registry.json
// manifest, and checks a local checkout's manifest against the tasks
// directory.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/models"
)

// Parse decodes raw registry.json content and checks that it has the
// expected shape: a supported version, a tasks array, and a name and path
// on every entry.
func Parse(data []byte) (*models.RegistryIndex, error) {
	var idx models.RegistryIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing registry JSON: %w", err)
	}

	if idx.Version != models.RegistryVersion {
		return nil, fmt.Errorf("unsupported registry version %d, want %d", idx.Version, models.RegistryVersion)
	}
	for i, entry := range idx.Tasks {
		if entry.Name == "" {
			return nil, fmt.Errorf("registry entry %d missing name", i)
		}
		if entry.Path == "" {
			return nil, fmt.Errorf("registry entry %q missing path", entry.Name)
		}
	}

	return &idx, nil
}

// Format serializes an index to its canonical on-disk form: two-space
// indentation, fixed key order, exactly one trailing newline. Formatting
// an unchanged index is byte-stable so change-request diffs stay minimal.
func Format(idx *models.RegistryIndex) []byte {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		// The index is a plain value type; marshaling cannot fail.
		panic(fmt.Sprintf("marshaling registry index: %v", err))
	}
	return append(data, '\n')
}

// Upsert appends entry to the index, or replaces an existing entry with
// the same name (last write wins), then re-sorts entries alphabetically
// by name.
func Upsert(idx *models.RegistryIndex, entry models.TaskEntry) {
	replaced := false
	for i := range idx.Tasks {
		if idx.Tasks[i].Name == entry.Name {
			idx.Tasks[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Tasks = append(idx.Tasks, entry)
	}

	sort.Slice(idx.Tasks, func(i, j int) bool {
		return idx.Tasks[i].Name < idx.Tasks[j].Name
	})
}

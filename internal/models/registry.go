package models

// RegistryVersion is the only index schema version this service understands.
const RegistryVersion = 1

// TaskEntry represents a single catalogued task template in registry.json.
// Field order matches the canonical on-disk key order.
type TaskEntry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}

// RegistryIndex represents the parsed registry.json manifest.
// The entry order of Tasks is the canonical display order.
type RegistryIndex struct {
	Version int         `json:"version"`
	Commit  string      `json:"commit"`
	Tasks   []TaskEntry `json:"tasks"`
}

package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CheckLocal validates a local checkout's registry.json against the
// contents of its tasks directory. It returns one finding per problem:
// wrong version, duplicate names or paths, entries pointing at missing
// files, and task files missing from the registry. An empty slice means
// the manifest and the tree agree.
func CheckLocal(ctx context.Context, root string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(root, "registry.json"))
	if err != nil {
		return nil, fmt.Errorf("reading registry.json: %w", err)
	}

	idx, err := Parse(data)
	if err != nil {
		return []string{err.Error()}, nil
	}

	var findings []string

	namesSeen := make(map[string]bool)
	pathsSeen := make(map[string]bool)
	for _, entry := range idx.Tasks {
		if namesSeen[entry.Name] {
			findings = append(findings, fmt.Sprintf("duplicate task name in registry: %s", entry.Name))
		}
		namesSeen[entry.Name] = true

		if pathsSeen[entry.Path] {
			findings = append(findings, fmt.Sprintf("duplicate task path in registry: %s", entry.Path))
		}
		pathsSeen[entry.Path] = true
	}

	// Check entry files exist (parallel)
	var findingsMu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for _, entry := range idx.Tasks {
		g.Go(func() error {
			info, err := os.Stat(filepath.Join(root, filepath.FromSlash(entry.Path)))
			if err != nil || info.IsDir() {
				findingsMu.Lock()
				findings = append(findings, fmt.Sprintf("registry path does not exist: %s", entry.Path))
				findingsMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	taskFiles, err := listTaskFiles(root)
	if err != nil {
		return nil, err
	}

	var unregistered []string
	for _, path := range taskFiles {
		if !pathsSeen[path] {
			unregistered = append(unregistered, path)
		}
	}
	if len(unregistered) > 0 {
		sort.Strings(unregistered)
		findings = append(findings, "task files missing from registry: "+strings.Join(unregistered, ", "))
	}

	sort.Strings(findings)
	slog.Debug("local registry check complete", "entries", len(idx.Tasks), "findings", len(findings))
	return findings, nil
}

// listTaskFiles returns the repository-relative paths of all task sources
// under tasks/, slash-separated to match registry entries.
func listTaskFiles(root string) ([]string, error) {
	tasksDir := filepath.Join(root, "tasks")
	if _, err := os.Stat(tasksDir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(tasksDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".py" || d.Name() == "__init__.py" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking tasks directory: %w", err)
	}
	return files, nil
}

// StampCommit rewrites the local registry.json commit field to sha,
// preserving canonical formatting. It reports whether the file changed;
// stamping an already-current manifest is a no-op.
func StampCommit(root, sha string) (bool, error) {
	path := filepath.Join(root, "registry.json")

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading registry.json: %w", err)
	}

	idx, err := Parse(data)
	if err != nil {
		return false, err
	}

	if idx.Commit == sha {
		return false, nil
	}

	idx.Commit = sha
	if err := os.WriteFile(path, Format(idx), 0644); err != nil {
		return false, fmt.Errorf("writing registry.json: %w", err)
	}

	slog.Info("registry commit updated", "commit", sha)
	return true, nil
}

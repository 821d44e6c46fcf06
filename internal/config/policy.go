package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/models"
)

// DefaultPolicy returns the validation policy with default values. The
// forbidden-import denylist is the literal list the template ecosystem
// forbids; it is not a general sandboxing boundary.
func DefaultPolicy() models.Policy {
	return models.Policy{
		Limits: models.PolicyLimits{
			NameMin:     3,
			NameMax:     64,
			CategoryMin: 3,
			CategoryMax: 48,
			SourceMin:   50,
			SourceMax:   40000,
			SummaryMax:  500,
		},
		Content: models.PolicyContent{
			BaseModule:       "autoclean.core.task",
			BaseClass:        "Task",
			ConfigSymbol:     "config",
			TaskExt:          ".py",
			ForbiddenImports: []string{"os", "sys", "subprocess", "shutil", "socket", "requests"},
		},
	}
}

// LoadPolicy loads and parses a policy.toml file, falling back to defaults
// for any table or key the file leaves out.
func LoadPolicy(path string) (models.Policy, error) {
	policy := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("reading policy: %w", err)
	}

	if _, err := toml.Decode(string(data), &policy); err != nil {
		return policy, fmt.Errorf("parsing policy: %w", err)
	}

	return policy, nil
}

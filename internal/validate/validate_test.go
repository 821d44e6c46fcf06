package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/config"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/models"
)

const validSource = `"""RestingEyesOpen built-in task.

Resting-state eyes-open preprocessing pipeline.
"""

from autoclean.core.task import Task

config = {
    "schema_version": "2025.09",
    "resample_step": {"enabled": True, "value": 250},
}


class RestingEyesOpen(Task):
    def run(self) -> None:
        self.run_basic_steps()
`

func validRequest() models.PublishRequest {
	return models.PublishRequest{
		Name:       "RestingEyesOpen",
		Category:   "resting",
		SourceText: validSource,
	}
}

func TestShape_ValidRequest(t *testing.T) {
	issues := Shape(validRequest(), config.DefaultPolicy())
	assert.Empty(t, issues)
}

func TestShape_NameRules(t *testing.T) {
	policy := config.DefaultPolicy()

	valid := []string{"Abc", "RestingEyesOpen", "P300_Grael4K", "A23", strings.Repeat("A", 64)}
	for _, name := range valid {
		req := validRequest()
		req.Name = name
		assert.Empty(t, issuesForRule(Shape(req, policy), "name"), "name %q", name)
	}

	invalid := []string{"ab", "restingEyesOpen", "Ab", strings.Repeat("A", 65), "Resting State", "Resting-State", ""}
	for _, name := range invalid {
		req := validRequest()
		req.Name = name
		assert.Len(t, issuesForRule(Shape(req, policy), "name"), 1, "name %q", name)
	}
}

func TestShape_CategoryRules(t *testing.T) {
	policy := config.DefaultPolicy()

	for _, category := range []string{"resting", "auditory", "resting-state", "mouse_assr", "p300"} {
		req := validRequest()
		req.Category = category
		assert.Empty(t, issuesForRule(Shape(req, policy), "category"), "category %q", category)
	}

	for _, category := range []string{"Resting_State!", "ab", "-resting", "resting-", "resting state", ""} {
		req := validRequest()
		req.Category = category
		assert.Len(t, issuesForRule(Shape(req, policy), "category"), 1, "category %q", category)
	}
}

func TestShape_SourceBounds(t *testing.T) {
	policy := config.DefaultPolicy()

	req := validRequest()
	req.SourceText = "too short"
	assert.Len(t, issuesForRule(Shape(req, policy), "source_text"), 1)

	req.SourceText = strings.Repeat("x", 40001)
	assert.Len(t, issuesForRule(Shape(req, policy), "source_text"), 1)
}

func TestShape_OptionalFields(t *testing.T) {
	policy := config.DefaultPolicy()

	req := validRequest()
	req.Summary = strings.Repeat("s", 501)
	assert.Len(t, issuesForRule(Shape(req, policy), "summary"), 1)

	req = validRequest()
	req.AuthorHandle = "-leading-hyphen"
	assert.Len(t, issuesForRule(Shape(req, policy), "author_handle"), 1)

	req.AuthorHandle = "octo-cat42"
	assert.Empty(t, Shape(req, policy))
}

func TestShape_ReportsAllViolations(t *testing.T) {
	req := models.PublishRequest{Name: "x", Category: "X", SourceText: "short"}
	issues := Shape(req, config.DefaultPolicy())
	require.Len(t, issues, 3)
}

func TestContent_ValidSource(t *testing.T) {
	issues := Content("RestingEyesOpen", validSource, config.DefaultPolicy())
	assert.Empty(t, issues)
}

func TestContent_MissingDocstring(t *testing.T) {
	source := strings.Replace(validSource, `"""RestingEyesOpen built-in task.

Resting-state eyes-open preprocessing pipeline.
"""`, "# no documentation", 1)

	issues := Content("RestingEyesOpen", source, config.DefaultPolicy())
	require.Len(t, issuesForRule(issues, "docstring"), 1)
	assert.Contains(t, issuesForRule(issues, "docstring")[0].Message, "docstring")
}

func TestContent_MissingBaseImport(t *testing.T) {
	source := strings.Replace(validSource, "from autoclean.core.task import Task", "from elsewhere import Task", 1)
	issues := Content("RestingEyesOpen", source, config.DefaultPolicy())
	assert.Len(t, issuesForRule(issues, "base_import"), 1)
}

func TestContent_BaseImportForms(t *testing.T) {
	policy := config.DefaultPolicy()

	source := strings.Replace(validSource, "from autoclean.core.task import Task", "import autoclean.core.task", 1)
	assert.Empty(t, issuesForRule(Content("RestingEyesOpen", source, policy), "base_import"))
}

func TestContent_ClassMustMatchName(t *testing.T) {
	issues := Content("SomeOtherName", validSource, config.DefaultPolicy())
	assert.Len(t, issuesForRule(issues, "class_declaration"), 1)
}

func TestContent_MissingConfigBlock(t *testing.T) {
	source := strings.Replace(validSource, "config = {", "settings = {", 1)
	issues := Content("RestingEyesOpen", source, config.DefaultPolicy())
	assert.Len(t, issuesForRule(issues, "config_block"), 1)
}

func TestContent_ForbiddenImports(t *testing.T) {
	policy := config.DefaultPolicy()

	flagged := map[string]string{
		"import os":                   "os",
		"import subprocess":           "subprocess",
		"from subprocess import run":  "subprocess",
		"import os.path":              "os",
		"import json, socket":         "socket",
		"import requests as rq":       "requests",
		"from shutil.copies import x": "shutil",
	}
	for stmt, mod := range flagged {
		source := validSource + "\n" + stmt + "\n"
		issues := issuesForRule(Content("RestingEyesOpen", source, policy), "forbidden_import")
		require.Len(t, issues, 1, "statement %q", stmt)
		assert.Contains(t, issues[0].Message, mod, "statement %q", stmt)
	}

	clean := []string{
		"import os_utils",
		"import json",
		"# import subprocess",
		"    # import os",
		`result = "import os"`,
		"from ossuary import dig",
	}
	for _, stmt := range clean {
		source := validSource + "\n" + stmt + "\n"
		assert.Empty(t, issuesForRule(Content("RestingEyesOpen", source, policy), "forbidden_import"),
			"statement %q", stmt)
	}
}

func TestMessages(t *testing.T) {
	issues := []Issue{{Rule: "name", Message: "bad name"}, {Rule: "category", Message: "bad category"}}
	assert.Equal(t, []string{"bad name", "bad category"}, Messages(issues))
}

func issuesForRule(issues []Issue, rule string) []Issue {
	var matched []Issue
	for _, is := range issues {
		if is.Rule == rule {
			matched = append(matched, is)
		}
	}
	return matched
}

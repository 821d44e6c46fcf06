// Package validate checks candidate task submissions against registry
// naming and content conventions. All checks are pure: no network access,
// no errors — every function returns the full list of violated rules so
// the caller can report everything wrong in one response.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/models"
)

// Issue describes one violated rule.
type Issue struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Messages flattens issues into the human-readable strings the API returns.
func Messages(issues []Issue) []string {
	msgs := make([]string, 0, len(issues))
	for _, is := range issues {
		msgs = append(msgs, is.Message)
	}
	return msgs
}

var (
	namePattern     = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
	categoryPattern = regexp.MustCompile(`^[a-z0-9]+([-_][a-z0-9]+)*$`)
	handlePattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,38}$`)
)

// Shape checks the structural rules of a publish request: name, category,
// source length, optional summary and author handle. Each field produces
// at most one issue.
func Shape(req models.PublishRequest, policy models.Policy) []Issue {
	var issues []Issue
	lim := policy.Limits

	if len(req.Name) < lim.NameMin || len(req.Name) > lim.NameMax || !namePattern.MatchString(req.Name) {
		issues = append(issues, Issue{
			Rule: "name",
			Message: fmt.Sprintf("name must be PascalCase (%s) and %d-%d characters",
				namePattern, lim.NameMin, lim.NameMax),
		})
	}

	if len(req.Category) < lim.CategoryMin || len(req.Category) > lim.CategoryMax || !categoryPattern.MatchString(req.Category) {
		issues = append(issues, Issue{
			Rule: "category",
			Message: fmt.Sprintf("category must be a lowercase slug (%s) and %d-%d characters",
				categoryPattern, lim.CategoryMin, lim.CategoryMax),
		})
	}

	if len(req.SourceText) < lim.SourceMin || len(req.SourceText) > lim.SourceMax {
		issues = append(issues, Issue{
			Rule: "source_text",
			Message: fmt.Sprintf("source text must be %d-%d characters, got %d",
				lim.SourceMin, lim.SourceMax, len(req.SourceText)),
		})
	}

	if req.Summary != "" && len(req.Summary) > lim.SummaryMax {
		issues = append(issues, Issue{
			Rule:    "summary",
			Message: fmt.Sprintf("summary must be at most %d characters, got %d", lim.SummaryMax, len(req.Summary)),
		})
	}

	if req.AuthorHandle != "" && !handlePattern.MatchString(req.AuthorHandle) {
		issues = append(issues, Issue{
			Rule:    "author_handle",
			Message: "author handle must be 1-39 alphanumeric or hyphen characters, starting with an alphanumeric",
		})
	}

	return issues
}

// Content checks the source text itself: module docstring, base-task
// import, top-level config literal, a class declaration matching the task
// name, and the forbidden-import denylist.
func Content(name, source string, policy models.Policy) []Issue {
	var issues []Issue
	pc := policy.Content

	if !hasLeadingDocstring(source) {
		issues = append(issues, Issue{
			Rule:    "docstring",
			Message: "source must begin with a module docstring",
		})
	}

	if !importsModule(source, pc.BaseModule) {
		issues = append(issues, Issue{
			Rule:    "base_import",
			Message: fmt.Sprintf("source must import the task base from %s", pc.BaseModule),
		})
	}

	configDecl := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(pc.ConfigSymbol) + `\s*=\s*\{`)
	if !configDecl.MatchString(source) {
		issues = append(issues, Issue{
			Rule:    "config_block",
			Message: fmt.Sprintf("source must declare a top-level %s = {...} mapping", pc.ConfigSymbol),
		})
	}

	classDecl := regexp.MustCompile(`(?m)^class\s+` + regexp.QuoteMeta(name) +
		`\s*\(\s*` + regexp.QuoteMeta(pc.BaseClass) + `\s*\)\s*:`)
	if name != "" && !classDecl.MatchString(source) {
		issues = append(issues, Issue{
			Rule:    "class_declaration",
			Message: fmt.Sprintf("source must declare class %s(%s)", name, pc.BaseClass),
		})
	}

	for _, mod := range forbiddenImports(source, pc.ForbiddenImports) {
		issues = append(issues, Issue{
			Rule:    "forbidden_import",
			Message: fmt.Sprintf("import of %s is not allowed in task templates", mod),
		})
	}

	return issues
}

// hasLeadingDocstring reports whether the first non-blank, non-comment
// line opens a triple-quoted string.
func hasLeadingDocstring(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''")
	}
	return false
}

// importsModule reports whether source contains an import statement for
// the exact dotted module path.
func importsModule(source, module string) bool {
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "from ") {
			rest := strings.TrimPrefix(trimmed, "from ")
			if fields := strings.Fields(rest); len(fields) >= 2 && fields[0] == module && fields[1] == "import" {
				return true
			}
			continue
		}
		if strings.HasPrefix(trimmed, "import ") {
			for _, item := range importedModules(trimmed) {
				if item == module {
					return true
				}
			}
		}
	}
	return false
}

// forbiddenImports returns the denylisted root modules imported by source,
// one entry per offending import statement. Matching is at the granularity
// of whole import statements: blank lines and comment lines are skipped,
// and a denylisted name appearing inside an identifier or string literal
// never matches.
func forbiddenImports(source string, denylist []string) []string {
	denied := make(map[string]bool, len(denylist))
	for _, mod := range denylist {
		denied[mod] = true
	}

	var found []string
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		var roots []string
		switch {
		case strings.HasPrefix(trimmed, "import "):
			roots = importedModules(trimmed)
		case strings.HasPrefix(trimmed, "from "):
			rest := strings.TrimPrefix(trimmed, "from ")
			if fields := strings.Fields(rest); len(fields) >= 2 && fields[1] == "import" {
				roots = []string{fields[0]}
			}
		default:
			continue
		}

		for _, mod := range roots {
			root := mod
			if i := strings.IndexByte(root, '.'); i >= 0 {
				root = root[:i]
			}
			if denied[root] {
				found = append(found, root)
			}
		}
	}
	return found
}

// importedModules extracts the dotted module names from an
// "import a.b, c as d" statement.
func importedModules(stmt string) []string {
	clause := strings.TrimPrefix(strings.TrimSpace(stmt), "import ")
	var mods []string
	for _, item := range strings.Split(clause, ",") {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			continue
		}
		mods = append(mods, fields[0])
	}
	return mods
}

// Package publish turns one validated task submission into a pull request
// against the registry repository.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/models"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/registry"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/util"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/validate"
)

// RepoClient is the set of hosting-API operations the orchestrator needs.
type RepoClient interface {
	// ReadIndex fetches and parses the registry index file on ref.
	ReadIndex(ctx context.Context, path, ref string) (raw []byte, sha string, idx *models.RegistryIndex, err error)

	// BranchHead resolves a branch name to its current commit SHA.
	BranchHead(ctx context.Context, branch string) (string, error)

	// CreateBranch creates a new ref pointing at fromSHA.
	CreateBranch(ctx context.Context, name, fromSHA string) error

	// WriteFile creates or updates a file on branch. For updates, sha must
	// be the blob SHA of the existing content.
	WriteFile(ctx context.Context, path string, content []byte, message, branch, sha string) error

	// OpenPullRequest opens a pull request from head against base.
	OpenPullRequest(ctx context.Context, title, head, base, body string) (*models.ChangeRequest, error)
}

// State is a terminal state of one publish invocation. Remote failures are
// reported through the error return instead.
type State string

const (
	StateRejected       State = "rejected"
	StateDryRunComplete State = "dry_run_complete"
	StateRequestOpened  State = "request_opened"
)

// Outcome is the result of a publish invocation that did not fail on a
// remote operation.
type Outcome struct {
	State         State
	Issues        []validate.Issue
	ChangeRequest *models.ChangeRequest
}

// Orchestrator sequences validation and repository calls for the publish
// workflow. It holds no mutable state; concurrent invocations coordinate
// only through the hosting service's own conflict detection.
type Orchestrator struct {
	client     RepoClient
	baseBranch string
	indexPath  string
	policy     models.Policy
	now        func() time.Time
}

// NewOrchestrator creates a publish orchestrator for the given repository
// client and validation policy.
func NewOrchestrator(client RepoClient, baseBranch, indexPath string, policy models.Policy) *Orchestrator {
	return &Orchestrator{
		client:     client,
		baseBranch: baseBranch,
		indexPath:  indexPath,
		policy:     policy,
		now:        time.Now,
	}
}

// Publish runs one submission through the workflow:
//
//	validate -> (rejected | dry run) -> read index + base head ->
//	create branch -> write task file + updated index -> open pull request
//
// Validation failures and dry runs return an Outcome with a nil error and
// perform no remote calls (rejection) or no remote writes (dry run). Any
// remote failure is returned as a typed *models.RemoteError with no
// rollback: an orphaned branch is inert and visible for manual cleanup.
func (o *Orchestrator) Publish(ctx context.Context, req models.PublishRequest) (*Outcome, error) {
	issues := validate.Shape(req, o.policy)
	issues = append(issues, validate.Content(req.Name, req.SourceText, o.policy)...)
	if len(issues) > 0 {
		slog.Info("publish rejected", "task", req.Name, "issues", len(issues))
		return &Outcome{State: StateRejected, Issues: issues}, nil
	}

	if req.DryRun {
		slog.Info("dry run complete", "task", req.Name)
		return &Outcome{State: StateDryRunComplete, Issues: []validate.Issue{}}, nil
	}

	taskPath := fmt.Sprintf("tasks/%s/%s%s", req.Category, req.Name, o.policy.Content.TaskExt)
	branch := o.branchName(req.Name)

	_, indexSHA, idx, err := o.client.ReadIndex(ctx, o.indexPath, o.baseBranch)
	if err != nil {
		return nil, err
	}

	baseSHA, err := o.client.BranchHead(ctx, o.baseBranch)
	if err != nil {
		return nil, err
	}

	if err := o.client.CreateBranch(ctx, branch, baseSHA); err != nil {
		return nil, err
	}

	registry.Upsert(idx, models.TaskEntry{
		Name:    req.Name,
		Path:    taskPath,
		Summary: req.Summary,
	})

	// Task file first: if the index write fails afterwards the branch
	// still holds a valid change a reviewer can finish by hand.
	msg := fmt.Sprintf("Add task %s", req.Name)
	if err := o.client.WriteFile(ctx, taskPath, []byte(req.SourceText), msg, branch, ""); err != nil {
		return nil, err
	}

	msg = fmt.Sprintf("Register task %s in registry.json", req.Name)
	if err := o.client.WriteFile(ctx, o.indexPath, registry.Format(idx), msg, branch, indexSHA); err != nil {
		return nil, err
	}

	cr, err := o.client.OpenPullRequest(ctx,
		fmt.Sprintf("Add task: %s", req.Name), branch, o.baseBranch, pullBody(req, taskPath))
	if err != nil {
		return nil, err
	}

	slog.Info("publish complete", "task", req.Name, "branch", branch, "pr", cr.Number)
	return &Outcome{State: StateRequestOpened, ChangeRequest: cr}, nil
}

// branchName combines the slugified task name with a second-resolution
// UTC timestamp. Collisions are rare enough that a colliding create is
// surfaced as a conflict rather than retried; resubmitting picks a fresh
// timestamp.
func (o *Orchestrator) branchName(name string) string {
	return fmt.Sprintf("task/%s-%s", util.Slug(name), o.now().UTC().Format("20060102-150405"))
}

func pullBody(req models.PublishRequest, taskPath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Proposed via the Task Wizard.\n\n")
	fmt.Fprintf(&b, "- **Task:** `%s`\n", taskPath)
	if req.Summary != "" {
		fmt.Fprintf(&b, "- **Summary:** %s\n", req.Summary)
	}
	if req.AuthorHandle != "" {
		fmt.Fprintf(&b, "- **Submitted by:** @%s\n", req.AuthorHandle)
	}
	return b.String()
}

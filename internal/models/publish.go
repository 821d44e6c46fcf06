package models

// PublishRequest is the input to the publish workflow, decoded from the
// Task Wizard payload. Name, Category and SourceText are required; the
// validator reports every violated rule rather than failing fast.
type PublishRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	SourceText   string `json:"source_text"`
	Summary      string `json:"summary,omitempty"`
	AuthorHandle string `json:"author_handle,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
}

// ChangeRequest references a pull request opened on the hosting service.
// Ownership transfers to the host as soon as it is created; the service
// does not track it further.
type ChangeRequest struct {
	URL        string `json:"url"`
	Number     int    `json:"number"`
	BranchName string `json:"branch_name"`
	BaseBranch string `json:"base_branch"`
}

// Package github wraps the handful of GitHub REST calls the publish
// workflow needs: read a file, resolve a branch head, create a branch,
// write a file, open a pull request. Each operation is a single HTTP call
// returning a typed *models.RemoteError on failure; there is no retry and
// no local transaction across calls.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/models"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/registry"
)

// Config configures a Client.
type Config struct {
	APIBase string // e.g. https://api.github.com
	Owner   string
	Repo    string
	Token   string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for the public GitHub API.
func DefaultConfig(owner, repo, token string) Config {
	return Config{
		APIBase: "https://api.github.com",
		Owner:   owner,
		Repo:    repo,
		Token:   token,
		Timeout: 30 * time.Second,
	}
}

// Client performs repository operations against the GitHub REST API.
type Client struct {
	apiBase    string
	owner      string
	repo       string
	token      string
	httpClient *http.Client
}

// NewClient creates a new GitHub client.
func NewClient(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.github.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiBase: strings.TrimSuffix(cfg.APIBase, "/"),
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type refResponse struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

type pullResponse struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// ReadFile fetches the raw content of a file on ref, together with its
// content-addressed blob SHA. The SHA must be passed back to WriteFile
// when updating the same path, or the host rejects the write as a
// conflict.
func (c *Client) ReadFile(ctx context.Context, path, ref string) ([]byte, string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.apiBase, c.owner, c.repo, escapePath(path), url.QueryEscape(ref))

	status, body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", models.NewRemoteError(models.ErrRemoteRead, "read file", err)
	}
	if status != http.StatusOK {
		return nil, "", models.NewRemoteError(models.ErrRemoteRead, "read file",
			fmt.Errorf("%s on %s: HTTP %d: %s", path, ref, status, apiMessage(body)))
	}

	var resp contentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", models.NewRemoteError(models.ErrRemoteRead, "read file",
			fmt.Errorf("decoding contents response: %w", err))
	}

	// The contents API wraps base64 payloads across lines.
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return nil, "", models.NewRemoteError(models.ErrRemoteRead, "read file",
			fmt.Errorf("decoding base64 content: %w", err))
	}

	return content, resp.SHA, nil
}

// ReadIndex fetches and parses the registry index file on ref. A file that
// does not parse into the expected shape is a malformed_index failure,
// fatal for the invocation.
func (c *Client) ReadIndex(ctx context.Context, path, ref string) ([]byte, string, *models.RegistryIndex, error) {
	raw, sha, err := c.ReadFile(ctx, path, ref)
	if err != nil {
		return nil, "", nil, err
	}

	idx, err := registry.Parse(raw)
	if err != nil {
		return nil, "", nil, models.NewRemoteError(models.ErrMalformedIndex, "read index", err)
	}

	return raw, sha, idx, nil
}

// BranchHead resolves a branch name to its current commit SHA.
func (c *Client) BranchHead(ctx context.Context, branch string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/ref/heads/%s",
		c.apiBase, c.owner, c.repo, url.PathEscape(branch))

	status, body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", models.NewRemoteError(models.ErrRemoteRead, "read branch head", err)
	}
	if status != http.StatusOK {
		return "", models.NewRemoteError(models.ErrRemoteRead, "read branch head",
			fmt.Errorf("branch %s: HTTP %d: %s", branch, status, apiMessage(body)))
	}

	var resp refResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", models.NewRemoteError(models.ErrRemoteRead, "read branch head",
			fmt.Errorf("decoding ref response: %w", err))
	}

	return resp.Object.SHA, nil
}

// CreateBranch creates a new ref pointing at fromSHA. An existing branch
// of the same name is a conflict; the caller retries with a fresh name by
// resubmitting the publish request.
func (c *Client) CreateBranch(ctx context.Context, name, fromSHA string) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/refs", c.apiBase, c.owner, c.repo)
	payload := map[string]string{
		"ref": "refs/heads/" + name,
		"sha": fromSHA,
	}

	status, body, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return models.NewRemoteError(models.ErrRemoteWrite, "create branch", err)
	}

	switch {
	case status == http.StatusCreated:
		slog.Debug("branch created", "branch", name, "from", fromSHA)
		return nil
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return models.NewRemoteError(models.ErrConflict, "create branch",
			fmt.Errorf("branch %s: HTTP %d: %s", name, status, apiMessage(body)))
	default:
		return models.NewRemoteError(models.ErrRemoteWrite, "create branch",
			fmt.Errorf("branch %s: HTTP %d: %s", name, status, apiMessage(body)))
	}
}

// WriteFile creates or updates a file on branch. For updates, sha must be
// the blob SHA of the existing content; a stale or missing sha is a
// conflict.
func (c *Client) WriteFile(ctx context.Context, path string, content []byte, message, branch, sha string) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.apiBase, c.owner, c.repo, escapePath(path))

	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}

	status, body, err := c.do(ctx, http.MethodPut, endpoint, payload)
	if err != nil {
		return models.NewRemoteError(models.ErrRemoteWrite, "write file", err)
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		slog.Debug("file written", "path", path, "branch", branch)
		return nil
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return models.NewRemoteError(models.ErrConflict, "write file",
			fmt.Errorf("%s on %s: HTTP %d: %s", path, branch, status, apiMessage(body)))
	default:
		return models.NewRemoteError(models.ErrRemoteWrite, "write file",
			fmt.Errorf("%s on %s: HTTP %d: %s", path, branch, status, apiMessage(body)))
	}
}

// OpenPullRequest opens a pull request from head against base.
func (c *Client) OpenPullRequest(ctx context.Context, title, head, base, body string) (*models.ChangeRequest, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/pulls", c.apiBase, c.owner, c.repo)
	payload := map[string]string{
		"title": title,
		"head":  head,
		"base":  base,
		"body":  body,
	}

	status, respBody, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, models.NewRemoteError(models.ErrRemoteWrite, "open pull request", err)
	}
	if status != http.StatusCreated {
		return nil, models.NewRemoteError(models.ErrRemoteWrite, "open pull request",
			fmt.Errorf("%s -> %s: HTTP %d: %s", head, base, status, apiMessage(respBody)))
	}

	var resp pullResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, models.NewRemoteError(models.ErrRemoteWrite, "open pull request",
			fmt.Errorf("decoding pull response: %w", err))
	}

	slog.Info("pull request opened", "number", resp.Number, "url", resp.HTMLURL)
	return &models.ChangeRequest{
		URL:        resp.HTMLURL,
		Number:     resp.Number,
		BranchName: head,
		BaseBranch: base,
	}, nil
}

// do executes one API call and returns the status code and response body.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

// apiMessage extracts the human-readable message from a GitHub error body,
// falling back to the raw body.
func apiMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// escapePath escapes each segment of a repository-relative path while
// keeping the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

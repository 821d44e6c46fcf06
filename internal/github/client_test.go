package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/models"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig("cincibrainlab", "autocleaneeg-task-registry", "test-token")
	cfg.APIBase = srv.URL
	return NewClient(cfg)
}

func TestReadFile(t *testing.T) {
	content := []byte("\"\"\"doc\"\"\"\n")

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/cincibrainlab/autocleaneeg-task-registry/contents/tasks/resting/RestingEyesOpen.py" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ref"); got != "main" {
			t.Errorf("expected ref main, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"content":  base64.StdEncoding.EncodeToString(content),
			"encoding": "base64",
			"sha":      "blob-sha",
		})
	}))

	got, sha, err := client.ReadFile(context.Background(), "tasks/resting/RestingEyesOpen.py", "main")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("expected content %q, got %q", content, got)
	}
	if sha != "blob-sha" {
		t.Errorf("expected sha blob-sha, got %q", sha)
	}
}

func TestReadFile_NotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	}))

	_, _, err := client.ReadFile(context.Background(), "missing.json", "main")
	if models.TypeOf(err) != models.ErrRemoteRead {
		t.Errorf("expected remote_read error, got %v", err)
	}
}

func TestReadIndex(t *testing.T) {
	index := `{"version": 1, "commit": "abc", "tasks": [{"name": "ASSR_40Hz", "path": "tasks/auditory/ASSR_40Hz.py"}]}`

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"content": base64.StdEncoding.EncodeToString([]byte(index)),
			"sha":     "index-sha",
		})
	}))

	raw, sha, idx, err := client.ReadIndex(context.Background(), "registry.json", "main")
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if string(raw) != index {
		t.Errorf("unexpected raw content %q", raw)
	}
	if sha != "index-sha" {
		t.Errorf("expected sha index-sha, got %q", sha)
	}
	if len(idx.Tasks) != 1 || idx.Tasks[0].Name != "ASSR_40Hz" {
		t.Errorf("unexpected parsed index %+v", idx)
	}
}

func TestReadIndex_Malformed(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"content": base64.StdEncoding.EncodeToString([]byte(`{"version": 99}`)),
			"sha":     "index-sha",
		})
	}))

	_, _, _, err := client.ReadIndex(context.Background(), "registry.json", "main")
	if models.TypeOf(err) != models.ErrMalformedIndex {
		t.Errorf("expected malformed_index error, got %v", err)
	}
}

func TestBranchHead(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/cincibrainlab/autocleaneeg-task-registry/git/ref/heads/main" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"ref": "refs/heads/main", "object": {"sha": "head-sha"}}`))
	}))

	sha, err := client.BranchHead(context.Background(), "main")
	if err != nil {
		t.Fatalf("BranchHead: %v", err)
	}
	if sha != "head-sha" {
		t.Errorf("expected head-sha, got %q", sha)
	}
}

func TestBranchHead_Missing(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	}))

	_, err := client.BranchHead(context.Background(), "gone")
	if models.TypeOf(err) != models.ErrRemoteRead {
		t.Errorf("expected remote_read error, got %v", err)
	}
}

func TestCreateBranch(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/cincibrainlab/autocleaneeg-task-registry/git/refs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["ref"] != "refs/heads/task/resting-eyes-open-20260826-101530" {
			t.Errorf("unexpected ref %q", payload["ref"])
		}
		if payload["sha"] != "head-sha" {
			t.Errorf("unexpected sha %q", payload["sha"])
		}

		w.WriteHeader(http.StatusCreated)
	}))

	err := client.CreateBranch(context.Background(), "task/resting-eyes-open-20260826-101530", "head-sha")
	if err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
}

func TestCreateBranch_AlreadyExists(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "Reference already exists"}`))
	}))

	err := client.CreateBranch(context.Background(), "task/dup", "head-sha")
	if models.TypeOf(err) != models.ErrConflict {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestWriteFile_CreateAndUpdate(t *testing.T) {
	var sawSHA string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}

		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		sawSHA = payload["sha"]

		decoded, err := base64.StdEncoding.DecodeString(payload["content"])
		if err != nil || string(decoded) != "file body" {
			t.Errorf("unexpected content payload %q", payload["content"])
		}
		if payload["branch"] != "task/branch" {
			t.Errorf("unexpected branch %q", payload["branch"])
		}

		w.WriteHeader(http.StatusCreated)
	}))

	// Create: no prior SHA.
	if err := client.WriteFile(context.Background(), "tasks/a/B.py", []byte("file body"), "add task", "task/branch", ""); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if sawSHA != "" {
		t.Errorf("create should not send a sha, got %q", sawSHA)
	}

	// Update: prior SHA required.
	if err := client.WriteFile(context.Background(), "registry.json", []byte("file body"), "update index", "task/branch", "old-sha"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if sawSHA != "old-sha" {
		t.Errorf("update should send the prior sha, got %q", sawSHA)
	}
}

func TestWriteFile_StaleSHA(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message": "registry.json does not match"}`))
	}))

	err := client.WriteFile(context.Background(), "registry.json", []byte("x"), "m", "b", "stale")
	if models.TypeOf(err) != models.ErrConflict {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestOpenPullRequest(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/cincibrainlab/autocleaneeg-task-registry/pulls" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["head"] != "task/branch" || payload["base"] != "main" {
			t.Errorf("unexpected branches %q -> %q", payload["head"], payload["base"])
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"number": 42, "html_url": "https://github.com/cincibrainlab/autocleaneeg-task-registry/pull/42"}`))
	}))

	cr, err := client.OpenPullRequest(context.Background(), "Add task: RestingEyesOpen", "task/branch", "main", "body")
	if err != nil {
		t.Fatalf("OpenPullRequest: %v", err)
	}
	if cr.Number != 42 {
		t.Errorf("expected PR number 42, got %d", cr.Number)
	}
	if cr.URL == "" || cr.BranchName != "task/branch" || cr.BaseBranch != "main" {
		t.Errorf("unexpected change request %+v", cr)
	}
}

func TestOpenPullRequest_NoDiff(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "No commits between main and task/branch"}`))
	}))

	_, err := client.OpenPullRequest(context.Background(), "t", "task/branch", "main", "")
	if models.TypeOf(err) != models.ErrRemoteWrite {
		t.Errorf("expected remote_write error, got %v", err)
	}
}

func TestUnreachableHost(t *testing.T) {
	cfg := DefaultConfig("o", "r", "")
	cfg.APIBase = "http://127.0.0.1:1"
	client := NewClient(cfg)

	_, _, err := client.ReadFile(context.Background(), "registry.json", "main")
	if models.TypeOf(err) != models.ErrRemoteRead {
		t.Errorf("expected remote_read error, got %v", err)
	}
}

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/models"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/publish"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/validate"
)

type publishAccepted struct {
	URL    string `json:"url"`
	Number int    `json:"number"`
}

type publishChecked struct {
	OK     bool     `json:"ok"`
	Issues []string `json:"issues"`
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	data, err := s.cache.Get(r.Context())
	if err != nil {
		slog.Error("reading registry", "error", err)
		writeJSON(w, remoteStatus(err), apiError{Error: err.Error(), Kind: string(models.TypeOf(err))})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req models.PublishRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, publishChecked{
			OK:     false,
			Issues: []string{"request body is not a valid publish payload: " + err.Error()},
		})
		return
	}

	outcome, err := s.pub.Publish(r.Context(), req)
	if err != nil {
		slog.Error("publish failed", "task", req.Name, "error", err)
		writeJSON(w, remoteStatus(err), apiError{Error: err.Error(), Kind: string(models.TypeOf(err))})
		return
	}

	switch outcome.State {
	case publish.StateRejected:
		writeJSON(w, http.StatusBadRequest, publishChecked{OK: false, Issues: validate.Messages(outcome.Issues)})
	case publish.StateDryRunComplete:
		writeJSON(w, http.StatusOK, publishChecked{OK: true, Issues: []string{}})
	case publish.StateRequestOpened:
		writeJSON(w, http.StatusOK, publishAccepted{
			URL:    outcome.ChangeRequest.URL,
			Number: outcome.ChangeRequest.Number,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "unknown publish state"})
	}
}

// remoteStatus maps a typed remote failure to its HTTP status: conflicts
// are retryable 409s, everything else is the host's fault.
func remoteStatus(err error) int {
	switch models.TypeOf(err) {
	case models.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

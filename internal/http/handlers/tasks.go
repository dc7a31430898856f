package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"mediacore/internal/domain"
	"mediacore/internal/middleware"
	"mediacore/internal/orchestrator"
)

type launchRequest struct {
	Vendor          string            `json:"vendor"`
	Kind            string            `json:"kind"`
	Prompt          string            `json:"prompt"`
	Width           int               `json:"width,omitempty"`
	Height          int               `json:"height,omitempty"`
	DurationSeconds int               `json:"durationSeconds,omitempty"`
	ReferenceImages []string          `json:"referenceImages,omitempty"`
	Extras          map[string]string `json:"extras,omitempty"`
	NodeID          string            `json:"nodeId,omitempty"`
	NodeKeyHint     string            `json:"nodeKeyHint,omitempty"`
}

type pollRequest struct {
	Vendor string `json:"vendor,omitempty"`
	Kind   string `json:"kind"`
}

// LaunchTask handles POST /v1/tasks.
func (a *App) LaunchTask(w http.ResponseWriter, r *http.Request) {
	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, &domain.InvalidInputError{Detail: "malformed request body"})
		return
	}
	if strings.TrimSpace(req.Vendor) == "" {
		a.fail(w, &domain.InvalidInputError{Detail: "vendor is required"})
		return
	}
	kind := domain.TaskKind(strings.TrimSpace(req.Kind))
	if kind == "" {
		a.fail(w, &domain.InvalidInputError{Detail: "kind is required"})
		return
	}

	result, err := a.Orchestrator.Launch(r.Context(), orchestrator.LaunchInput{
		CallerID:    middleware.CallerIDFromContext(r.Context()),
		Vendor:      req.Vendor,
		NodeID:      req.NodeID,
		NodeKeyHint: req.NodeKeyHint,
		Request: domain.TaskRequest{
			Kind:            kind,
			Prompt:          req.Prompt,
			Width:           req.Width,
			Height:          req.Height,
			DurationSeconds: req.DurationSeconds,
			ReferenceImages: req.ReferenceImages,
			Extras:          req.Extras,
		},
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	status := http.StatusOK
	if !result.Status.Terminal() {
		status = http.StatusAccepted
	}
	a.json(w, status, result)
}

// PollTask handles POST /v1/tasks/{taskID}/poll.
func (a *App) PollTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	var req pollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, &domain.InvalidInputError{Detail: "malformed request body"})
		return
	}
	kind := domain.TaskKind(strings.TrimSpace(req.Kind))
	if kind == "" {
		a.fail(w, &domain.InvalidInputError{Detail: "kind is required"})
		return
	}

	result, err := a.Orchestrator.Poll(r.Context(), orchestrator.PollInput{
		CallerID: middleware.CallerIDFromContext(r.Context()),
		Vendor:   req.Vendor,
		TaskID:   taskID,
		Kind:     kind,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

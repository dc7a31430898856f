// Package handlers is the thin HTTP glue over the task orchestration core:
// request decoding, caller identity, error mapping and SSE framing. No
// vendor or resolution logic lives here.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mediacore/internal/domain"
	"mediacore/internal/infra"
	"mediacore/internal/orchestrator"
	"mediacore/internal/progress"
)

// App bundles the dependencies handlers need.
type App struct {
	Orchestrator    *orchestrator.Orchestrator
	Bus             *progress.Bus
	Logger          infra.Logger
	HeartbeatPeriod time.Duration
}

// NewApp constructs the handler set.
func NewApp(orch *orchestrator.Orchestrator, bus *progress.Bus, logger infra.Logger, heartbeat time.Duration) *App {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &App{Orchestrator: orch, Bus: bus, Logger: logger, HeartbeatPeriod: heartbeat}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Vendor string `json:"vendor,omitempty"`
}

// fail maps domain errors onto HTTP statuses: caller input 400, missing
// rows 404, unresolvable configuration 422, vendor trouble 502.
func (a *App) fail(w http.ResponseWriter, err error) {
	var (
		inputErr *domain.InvalidInputError
		cfgErr   *domain.ConfigurationError
		reqErr   *domain.UpstreamRequestError
	)
	switch {
	case errors.As(err, &inputErr):
		a.json(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		a.json(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.As(err, &cfgErr):
		a.json(w, http.StatusUnprocessableEntity, errorBody{
			Error:  err.Error(),
			Reason: string(cfgErr.Reason),
			Vendor: cfgErr.Vendor,
		})
	case errors.As(err, &reqErr):
		a.json(w, http.StatusBadGateway, errorBody{Error: err.Error(), Vendor: reqErr.Vendor})
	default:
		a.Logger.Error().Err(err).Msg("handlers: unhandled error")
		a.json(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

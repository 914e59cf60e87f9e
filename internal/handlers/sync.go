package handlers

import (
	"context"
	"net/http"

	"github.com/bobmcallan/vire-tools/internal/common"
	"github.com/bobmcallan/vire-tools/internal/toolsync"
)

// SyncHandler reports and triggers tool sync runs.
type SyncHandler struct {
	logger *common.Logger
	last   func() (toolsync.Summary, bool)
	run    func(context.Context) (toolsync.Summary, bool)
}

// NewSyncHandler creates a sync handler. Nil funcs mean sync is disabled.
func NewSyncHandler(logger *common.Logger, last func() (toolsync.Summary, bool), run func(context.Context) (toolsync.Summary, bool)) *SyncHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &SyncHandler{logger: logger, last: last, run: run}
}

// Status handles GET /api/sync with the most recent summary.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.last == nil {
		WriteError(w, http.StatusNotFound, "tool sync is disabled")
		return
	}
	summary, ok := h.last()
	if !ok {
		WriteError(w, http.StatusNotFound, "no sync run has completed yet")
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// Trigger handles POST /api/sync by running a sync and returning its summary.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.run == nil {
		WriteError(w, http.StatusNotFound, "tool sync is disabled")
		return
	}
	// The run outlives a dropped client; registry call timeouts bound it.
	summary, ok := h.run(context.WithoutCancel(r.Context()))
	if !ok {
		WriteError(w, http.StatusConflict, "a sync run is already in progress")
		return
	}

	h.logger.Info().
		Str("run_id", summary.RunID).
		Int("failed", summary.Failed).
		Msg("sync triggered over HTTP")
	WriteJSON(w, http.StatusOK, summary)
}

package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/vire-tools/internal/common"
)

// RegistryHealthHandler probes the control server hosting the tool registry.
type RegistryHealthHandler struct {
	logger      *common.Logger
	registryURL string
	httpClient  *http.Client
}

// NewRegistryHealthHandler creates a handler probing registryURL.
func NewRegistryHealthHandler(logger *common.Logger, registryURL string) *RegistryHealthHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &RegistryHealthHandler{
		logger:      logger,
		registryURL: strings.TrimRight(registryURL, "/"),
		httpClient:  &http.Client{Timeout: 3 * time.Second},
	}
}

// ServeHTTP handles GET /api/registry-health. Any answer below 500 counts as up.
func (h *RegistryHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.registryURL+"/", nil)
	if err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Debug().Str("error", err.Error()).Msg("registry health probe failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusInternalServerError {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
}

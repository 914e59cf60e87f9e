package handlers

import (
	"net/http"
)

// Banner is the plain-text response served at the root path.
const Banner = "Vire tools server running"

// BannerHandler answers GET / so the control server can probe the host.
type BannerHandler struct{}

// NewBannerHandler creates a new banner handler.
func NewBannerHandler() *BannerHandler {
	return &BannerHandler{}
}

// ServeHTTP handles GET /. Any other unmatched path is a JSON 404.
func (h *BannerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(Banner))
}

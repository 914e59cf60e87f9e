package server

import (
	"net/http"

	"github.com/bobmcallan/vire-tools/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Banner; also answers unmatched paths with a JSON 404.
	mux.Handle("/", s.app.BannerHandler)

	// One route per hosted tool, each restricted to its declared method.
	for _, h := range s.app.ToolHandlers {
		mux.Handle("/tools/"+h.Name(), h)
	}

	mux.Handle("/openapi.json", s.app.OpenAPIHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.Handle("/api/health", s.app.HealthHandler)
	mux.Handle("/api/version", s.app.VersionHandler)
	mux.Handle("/api/registry-health", s.app.RegistryHealthHandler)
	mux.HandleFunc("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{
			http.MethodGet:  s.app.SyncHandler.Status,
			http.MethodPost: s.app.SyncHandler.Trigger,
		})
	})

	// 404 handler for unmatched API and tool routes
	mux.HandleFunc("/api/", s.handleNotFound)
	mux.HandleFunc("/tools/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "the requested endpoint does not exist")
}

package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/bobmcallan/vire-tools/internal/config"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

const openAPITag = "Tools"

// OpenAPIDocument is the subset of OpenAPI 3.0 used to describe tool routes.
type OpenAPIDocument struct {
	OpenAPI string                          `json:"openapi"`
	Info    OpenAPIInfo                     `json:"info"`
	Servers []OpenAPIServer                 `json:"servers,omitempty"`
	Tags    []OpenAPITag                    `json:"tags"`
	Paths   map[string]map[string]Operation `json:"paths"`
}

type OpenAPIInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

type OpenAPIServer struct {
	URL string `json:"url"`
}

type OpenAPITag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Operation describes one tool route.
type Operation struct {
	OperationID string              `json:"operationId"`
	Summary     string              `json:"summary"`
	Tags        []string            `json:"tags"`
	Parameters  []QueryParameter    `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

type QueryParameter struct {
	Name        string         `json:"name"`
	In          string         `json:"in"`
	Required    bool           `json:"required"`
	Description string         `json:"description,omitempty"`
	Schema      tools.Property `json:"schema"`
}

type RequestBody struct {
	Required bool                 `json:"required"`
	Content  map[string]MediaType `json:"content"`
}

type MediaType struct {
	Schema any `json:"schema"`
}

type Response struct {
	Description string `json:"description"`
}

// BuildOpenAPI describes every tool route. Body methods document the
// {"payload", "context"} envelope; GET and DELETE document query parameters.
func BuildOpenAPI(baseURL string, descriptors []tools.Descriptor) OpenAPIDocument {
	doc := OpenAPIDocument{
		OpenAPI: "3.0.3",
		Info:    OpenAPIInfo{Title: "Vire tools", Version: config.GetVersionInfo().Version},
		Tags:    []OpenAPITag{{Name: openAPITag, Description: "Tools callable by the control server"}},
		Paths:   map[string]map[string]Operation{},
	}
	if baseURL != "" {
		doc.Servers = []OpenAPIServer{{URL: strings.TrimRight(baseURL, "/")}}
	}

	for _, raw := range descriptors {
		d := raw.Normalize()
		op := Operation{
			OperationID: d.Name,
			Summary:     d.Description,
			Tags:        []string{openAPITag},
			Responses: map[string]Response{
				"200": {Description: "Tool result"},
				"400": {Description: "Invalid payload"},
				"500": {Description: "Tool failed"},
			},
		}

		switch d.Method {
		case http.MethodGet, http.MethodDelete:
			op.Parameters = queryParameters(d.Parameters)
		default:
			op.RequestBody = &RequestBody{
				Required: len(d.Parameters.Required) > 0,
				Content: map[string]MediaType{
					"application/json": {Schema: map[string]any{
						"type": "object",
						"properties": map[string]any{
							"payload": d.Parameters,
							"context": map[string]any{"type": "object"},
						},
					}},
				},
			}
		}

		path := "/tools/" + d.Name
		if doc.Paths[path] == nil {
			doc.Paths[path] = map[string]Operation{}
		}
		doc.Paths[path][strings.ToLower(d.Method)] = op
	}
	return doc
}

func queryParameters(p *tools.Parameters) []QueryParameter {
	if p == nil {
		return nil
	}
	required := make(map[string]bool, len(p.Required))
	for _, name := range p.Required {
		required[name] = true
	}

	var names []string
	for name := range p.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]QueryParameter, 0, len(names))
	for _, name := range names {
		prop := p.Properties[name]
		out = append(out, QueryParameter{
			Name:        name,
			In:          "query",
			Required:    required[name],
			Description: prop.Description,
			Schema:      tools.Property{Type: prop.Type, Default: prop.Default, Enum: prop.Enum},
		})
	}
	return out
}

// OpenAPIHandler serves the OpenAPI document of the tool routes.
type OpenAPIHandler struct {
	doc OpenAPIDocument
}

// NewOpenAPIHandler builds the document once; the catalog is static.
func NewOpenAPIHandler(baseURL string, descriptors []tools.Descriptor) *OpenAPIHandler {
	return &OpenAPIHandler{doc: BuildOpenAPI(baseURL, descriptors)}
}

// ServeHTTP handles GET /openapi.json.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.doc)
}

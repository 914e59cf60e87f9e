package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/bobmcallan/vire-tools/internal/common"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

// ToolHandler serves one tool at its declared method.
type ToolHandler struct {
	tool   tools.Tool
	desc   tools.Descriptor
	schema *jsonschema.Schema
	logger *common.Logger
}

// NewToolHandler compiles the tool's parameter schema and returns its handler.
func NewToolHandler(t tools.Tool, logger *common.Logger) (*ToolHandler, error) {
	desc := t.Descriptor.Normalize()
	schema, err := tools.CompileSchema(desc.Parameters)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", desc.Name, err)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ToolHandler{tool: t, desc: desc, schema: schema, logger: logger}, nil
}

// Name returns the tool name.
func (h *ToolHandler) Name() string { return h.desc.Name }

// Method returns the HTTP method the tool is served on.
func (h *ToolHandler) Method() string { return h.desc.Method }

// ServeHTTP handles /tools/<name>. Body methods carry {"payload", "context"};
// GET and DELETE take the payload from the query string.
func (h *ToolHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.desc.Method) {
		return
	}

	payload, callCtx, err := h.readRequest(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := tools.ValidatePayload(h.schema, payload); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return
	}

	args := map[string]any{}
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &args); err != nil {
			WriteError(w, http.StatusBadRequest, "payload must be a JSON object")
			return
		}
	}

	result, err := h.tool.Handler(r.Context(), tools.Request{Payload: args, Context: callCtx})
	if errors.Is(err, tools.ErrInvalidInput) {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().
			Str("tool", h.desc.Name).
			Str("error", err.Error()).
			Msg("tool call failed")
		WriteError(w, http.StatusInternalServerError, "tool call failed")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (h *ToolHandler) readRequest(r *http.Request) (payload, callCtx json.RawMessage, err error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
		args, err := queryPayload(r.URL.Query(), h.desc.Parameters)
		if err != nil {
			return nil, nil, err
		}
		payload, err = json.Marshal(args)
		if err != nil {
			return nil, nil, err
		}
		if raw := r.URL.Query().Get("context"); raw != "" {
			if !json.Valid([]byte(raw)) {
				return nil, nil, errors.New("context must be valid JSON")
			}
			callCtx = json.RawMessage(raw)
		}
		return payload, callCtx, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil, nil
	}

	var env tools.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, errors.New("request body must be a JSON object with payload and context")
	}
	if string(env.Payload) == "null" {
		env.Payload = nil
	}
	return env.Payload, env.Context, nil
}

// queryPayload builds a payload from query values, converting each declared
// property to its schema type. Undeclared keys other than "context" pass
// through as strings.
func queryPayload(q url.Values, params *tools.Parameters) (map[string]any, error) {
	out := make(map[string]any, len(q))
	for key, values := range q {
		if key == "context" || len(values) == 0 {
			continue
		}
		var prop tools.Property
		if params != nil {
			prop = params.Properties[key]
		}
		v, err := coerce(prop.Type, values)
		if err != nil {
			return nil, fmt.Errorf("query parameter %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

func coerce(typ string, values []string) (any, error) {
	first := values[0]
	switch typ {
	case "integer":
		return strconv.ParseInt(first, 10, 64)
	case "number":
		return strconv.ParseFloat(first, 64)
	case "boolean":
		return strconv.ParseBool(first)
	case "array":
		var items []string
		for _, v := range values {
			items = append(items, strings.Split(v, ",")...)
		}
		return items, nil
	case "object":
		var obj map[string]any
		if err := json.Unmarshal([]byte(first), &obj); err != nil {
			return nil, errors.New("expected a JSON object")
		}
		return obj, nil
	default:
		return first, nil
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/bobmcallan/vire-tools/internal/common"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

// BuildMCPTool converts a descriptor into an mcp.Tool carrying its
// parameter schema verbatim.
func BuildMCPTool(d tools.Descriptor) (mcp.Tool, error) {
	d = d.Normalize()
	schema, err := json.Marshal(d.Parameters)
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("tool %s: marshal schema: %w", d.Name, err)
	}
	return mcp.NewToolWithRawSchema(d.Name, d.Description, schema), nil
}

// ToolHandler adapts a tool handler to mcp-go. MCP calls carry no control
// server context, so the request context is always empty.
func ToolHandler(t tools.Tool, schema *jsonschema.Schema, logger *common.Logger) server.ToolHandlerFunc {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := r.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		raw, err := json.Marshal(args)
		if err != nil {
			return errorResult("arguments must be a JSON object"), nil
		}
		if err := tools.ValidatePayload(schema, raw); err != nil {
			return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := t.Handler(ctx, tools.Request{Payload: args})
		if errors.Is(err, tools.ErrInvalidInput) {
			return errorResult(err.Error()), nil
		}
		if err != nil {
			logger.Error().
				Str("tool", t.Descriptor.Name).
				Str("error", err.Error()).
				Msg("mcp tool call failed")
			return errorResult("tool call failed"), nil
		}
		return jsonResult(result), nil
	}
}

// RegisterTools adds every valid tool to s and returns how many were added.
// Invalid or repeated tools are skipped with a warning.
func RegisterTools(s *server.MCPServer, catalog []tools.Tool, logger *common.Logger) int {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	seen := make(map[string]bool, len(catalog))
	count := 0
	for _, t := range catalog {
		if err := t.Descriptor.Validate(); err != nil {
			logger.Warn().Str("error", err.Error()).Msg("skipping invalid tool")
			continue
		}
		if seen[t.Descriptor.Name] {
			logger.Warn().Str("name", t.Descriptor.Name).Msg("skipping duplicate tool")
			continue
		}
		seen[t.Descriptor.Name] = true

		mt, err := BuildMCPTool(t.Descriptor)
		if err != nil {
			logger.Warn().Str("error", err.Error()).Msg("skipping tool")
			continue
		}
		schema, err := tools.CompileSchema(t.Descriptor.Normalize().Parameters)
		if err != nil {
			logger.Warn().Str("error", err.Error()).Msg("skipping tool")
			continue
		}
		s.AddTool(mt, ToolHandler(t, schema, logger))
		count++
	}
	return count
}

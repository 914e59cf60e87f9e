package toolsync

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/bobmcallan/vire-tools/internal/client"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

// Diff lists the fields where the registry record differs from the normalized
// descriptor. Only description, method, endpoint and parameters are compared.
func Diff(desired tools.Descriptor, existing *client.ToolRecord) []string {
	var changed []string
	if existing.Description != desired.Description {
		changed = append(changed, "description")
	}
	if strings.ToUpper(strings.TrimSpace(existing.Method)) != strings.ToUpper(desired.Method) {
		changed = append(changed, "method")
	}
	if existing.Endpoint != desired.Endpoint {
		changed = append(changed, "endpoint")
	}
	if !parametersEqual(desired.Parameters, existing.Parameters) {
		changed = append(changed, "parameters")
	}
	return changed
}

var schemaCompare = []cmp.Option{
	cmpopts.SortSlices(func(a, b any) bool { return sortKey(a) < sortKey(b) }),
}

// sortKey orders JSON values by their encoding, so "1" and 1 never tie.
func sortKey(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(raw)
}

// parametersEqual compares both schemas as generic JSON values, so key order,
// array order and null or empty entries do not count as differences. A missing
// remote schema equals the empty-object schema.
func parametersEqual(local *tools.Parameters, remote json.RawMessage) bool {
	raw, err := json.Marshal(local)
	if err != nil {
		return false
	}
	var l, r any
	if err := json.Unmarshal(raw, &l); err != nil {
		return false
	}
	if len(remote) == 0 || string(remote) == "null" {
		remote, _ = json.Marshal(tools.EmptyParameters())
	}
	if err := json.Unmarshal(remote, &r); err != nil {
		return false
	}
	return cmp.Equal(canonical(l), canonical(r), schemaCompare...)
}

func canonical(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			if arr, ok := val.([]any); ok && len(arr) == 0 {
				continue
			}
			if m, ok := val.(map[string]any); ok && len(m) == 0 {
				continue
			}
			out[k] = canonical(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = canonical(val)
		}
		return out
	default:
		return v
	}
}

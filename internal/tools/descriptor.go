// Package tools holds the tool descriptor model and the tools this host serves.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	// DefaultDescription is advertised when a tool declares no description.
	DefaultDescription = "No description provided"
	// DefaultMethod is used when a tool declares no HTTP method.
	DefaultMethod = http.MethodPost
	// DefaultKind is the classification tag applied when none is declared.
	DefaultKind = "api"
)

// ErrInvalidDescriptor wraps every descriptor validation failure.
var ErrInvalidDescriptor = errors.New("invalid tool descriptor")

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Property describes one input parameter of a tool.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// Parameters is the JSON Schema object describing a tool's input.
type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// EmptyParameters returns the schema used by tools that take no input.
func EmptyParameters() *Parameters {
	return &Parameters{Type: "object", Properties: map[string]Property{}}
}

// IsEmpty reports whether the schema declares nothing at all.
func (p *Parameters) IsEmpty() bool {
	return p == nil || (p.Type == "" && len(p.Properties) == 0 && len(p.Required) == 0)
}

func (p *Parameters) clone() *Parameters {
	if p == nil {
		return nil
	}
	out := &Parameters{Type: p.Type, Properties: make(map[string]Property, len(p.Properties))}
	for k, v := range p.Properties {
		if v.Enum != nil {
			v.Enum = append([]any(nil), v.Enum...)
		}
		out.Properties[k] = v
	}
	if p.Required != nil {
		out.Required = append([]string(nil), p.Required...)
	}
	return out
}

// Descriptor is the locally declared definition of a tool.
// Name is the registry lookup key. Kind is informational and never diffed.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Endpoint    string      `json:"endpoint"`
	Method      string      `json:"method"`
	Parameters  *Parameters `json:"parameters"`
	Kind        string      `json:"type,omitempty"`
}

// UnmarshalJSON accepts the legacy "params" key when "parameters" is absent.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	type plain Descriptor
	var aux struct {
		plain
		Params *Parameters `json:"params"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = Descriptor(aux.plain)
	if d.Parameters == nil && aux.Params != nil {
		d.Parameters = aux.Params
	}
	return nil
}

// Validate checks the descriptor invariants. It performs no I/O.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if d.Method != "" && !allowedMethods[strings.ToUpper(d.Method)] {
		return fmt.Errorf("%w: tool %q has unsupported method %q", ErrInvalidDescriptor, d.Name, d.Method)
	}
	u, err := url.Parse(d.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: tool %q endpoint %q is not an absolute URL", ErrInvalidDescriptor, d.Name, d.Endpoint)
	}

	if d.Parameters.IsEmpty() {
		return nil
	}
	if d.Parameters.Type == "" {
		return fmt.Errorf("%w: tool %q: the 'type' property is required in the parameters schema", ErrInvalidDescriptor, d.Name)
	}
	names := make([]string, 0, len(d.Parameters.Properties))
	for name := range d.Parameters.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if d.Parameters.Properties[name].Type == "" {
			return fmt.Errorf("%w: tool %q: parameter %q is missing a required 'type'", ErrInvalidDescriptor, d.Name, name)
		}
	}
	if _, err := CompileSchema(d.Parameters); err != nil {
		return fmt.Errorf("%w: tool %q: %v", ErrInvalidDescriptor, d.Name, err)
	}
	return nil
}

// Normalize returns a copy with defaults applied: empty-object parameters,
// upper-case method (POST when absent), placeholder description and kind.
// The receiver is never modified.
func (d Descriptor) Normalize() Descriptor {
	out := d
	if d.Parameters.IsEmpty() {
		out.Parameters = EmptyParameters()
	} else {
		out.Parameters = d.Parameters.clone()
		if out.Parameters.Properties == nil {
			out.Parameters.Properties = map[string]Property{}
		}
	}
	out.Method = strings.ToUpper(strings.TrimSpace(d.Method))
	if out.Method == "" {
		out.Method = DefaultMethod
	}
	if strings.TrimSpace(d.Description) == "" {
		out.Description = DefaultDescription
	}
	if d.Kind == "" {
		out.Kind = DefaultKind
	}
	return out
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrInvalidInput marks tool errors caused by the caller's payload.
// The route host answers these with 400 instead of 500.
var ErrInvalidInput = errors.New("invalid input")

// Request is what a tool handler receives from the route host.
// Context is kept verbatim as sent by the control server.
type Request struct {
	Payload map[string]any
	Context json.RawMessage
}

// Envelope is the body shape the control server sends to tool endpoints.
type Envelope struct {
	Payload json.RawMessage `json:"payload,omitempty"`
	Context json.RawMessage `json:"context,omitempty"`
}

// CallContext is the typed view of the control server's context object.
type CallContext struct {
	Platform      string      `json:"platform"`
	LatestMessage MessageInfo `json:"latest_message"`
	Author        AuthorInfo  `json:"author"`
}

// MessageInfo is the latest message that triggered the tool call.
type MessageInfo struct {
	Content string `json:"content"`
}

// AuthorInfo identifies who sent the latest message.
type AuthorInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Platform string `json:"platform,omitempty"`
}

// CallContext decodes the raw context. A missing context yields the zero value.
func (r Request) CallContext() (CallContext, error) {
	var cc CallContext
	if len(r.Context) == 0 || string(r.Context) == "null" {
		return cc, nil
	}
	err := json.Unmarshal(r.Context, &cc)
	return cc, err
}

// HandlerFunc executes a tool and returns a JSON-encodable result.
type HandlerFunc func(ctx context.Context, req Request) (any, error)

// Tool pairs a descriptor with the handler the route host exposes for it.
type Tool struct {
	Descriptor Descriptor
	Handler    HandlerFunc
}

// Descriptors returns the descriptors of ts in order.
func Descriptors(ts []Tool) []Descriptor {
	out := make([]Descriptor, len(ts))
	for i, t := range ts {
		out[i] = t.Descriptor
	}
	return out
}

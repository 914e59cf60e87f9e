package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/vire-tools/internal/common"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

// maxResponseSize caps registry response bodies.
const maxResponseSize = 1 << 20

var (
	// ErrNotFound is returned by Find when the registry has no tool with that name.
	ErrNotFound = errors.New("tool not found in registry")
	// ErrMissingCredential is returned by every call when no registry key is configured.
	// No request is attempted.
	ErrMissingCredential = errors.New("registry credential is not configured")
)

// StatusError is a non-success HTTP response from the registry.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: registry returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// ToolRecord is the registry's view of a tool. Parameters are kept as the raw
// JSON the registry returned.
type ToolRecord struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Kind        string          `json:"type,omitempty"`
}

// UnmarshalJSON accepts string or numeric ids (also under "_id") and the
// legacy "params" key.
func (r *ToolRecord) UnmarshalJSON(data []byte) error {
	type plain ToolRecord
	var aux struct {
		plain
		ID       json.RawMessage `json:"id"`
		LegacyID json.RawMessage `json:"_id"`
		Params   json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = ToolRecord(aux.plain)

	id := aux.ID
	if len(id) == 0 || string(id) == "null" {
		id = aux.LegacyID
	}
	r.ID = rawID(id)

	if len(r.Parameters) == 0 || string(r.Parameters) == "null" {
		r.Parameters = aux.Params
	}
	return nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

type requestIDKey struct{}

// WithRequestID returns a context whose registry calls carry X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Option configures a RegistryClient.
type Option func(*RegistryClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RegistryClient) { c.httpClient = hc }
}

// WithTimeout sets the http.Client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *RegistryClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *RegistryClient) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// RegistryClient talks to the control server's tool registry.
//
//	GET   /tools?name={name}  lookup
//	POST  /tools              create
//	PATCH /tools/{id}         update (full replace; name when id is empty)
type RegistryClient struct {
	baseURL    string
	key        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *common.Logger
}

// NewRegistryClient creates a client for the registry at baseURL.
// key is sent as a bearer token; an empty key makes every call fail fast.
func NewRegistryClient(baseURL, key string, logger *common.Logger, opts ...Option) *RegistryClient {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	c := &RegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        strings.TrimSpace(key),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the registry base URL.
func (c *RegistryClient) BaseURL() string {
	return c.baseURL
}

// Find looks a tool up by exact name. It returns ErrNotFound only on a 404 or
// an empty result list; any other failure is a lookup error.
func (c *RegistryClient) Find(ctx context.Context, name string) (*ToolRecord, error) {
	path := "/tools?" + url.Values{"name": {name}}.Encode()
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", name, err)
	}

	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: "lookup " + name, StatusCode: status, Body: string(body)}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("lookup %s: registry returned an empty body", name)
	}
	if string(trimmed) == "null" {
		return nil, fmt.Errorf("lookup %s: registry returned no tool record", name)
	}

	// Some registries answer the query form with a list.
	if trimmed[0] == '[' {
		var records []ToolRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("lookup %s: failed to parse response: %w", name, err)
		}
		for i := range records {
			if records[i].Name == name {
				return &records[i], nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	var record ToolRecord
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, fmt.Errorf("lookup %s: failed to parse response: %w", name, err)
	}
	if record.Name == "" && record.ID == "" {
		return nil, fmt.Errorf("lookup %s: registry returned no tool record", name)
	}
	if record.Name != "" && record.Name != name {
		return nil, fmt.Errorf("lookup %s: registry returned tool %q", name, record.Name)
	}
	if record.Name == "" {
		record.Name = name
	}
	return &record, nil
}

// Create registers a new tool.
func (c *RegistryClient) Create(ctx context.Context, d tools.Descriptor) (*ToolRecord, error) {
	return c.write(ctx, "create "+d.Name, http.MethodPost, "/tools", d)
}

// Update overwrites an existing tool with the full descriptor.
func (c *RegistryClient) Update(ctx context.Context, id string, d tools.Descriptor) (*ToolRecord, error) {
	key := id
	if key == "" {
		key = d.Name
	}
	return c.write(ctx, "update "+d.Name, http.MethodPatch, "/tools/"+url.PathEscape(key), d)
}

func (c *RegistryClient) write(ctx context.Context, op, method, path string, d tools.Descriptor) (*ToolRecord, error) {
	status, body, err := c.do(ctx, method, path, d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: op, StatusCode: status, Body: string(body)}
	}

	record := recordFromDescriptor(d)
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var parsed ToolRecord
		if err := json.Unmarshal(trimmed, &parsed); err == nil {
			if parsed.ID != "" {
				record.ID = parsed.ID
			}
		} else {
			c.logger.Debug().Str("op", op).Str("error", err.Error()).Msg("registry write response not parsed")
		}
	}
	return record, nil
}

func recordFromDescriptor(d tools.Descriptor) *ToolRecord {
	params, _ := json.Marshal(d.Parameters)
	return &ToolRecord{
		Name:        d.Name,
		Description: d.Description,
		Endpoint:    d.Endpoint,
		Method:      d.Method,
		Parameters:  params,
		Kind:        d.Kind,
	}
}

// do performs one authenticated JSON request and returns status and body.
func (c *RegistryClient) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	if c.key == "" {
		return 0, nil, ErrMissingCredential
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, nil, ctxErr
			}
			if _, ok := ctx.Deadline(); ok {
				return 0, nil, fmt.Errorf("rate limit: %v: %w", err, context.DeadlineExceeded)
			}
			return 0, nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Warn().Str("method", method).Str("path", path).Int64("duration_ms", duration.Milliseconds()).Str("error", err.Error()).Msg("registry request failed")
		return 0, nil, fmt.Errorf("failed to reach registry: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Msg("registry response")

	return resp.StatusCode, body, nil
}

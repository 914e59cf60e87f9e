package toolsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-tools/internal/client"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

func dateTimeDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "get_date_time",
		Description: "Get the current date & time",
		Endpoint:    "http://localhost:8888/tools/get_date_time",
		Method:      "GET",
		Parameters:  tools.EmptyParameters(),
		Kind:        "api",
	}
}

func weatherDescriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "get_weather",
		Description: "Current weather for a city",
		Endpoint:    "http://localhost:8888/tools/get_weather",
		Method:      "POST",
		Parameters: &tools.Parameters{
			Type: "object",
			Properties: map[string]tools.Property{
				"city":  {Type: "string", Description: "City name"},
				"units": {Type: "string", Enum: []any{"metric", "imperial"}},
			},
			Required: []string{"city", "units"},
		},
	}
}

func TestReconcile_CreatesWhenMissing(t *testing.T) {
	reg := newFakeRegistry()
	r := NewReconciler(reg, nil, Options{})

	out := r.Reconcile(context.Background(), dateTimeDescriptor())

	require.Equal(t, StatusCreated, out.Status, out.Error)
	assert.Equal(t, 1, reg.finds)
	assert.Equal(t, 1, reg.creates)
	assert.Equal(t, 0, reg.updates)
	assert.NotEmpty(t, out.RemoteID)
	assert.Equal(t, []string{"find:get_date_time", "create:get_date_time"}, reg.order)
}

func TestReconcile_CreateSendsNormalizedDescriptor(t *testing.T) {
	reg := newFakeRegistry()
	r := NewReconciler(reg, nil, Options{})

	d := tools.Descriptor{Name: "bare", Endpoint: "http://localhost:8888/tools/bare", Method: "get"}
	out := r.Reconcile(context.Background(), d)
	require.Equal(t, StatusCreated, out.Status, out.Error)

	rec := reg.records["bare"]
	require.NotNil(t, rec)
	assert.Equal(t, tools.DefaultDescription, rec.Description)
	assert.Equal(t, "GET", rec.Method)
	assert.Equal(t, tools.DefaultKind, rec.Kind)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(rec.Parameters))

	// The caller's descriptor is left untouched.
	assert.Equal(t, "get", d.Method)
	assert.Empty(t, d.Description)
	assert.Nil(t, d.Parameters)
}

func TestReconcile_IsIdempotent(t *testing.T) {
	reg := newFakeRegistry()
	r := NewReconciler(reg, nil, Options{})
	ctx := context.Background()

	first := r.Reconcile(ctx, weatherDescriptor())
	second := r.Reconcile(ctx, weatherDescriptor())

	assert.Equal(t, StatusCreated, first.Status)
	assert.Equal(t, StatusUnchanged, second.Status)
	assert.Equal(t, first.RemoteID, second.RemoteID)
	assert.Equal(t, 1, reg.writes())
}

func TestReconcile_UnchangedIssuesNoWrites(t *testing.T) {
	reg := newFakeRegistry()
	reg.seed(dateTimeDescriptor())
	r := NewReconciler(reg, nil, Options{})

	out := r.Reconcile(context.Background(), dateTimeDescriptor())

	assert.Equal(t, StatusUnchanged, out.Status)
	assert.Equal(t, 0, reg.writes())
}

func TestReconcile_UnchangedIgnoresOrderAndMethodCase(t *testing.T) {
	reg := newFakeRegistry()
	rec := reg.seed(weatherDescriptor())
	rec.Method = "post"
	rec.Parameters = json.RawMessage(`{
		"required": ["units", "city"],
		"properties": {
			"units": {"enum": ["imperial", "metric"], "type": "string"},
			"city": {"description": "City name", "type": "string", "default": null}
		},
		"type": "object"
	}`)
	r := NewReconciler(reg, nil, Options{})

	out := r.Reconcile(context.Background(), weatherDescriptor())

	assert.Equal(t, StatusUnchanged, out.Status, "changed: %v", out.Changed)
	assert.Equal(t, 0, reg.writes())
}

func TestReconcile_UpdatesChangedDescription(t *testing.T) {
	reg := newFakeRegistry()
	old := dateTimeDescriptor()
	old.Description = "old"
	seeded := reg.seed(old)

	d := dateTimeDescriptor()
	d.Description = "new"
	r := NewReconciler(reg, nil, Options{})

	out := r.Reconcile(context.Background(), d)

	require.Equal(t, StatusUpdated, out.Status, out.Error)
	assert.Equal(t, []string{"description"}, out.Changed)
	assert.Equal(t, seeded.ID, out.RemoteID)
	assert.Equal(t, 1, reg.updates)
	assert.Equal(t, 0, reg.creates)

	stored := reg.records["get_date_time"]
	assert.Equal(t, "new", stored.Description)
	assert.Equal(t, d.Endpoint, stored.Endpoint)
	assert.Equal(t, "GET", stored.Method)
}

func TestReconcile_UpdatesChangedParameters(t *testing.T) {
	reg := newFakeRegistry()
	reg.seed(dateTimeDescriptor())

	d := dateTimeDescriptor()
	d.Parameters = &tools.Parameters{
		Type:       "object",
		Properties: map[string]tools.Property{"format": {Type: "string"}},
	}
	r := NewReconciler(reg, nil, Options{})

	out := r.Reconcile(context.Background(), d)

	assert.Equal(t, StatusUpdated, out.Status)
	assert.Equal(t, []string{"parameters"}, out.Changed)
}

func TestReconcile_ValidationFailsWithoutNetwork(t *testing.T) {
	reg := newFakeRegistry()
	r := NewReconciler(reg, nil, Options{})

	d := weatherDescriptor()
	d.Parameters.Properties["city"] = tools.Property{Description: "missing type"}

	out := r.Reconcile(context.Background(), d)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, ReasonValidation, out.Reason)
	assert.ErrorIs(t, out.Err, tools.ErrInvalidDescriptor)
	assert.Empty(t, reg.order)
}

func TestReconcile_LookupErrorIsNotNotFound(t *testing.T) {
	reg := newFakeRegistry()
	reg.findErr = &client.StatusError{Op: "find", StatusCode: http.StatusInternalServerError, Body: "boom"}
	r := NewReconciler(reg, nil, Options{})

	out := r.Reconcile(context.Background(), dateTimeDescriptor())

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, ReasonLookup, out.Reason)
	assert.Equal(t, 0, reg.writes())

	var se *client.StatusError
	require.True(t, errors.As(out.Err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestReconcile_EmptyLookupBodyFailsWithoutWrites(t *testing.T) {
	for _, body := range []string{`null`, `{}`} {
		var writes atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				writes.Add(1)
				w.WriteHeader(http.StatusOK)
				return
			}
			w.Write([]byte(body))
		}))

		reg := client.NewRegistryClient(srv.URL, "secret", nil)
		out := NewReconciler(reg, nil, Options{}).Reconcile(context.Background(), dateTimeDescriptor())
		srv.Close()

		assert.Equal(t, StatusFailed, out.Status, "body %s", body)
		assert.Equal(t, ReasonLookup, out.Reason, "body %s", body)
		assert.Zero(t, writes.Load(), "body %s", body)
	}
}

func TestReconcile_CreateFailure(t *testing.T) {
	reg := newFakeRegistry()
	reg.createErr = &client.StatusError{Op: "create", StatusCode: http.StatusBadRequest, Body: "malformed schema"}
	r := NewReconciler(reg, nil, Options{})

	out := r.Reconcile(context.Background(), dateTimeDescriptor())

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, ReasonCreate, out.Reason)
	assert.Contains(t, out.Error, "malformed schema")
}

func TestReconcile_UpdateFailure(t *testing.T) {
	reg := newFakeRegistry()
	old := dateTimeDescriptor()
	old.Endpoint = "http://old-host/tools/get_date_time"
	reg.seed(old)
	reg.updateErr = errors.New("connection reset")
	r := NewReconciler(reg, nil, Options{})

	out := r.Reconcile(context.Background(), dateTimeDescriptor())

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, ReasonUpdate, out.Reason)
	assert.Equal(t, []string{"endpoint"}, out.Changed)
	assert.NotEmpty(t, out.RemoteID)
}

func TestReconcile_CallTimeout(t *testing.T) {
	reg := newFakeRegistry()
	reg.delay = 500 * time.Millisecond
	r := NewReconciler(reg, nil, Options{CallTimeout: 20 * time.Millisecond})

	start := time.Now()
	out := r.Reconcile(context.Background(), dateTimeDescriptor())

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, ReasonTimeout, out.Reason)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, 0, reg.writes())
}

func TestReconcile_MissingCredentialMakesNoRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reg := client.NewRegistryClient(srv.URL, "", nil)
	r := NewReconciler(reg, nil, Options{})

	summary := r.Run(context.Background(), []tools.Descriptor{dateTimeDescriptor(), weatherDescriptor()})

	assert.Equal(t, 2, summary.Failed)
	for _, f := range summary.Failures {
		assert.Equal(t, ReasonConfiguration, f.Reason)
	}
	assert.Zero(t, hits.Load())
}

func TestReconcile_DryRun(t *testing.T) {
	reg := newFakeRegistry()
	old := weatherDescriptor()
	old.Description = "stale"
	reg.seed(old)
	r := NewReconciler(reg, nil, Options{DryRun: true})

	summary := r.Run(context.Background(), []tools.Descriptor{dateTimeDescriptor(), weatherDescriptor()})

	require.Len(t, summary.Outcomes, 2)
	assert.Equal(t, StatusCreated, summary.Outcomes[0].Status)
	assert.True(t, summary.Outcomes[0].DryRun)
	assert.Equal(t, StatusUpdated, summary.Outcomes[1].Status)
	assert.Equal(t, []string{"description"}, summary.Outcomes[1].Changed)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 0, reg.writes())
	assert.Equal(t, "stale", reg.records["get_weather"].Description)
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	reg := newFakeRegistry()
	r := NewReconciler(reg, nil, Options{})

	bad := weatherDescriptor()
	bad.Name = "broken"
	bad.Parameters = &tools.Parameters{Properties: map[string]tools.Property{"x": {Type: "string"}}}

	third := weatherDescriptor()

	summary := r.Run(context.Background(), []tools.Descriptor{dateTimeDescriptor(), bad, third})

	require.Len(t, summary.Outcomes, 3)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, StatusCreated, summary.Outcomes[0].Status)
	assert.Equal(t, StatusFailed, summary.Outcomes[1].Status)
	assert.Equal(t, StatusCreated, summary.Outcomes[2].Status)
	assert.Equal(t, []Failure{{Tool: "broken", Reason: ReasonValidation, Error: summary.Outcomes[1].Error}}, summary.Failures)
	assert.NotEmpty(t, summary.RunID)
}

func TestRun_SecondRunIsUnchanged(t *testing.T) {
	reg := newFakeRegistry()
	r := NewReconciler(reg, nil, Options{})
	descriptors := []tools.Descriptor{dateTimeDescriptor(), weatherDescriptor()}

	first := r.Run(context.Background(), descriptors)
	second := r.Run(context.Background(), descriptors)

	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 2, second.Unchanged)
	assert.Equal(t, 2, reg.writes())
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_DuplicateNames(t *testing.T) {
	reg := newFakeRegistry()
	r := NewReconciler(reg, nil, Options{Concurrency: 4})

	dup := dateTimeDescriptor()
	dup.Description = "shadow"

	summary := r.Run(context.Background(), []tools.Descriptor{dateTimeDescriptor(), dup})

	require.Len(t, summary.Outcomes, 2)
	assert.Equal(t, StatusCreated, summary.Outcomes[0].Status)
	assert.Equal(t, StatusFailed, summary.Outcomes[1].Status)
	assert.Equal(t, ReasonConfiguration, summary.Outcomes[1].Reason)
	assert.ErrorIs(t, summary.Outcomes[1].Err, ErrDuplicateName)
	assert.Equal(t, 1, reg.finds)
}

func TestRun_ConcurrentKeepsInputOrder(t *testing.T) {
	reg := newFakeRegistry()
	reg.delay = 10 * time.Millisecond
	r := NewReconciler(reg, nil, Options{Concurrency: 3})

	names := []string{"a", "b", "c", "d", "e", "f"}
	var descriptors []tools.Descriptor
	for _, n := range names {
		d := dateTimeDescriptor()
		d.Name = n
		d.Endpoint = "http://localhost:8888/tools/" + n
		descriptors = append(descriptors, d)
	}

	summary := r.Run(context.Background(), descriptors)

	require.Len(t, summary.Outcomes, len(names))
	for i, n := range names {
		assert.Equal(t, n, summary.Outcomes[i].Tool)
		assert.Equal(t, StatusCreated, summary.Outcomes[i].Status)
	}

	// Each tool's find precedes its create.
	pos := map[string]int{}
	for i, op := range reg.order {
		pos[op] = i
	}
	for _, n := range names {
		assert.Less(t, pos["find:"+n], pos["create:"+n], n)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	r := NewReconciler(newFakeRegistry(), nil, Options{})

	summary := r.Run(context.Background(), nil)

	assert.Equal(t, 0, summary.Total)
	assert.Empty(t, summary.Outcomes)
	assert.NotNil(t, summary.Failures)
	assert.False(t, summary.HasFailures())
}

func TestSummary_Count(t *testing.T) {
	s := Summary{Unchanged: 1, Created: 2, Updated: 3, Failed: 4}
	assert.Equal(t, 1, s.Count(StatusUnchanged))
	assert.Equal(t, 2, s.Count(StatusCreated))
	assert.Equal(t, 3, s.Count(StatusUpdated))
	assert.Equal(t, 4, s.Count(StatusFailed))
	assert.Equal(t, 0, s.Count(Status("other")))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ReasonConfiguration, classify(client.ErrMissingCredential, ReasonLookup))
	assert.Equal(t, ReasonTimeout, classify(context.DeadlineExceeded, ReasonCreate))
	assert.Equal(t, ReasonUpdate, classify(errors.New("x"), ReasonUpdate))
}

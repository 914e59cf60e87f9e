package toolsync

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/bobmcallan/vire-tools/internal/client"
	"github.com/bobmcallan/vire-tools/internal/common"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

// Registry is the remote tool registry as seen by the reconciler.
// *client.RegistryClient implements it.
type Registry interface {
	Find(ctx context.Context, name string) (*client.ToolRecord, error)
	Create(ctx context.Context, d tools.Descriptor) (*client.ToolRecord, error)
	Update(ctx context.Context, id string, d tools.Descriptor) (*client.ToolRecord, error)
}

// Options tunes a Reconciler. Zero values are usable.
type Options struct {
	// CallTimeout bounds each registry call. Zero means no per-call bound.
	CallTimeout time.Duration
	// Concurrency is the number of tools reconciled at once by Run. Minimum 1.
	Concurrency int
	// DryRun skips create and update calls.
	DryRun bool
	Meter  metric.Meter
	Tracer trace.Tracer
}

// Reconciler brings registry records into agreement with local descriptors.
type Reconciler struct {
	registry Registry
	logger   *common.Logger
	opts     Options
	metrics  *syncMetrics
	tracer   trace.Tracer
}

// NewReconciler creates a Reconciler over registry.
func NewReconciler(registry Registry, logger *common.Logger, opts Options) *Reconciler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	m, err := newSyncMetrics(meter)
	if err != nil {
		logger.Warn().Str("error", err.Error()).Msg("toolsync: metrics disabled")
	}

	return &Reconciler{
		registry: registry,
		logger:   logger,
		opts:     opts,
		metrics:  m,
		tracer:   tracer,
	}
}

// Reconcile makes the minimal registry write needed for d. It never returns
// an error; failures are reported as a failed Outcome.
func (r *Reconciler) Reconcile(ctx context.Context, d tools.Descriptor) Outcome {
	return r.reconcile(ctx, d, r.logger)
}

func (r *Reconciler) reconcile(ctx context.Context, d tools.Descriptor, logger *common.Logger) Outcome {
	ctx, span := r.tracer.Start(ctx, "toolsync.reconcile",
		trace.WithAttributes(attribute.String("tool.name", d.Name)),
	)
	defer span.End()

	out := r.decide(ctx, d)

	span.SetAttributes(attribute.String("toolsync.status", string(out.Status)))
	if out.Failed() {
		span.SetAttributes(attribute.String("toolsync.reason", string(out.Reason)))
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Error)
	}
	r.metrics.recordOutcome(ctx, out)
	logOutcome(logger, out)

	return out
}

func (r *Reconciler) decide(ctx context.Context, d tools.Descriptor) Outcome {
	if err := d.Validate(); err != nil {
		return failed(d.Name, ReasonValidation, err)
	}
	desired := d.Normalize()

	existing, err := r.find(ctx, desired.Name)
	if errors.Is(err, client.ErrNotFound) {
		if r.opts.DryRun {
			return Outcome{Tool: desired.Name, Status: StatusCreated, DryRun: true}
		}
		created, err := r.create(ctx, desired)
		if err != nil {
			return failed(desired.Name, classify(err, ReasonCreate), err)
		}
		return Outcome{Tool: desired.Name, Status: StatusCreated, RemoteID: created.ID}
	}
	if err != nil {
		return failed(desired.Name, classify(err, ReasonLookup), err)
	}

	changed := Diff(desired, existing)
	if len(changed) == 0 {
		return Outcome{Tool: desired.Name, Status: StatusUnchanged, RemoteID: existing.ID}
	}
	if r.opts.DryRun {
		return Outcome{Tool: desired.Name, Status: StatusUpdated, RemoteID: existing.ID, Changed: changed, DryRun: true}
	}

	updated, err := r.update(ctx, existing.ID, desired)
	if err != nil {
		out := failed(desired.Name, classify(err, ReasonUpdate), err)
		out.RemoteID = existing.ID
		out.Changed = changed
		return out
	}
	id := updated.ID
	if id == "" {
		id = existing.ID
	}
	return Outcome{Tool: desired.Name, Status: StatusUpdated, RemoteID: id, Changed: changed}
}

func (r *Reconciler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, r.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (r *Reconciler) find(ctx context.Context, name string) (*client.ToolRecord, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.registry.Find(ctx, name)
}

func (r *Reconciler) create(ctx context.Context, d tools.Descriptor) (*client.ToolRecord, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.registry.Create(ctx, d)
}

func (r *Reconciler) update(ctx context.Context, id string, d tools.Descriptor) (*client.ToolRecord, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.registry.Update(ctx, id, d)
}

func logOutcome(logger *common.Logger, out Outcome) {
	switch {
	case out.Failed():
		logger.Error().
			Str("tool", out.Tool).
			Str("reason", string(out.Reason)).
			Str("error", out.Error).
			Msg("toolsync: failed to set up tool")
	case out.Status == StatusUnchanged:
		logger.Debug().Str("tool", out.Tool).Msg("toolsync: tool is already up-to-date")
	default:
		logger.Info().
			Str("tool", out.Tool).
			Str("status", string(out.Status)).
			Str("remote_id", out.RemoteID).
			Bool("dry_run", out.DryRun).
			Msg("toolsync: tool synced")
	}
}

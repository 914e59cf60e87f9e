package toolsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/vire-tools/internal/client"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

// Failure is one failed tool in a run summary.
type Failure struct {
	Tool   string `json:"tool"`
	Reason Reason `json:"reason"`
	Error  string `json:"error"`
}

// Summary aggregates the outcomes of one sync run, in input order.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Total      int       `json:"total"`
	Unchanged  int       `json:"unchanged"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	DryRun     bool      `json:"dry_run,omitempty"`
	Failures   []Failure `json:"failures"`
	Outcomes   []Outcome `json:"outcomes"`
}

// HasFailures reports whether any tool failed.
func (s Summary) HasFailures() bool { return s.Failed > 0 }

// Count returns the number of outcomes with the given status.
func (s Summary) Count(status Status) int {
	switch status {
	case StatusUnchanged:
		return s.Unchanged
	case StatusCreated:
		return s.Created
	case StatusUpdated:
		return s.Updated
	case StatusFailed:
		return s.Failed
	}
	return 0
}

// Run reconciles every descriptor and returns the summary. One tool failing
// never stops the others, and Run itself never fails. Repeated names are
// rejected before any registry call, so a name is never reconciled twice at once.
func (r *Reconciler) Run(ctx context.Context, descriptors []tools.Descriptor) Summary {
	runID := uuid.NewString()
	ctx = client.WithRequestID(ctx, runID)
	logger := r.logger.WithCorrelationId(runID)
	start := time.Now()

	logger.Info().
		Str("run_id", runID).
		Int("tools", len(descriptors)).
		Int("concurrency", r.opts.Concurrency).
		Bool("dry_run", r.opts.DryRun).
		Msg("toolsync: run started")

	outcomes := make([]Outcome, len(descriptors))
	seen := make(map[string]bool, len(descriptors))

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)

	for i, d := range descriptors {
		if d.Name != "" && seen[d.Name] {
			outcomes[i] = failed(d.Name, ReasonConfiguration, fmt.Errorf("%w: %q is declared more than once", ErrDuplicateName, d.Name))
			r.metrics.recordOutcome(ctx, outcomes[i])
			logOutcome(logger, outcomes[i])
			continue
		}
		seen[d.Name] = true

		g.Go(func() error {
			outcomes[i] = r.reconcile(ctx, d, logger)
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(runID, start, outcomes)
	summary.DryRun = r.opts.DryRun
	r.metrics.recordRun(ctx, time.Since(start), summary.Failed)

	evt := logger.Info()
	if summary.HasFailures() {
		evt = logger.Warn()
	}
	evt.Str("run_id", runID).
		Int("total", summary.Total).
		Int("unchanged", summary.Unchanged).
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("failed", summary.Failed).
		Int64("duration_ms", summary.DurationMs).
		Msg("toolsync: run finished")

	return summary
}

func summarize(runID string, start time.Time, outcomes []Outcome) Summary {
	s := Summary{
		RunID:      runID,
		StartedAt:  start.UTC(),
		DurationMs: time.Since(start).Milliseconds(),
		Total:      len(outcomes),
		Failures:   []Failure{},
		Outcomes:   outcomes,
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusUnchanged:
			s.Unchanged++
		case StatusCreated:
			s.Created++
		case StatusUpdated:
			s.Updated++
		case StatusFailed:
			s.Failed++
			s.Failures = append(s.Failures, Failure{Tool: o.Tool, Reason: o.Reason, Error: o.Error})
		}
	}
	return s
}

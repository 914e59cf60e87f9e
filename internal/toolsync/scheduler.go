package toolsync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/vire-tools/internal/common"
	"github.com/bobmcallan/vire-tools/internal/tools"
)

// Scheduler runs the reconciler at startup and on a cron schedule,
// keeping the most recent summary.
type Scheduler struct {
	reconciler  *Reconciler
	descriptors func() []tools.Descriptor
	logger      *common.Logger

	cron  *cron.Cron
	runMu sync.Mutex

	mu   sync.RWMutex
	last *Summary
}

// NewScheduler creates a Scheduler. descriptors is called on every run so the
// catalog can be rebuilt from current configuration.
func NewScheduler(r *Reconciler, descriptors func() []tools.Descriptor, logger *common.Logger) *Scheduler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Scheduler{
		reconciler:  r,
		descriptors: descriptors,
		logger:      logger,
	}
}

// RunOnce performs a sync run and records it as the latest summary.
// ok is false when another run was already in progress.
func (s *Scheduler) RunOnce(ctx context.Context) (summary Summary, ok bool) {
	if !s.runMu.TryLock() {
		s.logger.Warn().Msg("toolsync: run already in progress, skipping")
		return Summary{}, false
	}
	defer s.runMu.Unlock()

	summary = s.reconciler.Run(ctx, s.descriptors())

	s.mu.Lock()
	s.last = &summary
	s.mu.Unlock()

	return summary, true
}

// Last returns the most recent summary, if any run has finished.
func (s *Scheduler) Last() (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Summary{}, false
	}
	return *s.last, true
}

// Start registers schedule (standard five-field cron, UTC) and starts the
// cron runner. An empty or blank schedule is a no-op.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("toolsync: invalid schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c

	s.logger.Info().Str("schedule", schedule).Msg("toolsync: scheduled sync enabled")
	return nil
}

// Stop halts the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

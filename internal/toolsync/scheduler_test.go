package toolsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-tools/internal/tools"
)

func newTestScheduler(reg *fakeRegistry) *Scheduler {
	r := NewReconciler(reg, nil, Options{})
	return NewScheduler(r, func() []tools.Descriptor {
		return []tools.Descriptor{dateTimeDescriptor()}
	}, nil)
}

func TestScheduler_LastBeforeFirstRun(t *testing.T) {
	s := newTestScheduler(newFakeRegistry())

	_, ok := s.Last()
	assert.False(t, ok)
}

func TestScheduler_RunOnceStoresSummary(t *testing.T) {
	reg := newFakeRegistry()
	s := newTestScheduler(reg)

	first, ok := s.RunOnce(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, first.Created)

	second, ok := s.RunOnce(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, second.Unchanged)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, second.RunID, last.RunID)
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	reg := newFakeRegistry()
	s := newTestScheduler(reg)

	s.runMu.Lock()
	_, ok := s.RunOnce(context.Background())
	s.runMu.Unlock()

	assert.False(t, ok)
	assert.Zero(t, reg.finds)
}

func TestScheduler_Start(t *testing.T) {
	s := newTestScheduler(newFakeRegistry())

	assert.NoError(t, s.Start(context.Background(), ""))
	assert.Nil(t, s.cron)

	assert.NoError(t, s.Start(context.Background(), "  \t "))
	assert.Nil(t, s.cron)

	assert.Error(t, s.Start(context.Background(), "every tuesday"))

	require.NoError(t, s.Start(context.Background(), "*/5 * * * *"))
	assert.NotNil(t, s.cron)
	s.Stop()
}

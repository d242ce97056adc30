package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	args := m.Called(ctx, grace)
	return args.Int(0), args.Error(1)
}

func TestRunOnceAccumulates(t *testing.T) {
	sweeper := &MockSweeper{}
	sweeper.On("SweepOrphans", mock.Anything, 10*time.Minute).Return(2, nil).Twice()

	s := NewOrphanSweeper(sweeper, zap.NewNop().Sugar(), OrphanSweeperConfig{Interval: time.Hour, Grace: 10 * time.Minute})
	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	lastRun, removed := s.Stats()
	assert.Equal(t, 4, removed)
	assert.False(t, lastRun.IsZero())
	sweeper.AssertExpectations(t)
}

func TestRunOnceFailureKeepsStats(t *testing.T) {
	sweeper := &MockSweeper{}
	sweeper.On("SweepOrphans", mock.Anything, mock.Anything).Return(0, errors.New("bucket unavailable"))

	s := NewOrphanSweeper(sweeper, zap.NewNop().Sugar(), OrphanSweeperConfig{})
	s.RunOnce(context.Background())

	lastRun, removed := s.Stats()
	assert.True(t, lastRun.IsZero())
	assert.Zero(t, removed)
}

func TestStartSweepsUntilStopped(t *testing.T) {
	sweeper := &MockSweeper{}
	sweeper.On("SweepOrphans", mock.Anything, MinGrace).Return(1, nil)

	s := NewOrphanSweeper(sweeper, zap.NewNop().Sugar(), OrphanSweeperConfig{Interval: 10 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		_, removed := s.Stats()
		return removed >= 3
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestDefaultsApplied(t *testing.T) {
	s := NewOrphanSweeper(&MockSweeper{}, zap.NewNop().Sugar(), OrphanSweeperConfig{Grace: -time.Second})
	assert.Equal(t, time.Hour, s.config.Interval)
	assert.Equal(t, 5*time.Minute, s.config.Timeout)
	assert.Equal(t, MinGrace, s.config.Grace)

	s = NewOrphanSweeper(&MockSweeper{}, zap.NewNop().Sugar(), OrphanSweeperConfig{Grace: 0})
	assert.Equal(t, MinGrace, s.config.Grace)
}

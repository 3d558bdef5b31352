package progression

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forexgate/forexgate/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	stage   stage.Stage
	snap    Snapshot
	history []stage.HistoryEntry
	err     error
}

func newMemStore(s stage.Stage) *memStore {
	return &memStore{
		stage:   s,
		history: []stage.HistoryEntry{{Stage: s, EnteredAt: now.Add(-time.Hour)}},
	}
}

func (m *memStore) CurrentStage(ctx context.Context, userID string) (stage.Stage, error) {
	return m.stage, m.err
}

func (m *memStore) ProgressionSnapshot(ctx context.Context, userID string, since time.Time) (Snapshot, error) {
	snap := m.snap
	snap.UserID = userID
	snap.Stage = m.stage
	return snap, m.err
}

func (m *memStore) TransitionStage(ctx context.Context, t stage.Transition) error {
	if m.stage != t.From {
		return errors.New("stage conflict")
	}
	last := &m.history[len(m.history)-1]
	at := t.At
	last.ExitedAt = &at
	last.ExitReason = t.Reason
	m.history = append(m.history, stage.HistoryEntry{Stage: t.To, EnteredAt: t.At})
	m.stage = t.To
	return nil
}

func newTestEngine(m *memStore) *Engine {
	return NewEngine(m, WithClock(func() time.Time { return now }))
}

func TestEngine_AdvanceThenRegress(t *testing.T) {
	t.Parallel()

	m := newMemStore(stage.Observer)
	m.snap.CompletedLessons = 2
	e := newTestEngine(m)

	next, err := e.Advance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, stage.Student, next)

	prev, err := e.Regress(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, stage.Observer, prev)

	require.Len(t, m.history, 3)
	assert.Equal(t, ReasonAdvanced, m.history[0].ExitReason)
	assert.Equal(t, ReasonRegressed, m.history[1].ExitReason)
	assert.Equal(t, stage.Observer, m.history[2].Stage)
	assert.Nil(t, m.history[2].ExitedAt)
}

func TestEngine_AdvanceRefused(t *testing.T) {
	t.Parallel()

	m := newMemStore(stage.Observer)
	e := newTestEngine(m)

	_, err := e.Advance(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrCannotAdvance)
	assert.Len(t, m.history, 1)

	m = newMemStore(stage.LiveMini)
	m.snap.ClosedTrades = 1000
	_, err = newTestEngine(m).Advance(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrCannotAdvance)
}

func TestEngine_RegressFloors(t *testing.T) {
	t.Parallel()

	for _, s := range []stage.Stage{stage.Onboarding, stage.Observer} {
		m := newMemStore(s)
		_, err := newTestEngine(m).Regress(context.Background(), "u1", "too many flags")
		assert.ErrorIs(t, err, ErrCannotRegress, s)
	}

	m := newMemStore(stage.LiveMicro)
	got, err := newTestEngine(m).Regress(context.Background(), "u1", "drawdown breach")
	require.NoError(t, err)
	assert.Equal(t, stage.SimStress, got)
	assert.Equal(t, "drawdown breach", m.history[0].ExitReason)
}

func TestEngine_CompleteOnboarding(t *testing.T) {
	t.Parallel()

	m := newMemStore(stage.Onboarding)
	e := newTestEngine(m)

	got, err := e.CompleteOnboarding(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, stage.Observer, got)
	assert.Equal(t, ReasonOnboardingCompleted, m.history[0].ExitReason)

	_, err = e.CompleteOnboarding(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrCannotAdvance)
}

func TestEngine_StoreErrorsWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk on fire")
	m := newMemStore(stage.SimBasic)
	m.err = boom
	e := newTestEngine(m)

	_, err := e.Status(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)

	_, err = e.Regress(context.Background(), "u1", "")
	assert.ErrorIs(t, err, boom)
}

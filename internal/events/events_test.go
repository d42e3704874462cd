package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

type fixedStatus struct {
	mu     sync.Mutex
	status constants.RunStatus
}

func (f *fixedStatus) RunStatus(context.Context, uuid.UUID) (constants.RunStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, nil
}

func (f *fixedStatus) set(s constants.RunStatus) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func TestChannel_AppendAssignsSequence(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel(NewMemoryStore(), nil)
	run := uuid.New()

	for i := 0; i < 3; i++ {
		ev, err := ch.Progress(ctx, run, constants.StageExtraction, "step", map[string]any{"progress": i})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.NotEqual(t, uuid.Nil, ev.ID)
		assert.False(t, ev.CreatedAt.IsZero())
	}

	evs, err := ch.ReadSince(ctx, run, 1)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, int64(2), evs[0].Seq)
	assert.Equal(t, int64(3), evs[1].Seq)
	assert.Equal(t, "extraction", evs[0].Data["step"])

	evs, err = ch.ReadSince(ctx, run, 3)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestChannel_RejectsUnknownKind(t *testing.T) {
	ch := NewChannel(NewMemoryStore(), nil)
	_, err := ch.Append(context.Background(), uuid.New(), constants.EventKind("debug"), "x", nil)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestMemoryStore_ConcurrentAppendsKeepUniqueOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ch := NewChannel(store, nil)
	run := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ch.Progress(ctx, run, constants.StageAnalysis, "tick", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	evs, err := store.ReadEventsSince(ctx, run, 0, 0)
	require.NoError(t, err)
	require.Len(t, evs, 50)
	for i, ev := range evs {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	run := uuid.New()
	require.NoError(t, store.AppendEvent(ctx, &entity.ProgressEvent{RunID: run, Kind: constants.EventProgress, Data: map[string]any{"a": 1}}))

	evs, err := store.ReadEventsSince(ctx, run, 0, 10)
	require.NoError(t, err)
	evs[0].Data["a"] = 2

	again, err := store.ReadEventsSince(ctx, run, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Data["a"])
}

func TestMemoryStore_DeleteRunRestartsSequence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	run, other := uuid.New(), uuid.New()
	require.NoError(t, store.AppendEvent(ctx, &entity.ProgressEvent{RunID: run, Kind: constants.EventProgress}))
	require.NoError(t, store.AppendEvent(ctx, &entity.ProgressEvent{RunID: other, Kind: constants.EventProgress}))

	store.DeleteRun(run)

	evs, err := store.ReadEventsSince(ctx, run, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, evs)
	evs, err = store.ReadEventsSince(ctx, other, 0, 0)
	require.NoError(t, err)
	assert.Len(t, evs, 1)

	ev := &entity.ProgressEvent{RunID: run, Kind: constants.EventProgress}
	require.NoError(t, store.AppendEvent(ctx, ev))
	assert.Equal(t, int64(1), ev.Seq)
}

func collect(evs *[]entity.ProgressEvent) func(entity.ProgressEvent) error {
	return func(ev entity.ProgressEvent) error {
		*evs = append(*evs, ev)
		return nil
	}
}

func TestStreamer_StopsAfterTerminalEvent(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel(NewMemoryStore(), nil)
	run := uuid.New()
	_, _ = ch.StatusChange(ctx, run, constants.RunStatusRunning, "started", nil)
	_, _ = ch.Progress(ctx, run, constants.StageExtraction, "extracted", nil)
	_, _ = ch.StatusChange(ctx, run, constants.RunStatusSucceeded, "done", nil)
	_, _ = ch.Progress(ctx, run, constants.StageDeadlines, "after terminal", nil)

	s := &Streamer{Reader: ch, Interval: 5 * time.Millisecond, MaxDuration: time.Second}
	var got []entity.ProgressEvent
	require.NoError(t, s.Stream(ctx, run, 0, collect(&got)))

	require.Len(t, got, 3)
	assert.Equal(t, "succeeded", got[2].Status())
}

func TestStreamer_ResumesFromMarker(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel(NewMemoryStore(), nil)
	run := uuid.New()
	_, _ = ch.StatusChange(ctx, run, constants.RunStatusRunning, "started", nil)
	_, _ = ch.Progress(ctx, run, constants.StageExtraction, "extracted", nil)
	_, _ = ch.Error(ctx, run, "boom", nil)

	s := &Streamer{Reader: ch, Interval: 5 * time.Millisecond, MaxDuration: time.Second}
	var got []entity.ProgressEvent
	require.NoError(t, s.Stream(ctx, run, 2, collect(&got)))

	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].Seq)
	assert.Equal(t, constants.EventError, got[0].Kind)
}

func TestStreamer_PicksUpLateEvents(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel(NewMemoryStore(), nil)
	run := uuid.New()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = ch.Progress(ctx, run, constants.StagePreparation, "prepared", nil)
		time.Sleep(20 * time.Millisecond)
		_, _ = ch.StatusChange(ctx, run, constants.RunStatusFailed, "failed", nil)
	}()

	s := &Streamer{Reader: ch, Interval: 5 * time.Millisecond, MaxDuration: 2 * time.Second}
	var got []entity.ProgressEvent
	require.NoError(t, s.Stream(ctx, run, 0, collect(&got)))
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, int64(2), got[1].Seq)
}

func TestStreamer_SyntheticTerminalFromStatus(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel(NewMemoryStore(), nil)
	run := uuid.New()
	_, _ = ch.Progress(ctx, run, constants.StageAnalysis, "analyzing", nil)

	status := &fixedStatus{status: constants.RunStatusRunning}
	s := &Streamer{Reader: ch, Status: status, Interval: 5 * time.Millisecond, MaxDuration: 2 * time.Second}
	go func() {
		time.Sleep(20 * time.Millisecond)
		status.set(constants.RunStatusSucceeded)
	}()

	var got []entity.ProgressEvent
	require.NoError(t, s.Stream(ctx, run, 0, collect(&got)))
	require.Len(t, got, 2)
	last := got[1]
	assert.Equal(t, constants.EventStatusChange, last.Kind)
	assert.Equal(t, int64(0), last.Seq)
	assert.Equal(t, "succeeded", last.Status())
	assert.True(t, last.IsTerminal())
}

func TestStreamer_TimeoutEmitsSyntheticError(t *testing.T) {
	ch := NewChannel(NewMemoryStore(), nil)
	s := &Streamer{Reader: ch, Interval: 5 * time.Millisecond, MaxDuration: 30 * time.Millisecond}

	var got []entity.ProgressEvent
	err := s.Stream(context.Background(), uuid.New(), 0, collect(&got))
	require.ErrorIs(t, err, ErrStreamTimeout)
	require.Len(t, got, 1)
	assert.Equal(t, constants.EventError, got[0].Kind)
	assert.Equal(t, "timeout", got[0].Status())
	assert.Equal(t, int64(0), got[0].Seq)
}

func TestStreamer_Cancellation(t *testing.T) {
	ch := NewChannel(NewMemoryStore(), nil)
	s := &Streamer{Reader: ch, Interval: 5 * time.Millisecond, MaxDuration: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := s.Stream(ctx, uuid.New(), 0, func(entity.ProgressEvent) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamer_EmitErrorStops(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel(NewMemoryStore(), nil)
	run := uuid.New()
	_, _ = ch.Progress(ctx, run, constants.StageExtraction, "x", nil)

	s := &Streamer{Reader: ch, Interval: 5 * time.Millisecond, MaxDuration: time.Second}
	boom := errors.New("client went away")
	err := s.Stream(ctx, run, 0, func(entity.ProgressEvent) error { return boom })
	assert.ErrorIs(t, err, boom)
}

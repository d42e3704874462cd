package events

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

// MemoryStore keeps events per run in process memory. Reads return copies
// taken under the lock, so a reader never sees a half-written event.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID][]entity.ProgressEvent
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[uuid.UUID][]entity.ProgressEvent)}
}

func (s *MemoryStore) AppendEvent(_ context.Context, ev *entity.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.runs[ev.RunID]
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ev.Seq = int64(len(list)) + 1
	ev.CreatedAt = time.Now().UTC()

	stored := *ev
	stored.Data = maps.Clone(ev.Data)
	s.runs[ev.RunID] = append(list, stored)
	return nil
}

func (s *MemoryStore) ReadEventsSince(_ context.Context, runID uuid.UUID, afterSeq int64, limit int) ([]entity.ProgressEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.runs[runID]
	if afterSeq < 0 {
		afterSeq = 0
	}
	if afterSeq >= int64(len(list)) {
		return []entity.ProgressEvent{}, nil
	}
	// Seq n lives at index n-1.
	tail := list[afterSeq:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]entity.ProgressEvent, len(tail))
	for i, ev := range tail {
		ev.Data = maps.Clone(ev.Data)
		out[i] = ev
	}
	return out, nil
}

// DeleteRun drops every event of a run.
func (s *MemoryStore) DeleteRun(runID uuid.UUID) {
	s.mu.Lock()
	delete(s.runs, runID)
	s.mu.Unlock()
}

// Package events is the append-only progress log of analysis runs and the
// polling reader that streams it to clients.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

var ErrInvalidKind = errors.New("invalid event kind")

// DefaultReadLimit caps a single ReadSince page.
const DefaultReadLimit = 500

// Store persists events. AppendEvent assigns ID, Seq and CreatedAt; Seq is
// max(seq)+1 for the run and is assigned atomically with the insert.
// ReadEventsSince returns events with Seq > afterSeq ordered by Seq.
type Store interface {
	AppendEvent(ctx context.Context, ev *entity.ProgressEvent) error
	ReadEventsSince(ctx context.Context, runID uuid.UUID, afterSeq int64, limit int) ([]entity.ProgressEvent, error)
}

// Channel is the write and read facade the pipeline and the server share.
type Channel struct {
	store  Store
	logger *slog.Logger
}

func NewChannel(store Store, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{store: store, logger: logger}
}

// Append writes one event. Kind must be one of the closed set.
func (c *Channel) Append(ctx context.Context, runID uuid.UUID, kind constants.EventKind, message string, data map[string]any) (entity.ProgressEvent, error) {
	if !kind.Valid() {
		return entity.ProgressEvent{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if data == nil {
		data = map[string]any{}
	}
	ev := &entity.ProgressEvent{
		RunID:   runID,
		Kind:    kind,
		Message: message,
		Data:    data,
	}
	if err := c.store.AppendEvent(ctx, ev); err != nil {
		c.logger.Error("events.append.failed", "run_id", runID, "kind", kind, "error", err)
		return entity.ProgressEvent{}, fmt.Errorf("append event: %w", err)
	}
	c.logger.Debug("events.append.ok", "run_id", runID, "seq", ev.Seq, "kind", kind)
	return *ev, nil
}

// ReadSince returns events after marker, oldest first.
func (c *Channel) ReadSince(ctx context.Context, runID uuid.UUID, marker int64) ([]entity.ProgressEvent, error) {
	if marker < 0 {
		marker = 0
	}
	evs, err := c.store.ReadEventsSince(ctx, runID, marker, DefaultReadLimit)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return evs, nil
}

func (c *Channel) StatusChange(ctx context.Context, runID uuid.UUID, status constants.RunStatus, message string, data map[string]any) (entity.ProgressEvent, error) {
	if data == nil {
		data = map[string]any{}
	}
	data["status"] = string(status)
	return c.Append(ctx, runID, constants.EventStatusChange, message, data)
}

func (c *Channel) Progress(ctx context.Context, runID uuid.UUID, step constants.Stage, message string, data map[string]any) (entity.ProgressEvent, error) {
	if data == nil {
		data = map[string]any{}
	}
	data["step"] = string(step)
	return c.Append(ctx, runID, constants.EventProgress, message, data)
}

// Error writes the terminal error event of a failed run.
func (c *Channel) Error(ctx context.Context, runID uuid.UUID, message string, data map[string]any) (entity.ProgressEvent, error) {
	if data == nil {
		data = map[string]any{}
	}
	data["status"] = string(constants.RunStatusFailed)
	return c.Append(ctx, runID, constants.EventError, message, data)
}

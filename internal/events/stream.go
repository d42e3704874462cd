package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

var ErrStreamTimeout = errors.New("event stream exceeded its maximum duration")

// Reader is the read side of Channel.
type Reader interface {
	ReadSince(ctx context.Context, runID uuid.UUID, marker int64) ([]entity.ProgressEvent, error)
}

// StatusReader reports the persisted status of a run.
type StatusReader interface {
	RunStatus(ctx context.Context, runID uuid.UUID) (constants.RunStatus, error)
}

// Streamer polls a run's events and hands each new one to emit until a
// terminal event, MaxDuration or cancellation.
type Streamer struct {
	Reader      Reader
	Status      StatusReader
	Interval    time.Duration
	MaxDuration time.Duration
	Logger      *slog.Logger
}

// Stream emits events with Seq > after in order. When the run is terminal
// in storage but no terminal event was read, a synthetic status_change with
// Seq 0 is emitted. On MaxDuration a synthetic error{status:timeout} is
// emitted and ErrStreamTimeout returned. Cancellation returns ctx.Err().
func (s *Streamer) Stream(ctx context.Context, runID uuid.UUID, after int64, emit func(entity.ProgressEvent) error) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}
	maxDuration := s.MaxDuration
	if maxDuration <= 0 {
		maxDuration = 10 * time.Minute
	}

	deadline := time.NewTimer(maxDuration)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	marker := after
	logger.Debug("events.stream.start", "run_id", runID, "after", after)

	for {
		done, err := s.poll(ctx, runID, &marker, emit, logger)
		if err != nil || done {
			return err
		}
		select {
		case <-ctx.Done():
			logger.Debug("events.stream.cancelled", "run_id", runID, "marker", marker)
			return ctx.Err()
		case <-deadline.C:
			logger.Warn("events.stream.timeout", "run_id", runID, "marker", marker, "max_duration", maxDuration)
			ev := synthetic(runID, constants.EventError, "Stream timed out before the analysis finished", "timeout")
			if err := emit(ev); err != nil {
				return err
			}
			return ErrStreamTimeout
		case <-ticker.C:
		}
	}
}

// poll emits everything new and reports whether the stream is finished.
func (s *Streamer) poll(ctx context.Context, runID uuid.UUID, marker *int64, emit func(entity.ProgressEvent) error, logger *slog.Logger) (bool, error) {
	terminal, err := s.drain(ctx, runID, marker, emit)
	if err != nil || terminal {
		return terminal, err
	}
	if s.Status == nil {
		return false, nil
	}
	status, err := s.Status.RunStatus(ctx, runID)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		logger.Warn("events.stream.status_failed", "run_id", runID, "error", err)
		return false, nil
	}
	if !status.IsTerminal() {
		return false, nil
	}
	// The status may be written just before its terminal event; read once more.
	terminal, err = s.drain(ctx, runID, marker, emit)
	if err != nil || terminal {
		return terminal, err
	}
	logger.Info("events.stream.synthetic_terminal", "run_id", runID, "status", status)
	return true, emit(synthetic(runID, constants.EventStatusChange, "Run finished", string(status)))
}

func (s *Streamer) drain(ctx context.Context, runID uuid.UUID, marker *int64, emit func(entity.ProgressEvent) error) (bool, error) {
	evs, err := s.Reader.ReadSince(ctx, runID, *marker)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}
	for _, ev := range evs {
		if err := emit(ev); err != nil {
			return false, err
		}
		*marker = ev.Seq
		if ev.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func synthetic(runID uuid.UUID, kind constants.EventKind, message, status string) entity.ProgressEvent {
	return entity.ProgressEvent{
		RunID:     runID,
		Seq:       0,
		Kind:      kind,
		Message:   message,
		Data:      map[string]any{"status": status, "synthetic": true},
		CreatedAt: time.Now().UTC(),
	}
}

package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQueueClosed  = errors.New("queue is shutting down")
	ErrDuplicateRun = errors.New("run is already queued or executing")
)

// Job asks a worker to execute one analysis run.
type Job struct {
	RunID       uuid.UUID
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// RunFunc is the background task body executed for each job.
type RunFunc func(ctx context.Context, runID uuid.UUID) error

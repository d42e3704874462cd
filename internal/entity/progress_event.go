package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

// ProgressEvent is one entry in a run's append-only event log. Seq is the
// per-run ordering key; it starts at 1 and never repeats within a run.
type ProgressEvent struct {
	ID        uuid.UUID           `json:"id"`
	RunID     uuid.UUID           `json:"run_id"`
	Seq       int64               `json:"seq"`
	Kind      constants.EventKind `json:"kind"`
	Message   string              `json:"message"`
	Data      map[string]any      `json:"data"`
	CreatedAt time.Time           `json:"created_at"`
}

// Status returns data.status as a string, or "".
func (e ProgressEvent) Status() string {
	if e.Data == nil {
		return ""
	}
	s, _ := e.Data["status"].(string)
	return s
}

// IsTerminal reports whether a stream reader should stop after this event.
func (e ProgressEvent) IsTerminal() bool {
	switch e.Kind {
	case constants.EventError:
		return true
	case constants.EventStatusChange:
		return constants.RunStatus(e.Status()).IsTerminal()
	}
	return false
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

type DeadlineType string

const (
	DeadlinePayment        DeadlineType = "payment"
	DeadlineRenewal        DeadlineType = "renewal"
	DeadlineNotice         DeadlineType = "notice"
	DeadlineTermination    DeadlineType = "termination"
	DeadlineOptionExercise DeadlineType = "option_exercise"
	DeadlineObligation     DeadlineType = "obligation"
	DeadlineOther          DeadlineType = "other"
)

// Deadline is a calendar-style follow-up derived from an AnalysisResult.
// Date is set when the source text parsed as a date; otherwise DateFormula
// keeps the original wording ("30 days before end of term").
type Deadline struct {
	ID            uuid.UUID    `json:"id"`
	RunID         uuid.UUID    `json:"run_id"`
	DocumentID    uuid.UUID    `json:"document_id"`
	Type          DeadlineType `json:"type"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	Date          *time.Time   `json:"date,omitempty"`
	DateFormula   string       `json:"date_formula,omitempty"`
	IsRecurring   bool         `json:"is_recurring"`
	SourceSection string       `json:"source_section"`
	CreatedAt     time.Time    `json:"created_at"`
}

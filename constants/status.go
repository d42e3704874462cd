package constants

// RunStatus is the canonical status for rows in analysis_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued    RunStatus = "queued"    // created, waiting for a worker
	RunStatusRunning   RunStatus = "running"   // picked up by a worker
	RunStatusSucceeded RunStatus = "succeeded" // terminal
	RunStatusFailed    RunStatus = "failed"    // terminal
)

func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// EventKind is the closed set of progress event kinds.
type EventKind string

const (
	EventStatusChange EventKind = "status_change"
	EventProgress     EventKind = "progress"
	EventError        EventKind = "error"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventStatusChange, EventProgress, EventError:
		return true
	}
	return false
}

// Stage names reported in progress events under the "step" key.
type Stage string

const (
	StageExtraction     Stage = "extraction"
	StageValidation     Stage = "validation"
	StageRedaction      Stage = "redaction"
	StageLanguage       Stage = "language"
	StageQualityGate    Stage = "quality_gate"
	StagePreparation    Stage = "preparation"
	StageAnalysis       Stage = "analysis"
	StageScreening      Stage = "screening"
	StageFormatting     Stage = "formatting"
	StageSimplification Stage = "simplification"
	StageDeadlines      Stage = "deadlines"
)

// ErrorClass labels why a run failed or why a stage degraded.
type ErrorClass string

const (
	ErrorClassExtraction    ErrorClass = "extraction"
	ErrorClassRedaction     ErrorClass = "redaction"
	ErrorClassHardGate      ErrorClass = "hard_gate"
	ErrorClassTimeout       ErrorClass = "llm_timeout"
	ErrorClassAuth          ErrorClass = "llm_auth"
	ErrorClassRateLimit     ErrorClass = "llm_rate_limit"
	ErrorClassUnknownModel  ErrorClass = "llm_unknown_model"
	ErrorClassMalformedJSON ErrorClass = "llm_malformed_json"
	ErrorClassProvider      ErrorClass = "llm_provider"
	ErrorClassNotFound      ErrorClass = "not_found"
	ErrorClassInternal      ErrorClass = "internal"
)

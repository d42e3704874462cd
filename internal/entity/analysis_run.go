package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

// AnalysisRun is one execution of the pipeline over a Document.
type AnalysisRun struct {
	ID                 uuid.UUID                 `json:"id"`
	DocumentID         uuid.UUID                 `json:"document_id"`
	Status             constants.RunStatus       `json:"status"`
	OutputLanguage     string                    `json:"output_language"`
	UserRole           string                    `json:"user_role,omitempty"`
	AvailableDocuments []string                  `json:"available_documents"`
	Preparation        *PreparationResult        `json:"preparation,omitempty"`
	Analysis           *AnalysisResult           `json:"analysis,omitempty"`
	FormattedOutput    *FormattedOutput          `json:"formatted_output,omitempty"`
	ScreeningResult    *constants.Verdict        `json:"screening_result,omitempty"`
	QualityScore       *float64                  `json:"quality_score,omitempty"`
	ConfidenceLevel    *constants.ConfidenceTier `json:"confidence_level,omitempty"`
	ModelUsed          *string                   `json:"model_used,omitempty"`
	TokensUsed         int                       `json:"tokens_used"`
	ErrorMessage       *string                   `json:"error_message,omitempty"`
	ErrorClass         *string                   `json:"error_class,omitempty"`
	ErrorTrace         *string                   `json:"-"`
	CreatedAt          time.Time                 `json:"created_at"`
	StartedAt          *time.Time                `json:"started_at,omitempty"`
	CompletedAt        *time.Time                `json:"completed_at,omitempty"`
}

// NewAnalysisRun builds a queued run. Callers persist it before dispatching.
func NewAnalysisRun(documentID uuid.UUID, outputLanguage, userRole string, available []string) *AnalysisRun {
	if outputLanguage == "" {
		outputLanguage = constants.LangEnglish
	}
	if available == nil {
		available = []string{}
	}
	return &AnalysisRun{
		ID:                 uuid.New(),
		DocumentID:         documentID,
		Status:             constants.RunStatusQueued,
		OutputLanguage:     outputLanguage,
		UserRole:           userRole,
		AvailableDocuments: available,
		CreatedAt:          time.Now().UTC(),
	}
}

// Screening is what the resolver writes back onto the run.
type Screening struct {
	Verdict      constants.Verdict
	QualityScore float64
	Confidence   constants.ConfidenceTier
}

// Failure is the error record written when a run fails.
type Failure struct {
	Message string
	Class   constants.ErrorClass
	Trace   string
}

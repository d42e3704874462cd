package entity

import "github.com/joseph-ayodele/contract-analyzer/constants"

type Obligation struct {
	Action       string `json:"action"`
	Trigger      string `json:"trigger,omitempty"`
	TimeWindow   string `json:"time_window,omitempty"`
	Consequence  string `json:"consequence,omitempty"`
	ActionSimple string `json:"action_simple,omitempty"`
}

type Right struct {
	Right         string `json:"right"`
	HowToExercise string `json:"how_to_exercise,omitempty"`
	Conditions    string `json:"conditions,omitempty"`
	Simple        string `json:"simple,omitempty"`
}

// Risk severity values.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

type Risk struct {
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation,omitempty"`
	Category       string `json:"category,omitempty"`
}

type PaymentTerms struct {
	MainAmount         string `json:"main_amount,omitempty"`
	Currency           string `json:"currency,omitempty"`
	DepositUpfront     string `json:"deposit_upfront,omitempty"`
	FirstDueDate       string `json:"first_due_date,omitempty"`
	DueFrequency       string `json:"due_frequency,omitempty"`
	EndDateRenewal     string `json:"end_date_renewal,omitempty"`
	CancellationNotice string `json:"cancellation_notice,omitempty"`
	TaxesFeesNote      string `json:"taxes_fees_note,omitempty"`
}

func (p PaymentTerms) IsZero() bool {
	return p == PaymentTerms{}
}

type CalendarItem struct {
	DateOrFormula string `json:"date_or_formula"`
	Event         string `json:"event"`
}

// AnalysisResult is the stage-2 output. After Normalize every list is non-nil.
type AnalysisResult struct {
	Obligations     []Obligation   `json:"obligations"`
	Rights          []Right        `json:"rights"`
	Risks           []Risk         `json:"risks"`
	PaymentTerms    PaymentTerms   `json:"payment_terms"`
	GapsAnomalies   []string       `json:"gaps_anomalies"`
	Calendar        []CalendarItem `json:"calendar"`
	ScreeningResult string         `json:"screening_result"`
	Suggestions     []string       `json:"suggestions"`
	Mitigations     []string       `json:"mitigations"`
	Summary         string         `json:"summary,omitempty"`

	// Error is set only on the fallback object produced when the stage failed.
	Error string `json:"error,omitempty"`
}

func (a *AnalysisResult) Degraded() bool {
	return a != nil && a.Error != ""
}

// Normalize replaces omitted lists with empty ones, normalizes severities and
// coerces an unknown screening label to recommended_to_address.
func (a *AnalysisResult) Normalize() {
	if a.Obligations == nil {
		a.Obligations = []Obligation{}
	}
	if a.Rights == nil {
		a.Rights = []Right{}
	}
	if a.Risks == nil {
		a.Risks = []Risk{}
	}
	if a.GapsAnomalies == nil {
		a.GapsAnomalies = []string{}
	}
	if a.Calendar == nil {
		a.Calendar = []CalendarItem{}
	}
	if a.Suggestions == nil {
		a.Suggestions = []string{}
	}
	if a.Mitigations == nil {
		a.Mitigations = []string{}
	}
	for i := range a.Risks {
		switch a.Risks[i].Severity {
		case SeverityLow, SeverityMedium, SeverityHigh:
		default:
			a.Risks[i].Severity = SeverityMedium
		}
	}
	if v, ok := constants.ParseVerdict(a.ScreeningResult); ok {
		a.ScreeningResult = string(v)
	} else {
		a.ScreeningResult = string(constants.VerdictRecommendedToAddress)
	}
}

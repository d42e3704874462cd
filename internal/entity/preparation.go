package entity

import "github.com/joseph-ayodele/contract-analyzer/constants"

type Party struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// PreparationResult is the stage-1 output: agreement metadata from the LLM
// merged with locally detected signals.
type PreparationResult struct {
	AgreementType       string                  `json:"agreement_type"`
	Parties             []Party                 `json:"parties"`
	TermStart           string                  `json:"term_start,omitempty"`
	TermEnd             string                  `json:"term_end,omitempty"`
	Jurisdiction        string                  `json:"jurisdiction,omitempty"`
	Negotiability       constants.Negotiability `json:"negotiability"`
	NegotiabilityReason string                  `json:"negotiability_reason,omitempty"`

	QualityScore  float64 `json:"quality_score"`
	QualityReason string  `json:"quality_reason,omitempty"`
	CoverageScore float64 `json:"coverage_score"`

	DetectedLanguage       string   `json:"detected_language"`
	LanguageConfidence     float64  `json:"language_confidence"`
	IsTranslation          bool     `json:"is_translation"`
	HasOriginalAttached    bool     `json:"has_original_attached"`
	GoverningLanguage      string   `json:"governing_language,omitempty"`
	GoverningLanguageNotes string   `json:"governing_language_notes,omitempty"`
	DetectedJurisdiction   string   `json:"detected_jurisdiction,omitempty"`
	TimezoneHint           string   `json:"timezone_hint,omitempty"`
	HasHeadings            bool     `json:"has_headings"`
	AppearsComplete        bool     `json:"appears_complete"`
	StructureSections      []string `json:"structure_sections"`
	ReferencedDocuments    []string `json:"referenced_documents"`
	MissingDocuments       []string `json:"missing_documents"`

	// Error is set only on the fallback object produced when the stage failed.
	Error string `json:"error,omitempty"`
}

// Degraded reports whether this is a fallback object.
func (p *PreparationResult) Degraded() bool {
	return p != nil && p.Error != ""
}

func (p *PreparationResult) Normalize() {
	if p.Parties == nil {
		p.Parties = []Party{}
	}
	if p.StructureSections == nil {
		p.StructureSections = []string{}
	}
	if p.ReferencedDocuments == nil {
		p.ReferencedDocuments = []string{}
	}
	if p.MissingDocuments == nil {
		p.MissingDocuments = []string{}
	}
	if p.AgreementType == "" {
		p.AgreementType = "unknown"
	}
	if _, ok := constants.ParseNegotiability(string(p.Negotiability)); !ok {
		p.Negotiability = constants.NegotiabilityMedium
	}
}

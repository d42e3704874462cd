package entity

import (
	"time"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

type ConfidenceSection struct {
	Level       constants.ConfidenceTier `json:"level"`
	Label       string                   `json:"label"`
	Explanation string                   `json:"explanation"`
}

type TermCheck struct {
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation,omitempty"`
}

type KeyTerms struct {
	Parties      []Party `json:"parties"`
	TermStart    string  `json:"term_start,omitempty"`
	TermEnd      string  `json:"term_end,omitempty"`
	Jurisdiction string  `json:"jurisdiction,omitempty"`
}

// Simplified holds the best-effort plain-language rewrites.
type Simplified struct {
	About       string   `json:"about,omitempty"`
	Obligations []string `json:"obligations"`
	Rights      []string `json:"rights"`
}

// FormattedOutput is the stable, structured result handed to clients.
type FormattedOutput struct {
	Language        string            `json:"language"`
	Verdict         constants.Verdict `json:"verdict"`
	VerdictText     string            `json:"verdict_text"`
	ImportantLimits string            `json:"important_limits"`
	Confidence      ConfidenceSection `json:"confidence"`
	About           string            `json:"about"`
	Payment         []string          `json:"payment"`
	Obligations     []string          `json:"obligations"`
	CheckTerms      []TermCheck       `json:"check_terms"`
	TotalRisks      int               `json:"total_risks"`
	AlsoThink       []string          `json:"also_think"`
	AskChanges      []string          `json:"ask_changes,omitempty"`
	ShowAskChanges  bool              `json:"show_ask_changes"`
	SignAsIs        []string          `json:"sign_as_is"`
	ActNow          []CalendarItem    `json:"act_now"`
	KeyTerms        KeyTerms          `json:"key_terms"`
	Simplified      *Simplified       `json:"simplified,omitempty"`
	Degraded        bool              `json:"degraded"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

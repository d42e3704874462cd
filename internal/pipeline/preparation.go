package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/language"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
	"github.com/joseph-ayodele/contract-analyzer/internal/metrics"
)

var ErrPreparationTimeout = errors.New("preparation timed out")

const preparationSystemPrompt = "You are a legal document analyst. Extract information accurately and return valid JSON."

// Signals are the locally computed facts attached to every PreparationResult,
// including the fallback one.
type Signals struct {
	Language            string
	LanguageConfidence  float64
	Governing           language.Governing
	Jurisdiction        string
	Timezone            string
	Structure           language.Structure
	ReferencedDocuments []string
	MissingDocuments    []string
	Coverage            float64
	QualityScore        float64
	QualityReason       string
}

type PreparationInput struct {
	RedactedText string
	Language     string
	UserRole     string
	Signals      Signals
}

// preparationReply is the model's half of the PreparationResult.
type preparationReply struct {
	AgreementType       string         `json:"agreement_type"`
	Parties             []entity.Party `json:"parties"`
	TermStart           string         `json:"term_start"`
	TermEnd             string         `json:"term_end"`
	Jurisdiction        string         `json:"jurisdiction"`
	Negotiability       string         `json:"negotiability"`
	NegotiabilityReason string         `json:"negotiability_reason"`
	TimezoneHint        string         `json:"timezone_hint"`
}

type PreparationStage struct {
	Logger  *slog.Logger
	Cfg     StageConfig
	Gateway llm.Gateway
}

func NewPreparationStage(g llm.Gateway, cfg StageConfig, logger *slog.Logger) *PreparationStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreparationStage{
		Logger:  logger,
		Cfg:     cfg.withDefaults(defaultPreparationTimeout),
		Gateway: g,
	}
}

// Run extracts agreement metadata and merges it with the local signals.
// On error the caller decides whether to fall back; Run never returns a
// partial result.
func (p *PreparationStage) Run(ctx context.Context, in PreparationInput) (*entity.PreparationResult, error) {
	text := TruncateRunes(in.RedactedText, p.Cfg.CharBudget)
	prompt, err := renderPrompt("preparation", struct {
		UserRole, Language, Text string
	}{in.UserRole, in.Language, text})
	if err != nil {
		return nil, err
	}

	p.Logger.Info("pipeline.preparation.start",
		"chars", len(text),
		"truncated", len(text) < len(in.RedactedText),
		"timeout", p.Cfg.Timeout,
	)

	var reply preparationReply
	call := stageCall{
		stage:      string(constants.StagePreparation),
		timeout:    p.Cfg.Timeout,
		timeoutErr: ErrPreparationTimeout,
		schema:     llm.PreparationSchema(),
		listKeys:   llm.PreparationListKeys,
	}
	req := llm.Request{
		Prompt:       prompt,
		SystemPrompt: preparationSystemPrompt,
		Temperature:  llm.Temperature(*p.Cfg.Temperature),
		MaxTokens:    p.Cfg.MaxTokens,
	}
	if err := call.run(ctx, p.Gateway, req, &reply, p.Logger); err != nil {
		metrics.ObserveLLMCall(call.stage, metrics.OutcomeFallback)
		p.Logger.Warn("pipeline.preparation.failed", "error", err)
		return nil, err
	}
	metrics.ObserveLLMCall(call.stage, metrics.OutcomeOK)

	res := mergePreparation(reply, in.RedactedText, in.Signals)
	p.Logger.Info("pipeline.preparation.ok",
		"agreement_type", res.AgreementType,
		"parties", len(res.Parties),
		"negotiability", res.Negotiability,
	)
	return res, nil
}

func mergePreparation(reply preparationReply, text string, sig Signals) *entity.PreparationResult {
	res := &entity.PreparationResult{
		AgreementType:       strings.TrimSpace(reply.AgreementType),
		Parties:             reply.Parties,
		TermStart:           strings.TrimSpace(reply.TermStart),
		TermEnd:             strings.TrimSpace(reply.TermEnd),
		Jurisdiction:        strings.TrimSpace(reply.Jurisdiction),
		NegotiabilityReason: strings.TrimSpace(reply.NegotiabilityReason),
	}
	if res.Jurisdiction == "" {
		res.Jurisdiction = sig.Jurisdiction
	}
	if n, ok := constants.ParseNegotiability(reply.Negotiability); ok {
		res.Negotiability = n
	} else {
		res.Negotiability, res.NegotiabilityReason = AssessNegotiability(text)
	}

	attachSignals(res, sig)
	if tz := strings.TrimSpace(reply.TimezoneHint); tz != "" {
		res.TimezoneHint = tz
	}
	res.Normalize()
	return res
}

func attachSignals(res *entity.PreparationResult, sig Signals) {
	res.QualityScore = sig.QualityScore
	res.QualityReason = sig.QualityReason
	res.CoverageScore = sig.Coverage
	res.DetectedLanguage = sig.Language
	res.LanguageConfidence = sig.LanguageConfidence
	res.IsTranslation = sig.Governing.IsTranslation
	res.HasOriginalAttached = sig.Governing.HasOriginalAttached
	res.GoverningLanguage = sig.Governing.GoverningLanguage
	res.GoverningLanguageNotes = sig.Governing.Notes
	res.DetectedJurisdiction = sig.Jurisdiction
	res.TimezoneHint = sig.Timezone
	res.HasHeadings = sig.Structure.HasHeadings
	res.AppearsComplete = sig.Structure.AppearsComplete
	res.StructureSections = sig.Structure.Sections
	res.ReferencedDocuments = sig.ReferencedDocuments
	res.MissingDocuments = sig.MissingDocuments
}

// FallbackPreparation is the degraded result used when the stage failed. It
// keeps every local signal so later stages still see quality and coverage.
func FallbackPreparation(sig Signals, err error) *entity.PreparationResult {
	res := &entity.PreparationResult{
		AgreementType:       "unknown",
		Jurisdiction:        sig.Jurisdiction,
		Negotiability:       constants.NegotiabilityMedium,
		NegotiabilityReason: "Negotiability not assessed",
		Error:               fmt.Sprintf("Preparation failed: %v", err),
	}
	attachSignals(res, sig)
	res.Normalize()
	return res
}

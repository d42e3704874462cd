// Package pipeline runs one contract analysis end to end: extraction,
// redaction, local signals, the quality gate, two LLM stages, screening,
// formatting and the best-effort follow-ups.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/events"
	"github.com/joseph-ayodele/contract-analyzer/internal/extract"
	"github.com/joseph-ayodele/contract-analyzer/internal/language"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
	"github.com/joseph-ayodele/contract-analyzer/internal/locale"
	"github.com/joseph-ayodele/contract-analyzer/internal/metrics"
	"github.com/joseph-ayodele/contract-analyzer/internal/pii"
	"github.com/joseph-ayodele/contract-analyzer/internal/quality"
	"github.com/joseph-ayodele/contract-analyzer/internal/storage"
)

var (
	ErrRunNotFound  = errors.New("analysis run not found")
	ErrRunNotQueued = errors.New("analysis run is not queued")
)

// finalizeTimeout bounds the failure bookkeeping done after ctx is gone.
const finalizeTimeout = 10 * time.Second

type RunStore interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.AnalysisRun, error)
	MarkRunning(ctx context.Context, id uuid.UUID) (bool, error)
	SetPreparation(ctx context.Context, id uuid.UUID, prep *entity.PreparationResult) error
	SetAnalysis(ctx context.Context, id uuid.UUID, analysis *entity.AnalysisResult) error
	SetQuality(ctx context.Context, id uuid.UUID, score float64, tier constants.ConfidenceTier) error
	SetScreening(ctx context.Context, id uuid.UUID, s entity.Screening) error
	SetFormattedOutput(ctx context.Context, id uuid.UUID, out *entity.FormattedOutput) error
	SetUsage(ctx context.Context, id uuid.UUID, model string, tokens int) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, f entity.Failure) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type DocumentStore interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	SetExtraction(ctx context.Context, id uuid.UUID, ex entity.Extraction) (bool, error)
	SetDetection(ctx context.Context, id uuid.UUID, language, jurisdiction string) error
}

type DeadlineStore interface {
	ReplaceForRun(ctx context.Context, runID uuid.UUID, ds []entity.Deadline) error
}

// Options are the orchestrator's budgets and switches.
type Options struct {
	Preparation     StageConfig
	Analysis        StageConfig
	SimplifyTimeout time.Duration
	EnableSimplify  bool
	MinTextChars    int
	Gates           quality.Gates
	Retention       time.Duration
}

// OptionsFrom maps the environment config onto Options.
func OptionsFrom(p common.PipelineConfig, l common.LLMConfig) Options {
	return Options{
		Preparation: StageConfig{
			Timeout:     p.PreparationTimeout,
			CharBudget:  p.PromptCharBudget,
			Temperature: llm.Temperature(l.Temperature),
			MaxTokens:   l.MaxTokens,
		},
		Analysis: StageConfig{
			Timeout:     p.AnalysisTimeout,
			CharBudget:  p.PromptCharBudget,
			Temperature: llm.Temperature(l.Temperature),
			MaxTokens:   l.MaxTokens,
		},
		SimplifyTimeout: p.SimplifyTimeout,
		EnableSimplify:  p.EnableSimplify,
		MinTextChars:    p.MinTextChars,
		Gates:           quality.DefaultGates,
		Retention:       time.Duration(p.RetentionDays) * 24 * time.Hour,
	}
}

// Deps are the collaborators injected into the Orchestrator.
type Deps struct {
	Runs      RunStore
	Documents DocumentStore
	Deadlines DeadlineStore
	Events    *events.Channel
	Storage   storage.Resolver
	Extractor extract.TextExtractor
	Redactor  *pii.Redactor
	Gateway   llm.Gateway
	Catalog   *locale.Catalog
}

type Orchestrator struct {
	Logger *slog.Logger
	Deps   Deps
	Opts   Options
}

func NewOrchestrator(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Storage == nil {
		deps.Storage = storage.LocalResolver{}
	}
	if deps.Redactor == nil {
		deps.Redactor = pii.NewRedactor(logger)
	}
	if deps.Catalog == nil {
		deps.Catalog = locale.Default()
	}
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = extract.MinTextChars
	}
	if opts.Gates == (quality.Gates{}) {
		opts.Gates = quality.DefaultGates
	}
	if opts.Retention <= 0 {
		opts.Retention = 30 * 24 * time.Hour
	}
	return &Orchestrator{Logger: logger, Deps: deps, Opts: opts}
}

// runState is what the steps of one run hand to each other.
type runState struct {
	run    *entity.AnalysisRun
	doc    *entity.Document
	logger *slog.Logger
	gw     *meteredGateway

	text        string
	scanQuality float64
	isScanned   bool
	redacted    string
	signals     Signals
	tier        constants.ConfidenceTier
}

// Run executes one queued run to a terminal state. A missing or non-queued
// run is rejected without touching the run or its events. Once the run is
// marked running every exit path, including panics and cancellation, leaves
// it succeeded or failed with a matching terminal event.
func (o *Orchestrator) Run(ctx context.Context, runID uuid.UUID) (err error) {
	logger := o.Logger.With("run_id", runID)
	ctx = common.WithRunID(ctx, runID)

	run, err := o.Deps.Runs.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			logger.Error("pipeline.run.not_found")
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("load run: %w", err)
	}
	if run.Status != constants.RunStatusQueued {
		logger.Warn("pipeline.run.not_queued", "status", run.Status)
		return fmt.Errorf("%w: status %s", ErrRunNotQueued, run.Status)
	}
	ok, err := o.Deps.Runs.MarkRunning(ctx, runID)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: claimed by another worker", ErrRunNotQueued)
	}

	start := time.Now()

	st := &runState{run: run, logger: logger, gw: meter(o.Deps.Gateway)}
	defer func() {
		var trace string
		if p := recover(); p != nil {
			err = fmt.Errorf("pipeline panic: %v", p)
			trace = string(debug.Stack())
		}
		if err == nil {
			return
		}
		if trace == "" {
			trace = errorChain(err)
		}
		o.fail(ctx, st, err, classifyFailure(err), trace)
	}()

	o.emitStatus(ctx, st, constants.RunStatusRunning, "Analysis started", map[string]any{"progress": 0})
	logger.Info("pipeline.run.start", "document_id", run.DocumentID)

	if err := o.extract(ctx, st); err != nil {
		return err
	}
	if err := o.redact(ctx, st); err != nil {
		return err
	}
	if err := o.detect(ctx, st); err != nil {
		return err
	}
	passed, err := o.gate(ctx, st)
	if err != nil || !passed {
		return err
	}

	prep, err := o.prepare(ctx, st)
	if err != nil {
		return err
	}
	an, err := o.analyze(ctx, st, prep)
	if err != nil {
		return err
	}

	verdict := DetermineFinalScreeningResult(an.ScreeningResult, st.signals.QualityScore, st.signals.Coverage)
	if err := o.Deps.Runs.SetScreening(ctx, runID, entity.Screening{
		Verdict:      verdict,
		QualityScore: st.signals.QualityScore,
		Confidence:   st.tier,
	}); err != nil {
		return fmt.Errorf("persist screening: %w", err)
	}
	o.emitProgress(ctx, st, constants.StageScreening, "Screening complete", map[string]any{
		"verdict":     string(verdict),
		"llm_verdict": an.ScreeningResult,
		"progress":    80,
	})

	formatStart := time.Now()
	out := NewFormatter(o.Deps.Catalog).Format(FormatInput{
		Run:          run,
		Preparation:  prep,
		Analysis:     an,
		Verdict:      verdict,
		QualityScore: st.signals.QualityScore,
		Tier:         st.tier,
	})
	if err := o.Deps.Runs.SetFormattedOutput(ctx, runID, out); err != nil {
		return fmt.Errorf("persist formatted output: %w", err)
	}
	metrics.ObserveStage(string(constants.StageFormatting), time.Since(formatStart))
	o.emitProgress(ctx, st, constants.StageFormatting, "Results formatted", map[string]any{"progress": 85})

	if err := ctx.Err(); err != nil {
		return err
	}
	o.simplify(ctx, st, out, an)
	o.deadlines(ctx, st, an)
	if err := ctx.Err(); err != nil {
		return err
	}

	if model, tokens, calls := st.gw.usage(); calls > 0 {
		if err := o.Deps.Runs.SetUsage(ctx, runID, model, tokens); err != nil {
			logger.Warn("pipeline.usage.persist_failed", "error", err)
		}
	}
	if err := o.Deps.Runs.MarkSucceeded(ctx, runID); err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	metrics.ObserveRunFinished(string(constants.RunStatusSucceeded))
	o.emitStatus(ctx, st, constants.RunStatusSucceeded, "Analysis complete", map[string]any{
		"progress":         100,
		"verdict":          string(verdict),
		"formatted_output": out,
	})
	logger.Info("pipeline.run.ok",
		"verdict", verdict,
		"degraded", out.Degraded,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// extract populates the document text once. A failure is reported and the
// run continues with empty text, which the quality gate then stops.
func (o *Orchestrator) extract(ctx context.Context, st *runState) error {
	doc, err := o.Deps.Documents.Get(ctx, st.run.DocumentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", st.run.DocumentID, err)
	}
	st.doc = doc
	if doc.HasText() {
		st.text, st.scanQuality, st.isScanned = doc.TextOrEmpty(), doc.QualityOrZero(), doc.IsScanned
		st.logger.Info("pipeline.extraction.skipped", "chars", len(st.text))
		o.emitProgress(ctx, st, constants.StageExtraction, "Using previously extracted text", map[string]any{
			"chars":         len([]rune(st.text)),
			"quality_score": st.scanQuality,
			"is_scanned":    st.isScanned,
			"method":        doc.ExtractionMethod,
			"skipped":       true,
			"progress":      10,
		})
		o.validateText(ctx, st)
		return nil
	}

	start := time.Now()
	res, err := o.extractFile(ctx, doc)
	metrics.ObserveStage(string(constants.StageExtraction), time.Since(start))
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		st.logger.Warn("pipeline.extraction.failed", "error", err)
		o.emitProgress(ctx, st, constants.StageExtraction, "Text extraction failed", map[string]any{
			"level":       "warning",
			"error":       err.Error(),
			"error_class": string(constants.ErrorClassExtraction),
			"progress":    10,
		})
		o.validateText(ctx, st)
		return nil
	}

	wrote, err := o.Deps.Documents.SetExtraction(ctx, doc.ID, entity.Extraction{
		Text:      res.Text,
		PageCount: res.Pages,
		Quality:   res.QualityScore,
		IsScanned: res.IsScanned,
		Method:    res.Method,
		Format:    res.Format,
	})
	if err != nil {
		return fmt.Errorf("persist extraction: %w", err)
	}
	st.text, st.scanQuality, st.isScanned = res.Text, res.QualityScore, res.IsScanned
	if !wrote {
		// another run extracted first; its text is the document's text
		if doc, err = o.Deps.Documents.Get(ctx, doc.ID); err != nil {
			return fmt.Errorf("reload document: %w", err)
		}
		st.doc = doc
		st.text, st.scanQuality, st.isScanned = doc.TextOrEmpty(), doc.QualityOrZero(), doc.IsScanned
	}

	st.logger.Info("pipeline.extraction.ok",
		"chars", len(st.text),
		"pages", res.Pages,
		"method", res.Method,
		"quality", res.QualityScore,
		"warnings", len(res.Warnings),
	)
	o.emitProgress(ctx, st, constants.StageExtraction, "Text extracted", map[string]any{
		"chars":         len([]rune(st.text)),
		"pages":         res.Pages,
		"quality_score": st.scanQuality,
		"is_scanned":    st.isScanned,
		"method":        res.Method,
		"progress":      10,
	})
	o.validateText(ctx, st)
	return nil
}

func (o *Orchestrator) extractFile(ctx context.Context, doc *entity.Document) (extract.Result, error) {
	path, cleanup, err := o.Deps.Storage.Resolve(ctx, doc.Location)
	if err != nil {
		return extract.Result{}, fmt.Errorf("resolve %s: %w", doc.Location, err)
	}
	defer cleanup()
	return o.Deps.Extractor.Extract(ctx, path)
}

func (o *Orchestrator) validateText(ctx context.Context, st *runState) {
	err := extract.ValidateMin(extract.Result{Text: st.text}, o.Opts.MinTextChars)
	if err == nil {
		return
	}
	o.emitProgress(ctx, st, constants.StageValidation, "Document text is too short for a reliable analysis", map[string]any{
		"level": "warning",
		"chars": len([]rune(st.text)),
		"error": err.Error(),
	})
}

func (o *Orchestrator) redact(ctx context.Context, st *runState) error {
	start := time.Now()
	redacted, summary, err := o.Deps.Redactor.Redact(st.text)
	metrics.ObserveStage(string(constants.StageRedaction), time.Since(start))
	if err != nil {
		return fmt.Errorf("redact: %w", err)
	}
	st.redacted = redacted
	metrics.ObserveRedactions(summary)

	st.logger.Info("pipeline.redaction.ok", "total", summary.Total())
	o.emitProgress(ctx, st, constants.StageRedaction, summary.Message(), map[string]any{
		"counts":   map[string]int(summary),
		"total":    summary.Total(),
		"progress": 20,
	})
	return nil
}

func (o *Orchestrator) detect(ctx context.Context, st *runState) error {
	lang, confidence := language.Detect(st.text)
	jurisdiction := language.DetectJurisdiction(st.text)
	structure := language.DetectStructure(st.text)
	refs := language.ExtractReferencedDocuments(st.text)
	st.signals = Signals{
		Language:            lang,
		LanguageConfidence:  confidence,
		Governing:           language.DetectGoverningLanguage(st.text, lang),
		Jurisdiction:        jurisdiction,
		Timezone:            language.EstimateTimezone(jurisdiction),
		Structure:           structure,
		ReferencedDocuments: refs,
		MissingDocuments:    quality.MissingDocuments(refs, st.run.AvailableDocuments),
		Coverage:            quality.ComputeCoverageScore(refs, st.run.AvailableDocuments),
	}

	if err := o.Deps.Documents.SetDetection(ctx, st.doc.ID, lang, jurisdiction); err != nil {
		return fmt.Errorf("persist detection: %w", err)
	}
	st.logger.Info("pipeline.language.ok",
		"language", lang,
		"confidence", confidence,
		"jurisdiction", jurisdiction,
		"sections", len(structure.Sections),
		"references", len(refs),
	)
	o.emitProgress(ctx, st, constants.StageLanguage, "Language and structure detected", map[string]any{
		"language":     lang,
		"confidence":   confidence,
		"jurisdiction": jurisdiction,
		"progress":     30,
	})
	return nil
}

// gate scores the input and reports false when a hard gate stopped the run.
func (o *Orchestrator) gate(ctx context.Context, st *runState) (bool, error) {
	sig := &st.signals
	sig.QualityScore, sig.QualityReason = quality.ComputeQualityScore(quality.Inputs{
		ScanQuality:     st.scanQuality,
		IsScanned:       st.isScanned,
		IsTranslation:   sig.Governing.IsTranslation,
		HasOriginal:     sig.Governing.HasOriginalAttached,
		Coverage:        sig.Coverage,
		AppearsComplete: sig.Structure.AppearsComplete,
	})
	tier, proceed := quality.ComputeConfidenceLevel(sig.QualityScore)
	st.tier = tier
	if err := o.Deps.Runs.SetQuality(ctx, st.run.ID, sig.QualityScore, tier); err != nil {
		return false, fmt.Errorf("persist quality: %w", err)
	}

	passed, reason := o.Opts.Gates.Check(st.scanQuality, sig.Coverage)
	if !passed {
		st.logger.Warn("pipeline.quality_gate.failed",
			"reason", reason,
			"scan_quality", st.scanQuality,
			"coverage", sig.Coverage,
		)
		if err := o.Deps.Runs.MarkFailed(ctx, st.run.ID, entity.Failure{
			Message: reason,
			Class:   constants.ErrorClassHardGate,
		}); err != nil {
			return false, fmt.Errorf("mark gated run failed: %w", err)
		}
		metrics.ObserveRunGated()
		metrics.ObserveRunFinished(string(constants.RunStatusFailed))
		o.emitError(ctx, st, reason, map[string]any{
			"reason":         reason,
			"kind":           "low_confidence",
			"error_class":    string(constants.ErrorClassHardGate),
			"quality_score":  sig.QualityScore,
			"coverage_score": sig.Coverage,
		})
		return false, nil
	}

	if !proceed {
		o.emitProgress(ctx, st, constants.StageQualityGate, "Low confidence: results will be a preliminary review", map[string]any{
			"level":          "warning",
			"confidence":     string(tier),
			"quality_score":  sig.QualityScore,
			"coverage_score": sig.Coverage,
			"reason":         sig.QualityReason,
		})
	}
	st.logger.Info("pipeline.quality_gate.ok", "score", sig.QualityScore, "tier", tier)
	return true, nil
}

func (o *Orchestrator) prepare(ctx context.Context, st *runState) (*entity.PreparationResult, error) {
	stage := NewPreparationStage(st.gw, o.Opts.Preparation, st.logger)
	prep, err := stage.Run(ctx, PreparationInput{
		RedactedText: st.redacted,
		Language:     st.signals.Language,
		UserRole:     st.run.UserRole,
		Signals:      st.signals,
	})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		prep = FallbackPreparation(st.signals, err)
		o.emitStageError(ctx, st, constants.StagePreparation, err)
	}
	if err := o.Deps.Runs.SetPreparation(ctx, st.run.ID, prep); err != nil {
		return nil, fmt.Errorf("persist preparation: %w", err)
	}
	o.emitProgress(ctx, st, constants.StagePreparation, "Agreement metadata extracted", map[string]any{
		"agreement_type": prep.AgreementType,
		"negotiability":  string(prep.Negotiability),
		"degraded":       prep.Degraded(),
		"progress":       50,
	})
	return prep, nil
}

func (o *Orchestrator) analyze(ctx context.Context, st *runState, prep *entity.PreparationResult) (*entity.AnalysisResult, error) {
	stage := NewAnalysisStage(st.gw, o.Opts.Analysis, st.logger)
	an, err := stage.Run(ctx, AnalysisInput{
		RedactedText:   st.redacted,
		Preparation:    prep,
		UserRole:       st.run.UserRole,
		OutputLanguage: st.run.OutputLanguage,
	})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		an = FallbackAnalysis(err)
		o.emitStageError(ctx, st, constants.StageAnalysis, err)
	}
	if err := o.Deps.Runs.SetAnalysis(ctx, st.run.ID, an); err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}
	o.emitProgress(ctx, st, constants.StageAnalysis, "Contract analyzed", map[string]any{
		"obligations": len(an.Obligations),
		"rights":      len(an.Rights),
		"risks":       len(an.Risks),
		"degraded":    an.Degraded(),
		"progress":    75,
	})
	return an, nil
}

func (o *Orchestrator) simplify(ctx context.Context, st *runState, out *entity.FormattedOutput, an *entity.AnalysisResult) {
	if !o.Opts.EnableSimplify || an.Degraded() {
		return
	}
	simp, err := NewSimplifier(st.gw, o.Opts.SimplifyTimeout, st.logger).Simplify(ctx, out, an)
	if err != nil {
		st.logger.Warn("pipeline.simplify.skipped", "error", err)
		return
	}
	out.Simplified = simp
	if err := o.Deps.Runs.SetFormattedOutput(ctx, st.run.ID, out); err != nil {
		st.logger.Warn("pipeline.simplify.persist_failed", "error", err)
		out.Simplified = nil
		return
	}
	if err := o.Deps.Runs.SetAnalysis(ctx, st.run.ID, an); err != nil {
		st.logger.Warn("pipeline.simplify.persist_failed", "error", err)
	}
	o.emitProgress(ctx, st, constants.StageSimplification, "Plain-language summary ready", map[string]any{"progress": 90})
}

func (o *Orchestrator) deadlines(ctx context.Context, st *runState, an *entity.AnalysisResult) {
	if o.Deps.Deadlines == nil || an.Degraded() {
		return
	}
	ds := ExtractDeadlines(st.run, an)
	if err := o.Deps.Deadlines.ReplaceForRun(ctx, st.run.ID, ds); err != nil {
		st.logger.Warn("pipeline.deadlines.persist_failed", "error", err)
		return
	}
	st.logger.Info("pipeline.deadlines.ok", "count", len(ds))
	o.emitProgress(ctx, st, constants.StageDeadlines, "Deadlines extracted", map[string]any{
		"count":    len(ds),
		"progress": 95,
	})
}

// fail records the failure on a context detached from ctx, so a cancelled or
// timed-out run still reaches a terminal state.
func (o *Orchestrator) fail(ctx context.Context, st *runState, cause error, class constants.ErrorClass, trace string) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	st.logger.Error("pipeline.run.failed", "error", cause, "error_class", class)
	if model, tokens, calls := st.gw.usage(); calls > 0 {
		if err := o.Deps.Runs.SetUsage(fctx, st.run.ID, model, tokens); err != nil {
			st.logger.Warn("pipeline.usage.persist_failed", "error", err)
		}
	}
	if err := o.Deps.Runs.MarkFailed(fctx, st.run.ID, entity.Failure{
		Message: cause.Error(),
		Class:   class,
		Trace:   trace,
	}); err != nil {
		st.logger.Error("pipeline.run.mark_failed_failed", "error", err)
	}
	metrics.ObserveRunFinished(string(constants.RunStatusFailed))
	o.emitError(fctx, st, llm.UserMessage(class), map[string]any{
		"error":       cause.Error(),
		"error_class": string(class),
	})
}

func (o *Orchestrator) emitStatus(ctx context.Context, st *runState, status constants.RunStatus, msg string, data map[string]any) {
	if _, err := o.Deps.Events.StatusChange(ctx, st.run.ID, status, msg, data); err != nil {
		st.logger.Warn("pipeline.event.failed", "kind", constants.EventStatusChange, "error", err)
	}
}

func (o *Orchestrator) emitProgress(ctx context.Context, st *runState, step constants.Stage, msg string, data map[string]any) {
	if _, err := o.Deps.Events.Progress(ctx, st.run.ID, step, msg, data); err != nil {
		st.logger.Warn("pipeline.event.failed", "kind", constants.EventProgress, "step", step, "error", err)
	}
}

func (o *Orchestrator) emitError(ctx context.Context, st *runState, msg string, data map[string]any) {
	if _, err := o.Deps.Events.Error(ctx, st.run.ID, msg, data); err != nil {
		st.logger.Warn("pipeline.event.failed", "kind", constants.EventError, "error", err)
	}
}

// emitStageError reports a degraded stage as error-level progress, which does
// not end a stream.
func (o *Orchestrator) emitStageError(ctx context.Context, st *runState, step constants.Stage, err error) {
	class := llm.Classify(err)
	o.emitProgress(ctx, st, step, llm.UserMessage(class), map[string]any{
		"level":       "error",
		"error":       err.Error(),
		"error_class": string(class),
		"fallback":    true,
	})
}

// Cleanup deletes terminal runs that completed more than olderThan ago.
// A non-positive olderThan uses the configured retention.
func (o *Orchestrator) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = o.Opts.Retention
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	n, err := o.Deps.Runs.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		o.Logger.Error("pipeline.cleanup.failed", "error", err)
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	o.Logger.Info("pipeline.cleanup.ok", "deleted", n, "cutoff", cutoff)
	return n, nil
}

func classifyFailure(err error) constants.ErrorClass {
	switch {
	case errors.Is(err, pii.ErrRedaction):
		return constants.ErrorClassRedaction
	case errors.Is(err, extract.ErrFileNotFound),
		errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, extract.ErrCorruptFile):
		return constants.ErrorClassExtraction
	case errors.Is(err, common.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return constants.ErrorClassNotFound
	case errors.Is(err, llm.ErrTimeout),
		errors.Is(err, llm.ErrAuth),
		errors.Is(err, llm.ErrRateLimit),
		errors.Is(err, llm.ErrUnknownModel),
		errors.Is(err, llm.ErrMalformedJSON),
		errors.Is(err, llm.ErrProvider),
		errors.Is(err, context.DeadlineExceeded):
		return llm.Classify(err)
	}
	return constants.ErrorClassInternal
}

// errorChain renders each wrapped layer of err on its own line.
func errorChain(err error) string {
	var out string
	for e := err; e != nil; e = errors.Unwrap(e) {
		if out != "" {
			out += "\n  caused by: "
		}
		out += e.Error()
	}
	return out
}

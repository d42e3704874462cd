package pipeline

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/extract"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
)

// memRuns is a RunStore over a map.
type memRuns struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*entity.AnalysisRun
}

func newMemRuns(runs ...*entity.AnalysisRun) *memRuns {
	m := &memRuns{runs: map[uuid.UUID]*entity.AnalysisRun{}}
	for _, r := range runs {
		m.runs[r.ID] = r
	}
	return m
}

func (m *memRuns) with(id uuid.UUID, fn func(r *entity.AnalysisRun)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return common.NotFoundError("analysis run not found")
	}
	fn(r)
	return nil
}

func (m *memRuns) Get(_ context.Context, id uuid.UUID) (*entity.AnalysisRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, common.NotFoundError("analysis run not found")
	}
	cp := *r
	return &cp, nil
}

func (m *memRuns) get(t *testing.T, id uuid.UUID) *entity.AnalysisRun {
	t.Helper()
	r, err := m.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (m *memRuns) MarkRunning(_ context.Context, id uuid.UUID) (bool, error) {
	claimed := false
	err := m.with(id, func(r *entity.AnalysisRun) {
		if r.Status == constants.RunStatusQueued {
			now := time.Now().UTC()
			r.Status, r.StartedAt, claimed = constants.RunStatusRunning, &now, true
		}
	})
	return claimed, err
}

func (m *memRuns) SetPreparation(_ context.Context, id uuid.UUID, p *entity.PreparationResult) error {
	return m.with(id, func(r *entity.AnalysisRun) { r.Preparation = p })
}

func (m *memRuns) SetAnalysis(_ context.Context, id uuid.UUID, a *entity.AnalysisResult) error {
	return m.with(id, func(r *entity.AnalysisRun) { r.Analysis = a })
}

func (m *memRuns) SetQuality(_ context.Context, id uuid.UUID, score float64, tier constants.ConfidenceTier) error {
	return m.with(id, func(r *entity.AnalysisRun) { r.QualityScore, r.ConfidenceLevel = &score, &tier })
}

func (m *memRuns) SetScreening(_ context.Context, id uuid.UUID, s entity.Screening) error {
	return m.with(id, func(r *entity.AnalysisRun) {
		r.ScreeningResult, r.QualityScore, r.ConfidenceLevel = &s.Verdict, &s.QualityScore, &s.Confidence
	})
}

func (m *memRuns) SetFormattedOutput(_ context.Context, id uuid.UUID, out *entity.FormattedOutput) error {
	return m.with(id, func(r *entity.AnalysisRun) { r.FormattedOutput = out })
}

func (m *memRuns) SetUsage(_ context.Context, id uuid.UUID, model string, tokens int) error {
	return m.with(id, func(r *entity.AnalysisRun) { r.ModelUsed, r.TokensUsed = &model, tokens })
}

func (m *memRuns) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	return m.with(id, func(r *entity.AnalysisRun) {
		now := time.Now().UTC()
		r.Status, r.CompletedAt = constants.RunStatusSucceeded, &now
	})
}

func (m *memRuns) MarkFailed(_ context.Context, id uuid.UUID, f entity.Failure) error {
	return m.with(id, func(r *entity.AnalysisRun) {
		now := time.Now().UTC()
		class := string(f.Class)
		r.Status, r.CompletedAt = constants.RunStatusFailed, &now
		r.ErrorMessage, r.ErrorClass, r.ErrorTrace = &f.Message, &class, &f.Trace
	})
}

func (m *memRuns) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.runs {
		if r.Status.IsTerminal() && r.CompletedAt != nil && r.CompletedAt.Before(cutoff) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

// memDocs is a DocumentStore over a map.
type memDocs struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*entity.Document
}

func newMemDocs(docs ...*entity.Document) *memDocs {
	m := &memDocs{docs: map[uuid.UUID]*entity.Document{}}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func (m *memDocs) Get(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, common.NotFoundError("document not found")
	}
	cp := *d
	return &cp, nil
}

func (m *memDocs) SetExtraction(_ context.Context, id uuid.UUID, ex entity.Extraction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return false, common.NotFoundError("document not found")
	}
	if d.Text != nil {
		return false, nil
	}
	text, q := ex.Text, ex.Quality
	d.Text, d.ExtractionQuality = &text, &q
	d.PageCount, d.IsScanned, d.ExtractionMethod = ex.PageCount, ex.IsScanned, ex.Method
	return true, nil
}

func (m *memDocs) SetDetection(_ context.Context, id uuid.UUID, lang, jurisdiction string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return common.NotFoundError("document not found")
	}
	d.DetectedLanguage, d.DetectedJurisdiction = &lang, &jurisdiction
	return nil
}

type memDeadlines struct {
	mu    sync.Mutex
	byRun map[uuid.UUID][]entity.Deadline
}

func (m *memDeadlines) ReplaceForRun(_ context.Context, runID uuid.UUID, ds []entity.Deadline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byRun == nil {
		m.byRun = map[uuid.UUID][]entity.Deadline{}
	}
	m.byRun[runID] = ds
	return nil
}

// scriptedGateway answers by stage, recognised from the system prompt.
type scriptedGateway struct {
	mu          sync.Mutex
	requests    []llm.Request
	preparation string
	analysis    string
	simplify    string
	prepErr     error
	// blockPrep makes the preparation call wait for its context.
	blockPrep bool
}

func (g *scriptedGateway) Model() string { return "scripted-model" }

func (g *scriptedGateway) Call(ctx context.Context, req llm.Request) (llm.Response, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	switch req.SystemPrompt {
	case preparationSystemPrompt:
		if g.blockPrep {
			<-ctx.Done()
			return llm.Response{}, ctx.Err()
		}
		if g.prepErr != nil {
			return llm.Response{}, g.prepErr
		}
		return llm.Response{Text: g.preparation, Model: "scripted-model", PromptTokens: 100, CompletionTokens: 20}, nil
	case analysisSystemPrompt:
		return llm.Response{Text: g.analysis, Model: "scripted-model", PromptTokens: 200, CompletionTokens: 80}, nil
	case simplifySystemPrompt:
		return llm.Response{Text: g.simplify, Model: "scripted-model"}, nil
	}
	return llm.Response{}, llm.ErrProvider
}

func (g *scriptedGateway) calls() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.Request(nil), g.requests...)
}

func (g *scriptedGateway) countFor(system string) int {
	n := 0
	for _, r := range g.calls() {
		if r.SystemPrompt == system {
			n++
		}
	}
	return n
}

// stubExtractor returns a fixed result and counts calls.
type stubExtractor struct {
	mu     sync.Mutex
	result extract.Result
	err    error
	panics bool
	calls  int
}

func (s *stubExtractor) Extract(_ context.Context, _ string) (extract.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panics {
		panic("extractor exploded")
	}
	return s.result, s.err
}

const leasePrep = `{
  "agreement_type": "residential lease",
  "parties": [{"role": "Landlord", "name": "[PARTY_A - Landlord]"}, {"role": "Tenant", "name": "[PARTY_B - Tenant]"}],
  "term_start": "2025-01-01",
  "term_end": "2025-12-31",
  "jurisdiction": "",
  "negotiability": "Medium",
  "negotiability_reason": "standard residential lease"
}`

const leaseAnalysis = "```json\n" + `{
  "summary": "A one-year lease of an apartment with monthly rent.",
  "obligations": [{"action": "Pay rent", "trigger": "each month", "time_window": "by the 5th of each month", "consequence": "late fee of 50 EUR"}],
  "rights": [{"right": "Terminate early", "how_to_exercise": "written notice", "conditions": "60 days notice"}],
  "risks": [
    {"description": "Deposit return has no deadline", "severity": "Medium", "recommendation": "Ask for a 30 day return deadline"},
    {"description": "Unlimited liability for repairs", "severity": "Critical", "recommendation": "Cap repair costs"}
  ],
  "payment_terms": {"main_amount": "1000 EUR", "currency": "EUR", "first_due_date": "2025-01-05", "due_frequency": "monthly"},
  "gaps_anomalies": ["No pet clause"],
  "calendar": [{"date_or_formula": "2025-11-01", "event": "Send renewal notice"}],
  "suggestions": ["Add a deposit return deadline"],
  "mitigations": ["Photograph the apartment at move-in"],
  "screening_result": "no_major_issues"
}` + "\n```"

// leaseText covers the typical sections, names a party and has an email.
var leaseText = []string{
	"RESIDENTIAL LEASE AGREEMENT",
	"1. Parties",
	"This lease is made between John Smith, Landlord, and Maria Garcia, Tenant.",
	"Contact the landlord at john.smith@example.com for all matters.",
	"2. Definitions",
	"Premises means the apartment at the address stated in this lease.",
	"3. Term",
	"The term starts on 1 January 2025 and ends on 31 December 2025.",
	"4. Payment",
	"The Tenant shall pay rent of 1000 EUR by the 5th of each month.",
	"5. Termination",
	"Either party may end this lease with 60 days written notice.",
	"6. Liability",
	"The Tenant is responsible for damage caused by the Tenant.",
	"7. Governing Law",
	"This lease is governed by the laws of the Republic of Serbia.",
}

func writeLeaseDOCX(t *testing.T) string {
	t.Helper()
	var body strings.Builder
	for _, p := range leaseText {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	path := filepath.Join(t.TempDir(), "lease.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func newDocument(location string) *entity.Document {
	now := time.Now().UTC()
	return &entity.Document{
		ID:        uuid.New(),
		Location:  location,
		Filename:  filepath.Base(location),
		Format:    strings.TrimPrefix(filepath.Ext(location), "."),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

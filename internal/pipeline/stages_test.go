package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/llm"
	"github.com/joseph-ayodele/contract-analyzer/internal/locale"
)

type funcGateway func(ctx context.Context, req llm.Request) (llm.Response, error)

func (f funcGateway) Model() string { return "func-model" }

func (f funcGateway) Call(ctx context.Context, req llm.Request) (llm.Response, error) {
	return f(ctx, req)
}

func TestAssessNegotiability(t *testing.T) {
	tests := []struct {
		name string
		text string
		want constants.Negotiability
	}{
		{"click-wrap", "These Terms of Service apply. By clicking accept you agree to them.", constants.NegotiabilityLow},
		{"single phrase is not enough", "By clicking accept the order is placed.", constants.NegotiabilityMedium},
		{"draft", "DRAFT FOR DISCUSSION. Price subject to negotiation.", constants.NegotiabilityHigh},
		{"plain", "The supplier shall deliver the goods.", constants.NegotiabilityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := AssessNegotiability(tt.text)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestDetermineFinalScreeningResult(t *testing.T) {
	assert.Equal(t, constants.VerdictPreliminaryReview, DetermineFinalScreeningResult("no_major_issues", 0.4, 0.9))
	assert.Equal(t, constants.VerdictPreliminaryReview, DetermineFinalScreeningResult("high_risk", 0.9, 0.49))
	assert.Equal(t, constants.VerdictHighRisk, DetermineFinalScreeningResult("High Risk", 0.9, 0.9))
	assert.Equal(t, constants.VerdictNoMajorIssues, DetermineFinalScreeningResult("no_major_issues", 0.5, 0.5))
	assert.Equal(t, constants.VerdictRecommendedToAddress, DetermineFinalScreeningResult("looks fine to me", 0.9, 0.9))
}

func TestPreparationStage_MergesSignals(t *testing.T) {
	reply := strings.Replace(leasePrep, `"Medium"`, `"unknown"`, 1)
	g := &scriptedGateway{preparation: reply}
	stage := NewPreparationStage(g, StageConfig{}, nil)

	text := "Terms of Service. By clicking you agree to these terms."
	res, err := stage.Run(context.Background(), PreparationInput{
		RedactedText: text,
		Language:     constants.LangEnglish,
		UserRole:     "tenant",
		Signals: Signals{
			Language:      constants.LangEnglish,
			Jurisdiction:  "Serbia",
			Timezone:      "Europe/Belgrade",
			Coverage:      0.8,
			QualityScore:  0.9,
			QualityReason: "clean text",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "residential lease", res.AgreementType)
	assert.Len(t, res.Parties, 2)
	assert.Equal(t, "Serbia", res.Jurisdiction)
	assert.Equal(t, "Serbia", res.DetectedJurisdiction)
	assert.Equal(t, "Europe/Belgrade", res.TimezoneHint)
	assert.Equal(t, constants.NegotiabilityLow, res.Negotiability)
	assert.InDelta(t, 0.9, res.QualityScore, 1e-9)
	assert.InDelta(t, 0.8, res.CoverageScore, 1e-9)
	assert.False(t, res.Degraded())

	calls := g.calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].JSONMode)
	assert.Contains(t, calls[0].Prompt, text)
}

func TestPreparationStage_TruncatesToBudget(t *testing.T) {
	g := &scriptedGateway{preparation: leasePrep}
	stage := NewPreparationStage(g, StageConfig{CharBudget: 10}, nil)

	_, err := stage.Run(context.Background(), PreparationInput{RedactedText: strings.Repeat("x", 50) + "TAIL"})
	require.NoError(t, err)
	assert.NotContains(t, g.calls()[0].Prompt, "TAIL")
}

func TestFallbackPreparation(t *testing.T) {
	res := FallbackPreparation(Signals{Jurisdiction: "Serbia", QualityScore: 0.7}, errors.New("boom"))
	assert.True(t, res.Degraded())
	assert.Equal(t, "unknown", res.AgreementType)
	assert.Equal(t, constants.NegotiabilityMedium, res.Negotiability)
	assert.Equal(t, "Serbia", res.Jurisdiction)
	assert.InDelta(t, 0.7, res.QualityScore, 1e-9)
	assert.Contains(t, res.Error, "Preparation failed: boom")
	assert.NotNil(t, res.Parties)
}

func TestAnalysisStage_SanitizesReply(t *testing.T) {
	g := &scriptedGateway{analysis: leaseAnalysis}
	stage := NewAnalysisStage(g, StageConfig{}, nil)

	prep := &entity.PreparationResult{AgreementType: "residential lease", Negotiability: constants.NegotiabilityMedium}
	res, err := stage.Run(context.Background(), AnalysisInput{RedactedText: "lease text", Preparation: prep})
	require.NoError(t, err)
	require.Len(t, res.Risks, 2)
	assert.Equal(t, entity.SeverityMedium, res.Risks[0].Severity)
	assert.Equal(t, entity.SeverityHigh, res.Risks[1].Severity)
	assert.Equal(t, "no_major_issues", res.ScreeningResult)
	assert.False(t, res.Degraded())

	prompt := g.calls()[0].Prompt
	assert.Contains(t, prompt, "User Role: party")
	assert.Contains(t, prompt, "Jurisdiction: unknown")
}

func TestAnalysisStage_Timeout(t *testing.T) {
	g := funcGateway(func(ctx context.Context, _ llm.Request) (llm.Response, error) {
		<-ctx.Done()
		return llm.Response{}, ctx.Err()
	})
	stage := NewAnalysisStage(g, StageConfig{Timeout: 20 * time.Millisecond}, nil)

	_, err := stage.Run(context.Background(), AnalysisInput{RedactedText: "text"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisTimeout)
	assert.ErrorIs(t, err, llm.ErrTimeout)
}

func TestAnalysisStage_MalformedReply(t *testing.T) {
	g := funcGateway(func(context.Context, llm.Request) (llm.Response, error) {
		return llm.Response{Text: "I could not read the contract."}, nil
	})
	_, err := NewAnalysisStage(g, StageConfig{}, nil).Run(context.Background(), AnalysisInput{RedactedText: "text"})
	assert.ErrorIs(t, err, llm.ErrMalformedJSON)
}

func TestFallbackAnalysis(t *testing.T) {
	res := FallbackAnalysis(errors.New("provider down"))
	assert.True(t, res.Degraded())
	require.Len(t, res.Risks, 1)
	assert.Equal(t, entity.SeverityHigh, res.Risks[0].Severity)
	assert.Equal(t, "Manual review required", res.Risks[0].Recommendation)
	assert.Equal(t, string(constants.VerdictRecommendedToAddress), res.ScreeningResult)
	assert.NotNil(t, res.Obligations)
}

func TestFormatter_EmptyInputs(t *testing.T) {
	f := NewFormatter(nil)
	out := f.Format(FormatInput{Verdict: constants.VerdictPreliminaryReview, Tier: constants.ConfidenceLow})

	assert.Equal(t, constants.LangEnglish, out.Language)
	assert.Equal(t, "This is an agreement between the parties.", out.About)
	assert.Equal(t, []string{"Taxes/fees not analyzed."}, out.Payment)
	assert.Empty(t, out.CheckTerms)
	assert.NotNil(t, out.KeyTerms.Parties)
	assert.NotEmpty(t, out.VerdictText)
	assert.NotEmpty(t, out.ImportantLimits)
	assert.False(t, out.Degraded)
}

func TestFormatter_Sections(t *testing.T) {
	run := &entity.AnalysisRun{ID: uuid.New(), UserRole: "tenant", OutputLanguage: constants.LangEnglish}
	prep := &entity.PreparationResult{
		AgreementType: "lease",
		Parties:       []entity.Party{{Role: "Landlord", Name: "[PARTY_A]"}, {Role: "Tenant"}},
		TermStart:     "2025-01-01",
		TermEnd:       "2025-12-31",
		Jurisdiction:  "Serbia (from model)",
		Negotiability: constants.NegotiabilityLow,
	}
	prep.DetectedJurisdiction = "Serbia"
	an := &entity.AnalysisResult{
		Risks: []entity.Risk{
			{Description: "minor", Severity: entity.SeverityLow},
			{Description: "major", Severity: entity.SeverityHigh},
			{Description: "middle", Severity: entity.SeverityMedium},
		},
		PaymentTerms: entity.PaymentTerms{
			MainAmount:         "1000 EUR",
			Currency:           "EUR",
			DepositUpfront:     "2000 EUR",
			FirstDueDate:       "2025-01-05",
			DueFrequency:       "monthly",
			EndDateRenewal:     "2025-12-31",
			CancellationNotice: "60 days",
		},
		Obligations: []entity.Obligation{{Action: "Pay rent", TimeWindow: "by the 5th"}, {Action: " "}},
		Suggestions: []string{"Cap repairs"},
	}
	an.Normalize()

	out := NewFormatter(nil).Format(FormatInput{Run: run, Preparation: prep, Analysis: an, Verdict: constants.VerdictHighRisk, Tier: constants.ConfidenceHigh})

	assert.Equal(t, "This is a lease between [PARTY_A] and Tenant. You are the tenant. The agreement runs from 2025-01-01 to 2025-12-31.", out.About)
	require.Len(t, out.Payment, maxSectionItems)
	assert.Equal(t, "Amount: 1000 EUR", out.Payment[0])
	assert.Equal(t, []string{"Pay rent (by the 5th)"}, out.Obligations)
	require.Len(t, out.CheckTerms, 3)
	assert.Equal(t, "major", out.CheckTerms[0].Description)
	assert.Equal(t, "middle", out.CheckTerms[1].Description)
	assert.Equal(t, "minor", out.CheckTerms[2].Description)
	assert.Equal(t, 3, out.TotalRisks)
	assert.Equal(t, "Serbia", out.KeyTerms.Jurisdiction)
	assert.False(t, out.ShowAskChanges)
	assert.Empty(t, out.AskChanges)

	prep.Negotiability = constants.NegotiabilityHigh
	out = NewFormatter(nil).Format(FormatInput{Run: run, Preparation: prep, Analysis: an})
	assert.True(t, out.ShowAskChanges)
	assert.Equal(t, []string{"Cap repairs"}, out.AskChanges)
}

func TestFormatter_ClipsSummary(t *testing.T) {
	an := &entity.AnalysisResult{Summary: strings.Repeat("é", 400)}
	out := NewFormatter(nil).Format(FormatInput{Analysis: an})
	assert.Equal(t, maxAboutChars, len([]rune(out.About)))
	assert.True(t, strings.HasSuffix(out.About, "..."))
}

func TestFormatter_DegradedFromEitherStage(t *testing.T) {
	out := NewFormatter(nil).Format(FormatInput{Analysis: FallbackAnalysis(errors.New("x"))})
	assert.True(t, out.Degraded)
	out = NewFormatter(nil).Format(FormatInput{Preparation: FallbackPreparation(Signals{}, errors.New("x"))})
	assert.True(t, out.Degraded)
}

func TestRenderMarkdown(t *testing.T) {
	cat := locale.Default()
	out := NewFormatter(cat).Format(FormatInput{
		Preparation: &entity.PreparationResult{Negotiability: constants.NegotiabilityLow},
		Analysis: &entity.AnalysisResult{
			Summary:     "A short lease.",
			Risks:       []entity.Risk{{Description: "No cap", Severity: entity.SeverityHigh, Recommendation: "Add a cap"}},
			Suggestions: []string{"Ask for a cap"},
		},
		Verdict: constants.VerdictHighRisk,
	})
	out.Simplified = &entity.Simplified{About: "A plain lease."}

	md := RenderMarkdown(out, cat)
	lang := constants.LangEnglish
	assert.True(t, strings.HasPrefix(md, "# "+cat.Section(lang, "summary_title")))
	assert.Contains(t, md, "## "+cat.Section(lang, "check_terms"))
	assert.Contains(t, md, "- [high] No cap → Add a cap")
	assert.Contains(t, md, "A plain lease.")
	assert.NotContains(t, md, "A short lease.")
	assert.NotContains(t, md, "Ask for a cap")
	assert.Contains(t, md, out.ImportantLimits)
}

func TestSimplifier(t *testing.T) {
	g := funcGateway(func(_ context.Context, req llm.Request) (llm.Response, error) {
		switch {
		case strings.Contains(req.Prompt, "What you can do"):
			return llm.Response{}, llm.ErrProvider
		case strings.Contains(req.Prompt, "What you must do"):
			return llm.Response{Text: "  Here's the simplified version: \"Pay on time.\""}, nil
		}
		return llm.Response{Text: "In plain language: You rent a flat."}, nil
	})
	an := &entity.AnalysisResult{
		Obligations: []entity.Obligation{{Action: "Remit monthly consideration", TimeWindow: "by the 5th"}},
		Rights:      []entity.Right{{Right: "Terminate on notice"}},
	}
	out := &entity.FormattedOutput{Language: constants.LangEnglish, About: "A lease of residential premises."}

	res, err := NewSimplifier(g, time.Second, nil).Simplify(context.Background(), out, an)
	require.NoError(t, err)
	assert.Equal(t, "You rent a flat.", res.About)
	assert.Equal(t, []string{"Pay on time."}, res.Obligations)
	assert.Equal(t, "Pay on time.", an.Obligations[0].ActionSimple)
	require.Len(t, res.Rights, 1)
	assert.Equal(t, "What you can do: Terminate on notice", res.Rights[0], "failed rewrite keeps the original")
}

func TestSimplifier_AllFailed(t *testing.T) {
	g := funcGateway(func(context.Context, llm.Request) (llm.Response, error) {
		return llm.Response{}, llm.ErrProvider
	})
	out := &entity.FormattedOutput{About: "About text."}
	_, err := NewSimplifier(g, time.Second, nil).Simplify(context.Background(), out, &entity.AnalysisResult{})
	assert.ErrorIs(t, err, ErrNothingSimplified)
}

func TestStripSimplifyPrefix(t *testing.T) {
	assert.Equal(t, "Pay rent.", stripSimplifyPrefix("SIMPLIFIED: Pay rent."))
	assert.Equal(t, "Pay rent.", stripSimplifyPrefix(`"Pay rent."`))
	assert.Equal(t, "Pay rent.", stripSimplifyPrefix("Pay rent."))
}

func TestCategorizeDeadline(t *testing.T) {
	tests := []struct {
		event, source string
		want          entity.DeadlineType
	}{
		{"Pay the annual fee", SourceCalendar, entity.DeadlinePayment},
		{"Renewal date", SourceCalendar, entity.DeadlineRenewal},
		{"Notify the landlord", SourceCalendar, entity.DeadlineNotice},
		{"Contract ends", SourceCalendar, entity.DeadlineTermination},
		{"Exercise purchase option", SourceCalendar, entity.DeadlineOptionExercise},
		{"Board meeting", SourceCalendar, entity.DeadlineOther},
		{"Pay rent", SourceObligations, entity.DeadlineObligation},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizeDeadline(tt.event, tt.source), tt.event)
	}
}

func TestExtractDeadlines(t *testing.T) {
	run := &entity.AnalysisRun{ID: uuid.New(), DocumentID: uuid.New()}
	an := &entity.AnalysisResult{
		Calendar: []entity.CalendarItem{
			{Event: "Pay monthly rent", DateOrFormula: "2025-03-01"},
			{Event: "Exercise purchase option", DateOrFormula: "30 days before term end"},
			{Event: "", DateOrFormula: "2025-04-01"},
		},
		Obligations: []entity.Obligation{
			{Action: "Keep premises clean", TimeWindow: "ongoing"},
			{Action: "Return keys", TimeWindow: "2025-12-31", Consequence: "Deposit withheld"},
		},
		PaymentTerms: entity.PaymentTerms{FirstDueDate: "next week", DueFrequency: "one-time"},
	}

	ds := ExtractDeadlines(run, an)
	require.Len(t, ds, 3)

	assert.Equal(t, entity.DeadlinePayment, ds[0].Type)
	require.NotNil(t, ds[0].Date)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *ds[0].Date)
	assert.True(t, ds[0].IsRecurring)
	assert.Equal(t, run.ID, ds[0].RunID)
	assert.Equal(t, run.DocumentID, ds[0].DocumentID)

	assert.Equal(t, entity.DeadlineOptionExercise, ds[1].Type)
	assert.Nil(t, ds[1].Date)
	assert.Equal(t, "30 days before term end", ds[1].DateFormula)

	assert.Equal(t, entity.DeadlineObligation, ds[2].Type)
	assert.Equal(t, SourceObligations, ds[2].SourceSection)
	assert.Equal(t, "Deposit withheld", ds[2].Description)
	require.NotNil(t, ds[2].Date)
}

func TestExtractDeadlines_PaymentTerms(t *testing.T) {
	run := &entity.AnalysisRun{ID: uuid.New()}
	an := &entity.AnalysisResult{PaymentTerms: entity.PaymentTerms{
		MainAmount:   "1000 EUR",
		FirstDueDate: "2025-01-05",
		DueFrequency: "monthly",
	}}

	ds := ExtractDeadlines(run, an)
	require.Len(t, ds, 2)
	assert.Equal(t, "First payment due: 1000 EUR", ds[0].Title)
	require.NotNil(t, ds[0].Date)
	assert.Equal(t, "Recurring payment: 1000 EUR", ds[1].Title)
	assert.True(t, ds[1].IsRecurring)
	assert.Equal(t, "monthly", ds[1].DateFormula)
	assert.Empty(t, ExtractDeadlines(run, nil))
}

func TestParseDeadlineDate(t *testing.T) {
	_, ok := parseDeadlineDate("30")
	assert.False(t, ok, "bare numbers are day counts")
	_, ok = parseDeadlineDate("within 30 days")
	assert.False(t, ok)
	got, ok := parseDeadlineDate("2025-06-30")
	require.True(t, ok)
	assert.Equal(t, 2025, got.Year())
}

func TestStageConfig_Temperature(t *testing.T) {
	assert.Equal(t, defaultTemperature, *StageConfig{}.withDefaults(time.Second).Temperature)
	assert.Equal(t, defaultTemperature, *StageConfig{Temperature: llm.Temperature(-1)}.withDefaults(time.Second).Temperature)
	assert.Equal(t, 0.0, *StageConfig{Temperature: llm.Temperature(0)}.withDefaults(time.Second).Temperature)

	g := &scriptedGateway{preparation: leasePrep}
	opts := OptionsFrom(common.PipelineConfig{}, common.LLMConfig{Temperature: 0})
	_, err := NewPreparationStage(g, opts.Preparation, nil).Run(context.Background(), PreparationInput{
		RedactedText: strings.Join(leaseText, "\n\n"),
		Language:     constants.LangEnglish,
	})
	require.NoError(t, err)
	reqs := g.calls()
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Temperature)
	assert.Equal(t, 0.0, *reqs[0].Temperature)
}

func TestTruncateAndClip(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 0))
	assert.Equal(t, "héllo", clip("héllo", 5))
	assert.Equal(t, "h...", clip("héllo", 4))
	assert.Equal(t, "hé", clip("héllo", 2))
}

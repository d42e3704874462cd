package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

type fakeRuns map[uuid.UUID]*entity.AnalysisRun

func (f fakeRuns) Get(_ context.Context, id uuid.UUID) (*entity.AnalysisRun, error) {
	if r, ok := f[id]; ok {
		return r, nil
	}
	return nil, common.NotFoundError("analysis run not found")
}

type fakeDeadlines []entity.Deadline

func (f fakeDeadlines) ListByRun(context.Context, uuid.UUID) ([]entity.Deadline, error) {
	return f, nil
}

func succeededRun() *entity.AnalysisRun {
	run := entity.NewAnalysisRun(uuid.New(), constants.LangEnglish, "tenant", nil)
	run.Status = constants.RunStatusSucceeded
	verdict := constants.VerdictRecommendedToAddress
	score := 0.82
	run.ScreeningResult, run.QualityScore = &verdict, &score
	run.Preparation = &entity.PreparationResult{AgreementType: "lease", TermStart: "2025-01-01", TermEnd: "2025-12-31"}
	run.Analysis = &entity.AnalysisResult{
		Risks: []entity.Risk{
			{Description: "Unlimited liability", Severity: entity.SeverityHigh, Recommendation: "Cap it", Category: "liability"},
			{Description: "No deposit deadline", Severity: entity.SeverityMedium},
		},
		Obligations: []entity.Obligation{{Action: "Pay rent", TimeWindow: "monthly"}},
		Calendar:    []entity.CalendarItem{{DateOrFormula: "2025-11-01", Event: "Send renewal notice"}},
	}
	run.FormattedOutput = &entity.FormattedOutput{About: "A one-year lease.", Payment: []string{"Amount: 1000 EUR"}}
	return run
}

func TestExportRunXLSX(t *testing.T) {
	run := succeededRun()
	due := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	svc := NewService(fakeRuns{run.ID: run}, fakeDeadlines{
		{Type: entity.DeadlinePayment, Title: "First payment due: 1000 EUR", Date: &due, SourceSection: "payment_terms"},
		{Type: entity.DeadlinePayment, Title: "Recurring payment: 1000 EUR", DateFormula: "monthly", IsRecurring: true},
	}, nil)

	data, err := svc.ExportRunXLSX(context.Background(), run.ID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetSummary, SheetRisks, SheetObligations, SheetCalendar, SheetDeadlines}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Contains(t, summary, []string{"Run ID", run.ID.String()})
	assert.Contains(t, summary, []string{"Verdict", "recommended_to_address"})
	assert.Contains(t, summary, []string{"Term", "2025-01-01 – 2025-12-31"})

	risks, err := f.GetRows(SheetRisks)
	require.NoError(t, err)
	require.Len(t, risks, 3)
	assert.Equal(t, []string{"Severity", "Category", "Description", "Recommendation"}, risks[0])
	assert.Equal(t, []string{"high", "liability", "Unlimited liability", "Cap it"}, risks[1])

	deadlines, err := f.GetRows(SheetDeadlines)
	require.NoError(t, err)
	require.Len(t, deadlines, 3)
	assert.Equal(t, "2025-01-05", deadlines[1][2])
	assert.Equal(t, "monthly", deadlines[2][3])
}

func TestExportRunXLSX_RejectsUnfinishedRun(t *testing.T) {
	run := succeededRun()
	run.Status = constants.RunStatusRunning
	svc := NewService(fakeRuns{run.ID: run}, nil, nil)

	_, err := svc.ExportRunXLSX(context.Background(), run.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestExportRunXLSX_NotFound(t *testing.T) {
	svc := NewService(fakeRuns{}, nil, nil)
	_, err := svc.ExportRunXLSX(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, "é", truncate("éé", 1))
}

package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetRisks       = "Risks"
	SheetObligations = "Obligations"
	SheetCalendar    = "Calendar"
	SheetDeadlines   = "Deadlines"
)

const maxCellChars = 1000

type RunReader interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.AnalysisRun, error)
}

type DeadlineLister interface {
	ListByRun(ctx context.Context, runID uuid.UUID) ([]entity.Deadline, error)
}

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	runs      RunReader
	deadlines DeadlineLister
	logger    *slog.Logger
}

func NewService(runs RunReader, deadlines DeadlineLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, deadlines: deadlines, logger: logger}
}

// ExportRunXLSX returns an XLSX workbook (as bytes) for a succeeded run.
func (s *Service) ExportRunXLSX(ctx context.Context, runID uuid.UUID) ([]byte, error) {
	start := time.Now()

	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if run.Status != constants.RunStatusSucceeded || run.Analysis == nil {
		return nil, common.NewAppError(common.CodeConflict,
			fmt.Sprintf("run %s is %s; only succeeded runs can be exported", runID, run.Status), common.ErrConflict)
	}
	var deadlines []entity.Deadline
	if s.deadlines != nil {
		if deadlines, err = s.deadlines.ListByRun(ctx, runID); err != nil {
			return nil, fmt.Errorf("list deadlines: %w", err)
		}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet becomes Summary so the workbook opens on it
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetRisks, SheetObligations, SheetCalendar, SheetDeadlines} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	writeSummary(f, run)
	an := run.Analysis

	rows := make([][]any, 0, len(an.Risks))
	for _, r := range an.Risks {
		rows = append(rows, []any{r.Severity, r.Category, r.Description, r.Recommendation})
	}
	writeTable(f, SheetRisks, []string{"Severity", "Category", "Description", "Recommendation"}, rows)

	rows = rows[:0]
	for _, o := range an.Obligations {
		rows = append(rows, []any{o.Action, o.Trigger, o.TimeWindow, o.Consequence, o.ActionSimple})
	}
	writeTable(f, SheetObligations, []string{"Action", "Trigger", "Time Window", "Consequence", "In Plain Words"}, rows)

	rows = rows[:0]
	for _, c := range an.Calendar {
		rows = append(rows, []any{c.DateOrFormula, c.Event})
	}
	writeTable(f, SheetCalendar, []string{"Date / Formula", "Event"}, rows)

	rows = rows[:0]
	for _, d := range deadlines {
		date := ""
		if d.Date != nil {
			date = d.Date.Format("2006-01-02")
		}
		rows = append(rows, []any{string(d.Type), d.Title, date, d.DateFormula, d.IsRecurring, d.SourceSection, d.Description})
	}
	writeTable(f, SheetDeadlines, []string{"Type", "Title", "Date", "Date Formula", "Recurring", "Source", "Description"}, rows)

	// Widen a few columns
	_ = f.SetColWidth(SheetSummary, "A", "A", 22)
	_ = f.SetColWidth(SheetSummary, "B", "B", 80)
	_ = f.SetColWidth(SheetRisks, "C", "D", 60)
	_ = f.SetColWidth(SheetObligations, "A", "E", 36)
	_ = f.SetColWidth(SheetCalendar, "A", "B", 40)
	_ = f.SetColWidth(SheetDeadlines, "B", "B", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"run_id", runID.String(),
		"risks", len(an.Risks),
		"obligations", len(an.Obligations),
		"deadlines", len(deadlines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, run *entity.AnalysisRun) {
	pairs := [][2]string{
		{"Run ID", run.ID.String()},
		{"Document ID", run.DocumentID.String()},
		{"Output Language", run.OutputLanguage},
		{"User Role", run.UserRole},
	}
	if run.ScreeningResult != nil {
		pairs = append(pairs, [2]string{"Verdict", string(*run.ScreeningResult)})
	}
	if run.QualityScore != nil {
		pairs = append(pairs, [2]string{"Quality Score", fmt.Sprintf("%.2f", *run.QualityScore)})
	}
	if run.ConfidenceLevel != nil {
		pairs = append(pairs, [2]string{"Confidence", string(*run.ConfidenceLevel)})
	}
	if p := run.Preparation; p != nil {
		pairs = append(pairs,
			[2]string{"Agreement Type", p.AgreementType},
			[2]string{"Jurisdiction", firstNonEmpty(p.DetectedJurisdiction, p.Jurisdiction)},
			[2]string{"Negotiability", string(p.Negotiability)},
			[2]string{"Term", strings.Trim(p.TermStart+" – "+p.TermEnd, " –")},
		)
	}
	if out := run.FormattedOutput; out != nil {
		pairs = append(pairs,
			[2]string{"Verdict Text", out.VerdictText},
			[2]string{"About", out.About},
			[2]string{"Payment", strings.Join(out.Payment, "\n")},
			[2]string{"Important Limits", out.ImportantLimits},
		)
	}
	if run.CompletedAt != nil {
		pairs = append(pairs, [2]string{"Completed At", run.CompletedAt.UTC().Format(time.RFC3339)})
	}

	for i, kv := range pairs {
		a, _ := excelize.CoordinatesToCellName(1, i+1)
		b, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(SheetSummary, a, kv[0])
		_ = f.SetCellValue(SheetSummary, b, truncate(kv[1], maxCellChars))
	}
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]any) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, row := range rows {
		for c, v := range row {
			if s, ok := v.(string); ok {
				v = truncate(s, maxCellChars)
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

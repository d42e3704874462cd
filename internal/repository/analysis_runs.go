package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

type AnalysisRunRepository interface {
	Create(ctx context.Context, run *entity.AnalysisRun) error
	Get(ctx context.Context, id uuid.UUID) (*entity.AnalysisRun, error)
	RunStatus(ctx context.Context, id uuid.UUID) (constants.RunStatus, error)
	// MarkRunning moves a queued run to running. It reports false when the run
	// was not queued.
	MarkRunning(ctx context.Context, id uuid.UUID) (bool, error)
	SetPreparation(ctx context.Context, id uuid.UUID, prep *entity.PreparationResult) error
	SetAnalysis(ctx context.Context, id uuid.UUID, analysis *entity.AnalysisResult) error
	SetQuality(ctx context.Context, id uuid.UUID, score float64, tier constants.ConfidenceTier) error
	SetScreening(ctx context.Context, id uuid.UUID, s entity.Screening) error
	SetFormattedOutput(ctx context.Context, id uuid.UUID, out *entity.FormattedOutput) error
	SetUsage(ctx context.Context, id uuid.UUID, model string, tokens int) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, f entity.Failure) error
	// DeleteFinishedBefore removes terminal runs completed before cutoff along
	// with their events and deadlines.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type analysisRunRepo struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewAnalysisRunRepository(drv *entsql.Driver, logger *slog.Logger) AnalysisRunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &analysisRunRepo{
		drv:    drv,
		logger: logger,
	}
}

var analysisRunColumns = []string{
	"id", "document_id", "status", "output_language", "user_role", "available_documents",
	"preparation", "analysis", "formatted_output", "screening_result", "quality_score",
	"confidence_level", "model_used", "tokens_used", "error_message", "error_class",
	"error_trace", "created_at", "started_at", "completed_at",
}

func (r *analysisRunRepo) Create(ctx context.Context, run *entity.AnalysisRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now()
	}
	if run.Status == "" {
		run.Status = constants.RunStatusQueued
	}
	if run.AvailableDocuments == nil {
		run.AvailableDocuments = []string{}
	}
	available, err := marshalJSON(run.AvailableDocuments)
	if err != nil {
		return common.InvalidArgumentErrorf("available documents: %v", err)
	}

	b := entsql.Dialect(r.drv.Dialect()).
		Insert(tableAnalysisRuns).
		Columns("id", "document_id", "status", "output_language", "user_role", "available_documents", "tokens_used", "created_at").
		Values(run.ID, run.DocumentID, string(run.Status), run.OutputLanguage, run.UserRole, available, run.TokensUsed, run.CreatedAt)
	if _, err := execQuery(ctx, r.drv, b); err != nil {
		r.logger.Error("failed to create analysis run", "run_id", run.ID, "document_id", run.DocumentID, "error", err)
		return dbError("create analysis run", err)
	}
	r.logger.Debug("analysis run created", "run_id", run.ID, "document_id", run.DocumentID)
	return nil
}

func (r *analysisRunRepo) Get(ctx context.Context, id uuid.UUID) (*entity.AnalysisRun, error) {
	b := entsql.Dialect(r.drv.Dialect()).
		Select(analysisRunColumns...).
		From(entsql.Table(tableAnalysisRuns)).
		Where(entsql.EQ("id", id)).
		Limit(1)

	var run *entity.AnalysisRun
	err := queryRows(ctx, r.drv, b, func(rows *entsql.Rows) error {
		var (
			ar                         entity.AnalysisRun
			status                     string
			available                  string
			prep, analysis, formatted  sql.NullString
			screening, tier, model     sql.NullString
			errMsg, errClass, errTrace sql.NullString
			quality                    sql.NullFloat64
			startedAt, completedAt     sql.NullTime
		)
		if err := rows.Scan(&ar.ID, &ar.DocumentID, &status, &ar.OutputLanguage, &ar.UserRole, &available,
			&prep, &analysis, &formatted, &screening, &quality,
			&tier, &model, &ar.TokensUsed, &errMsg, &errClass,
			&errTrace, &ar.CreatedAt, &startedAt, &completedAt); err != nil {
			return err
		}
		ar.Status = constants.RunStatus(status)
		docs, err := unmarshalNullJSON[[]string](sql.NullString{String: available, Valid: true})
		if err != nil {
			return err
		}
		ar.AvailableDocuments = []string{}
		if docs != nil {
			ar.AvailableDocuments = *docs
		}
		if ar.Preparation, err = unmarshalNullJSON[entity.PreparationResult](prep); err != nil {
			return err
		}
		if ar.Analysis, err = unmarshalNullJSON[entity.AnalysisResult](analysis); err != nil {
			return err
		}
		if ar.FormattedOutput, err = unmarshalNullJSON[entity.FormattedOutput](formatted); err != nil {
			return err
		}
		if screening.Valid {
			v := constants.Verdict(screening.String)
			ar.ScreeningResult = &v
		}
		if tier.Valid {
			t := constants.ConfidenceTier(tier.String)
			ar.ConfidenceLevel = &t
		}
		ar.QualityScore = nullFloat(quality)
		ar.ModelUsed = nullString(model)
		ar.ErrorMessage = nullString(errMsg)
		ar.ErrorClass = nullString(errClass)
		ar.ErrorTrace = nullString(errTrace)
		ar.StartedAt = nullTime(startedAt)
		ar.CompletedAt = nullTime(completedAt)
		run = &ar
		return nil
	})
	if err != nil {
		r.logger.Error("failed to get analysis run", "run_id", id, "error", err)
		return nil, dbError("get analysis run", err)
	}
	if run == nil {
		return nil, common.NotFoundError("analysis run " + id.String())
	}
	return run, nil
}

func (r *analysisRunRepo) RunStatus(ctx context.Context, id uuid.UUID) (constants.RunStatus, error) {
	b := entsql.Dialect(r.drv.Dialect()).
		Select("status").
		From(entsql.Table(tableAnalysisRuns)).
		Where(entsql.EQ("id", id)).
		Limit(1)

	var status string
	found := false
	err := queryRows(ctx, r.drv, b, func(rows *entsql.Rows) error {
		found = true
		return rows.Scan(&status)
	})
	if err != nil {
		r.logger.Error("failed to read run status", "run_id", id, "error", err)
		return "", dbError("read run status", err)
	}
	if !found {
		return "", common.NotFoundError("analysis run " + id.String())
	}
	return constants.RunStatus(status), nil
}

func (r *analysisRunRepo) MarkRunning(ctx context.Context, id uuid.UUID) (bool, error) {
	b := entsql.Dialect(r.drv.Dialect()).
		Update(tableAnalysisRuns).
		Set("status", string(constants.RunStatusRunning)).
		Set("started_at", now()).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("status", string(constants.RunStatusQueued)),
		))
	n, err := execQuery(ctx, r.drv, b)
	if err != nil {
		r.logger.Error("failed to mark run running", "run_id", id, "error", err)
		return false, dbError("mark running", err)
	}
	return n > 0, nil
}

func (r *analysisRunRepo) SetPreparation(ctx context.Context, id uuid.UUID, prep *entity.PreparationResult) error {
	raw, err := marshalJSON(prep)
	if err != nil {
		return common.InternalErrorf("encode preparation: %v", err)
	}
	return r.update(ctx, id, "set preparation", func(b *entsql.UpdateBuilder) {
		b.Set("preparation", raw)
	})
}

func (r *analysisRunRepo) SetAnalysis(ctx context.Context, id uuid.UUID, analysis *entity.AnalysisResult) error {
	raw, err := marshalJSON(analysis)
	if err != nil {
		return common.InternalErrorf("encode analysis: %v", err)
	}
	return r.update(ctx, id, "set analysis", func(b *entsql.UpdateBuilder) {
		b.Set("analysis", raw)
	})
}

func (r *analysisRunRepo) SetQuality(ctx context.Context, id uuid.UUID, score float64, tier constants.ConfidenceTier) error {
	return r.update(ctx, id, "set quality", func(b *entsql.UpdateBuilder) {
		b.Set("quality_score", score).Set("confidence_level", string(tier))
	})
}

func (r *analysisRunRepo) SetScreening(ctx context.Context, id uuid.UUID, s entity.Screening) error {
	return r.update(ctx, id, "set screening", func(b *entsql.UpdateBuilder) {
		b.Set("screening_result", string(s.Verdict)).
			Set("quality_score", s.QualityScore).
			Set("confidence_level", string(s.Confidence))
	})
}

func (r *analysisRunRepo) SetFormattedOutput(ctx context.Context, id uuid.UUID, out *entity.FormattedOutput) error {
	raw, err := marshalJSON(out)
	if err != nil {
		return common.InternalErrorf("encode formatted output: %v", err)
	}
	return r.update(ctx, id, "set formatted output", func(b *entsql.UpdateBuilder) {
		b.Set("formatted_output", raw)
	})
}

func (r *analysisRunRepo) SetUsage(ctx context.Context, id uuid.UUID, model string, tokens int) error {
	return r.update(ctx, id, "set usage", func(b *entsql.UpdateBuilder) {
		b.Set("model_used", model).Set("tokens_used", tokens)
	})
}

func (r *analysisRunRepo) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, "mark succeeded", func(b *entsql.UpdateBuilder) {
		b.Set("status", string(constants.RunStatusSucceeded)).Set("completed_at", now())
	})
}

func (r *analysisRunRepo) MarkFailed(ctx context.Context, id uuid.UUID, f entity.Failure) error {
	return r.update(ctx, id, "mark failed", func(b *entsql.UpdateBuilder) {
		b.Set("status", string(constants.RunStatusFailed)).
			Set("completed_at", now()).
			Set("error_message", f.Message).
			Set("error_class", string(f.Class))
		if f.Trace != "" {
			b.Set("error_trace", f.Trace)
		}
	})
}

func (r *analysisRunRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	b := entsql.Dialect(r.drv.Dialect()).
		Delete(tableAnalysisRuns).
		Where(entsql.And(
			entsql.In("status", string(constants.RunStatusSucceeded), string(constants.RunStatusFailed)),
			entsql.NotNull("completed_at"),
			entsql.LT("completed_at", cutoff.UTC()),
		))
	n, err := execQuery(ctx, r.drv, b)
	if err != nil {
		r.logger.Error("failed to delete finished runs", "cutoff", cutoff, "error", err)
		return 0, dbError("delete finished runs", err)
	}
	r.logger.Info("finished runs deleted", "cutoff", cutoff, "deleted", n)
	return n, nil
}

func (r *analysisRunRepo) update(ctx context.Context, id uuid.UUID, op string, set func(*entsql.UpdateBuilder)) error {
	b := entsql.Dialect(r.drv.Dialect()).
		Update(tableAnalysisRuns).
		Where(entsql.EQ("id", id))
	set(b)
	n, err := execQuery(ctx, r.drv, b)
	if err != nil {
		r.logger.Error("failed to update analysis run", "op", op, "run_id", id, "error", err)
		return dbError(op, err)
	}
	if n == 0 {
		return common.NotFoundError("analysis run " + id.String())
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

type DeadlineRepository interface {
	// ReplaceForRun deletes the run's deadlines and inserts ds in one transaction.
	ReplaceForRun(ctx context.Context, runID uuid.UUID, ds []entity.Deadline) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]entity.Deadline, error)
	// ListUpcoming returns dated deadlines in [from, to), soonest first.
	ListUpcoming(ctx context.Context, from, to time.Time, limit int) ([]entity.Deadline, error)
}

type deadlineRepo struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewDeadlineRepository(drv *entsql.Driver, logger *slog.Logger) DeadlineRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &deadlineRepo{
		drv:    drv,
		logger: logger,
	}
}

var deadlineColumns = []string{
	"id", "run_id", "document_id", "type", "title", "description", "date",
	"date_formula", "is_recurring", "source_section", "created_at",
}

func (r *deadlineRepo) ReplaceForRun(ctx context.Context, runID uuid.UUID, ds []entity.Deadline) (err error) {
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return dbError("begin replace deadlines", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			r.logger.Error("failed to replace deadlines", "run_id", runID, "error", err)
		}
	}()

	del := entsql.Dialect(r.drv.Dialect()).
		Delete(tableDeadlines).
		Where(entsql.EQ("run_id", runID))
	if _, err = execQuery(ctx, tx, del); err != nil {
		return dbError("delete deadlines", err)
	}

	if len(ds) > 0 {
		ins := entsql.Dialect(r.drv.Dialect()).
			Insert(tableDeadlines).
			Columns(deadlineColumns...)
		ts := now()
		for i := range ds {
			d := &ds[i]
			if d.ID == uuid.Nil {
				d.ID = uuid.New()
			}
			d.RunID = runID
			if d.CreatedAt.IsZero() {
				d.CreatedAt = ts
			}
			var date any
			if d.Date != nil {
				date = d.Date.UTC()
			}
			ins.Values(d.ID, d.RunID, d.DocumentID, string(d.Type), d.Title, d.Description, date,
				d.DateFormula, d.IsRecurring, d.SourceSection, d.CreatedAt)
		}
		if _, err = execQuery(ctx, tx, ins); err != nil {
			return dbError("insert deadlines", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return dbError("commit deadlines", err)
	}
	r.logger.Debug("deadlines replaced", "run_id", runID, "count", len(ds))
	return nil
}

func (r *deadlineRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]entity.Deadline, error) {
	b := entsql.Dialect(r.drv.Dialect()).
		Select(deadlineColumns...).
		From(entsql.Table(tableDeadlines)).
		Where(entsql.EQ("run_id", runID)).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("title"))
	out, err := r.list(ctx, r.drv, b)
	if err != nil {
		r.logger.Error("failed to list deadlines", "run_id", runID, "error", err)
		return nil, dbError("list deadlines", err)
	}
	return out, nil
}

func (r *deadlineRepo) ListUpcoming(ctx context.Context, from, to time.Time, limit int) ([]entity.Deadline, error) {
	b := entsql.Dialect(r.drv.Dialect()).
		Select(deadlineColumns...).
		From(entsql.Table(tableDeadlines)).
		Where(entsql.And(
			entsql.NotNull("date"),
			entsql.GTE("date", from.UTC()),
			entsql.LT("date", to.UTC()),
		)).
		OrderBy(entsql.Asc("date"))
	if limit > 0 {
		b.Limit(limit)
	}
	out, err := r.list(ctx, r.drv, b)
	if err != nil {
		r.logger.Error("failed to list upcoming deadlines", "from", from, "to", to, "error", err)
		return nil, dbError("list upcoming deadlines", err)
	}
	return out, nil
}

func (r *deadlineRepo) list(ctx context.Context, q dialect.ExecQuerier, b entsql.Querier) ([]entity.Deadline, error) {
	out := []entity.Deadline{}
	err := queryRows(ctx, q, b, func(rows *entsql.Rows) error {
		var (
			d    entity.Deadline
			typ  string
			date sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.RunID, &d.DocumentID, &typ, &d.Title, &d.Description, &date,
			&d.DateFormula, &d.IsRecurring, &d.SourceSection, &d.CreatedAt); err != nil {
			return err
		}
		d.Type = entity.DeadlineType(typ)
		d.Date = nullTime(date)
		out = append(out, d)
		return nil
	})
	return out, err
}

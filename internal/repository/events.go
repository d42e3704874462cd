package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/events"
)

// appendAttempts bounds retries when two writers race for the same seq.
const appendAttempts = 3

// EventRepository persists progress events. It satisfies events.Store.
type EventRepository interface {
	events.Store
}

type eventRepo struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewEventRepository(drv *entsql.Driver, logger *slog.Logger) EventRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventRepo{
		drv:    drv,
		logger: logger,
	}
}

// AppendEvent assigns Seq (last seq + 1) and CreatedAt inside one transaction.
func (r *eventRepo) AppendEvent(ctx context.Context, ev *entity.ProgressEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Data == nil {
		ev.Data = map[string]any{}
	}
	data, err := marshalJSON(ev.Data)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= appendAttempts; attempt++ {
		lastErr = r.appendOnce(ctx, ev, data)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		r.logger.Warn("event append retry", "run_id", ev.RunID, "attempt", attempt, "error", lastErr)
	}
	r.logger.Error("failed to append event", "run_id", ev.RunID, "kind", ev.Kind, "error", lastErr)
	return dbError("append event", lastErr)
}

func (r *eventRepo) appendOnce(ctx context.Context, ev *entity.ProgressEvent, data string) (err error) {
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	seq, err := r.lastSeq(ctx, tx, ev.RunID)
	if err != nil {
		return err
	}
	createdAt := now()

	b := entsql.Dialect(r.drv.Dialect()).
		Insert(tableProgressEvents).
		Columns("id", "run_id", "seq", "kind", "message", "data", "created_at").
		Values(ev.ID, ev.RunID, seq+1, string(ev.Kind), ev.Message, data, createdAt)
	if _, err = execQuery(ctx, tx, b); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	ev.Seq = seq + 1
	ev.CreatedAt = createdAt
	return nil
}

func (r *eventRepo) lastSeq(ctx context.Context, q dialect.ExecQuerier, runID uuid.UUID) (int64, error) {
	b := entsql.Dialect(r.drv.Dialect()).
		Select("seq").
		From(entsql.Table(tableProgressEvents)).
		Where(entsql.EQ("run_id", runID)).
		OrderBy(entsql.Desc("seq")).
		Limit(1)
	var seq int64
	err := queryRows(ctx, q, b, func(rows *entsql.Rows) error {
		return rows.Scan(&seq)
	})
	return seq, err
}

// ReadEventsSince returns events with seq > afterSeq in seq order.
func (r *eventRepo) ReadEventsSince(ctx context.Context, runID uuid.UUID, afterSeq int64, limit int) ([]entity.ProgressEvent, error) {
	if limit <= 0 {
		limit = events.DefaultReadLimit
	}
	b := entsql.Dialect(r.drv.Dialect()).
		Select("id", "run_id", "seq", "kind", "message", "data", "created_at").
		From(entsql.Table(tableProgressEvents)).
		Where(entsql.And(
			entsql.EQ("run_id", runID),
			entsql.GT("seq", afterSeq),
		)).
		OrderBy(entsql.Asc("seq")).
		Limit(limit)

	out := []entity.ProgressEvent{}
	err := queryRows(ctx, r.drv, b, func(rows *entsql.Rows) error {
		var (
			ev   entity.ProgressEvent
			kind string
			data string
		)
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Seq, &kind, &ev.Message, &data, &ev.CreatedAt); err != nil {
			return err
		}
		ev.Kind = constants.EventKind(kind)
		ev.CreatedAt = ev.CreatedAt.UTC()
		if err := json.Unmarshal([]byte(data), &ev.Data); err != nil {
			return fmt.Errorf("decode event %d data: %w", ev.Seq, err)
		}
		if ev.Data == nil {
			ev.Data = map[string]any{}
		}
		out = append(out, ev)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to read events", "run_id", runID, "after", afterSeq, "error", err)
		return nil, dbError("read events", err)
	}
	return out, nil
}

package repository

import (
	"context"
	"database/sql"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	// SetExtraction writes text and extraction metadata only if the document has
	// no text yet. It reports whether this call wrote them.
	SetExtraction(ctx context.Context, id uuid.UUID, ex entity.Extraction) (bool, error)
	SetDetection(ctx context.Context, id uuid.UUID, language, jurisdiction string) error
}

type documentRepo struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewDocumentRepository(drv *entsql.Driver, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{
		drv:    drv,
		logger: logger,
	}
}

var documentColumns = []string{
	"id", "location", "filename", "format", "text", "page_count", "extraction_quality",
	"is_scanned", "extraction_method", "detected_language", "detected_jurisdiction",
	"created_at", "updated_at",
}

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	ts := now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = ts
	}
	doc.UpdatedAt = ts

	var text, lang, juris any
	if doc.Text != nil {
		text = *doc.Text
	}
	if doc.DetectedLanguage != nil {
		lang = *doc.DetectedLanguage
	}
	if doc.DetectedJurisdiction != nil {
		juris = *doc.DetectedJurisdiction
	}
	var quality any
	if doc.ExtractionQuality != nil {
		quality = *doc.ExtractionQuality
	}

	b := entsql.Dialect(r.drv.Dialect()).
		Insert(tableDocuments).
		Columns(documentColumns...).
		Values(doc.ID, doc.Location, doc.Filename, doc.Format, text, doc.PageCount, quality,
			doc.IsScanned, doc.ExtractionMethod, lang, juris, doc.CreatedAt, doc.UpdatedAt)
	if _, err := execQuery(ctx, r.drv, b); err != nil {
		r.logger.Error("failed to create document", "document_id", doc.ID, "filename", doc.Filename, "error", err)
		return dbError("create document", err)
	}
	r.logger.Debug("document created", "document_id", doc.ID, "format", doc.Format)
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	b := entsql.Dialect(r.drv.Dialect()).
		Select(documentColumns...).
		From(entsql.Table(tableDocuments)).
		Where(entsql.EQ("id", id)).
		Limit(1)

	var doc *entity.Document
	err := queryRows(ctx, r.drv, b, func(rows *entsql.Rows) error {
		var (
			d                 entity.Document
			text, lang, juris sql.NullString
			quality           sql.NullFloat64
		)
		if err := rows.Scan(&d.ID, &d.Location, &d.Filename, &d.Format, &text, &d.PageCount, &quality,
			&d.IsScanned, &d.ExtractionMethod, &lang, &juris, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return err
		}
		d.Text = nullString(text)
		d.ExtractionQuality = nullFloat(quality)
		d.DetectedLanguage = nullString(lang)
		d.DetectedJurisdiction = nullString(juris)
		doc = &d
		return nil
	})
	if err != nil {
		r.logger.Error("failed to get document", "document_id", id, "error", err)
		return nil, dbError("get document", err)
	}
	if doc == nil {
		return nil, common.NotFoundError("document " + id.String())
	}
	return doc, nil
}

func (r *documentRepo) SetExtraction(ctx context.Context, id uuid.UUID, ex entity.Extraction) (bool, error) {
	b := entsql.Dialect(r.drv.Dialect()).
		Update(tableDocuments).
		Set("text", ex.Text).
		Set("page_count", ex.PageCount).
		Set("extraction_quality", ex.Quality).
		Set("is_scanned", ex.IsScanned).
		Set("extraction_method", ex.Method).
		Set("updated_at", now()).
		Where(entsql.And(entsql.EQ("id", id), entsql.IsNull("text")))
	if ex.Format != "" {
		b.Set("format", ex.Format)
	}
	n, err := execQuery(ctx, r.drv, b)
	if err != nil {
		r.logger.Error("failed to set document extraction", "document_id", id, "error", err)
		return false, dbError("set extraction", err)
	}
	r.logger.Debug("document extraction stored", "document_id", id, "applied", n > 0, "chars", len(ex.Text))
	return n > 0, nil
}

func (r *documentRepo) SetDetection(ctx context.Context, id uuid.UUID, language, jurisdiction string) error {
	b := entsql.Dialect(r.drv.Dialect()).
		Update(tableDocuments).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id))
	if language != "" {
		b.Set("detected_language", language)
	} else {
		b.SetNull("detected_language")
	}
	if jurisdiction != "" {
		b.Set("detected_jurisdiction", jurisdiction)
	} else {
		b.SetNull("detected_jurisdiction")
	}
	n, err := execQuery(ctx, r.drv, b)
	if err != nil {
		r.logger.Error("failed to set document detection", "document_id", id, "error", err)
		return dbError("set detection", err)
	}
	if n == 0 {
		return common.NotFoundError("document " + id.String())
	}
	return nil
}

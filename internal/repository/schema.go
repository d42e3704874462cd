package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableDocuments      = "documents"
	tableAnalysisRuns   = "analysis_runs"
	tableProgressEvents = "progress_events"
	tableDeadlines      = "deadlines"
)

// textSize makes string columns unbounded text.
const textSize = 2147483647

var (
	// DocumentsColumns holds the columns for the "documents" table.
	DocumentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "location", Type: field.TypeString, Size: 2048},
		{Name: "filename", Type: field.TypeString},
		{Name: "format", Type: field.TypeString, Size: 16},
		{Name: "text", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "page_count", Type: field.TypeInt, Default: 0},
		{Name: "extraction_quality", Type: field.TypeFloat64, Nullable: true},
		{Name: "is_scanned", Type: field.TypeBool, Default: false},
		{Name: "extraction_method", Type: field.TypeString, Default: ""},
		{Name: "detected_language", Type: field.TypeString, Nullable: true},
		{Name: "detected_jurisdiction", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// DocumentsTable holds the schema information for the "documents" table.
	DocumentsTable = &schema.Table{
		Name:       tableDocuments,
		Columns:    DocumentsColumns,
		PrimaryKey: []*schema.Column{DocumentsColumns[0]},
	}

	// AnalysisRunsColumns holds the columns for the "analysis_runs" table.
	AnalysisRunsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "document_id", Type: field.TypeUUID},
		{Name: "status", Type: field.TypeString, Size: 16},
		{Name: "output_language", Type: field.TypeString, Size: 32},
		{Name: "user_role", Type: field.TypeString, Default: ""},
		{Name: "available_documents", Type: field.TypeJSON},
		{Name: "preparation", Type: field.TypeJSON, Nullable: true},
		{Name: "analysis", Type: field.TypeJSON, Nullable: true},
		{Name: "formatted_output", Type: field.TypeJSON, Nullable: true},
		{Name: "screening_result", Type: field.TypeString, Nullable: true},
		{Name: "quality_score", Type: field.TypeFloat64, Nullable: true},
		{Name: "confidence_level", Type: field.TypeString, Nullable: true},
		{Name: "model_used", Type: field.TypeString, Nullable: true},
		{Name: "tokens_used", Type: field.TypeInt, Default: 0},
		{Name: "error_message", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "error_class", Type: field.TypeString, Nullable: true},
		{Name: "error_trace", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "started_at", Type: field.TypeTime, Nullable: true},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
	}
	// AnalysisRunsTable holds the schema information for the "analysis_runs" table.
	AnalysisRunsTable = &schema.Table{
		Name:       tableAnalysisRuns,
		Columns:    AnalysisRunsColumns,
		PrimaryKey: []*schema.Column{AnalysisRunsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "analysis_runs_documents_runs",
				Columns:    []*schema.Column{AnalysisRunsColumns[1]},
				RefColumns: []*schema.Column{DocumentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "analysisrun_status_completed_at",
				Unique:  false,
				Columns: []*schema.Column{AnalysisRunsColumns[2], AnalysisRunsColumns[19]},
			},
			{
				Name:    "analysisrun_document_id",
				Unique:  false,
				Columns: []*schema.Column{AnalysisRunsColumns[1]},
			},
		},
	}

	// ProgressEventsColumns holds the columns for the "progress_events" table.
	ProgressEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "run_id", Type: field.TypeUUID},
		{Name: "seq", Type: field.TypeInt64},
		{Name: "kind", Type: field.TypeString, Size: 32},
		{Name: "message", Type: field.TypeString, Size: textSize},
		{Name: "data", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	// ProgressEventsTable holds the schema information for the "progress_events" table.
	ProgressEventsTable = &schema.Table{
		Name:       tableProgressEvents,
		Columns:    ProgressEventsColumns,
		PrimaryKey: []*schema.Column{ProgressEventsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "progress_events_analysis_runs_events",
				Columns:    []*schema.Column{ProgressEventsColumns[1]},
				RefColumns: []*schema.Column{AnalysisRunsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "progressevent_run_id_seq",
				Unique:  true,
				Columns: []*schema.Column{ProgressEventsColumns[1], ProgressEventsColumns[2]},
			},
		},
	}

	// DeadlinesColumns holds the columns for the "deadlines" table.
	DeadlinesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "run_id", Type: field.TypeUUID},
		{Name: "document_id", Type: field.TypeUUID},
		{Name: "type", Type: field.TypeString, Size: 32},
		{Name: "title", Type: field.TypeString, Size: 200},
		{Name: "description", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "date", Type: field.TypeTime, Nullable: true},
		{Name: "date_formula", Type: field.TypeString, Default: ""},
		{Name: "is_recurring", Type: field.TypeBool, Default: false},
		{Name: "source_section", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// DeadlinesTable holds the schema information for the "deadlines" table.
	DeadlinesTable = &schema.Table{
		Name:       tableDeadlines,
		Columns:    DeadlinesColumns,
		PrimaryKey: []*schema.Column{DeadlinesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "deadlines_analysis_runs_deadlines",
				Columns:    []*schema.Column{DeadlinesColumns[1]},
				RefColumns: []*schema.Column{AnalysisRunsColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "deadlines_documents_deadlines",
				Columns:    []*schema.Column{DeadlinesColumns[2]},
				RefColumns: []*schema.Column{DocumentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "deadline_run_id",
				Unique:  false,
				Columns: []*schema.Column{DeadlinesColumns[1]},
			},
			{
				Name:    "deadline_date",
				Unique:  false,
				Columns: []*schema.Column{DeadlinesColumns[6]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		DocumentsTable,
		AnalysisRunsTable,
		ProgressEventsTable,
		DeadlinesTable,
	}
)

func init() {
	AnalysisRunsTable.ForeignKeys[0].RefTable = DocumentsTable
	ProgressEventsTable.ForeignKeys[0].RefTable = AnalysisRunsTable
	DeadlinesTable.ForeignKeys[0].RefTable = AnalysisRunsTable
	DeadlinesTable.ForeignKeys[1].RefTable = DocumentsTable
}

// Migrate creates missing tables, columns and indexes. It never drops anything.
func Migrate(ctx context.Context, drv *entsql.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

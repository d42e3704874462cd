package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/async"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/storage"
)

const (
	maxRequestBody = 1 << 20
	maxRoleLength  = 100
)

type createDocumentRequest struct {
	Location string `json:"location"`
	Filename string `json:"filename"`
}

// handleCreateDocument registers a document that is already stored.
// POST /v1/documents
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		s.writeError(w, r, common.InvalidArgumentError("location is required"))
		return
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = filepath.Base(location)
	}
	format := constants.MapExtToFormat(filepath.Ext(filename))
	if format == "" {
		s.writeError(w, r, common.InvalidArgumentErrorf("unsupported file type %q; expected pdf or docx", filepath.Ext(filename)))
		return
	}
	if s.Storage != nil {
		if err := s.Storage.Stat(r.Context(), location); err != nil {
			s.writeError(w, r, storageError(err))
			return
		}
	}

	now := time.Now().UTC()
	doc := &entity.Document{
		ID:        uuid.New(),
		Location:  location,
		Filename:  filename,
		Format:    format,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Documents.Create(r.Context(), doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Logger.Info("server.document.created", "document_id", doc.ID, "format", format)
	writeJSON(w, http.StatusCreated, doc)
}

type createAnalysisRequest struct {
	DocumentID         string   `json:"document_id"`
	OutputLanguage     string   `json:"output_language"`
	UserRole           string   `json:"user_role"`
	AvailableDocuments []string `json:"available_documents"`
}

type createAnalysisReply struct {
	RunID     uuid.UUID           `json:"run_id"`
	Status    constants.RunStatus `json:"status"`
	StatusURL string              `json:"status_url"`
	EventsURL string              `json:"events_url"`
	StreamURL string              `json:"stream_url"`
}

// handleCreateAnalysis creates a queued run and hands it to the worker pool.
// POST /v1/analyses
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req createAnalysisRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rawID := strings.TrimSpace(req.DocumentID)
	lang := strings.ToLower(strings.TrimSpace(req.OutputLanguage))
	v := common.NewValidator().
		Field("document_id", rawID, common.Required, common.UUID).
		Field("output_language", lang, common.OneOf(constants.SupportedLanguages...)).
		Field("user_role", req.UserRole, common.MaxLength(maxRoleLength))
	if err := common.ValidateAndReturnError(v); err != nil {
		s.writeError(w, r, err)
		return
	}
	docID := uuid.MustParse(rawID)
	if lang == "" {
		lang = constants.LangEnglish
	}
	if _, err := s.Documents.Get(r.Context(), docID); err != nil {
		s.writeError(w, r, err)
		return
	}

	run := entity.NewAnalysisRun(docID, lang, strings.TrimSpace(req.UserRole), cleanList(req.AvailableDocuments))
	if err := s.Runs.Create(r.Context(), run); err != nil {
		s.writeError(w, r, err)
		return
	}

	job := async.Job{RunID: run.ID, SubmittedAt: time.Now(), TraceID: common.RequestIDFromContext(r.Context())}
	if err := s.Queue.Enqueue(r.Context(), job); err != nil {
		// the run would otherwise sit in queued forever
		msg := "could not queue run: " + err.Error()
		if ferr := s.Runs.MarkFailed(r.Context(), run.ID, entity.Failure{Message: msg, Class: constants.ErrorClassInternal}); ferr != nil {
			s.Logger.Error("server.analysis.mark_failed", "run_id", run.ID, "error", ferr)
		}
		s.writeError(w, r, queueError(err))
		return
	}

	s.Logger.Info("server.analysis.queued", "run_id", run.ID, "document_id", docID, "output_language", lang)
	base := "/v1/analyses/" + run.ID.String()
	writeJSON(w, http.StatusAccepted, createAnalysisReply{
		RunID:     run.ID,
		Status:    run.Status,
		StatusURL: base,
		EventsURL: base + "/events",
		StreamURL: base + "/stream",
	})
}

// handleGetAnalysis returns the run record.
// GET /v1/analyses/{id}
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.Runs.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type eventsReply struct {
	RunID  uuid.UUID              `json:"run_id"`
	Status constants.RunStatus    `json:"status"`
	Events []entity.ProgressEvent `json:"events"`
	// Next is the marker to pass as ?after= on the next poll.
	Next int64 `json:"next"`
}

// handleEvents returns events with seq > after in order.
// GET /v1/analyses/{id}/events?after=N
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	after, err := afterParam(r.URL.Query().Get("after"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := s.Runs.RunStatus(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	evs, err := s.Events.ReadSince(r.Context(), id, after)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	reply := eventsReply{RunID: id, Status: status, Events: evs, Next: after}
	if reply.Events == nil {
		reply.Events = []entity.ProgressEvent{}
	}
	if n := len(evs); n > 0 {
		reply.Next = evs[n-1].Seq
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleExport streams the XLSX workbook of a succeeded run.
// GET /v1/analyses/{id}/export.xlsx
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.Export == nil {
		s.writeError(w, r, common.NewAppError(common.CodeUnavailable, "export is not configured", nil))
		return
	}
	data, err := s.Export.ExportRunXLSX(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="analysis-`+id.String()+`.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.InvalidArgumentErrorf("invalid request body: %v", err)
	}
	return nil
}

func afterParam(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, common.InvalidArgumentError("after must be a non-negative integer")
	}
	return n, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return common.NotFoundError(err.Error())
	case errors.Is(err, storage.ErrUnsupportedLocation):
		return common.InvalidArgumentError(err.Error())
	}
	return err
}

func queueError(err error) error {
	switch {
	case errors.Is(err, async.ErrDuplicateRun):
		return common.NewAppError(common.CodeConflict, err.Error(), common.ErrConflict)
	case errors.Is(err, async.ErrQueueClosed):
		return common.NewAppError(common.CodeUnavailable, err.Error(), err)
	}
	return err
}

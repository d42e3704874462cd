package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/events"
)

// handleStream pushes the run's events as server-sent events until a terminal
// event, the stream's maximum duration or client disconnect. Each frame is
// "data: {event json}\n\n"; the stream ends with an "event: close" frame.
// GET /v1/analyses/{id}/stream?after=N
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	raw := r.URL.Query().Get("after")
	if raw == "" {
		raw = r.Header.Get("Last-Event-ID")
	}
	after, err := afterParam(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.Runs.RunStatus(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, common.InternalError("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	streamer := events.Streamer{
		Reader:      s.Events,
		Status:      s.Runs,
		Interval:    s.PollInterval,
		MaxDuration: s.MaxStreamDuration,
		Logger:      s.Logger,
	}
	sent := 0
	err = streamer.Stream(r.Context(), id, after, func(ev entity.ProgressEvent) error {
		if err := writeEvent(w, ev); err != nil {
			return err
		}
		flusher.Flush()
		sent++
		return nil
	})
	switch {
	case err == nil, errors.Is(err, events.ErrStreamTimeout):
	case errors.Is(err, context.Canceled):
		s.Logger.Debug("server.stream.client_gone", "run_id", id, "sent", sent)
		return
	default:
		s.Logger.Warn("server.stream.failed", "run_id", id, "sent", sent, "error", err)
	}
	_, _ = fmt.Fprint(w, "event: close\ndata: {}\n\n")
	flusher.Flush()
	s.Logger.Info("server.stream.closed", "run_id", id, "sent", sent)
}

func writeEvent(w http.ResponseWriter, ev entity.ProgressEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.Seq > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", ev.Seq); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

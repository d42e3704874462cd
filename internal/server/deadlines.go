package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

const (
	defaultUpcomingDays  = 30
	maxUpcomingDays      = 366
	defaultUpcomingLimit = 100
	maxUpcomingLimit     = 500
)

type upcomingReply struct {
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Deadlines []entity.Deadline `json:"deadlines"`
}

// handleUpcomingDeadlines lists dated deadlines in the next N days, soonest first.
// GET /v1/deadlines/upcoming?days=30&limit=100
func (s *Server) handleUpcomingDeadlines(w http.ResponseWriter, r *http.Request) {
	if s.Deadlines == nil {
		s.writeError(w, r, common.NewAppError(common.CodeUnavailable, "deadlines are not configured", nil))
		return
	}
	days, err := intParam(r, "days", defaultUpcomingDays, maxUpcomingDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", defaultUpcomingLimit, maxUpcomingLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	from := time.Now().UTC()
	to := from.AddDate(0, 0, days)
	list, err := s.Deadlines.ListUpcoming(r.Context(), from, to, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []entity.Deadline{}
	}
	writeJSON(w, http.StatusOK, upcomingReply{From: from, To: to, Deadlines: list})
}

// intParam reads a positive query integer, falling back to def when absent.
func intParam(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > max {
		return 0, common.InvalidArgumentErrorf("%s must be an integer between 1 and %d", name, max)
	}
	return n, nil
}

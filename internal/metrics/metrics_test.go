package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRedactions_SkipsZeroCounts(t *testing.T) {
	before := testutil.ToFloat64(redactionsMetric.WithLabelValues("email"))

	ObserveRedactions(map[string]int{"email": 2, "phone": 0})

	assert.Equal(t, before+2, testutil.ToFloat64(redactionsMetric.WithLabelValues("email")))
}

func TestRunCounters(t *testing.T) {
	before := testutil.ToFloat64(runsTotalMetric.WithLabelValues("succeeded"))
	ObserveRunFinished("succeeded")
	assert.Equal(t, before+1, testutil.ToFloat64(runsTotalMetric.WithLabelValues("succeeded")))

	inFlight := testutil.ToFloat64(runsInFlightMetric)
	RunStarted()
	assert.Equal(t, inFlight+1, testutil.ToFloat64(runsInFlightMetric))
	RunDone()
	assert.Equal(t, inFlight, testutil.ToFloat64(runsInFlightMetric))

	ObserveLLMCall("analysis", OutcomeOK)
	assert.GreaterOrEqual(t, testutil.ToFloat64(llmCallsMetric.WithLabelValues("analysis", OutcomeOK)), 1.0)

	ObserveStage("preparation", 2*time.Second)
	assert.Equal(t, 1, testutil.CollectAndCount(stageDurationMetric, namespace+"_"+stageDuration))
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := NewMiddleware()
	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/v1/analyses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyses/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("418", http.MethodGet, "/v1/analyses/{id}")))
}

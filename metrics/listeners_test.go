package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHooksRunUntilRemoved(t *testing.T) {
	calls := make([]string, 0)
	removeA := OnBeforeMetricsRequested(func() { calls = append(calls, "a") })
	removeB := OnBeforeMetricsRequested(func() { calls = append(calls, "b") })
	defer removeB()

	RefreshGauges()
	assert.Equal(t, []string{"a", "b"}, calls)

	removeA()
	removeA()
	calls = calls[:0]
	RefreshGauges()
	assert.Equal(t, []string{"b"}, calls)
}

func TestScrapeRefreshesFirst(t *testing.T) {
	refreshed := false
	defer OnBeforeMetricsRequested(func() { refreshed = true })()

	h := withBeforeMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, refreshed)
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

package metrics

import (
	"net/http"
	"sync"
)

type beforeMetricsFn struct {
	fn func()
}

var beforeMetricsCalledFns = make([]*beforeMetricsFn, 0)
var listenersLock = &sync.Mutex{}

// OnBeforeMetricsRequested registers fn to refresh gauges right before a
// scrape. The returned func unregisters it and may be called more than once.
func OnBeforeMetricsRequested(fn func()) func() {
	l := &beforeMetricsFn{fn: fn}
	listenersLock.Lock()
	defer listenersLock.Unlock()
	beforeMetricsCalledFns = append(beforeMetricsCalledFns, l)

	return func() {
		listenersLock.Lock()
		defer listenersLock.Unlock()
		for i, other := range beforeMetricsCalledFns {
			if other == l {
				beforeMetricsCalledFns = append(beforeMetricsCalledFns[:i], beforeMetricsCalledFns[i+1:]...)
				return
			}
		}
	}
}

// RefreshGauges runs every registered hook. Scrapes of the metrics listener
// do this first.
func RefreshGauges() {
	listenersLock.Lock()
	fns := make([]*beforeMetricsFn, len(beforeMetricsCalledFns))
	copy(fns, beforeMetricsCalledFns)
	listenersLock.Unlock()

	for _, l := range fns {
		l.fn()
	}
}

func withBeforeMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RefreshGauges()
		next.ServeHTTP(w, r)
	})
}

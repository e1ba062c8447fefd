package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lespas_cache_hits_total",
}, []string{"cache"})
var CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lespas_cache_misses_total",
}, []string{"cache"})
var CacheEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lespas_cache_evictions_total",
}, []string{"cache", "reason"})
var CacheNumItems = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "lespas_cache_num_items",
}, []string{"cache"})
var CacheNumBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "lespas_cache_num_bytes_used",
}, []string{"cache"})
var RangeRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lespas_range_requests_total",
}, []string{"kind"})
var RangeRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lespas_range_retries_total",
}, []string{"kind"})
var TasksSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "lespas_tasks_submitted_total",
})
var TasksCancelled = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lespas_tasks_cancelled_total",
}, []string{"reason"})
var TierOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lespas_fetch_tier_outcomes_total",
}, []string{"kind", "tier", "outcome"})
var ArtifactsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lespas_artifacts_delivered_total",
}, []string{"kind", "placeholder"})
var HttpResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lespas_http_responses_total",
}, []string{"host", "method", "statusCode"})
var HttpResponseTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "lespas_http_response_time_seconds",
}, []string{"host", "method"})

func init() {
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CacheEvictions)
	prometheus.MustRegister(CacheNumItems)
	prometheus.MustRegister(CacheNumBytes)
	prometheus.MustRegister(RangeRequests)
	prometheus.MustRegister(RangeRetries)
	prometheus.MustRegister(TasksSubmitted)
	prometheus.MustRegister(TasksCancelled)
	prometheus.MustRegister(TierOutcomes)
	prometheus.MustRegister(ArtifactsDelivered)
	prometheus.MustRegister(HttpResponses)
	prometheus.MustRegister(HttpResponseTime)
}

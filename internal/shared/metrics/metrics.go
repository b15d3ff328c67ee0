package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	analysisStartedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_analysis_started_total",
		Help: "Total analyses started",
	}, []string{"mode"})
	analysisCompletedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_analysis_completed_total",
		Help: "Total analyses completed",
	}, []string{"mode"})
	analysisFailedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_analysis_failed_total",
		Help: "Total analyses failed",
	}, []string{"mode"})
	analysisDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_analysis_duration_ms",
		Help:    "Analysis duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	audioGeneratedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_audio_generated_total",
		Help: "Narration synthesis attempts by outcome",
	}, []string{"result"})
	uploadsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_uploads_total",
		Help: "Work uploads by outcome",
	}, []string{"result"})
	rateLimitedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_rate_limited_total",
		Help: "Requests rejected by the rate limiter per group",
	}, []string{"group"})
	httpRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted(mode string) {
	analysisStartedTotal.WithLabelValues(mode).Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted(mode string) {
	analysisCompletedTotal.WithLabelValues(mode).Inc()
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed(mode string) {
	analysisFailedTotal.WithLabelValues(mode).Inc()
}

// ObserveAnalysisDuration records an analysis duration.
func ObserveAnalysisDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(float64(d) / float64(time.Millisecond))
}

// IncAudio counts a narration outcome ("ok", "failed", "skipped").
func IncAudio(result string) {
	audioGeneratedTotal.WithLabelValues(result).Inc()
}

// IncUpload counts an upload outcome ("ok", "rejected", "failed").
func IncUpload(result string) {
	uploadsTotal.WithLabelValues(result).Inc()
}

// IncRateLimited counts a request rejected in the given limiter group.
func IncRateLimited(group string) {
	rateLimitedTotal.WithLabelValues(group).Inc()
}

// Middleware counts requests per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

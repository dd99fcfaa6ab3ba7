package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.ready(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleRateLimited is called by the limiter after it sets Retry-After.
func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again shortly").Write(w)
}

// handleMetrics provides application and security metrics in a
// Prometheus-like plain text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	rateMetrics := s.limiter.GetMetrics()
	dashHits, dashMisses := s.dashboards.Stats()
	trendHits, trendMisses := s.trends.Stats()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	writeMetric(w, "bills_created_total", "counter", "Bills created", s.metrics.billsCreated.Load())
	writeMetric(w, "bills_updated_total", "counter", "Bills updated", s.metrics.billsUpdated.Load())
	writeMetric(w, "bills_deleted_total", "counter", "Bills deleted", s.metrics.billsDeleted.Load())
	writeMetric(w, "optimize_runs_total", "counter", "Budget optimizations run", s.metrics.optimizeRuns.Load())

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total{cache=\"dashboard\"} %d\n", dashHits)
	fmt.Fprintf(w, "cache_hits_total{cache=\"trend\"} %d\n\n", trendHits)
	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total{cache=\"dashboard\"} %d\n", dashMisses)
	fmt.Fprintf(w, "cache_misses_total{cache=\"trend\"} %d\n\n", trendMisses)
	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{cache=\"dashboard\"} %d\n", s.dashboardCache.Size())
	fmt.Fprintf(w, "cache_entries{cache=\"trend\"} %d\n\n", s.trendCache.Size())
	fmt.Fprintf(w, "# HELP cache_evictions_total Entries evicted by the size bound\n# TYPE cache_evictions_total counter\n")
	fmt.Fprintf(w, "cache_evictions_total{cache=\"dashboard\"} %d\n", s.dashboardCache.Evictions())
	fmt.Fprintf(w, "cache_evictions_total{cache=\"trend\"} %d\n\n", s.trendCache.Evictions())

	writeMetric(w, "rate_limit_rejections_total", "counter", "Requests rejected by the rate limiter", rateMetrics.TotalHits)
	writeMetric(w, "rate_limit_active_clients", "gauge", "Clients tracked by the rate limiter", rateMetrics.ClientCount)
	writeMetric(w, "security_suspicious_requests_total", "counter", "Requests flagged as suspicious", s.detector.SuspiciousRequests())
	writeMetric(w, "uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.metrics.startedAt).Seconds()))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
}

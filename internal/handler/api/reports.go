package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ForecastBench/internal/domain/models"
	icache "ForecastBench/internal/service/cache"
	"ForecastBench/internal/service/metrics"
	"ForecastBench/internal/service/ratelimit"
	"ForecastBench/internal/usecase"
	applogger "ForecastBench/pkg/logger"
	xutil "ForecastBench/pkg/util"
)

// ReportsHandler serves cached report views over plain net/http. It fronts
// the recompute-heavy endpoints with a byte cache and per-client rate limits.
type ReportsHandler struct {
	reports *usecase.ReportsUseCase
	cache   icache.BytesCache
	rl      *ratelimit.Limiter
	l       *applogger.Logger
}

func NewReportsHandler(reports *usecase.ReportsUseCase) *ReportsHandler {
	metrics.Register()
	return &ReportsHandler{reports: reports, rl: ratelimit.New()}
}

func (h *ReportsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *ReportsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *ReportsHandler) Leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "leaderboard"
		defer func() { metrics.ReportLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		hz := models.NormalizeHorizon(r.URL.Query().Get("horizon"))
		limit := xutil.ParseIntDefault(r.URL.Query().Get("limit"), 20)
		if !h.rl.Allow(r.RemoteAddr+":leaderboard", 5, 2) {
			if h.l != nil {
				h.l.Warn("reports.leaderboard rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := fmt.Sprintf("leaderboard:%s:%d", hz, limit)
		if b, ok := h.getCached(cacheKey, endpoint); ok {
			h.write(w, b, endpoint)
			return
		}
		res, err := h.reports.GetLeaderboard(r.Context(), hz, limit)
		if err != nil {
			metrics.ReportErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("reports.leaderboard error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.respond(w, res, cacheKey, endpoint, 30*time.Second)
	}
}

func (h *ReportsHandler) Ensemble() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "ensemble"
		defer func() { metrics.ReportLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		hz := models.NormalizeHorizon(r.URL.Query().Get("horizon"))
		from := xutil.ParseIntDefault(r.URL.Query().Get("from"), 0)
		limit := xutil.ParseIntDefault(r.URL.Query().Get("limit"), 100)
		if !h.rl.Allow(r.RemoteAddr+":ensemble", 5, 2) {
			if h.l != nil {
				h.l.Warn("reports.ensemble rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		res, err := h.reports.GetEnsembleRounds(r.Context(), hz, from, limit)
		if err != nil {
			metrics.ReportErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("reports.ensemble error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.respond(w, res, "", endpoint, 0)
	}
}

func (h *ReportsHandler) getCached(key, endpoint string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		if h.l != nil {
			h.l.Warn("reports."+endpoint+" cache_get_error", applogger.Error(err))
		}
		return nil, false
	}
	if ok && h.l != nil {
		h.l.Debug("reports."+endpoint+" cache_hit", applogger.String("key", key))
	}
	return b, ok
}

func (h *ReportsHandler) respond(w http.ResponseWriter, res interface{}, cacheKey, endpoint string, ttl time.Duration) {
	b, err := json.Marshal(res)
	if err != nil {
		if h.l != nil {
			h.l.Error("reports."+endpoint+" marshal_error", applogger.Error(err))
		}
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	if h.cache != nil && cacheKey != "" && ttl > 0 {
		if err := h.cache.SetBytes(cacheKey, b, ttl); err != nil && h.l != nil {
			h.l.Warn("reports."+endpoint+" cache_set_error", applogger.Error(err))
		}
	}
	h.write(w, b, endpoint)
}

func (h *ReportsHandler) write(w http.ResponseWriter, b []byte, endpoint string) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn("reports."+endpoint+" write_error", applogger.Error(err))
	}
}

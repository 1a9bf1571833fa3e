package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/ratelimit"
)

// RouterConfig holds the optional pieces of the middleware chain.
type RouterConfig struct {
	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
	CORS    middleware.CORSConfig
	Timeout time.Duration
	// AdminKeys guards the cache invalidation endpoint when set.
	AdminKeys middleware.KeyValidator
}

// NewRouter builds the HTTP handler.
//
// Route table:
//
//	POST /api/v1/analyze              full analysis report
//	POST /api/v1/words                word frequencies only
//	GET  /api/v1/history              recent analyses
//	GET  /api/v1/history/{id}         one analysis
//	GET  /api/v1/stats                aggregated statistics
//	GET  /api/v1/stats/snapshots      persisted statistics snapshots
//	GET  /api/v1/cache/stats          cache counters
//	POST /api/v1/cache/invalidate     drop cached reports (admin key)
//	GET  /health/live, /health/ready  probes
//
// Middleware chain (outermost first):
//
//	RequestID → AccessLog → CORS → RateLimit → Metrics → Timeout → mux
func NewRouter(h *Handler, checker *health.Checker, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mux.HandleFunc("POST /api/v1/analyze", h.Analyze)
	mux.HandleFunc("POST /api/v1/words", h.Words)
	mux.HandleFunc("GET /api/v1/history", h.History)
	mux.HandleFunc("GET /api/v1/history/{id}", h.HistoryRecord)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/stats/snapshots", h.StatsSnapshots)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	var invalidate http.Handler = http.HandlerFunc(h.CacheInvalidate)
	if cfg.AdminKeys != nil {
		invalidate = middleware.RequireAPIKey(cfg.AdminKeys)(invalidate)
	}
	mux.Handle("POST /api/v1/cache/invalidate", invalidate)

	var chain http.Handler = mux
	if cfg.Timeout > 0 {
		chain = middleware.Timeout(cfg.Timeout)(chain)
	}
	chain = middleware.Metrics(cfg.Metrics)(chain)
	if cfg.Limiter != nil {
		chain = middleware.RateLimit(cfg.Limiter)(chain)
	}
	chain = middleware.CORS(cfg.CORS)(chain)
	chain = middleware.AccessLog(chain)
	chain = middleware.RequestID(chain)

	return chain
}

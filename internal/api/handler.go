// Package api exposes the analysis pipeline over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/analysis/cache"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/events"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/history"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/wordfreq"
	apperrors "github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
)

const (
	// jsonEscapeFactor covers the worst-case growth of text inside a JSON
	// string: one byte may be sent as a six-byte \uXXXX escape.
	jsonEscapeFactor = 6
	// jsonOverhead is the allowance for JSON framing.
	jsonOverhead = 4096
)

type Analyzer interface {
	Analyze(ctx context.Context, text string) (*analysis.Report, error)
	Words(ctx context.Context, text string, limit int) (wordfreq.Frequencies, error)
}

type HistoryReader interface {
	List(ctx context.Context, limit int) ([]history.Record, error)
	Get(ctx context.Context, id int64) (*history.Record, error)
	ListSnapshots(ctx context.Context, limit int) ([]history.Snapshot, error)
}

type ReportCache interface {
	Stats(ctx context.Context) cache.Stats
	Invalidate(ctx context.Context) (int64, error)
}

// Handler serves the /api/v1 routes. History, Cache and Stats may be nil;
// their routes then answer 503.
type Handler struct {
	analyzer     Analyzer
	history      HistoryReader
	cache        ReportCache
	stats        events.StatsSource
	maxTextBytes int
	logger       *slog.Logger
}

type Options struct {
	History      HistoryReader
	Cache        ReportCache
	Stats        events.StatsSource
	MaxTextBytes int
}

func NewHandler(analyzer Analyzer, opts Options) *Handler {
	if opts.MaxTextBytes <= 0 {
		opts.MaxTextBytes = 1 << 20
	}
	return &Handler{
		analyzer:     analyzer,
		history:      opts.History,
		cache:        opts.Cache,
		stats:        opts.Stats,
		maxTextBytes: opts.MaxTextBytes,
		logger:       logger.WithComponent("api-handler"),
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type wordsRequest struct {
	Text  string `json:"text"`
	Limit int    `json:"limit"`
}

type wordsResponse struct {
	Words wordfreq.Frequencies `json:"words"`
	Count int                  `json:"count"`
}

// Analyze accepts {"text": "..."} or a text/plain body (the contents of an
// uploaded .txt file) and returns the full report.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	text, err := h.readText(w, r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	report, err := h.analyzer.Analyze(r.Context(), text)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// Words returns only the word-frequency table.
func (h *Handler) Words(w http.ResponseWriter, r *http.Request) {
	var req wordsRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if req.Limit < 0 {
		h.writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}
	words, err := h.analyzer.Words(r.Context(), req.Text, req.Limit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, wordsResponse{Words: words, Count: len(words)})
}

// History lists recent analyses, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}
	limit, ok := h.limitParam(w, r)
	if !ok {
		return
	}
	records, err := h.history.List(r.Context(), limit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
}

// HistoryRecord returns one analysis by id.
func (h *Handler) HistoryRecord(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}
	rec, err := h.history.Get(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// Stats returns the aggregated event statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeError(w, http.StatusServiceUnavailable, "statistics are disabled")
		return
	}
	events.NewHandler(h.stats).Stats(w, r)
}

// StatsSnapshots lists persisted statistics snapshots.
func (h *Handler) StatsSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}
	limit, ok := h.limitParam(w, r)
	if !ok {
		return
	}
	snaps, err := h.history.ListSnapshots(r.Context(), limit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps, "count": len(snaps)})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) readText(w http.ResponseWriter, r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "text/plain" {
		var req analyzeRequest
		if err := h.decode(w, r, &req); err != nil {
			return "", err
		}
		return req.Text, nil
	}
	body := http.MaxBytesReader(w, r.Body, int64(h.maxTextBytes)+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return "", bodyError(err, h.maxTextBytes)
	}
	return analysis.DecodeText(data)
}

// decode reads a JSON body. The body cap only guards memory; the decoded
// text is checked against maxTextBytes by the analysis service.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	limit := jsonEscapeFactor*h.maxTextBytes + jsonOverhead
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, int64(limit)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return bodyError(err, limit)
	}
	return nil
}

func bodyError(err error, limit int) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.Newf(apperrors.ErrTextTooLarge, http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", limit)
	}
	return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err)
}

func (h *Handler) limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.writeError(w, status, apperrors.Message(err, http.StatusText(status)))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Package handler exposes the similarity commands over HTTP. Every route is a
// thin translation onto a parser.Command run through the dispatcher, so the
// REST routes and POST /api/v1/query share caching, k bounds and analytics.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/dispatch"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 16

type Handler struct {
	dispatcher *dispatch.Dispatcher
	defaultK   int
	logger     *slog.Logger
}

func New(d *dispatch.Dispatcher, defaultK int) *Handler {
	return &Handler{
		dispatcher: d,
		defaultK:   defaultK,
		logger:     slog.Default().With("component", "query-handler"),
	}
}

// Response is the JSON body of a successful command.
type Response struct {
	*executor.Result
	Cache     string `json:"cache,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Routes registers every query route on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/query", h.Query)
	mux.HandleFunc("GET /api/v1/categories/{category}/terms", h.TopTerms)
	mux.HandleFunc("GET /api/v1/stems/{stem}/categories", h.TopCategories)
	mux.HandleFunc("GET /api/v1/score", h.Score)
	mux.HandleFunc("GET /api/v1/documents/{doc}/{mode}", h.Members)
	mux.HandleFunc("POST /api/v1/export", h.Export)
	mux.HandleFunc("GET /api/v1/corpus", h.Corpus)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Query runs a raw command: {"command": "@ E14 10"}.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Command string `json:"command"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Command == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidCommand, http.StatusBadRequest, `body must be {"command": "..."}`))
		return
	}
	start := time.Now()
	res, tier, err := h.dispatcher.DispatchString(r.Context(), body.Command, analytics.SourceHTTP)
	h.respond(w, r, start, res, tier, err)
}

func (h *Handler) TopTerms(w http.ResponseWriter, r *http.Request) {
	k, err := h.parseK(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.run(w, r, parser.TopTerms{Category: r.PathValue("category"), K: k})
}

func (h *Handler) TopCategories(w http.ResponseWriter, r *http.Request) {
	k, err := h.parseK(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.run(w, r, parser.TopCategories{Stem: r.PathValue("stem"), K: k})
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	stem, category := r.URL.Query().Get("stem"), r.URL.Query().Get("category")
	if stem == "" || category == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidCommand, http.StatusBadRequest, "query parameters 'stem' and 'category' are required"))
		return
	}
	h.run(w, r, parser.PairScore{Stem: stem, Category: category})
}

// Members serves /documents/{doc}/categories and /documents/{doc}/terms;
// ?count=true returns the count instead of the list.
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	var mode parser.Mode
	switch r.PathValue("mode") {
	case "categories":
		mode = parser.ModeCategory
	case "terms":
		mode = parser.ModeTerm
	default:
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidCommand, http.StatusNotFound, "unknown membership %q", r.PathValue("mode")))
		return
	}
	doc := r.PathValue("doc")
	if count, _ := strconv.ParseBool(r.URL.Query().Get("count")); count {
		h.run(w, r, parser.MemberCount{DocID: doc, Mode: mode})
		return
	}
	h.run(w, r, parser.Members{DocID: doc, Mode: mode})
}

// Export runs the full matrix into {"destination": "scores.xlsx"}. Where the
// file lands is up to the dispatcher's sink opener.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Destination string `json:"destination"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Destination == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidCommand, http.StatusBadRequest, `body must be {"destination": "..."}`))
		return
	}
	h.run(w, r, parser.Matrix{Destination: body.Destination})
}

func (h *Handler) Corpus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.dispatcher.Executor().Corpus().Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.dispatcher.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, c.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	c := h.dispatcher.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "caching is disabled", Kind: "unavailable"})
		return
	}
	if err := c.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, cmd parser.Command) {
	start := time.Now()
	res, tier, err := h.dispatcher.Dispatch(r.Context(), cmd, analytics.SourceHTTP)
	h.respond(w, r, start, res, tier, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, start time.Time, res *executor.Result, tier cache.Tier, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	latency := time.Since(start).Milliseconds()
	logger.FromContext(r.Context()).Debug("command served",
		"command", res.Command,
		"cache", tier,
		"latency_ms", latency,
	)
	h.writeJSON(w, http.StatusOK, Response{Result: res, Cache: cacheLabel(tier), LatencyMs: latency})
}

func (h *Handler) parseK(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("k")
	if raw == "" {
		return h.defaultK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, apperrors.Newf(apperrors.ErrInvalidCommand, http.StatusBadRequest, "k must be a positive integer, got %q", raw)
	}
	return k, nil
}

func cacheLabel(tier cache.Tier) string {
	if tier == cache.TierNone {
		return "miss"
	}
	return string(tier)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	kind := apperrors.Kind(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status, kind = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		status, kind = http.StatusServiceUnavailable, "canceled"
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

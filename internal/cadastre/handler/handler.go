// Package handler exposes cadastral resolution over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/providers"
	"catastro/internal/cadastre/service"
	"catastro/pkg/platform/httputil"
	"catastro/pkg/requestcontext"
)

// Service defines the resolution operations the handler serves.
type Service interface {
	ResolveByCoordinates(ctx context.Context, coords models.GeoCoordinates) models.CadastralResult
	ResolveByAddress(ctx context.Context, address string) models.CadastralResult
	ResolveCandidates(ctx context.Context, coords models.GeoCoordinates, limit int) (service.Candidates, error)
	Health(ctx context.Context) service.Health
	ClearCache(ctx context.Context) (int, error)
	ResetBreakers(ctx context.Context)
}

// Handler wires cadastre endpoints to the resolution service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a handler. A nil logger discards output.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the cadastre endpoints and the health check on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/cadastre", func(r chi.Router) {
		r.Get("/coordinates", h.HandleCoordinates)
		r.Get("/address", h.HandleAddress)
		r.Get("/candidates", h.HandleCandidates)
		r.Delete("/cache", h.HandleClearCache)
		r.Post("/breakers/reset", h.HandleResetBreakers)
	})
	r.Get("/health", h.HandleHealth)
}

// HandleCoordinates handles GET /v1/cadastre/coordinates?lat=&lng=.
// Resolution failures are 200 responses carrying the error in the body.
func (h *Handler) HandleCoordinates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coords, err := parseCoordinates(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	start := time.Now()
	result := h.service.ResolveByCoordinates(ctx, coords)
	h.logResult(ctx, "coordinates", result, start)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleAddress handles GET /v1/cadastre/address?q=.
func (h *Handler) HandleAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httputil.WriteError(w, httputil.BadRequest("q is required"))
		return
	}

	start := time.Now()
	result := h.service.ResolveByAddress(ctx, q)
	h.logResult(ctx, "address", result, start)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleCandidates handles GET /v1/cadastre/candidates?lat=&lng=&limit=.
func (h *Handler) HandleCandidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coords, err := parseCoordinates(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, httputil.BadRequest("limit must be an integer"))
			return
		}
	}

	out, err := h.service.ResolveCandidates(ctx, coords, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "candidate lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, candidatesError(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleClearCache handles DELETE /v1/cadastre/cache.
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	removed, err := h.service.ClearCache(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "cache clear failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, httputil.Internal("cache clear failed", err))
		return
	}
	h.logger.InfoContext(ctx, "cache cleared",
		"request_id", requestcontext.RequestID(ctx),
		"removed", removed,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// HandleResetBreakers handles POST /v1/cadastre/breakers/reset.
func (h *Handler) HandleResetBreakers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.service.ResetBreakers(ctx)
	h.logger.InfoContext(ctx, "tier circuits reset",
		"request_id", requestcontext.RequestID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth handles GET /health. A degraded report is served with 503.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.service.Health(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, report)
}

func (h *Handler) logResult(ctx context.Context, operation string, result models.CadastralResult, start time.Time) {
	h.logger.InfoContext(ctx, "cadastre resolved",
		"request_id", requestcontext.RequestID(ctx),
		"operation", operation,
		"source", result.APISource.String(),
		"has_reference", result.HasReference(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func parseCoordinates(r *http.Request) (models.GeoCoordinates, error) {
	q := r.URL.Query()
	rawLat, rawLng := q.Get("lat"), q.Get("lng")
	if rawLat == "" || rawLng == "" {
		return models.GeoCoordinates{}, httputil.BadRequest("lat and lng are required")
	}
	lat, err := parseDegrees(rawLat)
	if err != nil {
		return models.GeoCoordinates{}, httputil.BadRequest("lat is not a number")
	}
	lng, err := parseDegrees(rawLng)
	if err != nil {
		return models.GeoCoordinates{}, httputil.BadRequest("lng is not a number")
	}
	return models.GeoCoordinates{Lat: lat, Lng: lng}, nil
}

// parseDegrees accepts a decimal comma as well as a point.
func parseDegrees(raw string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.TrimSpace(raw), ",", ".", 1), 64)
}

func candidatesError(err error) error {
	switch {
	case errors.Is(err, models.ErrOutOfTerritory), errors.Is(err, models.ErrInvalidCoordinates):
		return httputil.BadRequest(err.Error())
	case errors.Is(err, service.ErrCandidatesUnavailable):
		return &httputil.Error{Code: httputil.CodeUnavailable, Status: http.StatusServiceUnavailable, Message: err.Error()}
	default:
		var pe *providers.ProviderError
		if errors.As(err, &pe) {
			return &httputil.Error{Code: httputil.CodeUpstream, Status: http.StatusBadGateway, Message: pe.Message, Cause: err}
		}
		return httputil.Internal("candidate lookup failed", err)
	}
}

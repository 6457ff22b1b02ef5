package similarity

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-alternative-pois/internal/api"
	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// FindAlternatives handles the full pipeline request: resolve targets and
// candidates, build a session index and return ranked alternatives per target.
func (h *Handler) FindAlternatives(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FinderHandler").Start(r.Context(), "FindAlternatives", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/alternatives"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "FindAlternatives"))

	var req types.AlternativesRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Targets) == 0 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "at least one target is required")
		return
	}
	if len(req.Candidates) == 0 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "at least one candidate is required")
		return
	}
	if req.UserLat < -90 || req.UserLat > 90 || req.UserLon < -180 || req.UserLon > 180 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "user_lat/user_lon out of range")
		return
	}
	if req.Alpha != nil && (*req.Alpha < 0 || *req.Alpha > 1) {
		api.ErrorResponse(w, r, http.StatusBadRequest, "alpha must be within [0,1]")
		return
	}

	responses, err := h.service.FindAlternatives(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrEmbeddingUnavailable) {
			l.ErrorContext(ctx, "Embedding collaborator unavailable", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadGateway, "embedding service unavailable")
			return
		}
		l.ErrorContext(ctx, "Alternative search failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "alternative search failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, responses)
}

package resolver

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

// ResolvePOI resolves one place name into a canonical record.
func (h *Handler) ResolvePOI(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResolverHandler").Start(r.Context(), "ResolvePOI", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/pois/resolve"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ResolvePOI"))

	var req types.ResolveRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "name is required")
		return
	}

	record, err := h.service.Resolve(ctx, req.Name, req.Hint)
	if err != nil {
		if errors.Is(err, types.ErrGeocodeNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "no place found for that name")
			return
		}
		l.ErrorContext(ctx, "Resolution failed", slog.String("name", req.Name), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "resolution failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, record)
}

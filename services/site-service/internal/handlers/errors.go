package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/seiflawfirm/site/libs/httpx"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
	"github.com/seiflawfirm/site/services/site-service/internal/storage"
)

// writeError maps domain errors to status codes. notFound is the message for
// model.ErrNotFound; fallback is shown for anything unexpected, which is
// also logged.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFound, fallback string) {
	if v, ok := model.AsValidation(err); ok {
		httpx.WriteFieldError(w, http.StatusBadRequest, v.Message, v.Field)
		return
	}
	switch {
	case errors.Is(err, model.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, notFound)
	case errors.Is(err, model.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, model.ErrInvalidState):
		httpx.WriteError(w, http.StatusConflict, "Action not allowed in the current step")
	case errors.Is(err, storage.ErrIdempotencyMismatch):
		httpx.WriteError(w, http.StatusConflict, "Idempotency-Key was already used with a different request")
	case storage.IsConflict(err):
		httpx.WriteError(w, http.StatusConflict, "Resource already exists")
	default:
		logger.Error(fallback, "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

func writeBadJSON(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
}

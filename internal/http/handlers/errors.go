package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sanchey92/trade-orders/internal/domain/model"
	"github.com/sanchey92/trade-orders/internal/http/lib/api/response"
)

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		response.UnprocessableEntity(w, verr.Violations)
	case errors.Is(err, model.ErrUnsupportedOperation):
		response.MethodNotAllowed(w)
	case errors.Is(err, model.ErrStorageUnavailable):
		log.Error("storage unavailable", slog.Any("error", err))
		response.ServiceUnavailable(w)
	default:
		log.Error("request failed", slog.Any("error", err))
		response.InternalError(w)
	}
}

// MethodNotAllowed answers a known path requested with an unsupported method.
func MethodNotAllowed(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, log, fmt.Errorf("%s %s: %w", r.Method, r.URL.Path, model.ErrUnsupportedOperation))
	}
}

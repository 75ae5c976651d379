package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sanchey92/trade-orders/internal/domain/model"
	"github.com/sanchey92/trade-orders/internal/http/lib/api/decode"
	"github.com/sanchey92/trade-orders/internal/http/lib/api/response"
)

type OrderCreator interface {
	Create(ctx context.Context, raw model.RawOrder) (*model.Order, error)
}

func Create(service OrderCreator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.RawOrder

		if err := decode.JSON(w, r, &req); err != nil {
			writeError(w, log, model.BodyError(err.Error()))
			return
		}

		order, err := service.Create(r.Context(), req)
		if err != nil {
			writeError(w, log, err)
			return
		}

		response.OK(w, order)
	}
}

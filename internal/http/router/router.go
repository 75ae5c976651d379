package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/sanchey92/trade-orders/internal/http/handlers"
	"github.com/sanchey92/trade-orders/internal/http/lib/api/response"
	"github.com/sanchey92/trade-orders/internal/http/middlewares"
)

type OrderService interface {
	handlers.OrderCreator
	handlers.OrderLister
}

type Deps struct {
	Orders        OrderService
	Store         handlers.Pinger
	StatusChannel http.Handler
	CORSOrigins   []string
}

// New wires the public routes. Unsupported methods on a known path get 405,
// unknown paths 404.
func New(d Deps, log *slog.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", handlers.Root()).Methods(http.MethodGet)
	r.HandleFunc("/health", handlers.Health(d.Store, log)).Methods(http.MethodGet)
	r.HandleFunc("/orders", handlers.List(d.Orders, log)).Methods(http.MethodGet)
	r.HandleFunc("/orders", handlers.Create(d.Orders, log)).Methods(http.MethodPost)
	if d.StatusChannel != nil {
		r.Handle("/ws", d.StatusChannel).Methods(http.MethodGet)
	}

	r.MethodNotAllowedHandler = handlers.MethodNotAllowed(log)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w)
	})

	var h http.Handler = r
	if len(d.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", middlewares.RequestIDHeader},
		}).Handler(h)
	}

	// Recovery sits inside the access log so a panic is logged as a 500.
	h = middlewares.Recovery(log)(h)
	h = middlewares.RequestLogger(log)(h)
	return h
}

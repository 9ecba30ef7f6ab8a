package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Logger    zerolog.Logger
	Metrics   httpObserver
	MetricsUI http.Handler
	JWTSecret string
	Orders    *OrdersHandler
	Catalog   *CatalogHandler
}

func NewRouter(d RouterDeps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Logger), middleware.Recoverer)
	r.Use(metricsMiddleware(d.Metrics))
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.MetricsUI != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsUI)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(Authenticate(d.JWTSecret))
		d.Orders.Register(api)
		d.Catalog.Register(api)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusNotFound, "route not found")
	})
	return r
}

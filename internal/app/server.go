package app

import (
	"net/http"

	"audio-policy/internal/common/logging"
	"audio-policy/internal/handlers"
	"audio-policy/internal/middleware"
	"audio-policy/internal/server"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the HTTP routes of the control surface
func (app *App) Router() http.Handler {
	h := handlers.New(app.Manager, logging.GetGlobalLogger().WithFields(logging.String("component", "handlers")))

	router := mux.NewRouter()
	router.Use(middleware.Logging(app.Logger))

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	h.RegisterRoutes(router)

	if app.Registry != nil {
		metricsHandler := promhttp.InstrumentMetricHandler(
			app.Registry, promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
		)
		router.Handle("/metrics", metricsHandler).Methods("GET")
	}

	return router
}

// RunServer creates the HTTP server for the control surface
func (app *App) RunServer() *server.Server {
	return server.New(app.Router(), app.Config.Port, app.Logger)
}

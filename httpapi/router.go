// Package httpapi implements the collaborator HTTP surface described by
// spec.md §6: a single POST /api/calculate endpoint plus static asset
// hosting, wired with chi and cors the way the rest of the retrieval pack's
// services are.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/skywatch/transitfinder/registry"
	"github.com/skywatch/transitfinder/shadow"
)

// NewRouter builds the chi router for the prediction service. staticDir, if
// non-empty, is served at "/" via http.FileServer; it is a collaborator
// concern kept minimal since it has no bearing on prediction correctness.
func NewRouter(reg *registry.Registry, kernel *shadow.Kernel, log *logrus.Logger, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &Handler{Registry: reg, Kernel: kernel, Log: log}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/calculate", h.Calculate)
	})

	if staticDir != "" {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Handle("/*", fileServer)
	}

	return r
}

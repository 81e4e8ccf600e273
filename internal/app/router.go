package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-mock-interview/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-mock-interview/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
// Every business route sits behind auth; mutating ones are also rate limited per IP.
func BuildRouter(cfg config.Config, srv *httpserver.Server, auth httpserver.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "If-None-Match", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "ETag", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Group(func(ar chi.Router) {
		ar.Use(auth.Middleware)

		ar.Get("/interview", srv.ListInterviewsHandler())
		ar.Get("/interview/{id}", srv.GetInterviewHandler())
		ar.Get("/interview/{id}/results", srv.ResultsHandler())

		ar.Group(func(wr chi.Router) {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
			wr.Post("/answer", srv.SubmitMainAnswerHandler())
			wr.Put("/answer", srv.SubmitFollowUpAnswerHandler())
			wr.Post("/interview", srv.CreateInterviewHandler())
			wr.Delete("/interview/{id}", srv.DeleteInterviewHandler())
			if srv.Media != nil {
				wr.Post("/media", srv.UploadMediaHandler())
			}
		})
	})

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}

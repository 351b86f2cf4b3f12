package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tourista/backend/internal/metrics"
	appMiddleware "github.com/tourista/backend/internal/middleware"
	"github.com/tourista/backend/internal/services"
)

type RouterConfig struct {
	CORSOrigins    []string
	RateLimit      int // requests per minute per client IP on /api; 0 disables
	RequestTimeout time.Duration
}

// NewRouter wires every HTTP endpoint of the service.
func NewRouter(profiles *services.ProfileService, collector *metrics.Collector, cfg RouterConfig) http.Handler {
	profileHandler := NewProfileHandler(profiles, cfg.RequestTimeout)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(appMiddleware.Observe(collector))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", appMiddleware.RequestIDHeader},
		ExposedHeaders: []string{appMiddleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hello, World!"))
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if collector != nil {
		r.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	r.Route("/api/users/{phone}", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}

		r.Route("/places", func(r chi.Router) {
			r.Get("/", profileHandler.GetPlaces)
			r.Patch("/", profileHandler.UpdatePlaces)
			r.Post("/", profileHandler.UpdatePlaces)
			r.Patch("/remove", profileHandler.RemoveTopmostPlace)
			r.Patch("/remove/{name}", profileHandler.RemovePlaceByName)
		})

		r.Get("/location", profileHandler.GetLocation)
		r.Patch("/location", profileHandler.UpdateLocation)
		r.Post("/location", profileHandler.UpdateLocation)

		r.Get("/chat_history", profileHandler.GetChatHistory)
		r.Patch("/chat_history", profileHandler.UpdateChatHistory)
		r.Post("/chat_history", profileHandler.UpdateChatHistory)

		r.Get("/interest", profileHandler.GetInterest)
		r.Post("/interest", profileHandler.UpdateInterest)
		r.Patch("/interest", profileHandler.UpdateInterest)

		r.Get("/language", profileHandler.GetLanguage)
		r.Post("/language", profileHandler.UpdateLanguage)
		r.Patch("/language", profileHandler.UpdateLanguage)
	})

	return r
}

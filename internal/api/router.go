package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/carshelf/internal/api/handlers"
	"github.com/isdelr/carshelf/internal/auth"
	"github.com/isdelr/carshelf/internal/enrichment"
	"github.com/isdelr/carshelf/internal/metrics"
	"github.com/isdelr/carshelf/internal/services"
	"github.com/isdelr/carshelf/internal/session"
	"github.com/isdelr/carshelf/internal/websocket"
)

// Dependencies groups everything the router wires into handlers.
type Dependencies struct {
	Accounts        services.AccountServiceProvider
	Items           services.ItemServiceProvider
	Events          services.EventServiceProvider
	Sessions        *session.Manager
	Enricher        enrichment.Enricher
	Feeds           enrichment.Feeds
	Hub             *websocket.Hub
	Metrics         *metrics.Metrics
	Health          handlers.Pinger
	AllowedOrigins  []string
	SignupAllowRole bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(deps.Accounts, deps.Sessions, deps.SignupAllowRole)
	itemHandler := handlers.NewItemHandler(deps.Items)
	userHandler := handlers.NewUserHandler(deps.Accounts)
	pageHandler := handlers.NewPageHandler(deps.Accounts, deps.Items, deps.Enricher)
	feedHandler := handlers.NewFeedHandler(deps.Feeds)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Events, deps.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(deps.Health)

	browserGate := auth.NewGate(deps.Accounts, auth.RedirectOnFailure("/login", "/main"), deps.Metrics)
	apiGate := auth.NewGate(deps.Accounts, auth.StatusOnFailure(), deps.Metrics)

	// Ops endpoints carry no session.
	r.Get("/healthz", healthHandler.Check)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.Middleware)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/signup", http.StatusFound)
		})
		r.Get("/signup", accountHandler.Page("signup"))
		r.Post("/signup", accountHandler.Signup)
		r.Get("/login", accountHandler.Page("login"))
		r.Post("/login", accountHandler.Login)
		r.Post("/setLanguage", accountHandler.SetLanguage)

		r.With(browserGate.RequireAuth).Get("/main", pageHandler.Main)
		r.Get("/chuck", feedHandler.Joke)
		r.Get("/astro", feedHandler.Picture)

		r.Route("/admin", func(r chi.Router) {
			r.Use(browserGate.RequireAuth, browserGate.RequireAdmin)

			r.Get("/", pageHandler.Admin)
			r.Get("/activity", eventHandler.GetRecent)
			r.Get("/ws", wsHandler.Serve)

			r.Route("/users/{id}", func(r chi.Router) {
				r.Delete("/", userHandler.Delete)
				r.Post("/delete", userHandler.Delete)
			})

			r.Post("/items", itemHandler.Create)
			r.Route("/items/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.Get)
				r.Post("/", itemHandler.Update)
				r.Put("/", itemHandler.Update)
				r.Delete("/", itemHandler.Delete)
				r.Post("/delete", itemHandler.Delete)
			})
		})

		// API versioning
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/auth/signup", accountHandler.APISignup)
			r.Post("/auth/login", accountHandler.APILogin)
			r.Post("/session/language", accountHandler.APISetLanguage)

			r.Group(func(r chi.Router) {
				r.Use(apiGate.RequireAuth)

				r.Get("/me", accountHandler.Me)
				r.Get("/items", itemHandler.GetAll)
				r.Get("/items/{id}", itemHandler.Get)
			})

			r.Group(func(r chi.Router) {
				r.Use(apiGate.RequireAuth, apiGate.RequireAdmin)

				r.Post("/items", itemHandler.APICreate)
				r.Put("/items/{id}", itemHandler.APIUpdate)
				r.Delete("/items/{id}", itemHandler.APIDelete)
				r.Get("/users", userHandler.GetAll)
				r.Delete("/users/{id}", userHandler.APIDelete)
				r.Get("/events", eventHandler.GetRecent)
			})
		})
	})

	return r
}
